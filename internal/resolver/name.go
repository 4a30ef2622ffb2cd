package resolver

import "strings"

const contractsSegment = "contracts"

// Name is a parsed input name of the form
// chain.contracts.namespace.contract.member[@version].
type Name struct {
	Chain     string
	Namespace string // may contain dots
	Contract  string
	Member    string
	Version   string
}

// ParseName splits a chain-qualified contract input name. It reports false
// for names that do not carry the chain and contracts segments.
func ParseName(s string) (Name, bool) {
	base, version, _ := strings.Cut(s, "@")
	segs := strings.Split(base, ".")
	if len(segs) < 5 || segs[1] != contractsSegment {
		return Name{}, false
	}
	for _, seg := range segs {
		if seg == "" {
			return Name{}, false
		}
	}
	n := len(segs)
	return Name{
		Chain:     segs[0],
		Namespace: strings.Join(segs[2:n-2], "."),
		Contract:  segs[n-2],
		Member:    segs[n-1],
		Version:   version,
	}, true
}

// String formats the name back into its fully qualified form.
func (n Name) String() string {
	s := strings.Join([]string{n.Chain, contractsSegment, n.Namespace, n.Contract, n.Member}, ".")
	return withVersion(s, n.Version)
}

// ContractGroup returns namespace.contract, the key contracts of one kind
// are grouped under.
func (n Name) ContractGroup() string {
	return n.Namespace + "." + n.Contract
}

// FormatName builds a namespaced, versioned name: nsp.name@version.
func FormatName(nsp, name, version string) string {
	return withVersion(nsp+"."+name, version)
}

// SplitVersion separates a trailing @version from a name.
func SplitVersion(s string) (base, version string) {
	base, version, _ = strings.Cut(s, "@")
	return base, version
}

// ContractGroup infers the contract group from a chain-qualified input name.
func ContractGroup(input string) (string, bool) {
	n, ok := ParseName(input)
	if !ok {
		return "", false
	}
	return n.ContractGroup(), true
}

func withVersion(s, version string) string {
	if version == "" {
		return s
	}
	return s + "@" + version
}
