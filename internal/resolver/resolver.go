// Package resolver maps incoming event and call names to registered
// handlers.
//
// Producers emit fully chain- and version-qualified names such as
// eth.contracts.acme.token.Transfer@2, while handlers may be registered at
// any coarser level. Resolution tries candidate keys from most to least
// specific and returns the first registered one.
package resolver

import (
	"slices"
	"strings"
)

// Options control how a resolved handler is invoked.
type Options struct {
	// AutoSave nil means the record is saved after the handler runs.
	AutoSave  *bool
	CanReplay bool
	// Signature disambiguates overloaded members. Register appends it to
	// keys that carry no version.
	Signature string
}

// Registration binds a match key to a handler method.
type Registration struct {
	MatchKey string
	Method   string
	Options  Options
}

// ShouldAutoSave reports whether the registration allows the follow-up save.
func (r Registration) ShouldAutoSave() bool {
	return r.Options.AutoSave == nil || *r.Options.AutoSave
}

// Registry holds the handler registrations of one input kind.
// It is populated once at type-definition time and only read afterwards.
type Registry struct {
	regs map[string]Registration
	keys []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{regs: make(map[string]Registration)}
}

// Register adds a handler for key. A later registration for the same key
// replaces the earlier one.
func (r *Registry) Register(key, method string, opts Options) Registration {
	if opts.Signature != "" && !strings.Contains(key, "@") {
		key += "@" + opts.Signature
	}
	reg := Registration{MatchKey: key, Method: method, Options: opts}
	if _, exists := r.regs[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.regs[key] = reg
	return reg
}

// Keys returns the registered match keys in registration order.
func (r *Registry) Keys() []string {
	return slices.Clone(r.keys)
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	return len(r.regs)
}

// Resolve returns the registration for the most specific candidate of name.
// A miss is not an error here; callers decide whether a handler was required.
func (r *Registry) Resolve(name string) (Registration, bool) {
	for _, key := range Candidates(name) {
		if reg, ok := r.regs[key]; ok {
			return reg, true
		}
	}
	return Registration{}, false
}

// Candidates lists the keys tried for name, most specific first:
//
//	eth.contracts.acme.token.Transfer@2   exact
//	acme.token.Transfer@2                 chain dropped
//	token.Transfer@2                      namespace dropped
//	eth.token.Transfer@2                  chain kept, namespace dropped
//
// followed by the same four without the version. Names that are not chain
// qualified contract names only try themselves and their versionless form.
func Candidates(name string) []string {
	base, version := SplitVersion(name)

	var bases []string
	if n, ok := ParseName(name); ok {
		member := n.Contract + "." + n.Member
		bases = []string{
			base,
			n.Namespace + "." + member,
			member,
			n.Chain + "." + member,
		}
	} else {
		bases = []string{base}
	}

	out := make([]string, 0, 2*len(bases))
	seen := make(map[string]bool, 2*len(bases))
	add := func(key string) {
		if key != "" && !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	add(name)
	if version != "" {
		for _, b := range bases {
			add(b + "@" + version)
		}
	}
	for _, b := range bases {
		add(b)
	}
	return out
}
