// Package manifest describes an entity type's published identity: where
// its rows live and what its change notifications are called.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/livetable/internal/resolver"
	"github.com/roach88/livetable/internal/schema"
)

// Manifest is the metadata supplied once per entity type.
type Manifest struct {
	Namespace   string   `yaml:"namespace" json:"namespace"`
	Name        string   `yaml:"name" json:"name"`
	Version     string   `yaml:"version" json:"version"`
	DisplayName string   `yaml:"displayName,omitempty" json:"displayName,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Chains      []string `yaml:"chains,omitempty" json:"chains,omitempty"`
}

var nonWord = regexp.MustCompile(`\W`)

// Validate checks the fields naming depends on and de-duplicates chains.
func (m *Manifest) Validate() error {
	if m.Namespace == "" {
		return fmt.Errorf("manifest: namespace is required")
	}
	if m.Name == "" {
		return fmt.Errorf("manifest: name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("manifest: version is required")
	}
	if strings.ContainsAny(m.Name, ".@") {
		return fmt.Errorf("manifest: name %q must not contain '.' or '@'", m.Name)
	}
	m.Chains = uniqueChains(m.Chains)
	return nil
}

// DefaultTable returns namespace.snake_name_version, with non-word
// characters stripped from the version.
func (m Manifest) DefaultTable() string {
	table := schema.SnakeCase(m.Name) + "_" + nonWord.ReplaceAllString(m.Version, "")
	return m.Namespace + "." + table
}

// ChangedEventName returns namespace.NameChanged@version.
func (m Manifest) ChangedEventName() string {
	return resolver.FormatName(m.Namespace, m.Name+"Changed", m.Version)
}

// Title returns the display name, falling back to the name.
func (m Manifest) Title() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Name
}

// Load reads a manifest from a YAML or JSON file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func uniqueChains(chains []string) []string {
	out := make([]string, 0, len(chains))
	for _, c := range chains {
		c = strings.TrimSpace(c)
		if c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}
