// Package snapshot tracks the last persisted state of a record and
// computes which properties changed since.
//
// Change detection compares fingerprints of storage representations, not
// the values themselves: two values are equal when they would be written
// to storage identically. Fingerprints come from a Hasher. When a value
// cannot be hashed, its printed form stands in for the hash so the
// comparison degrades instead of failing.
package snapshot

import (
	"fmt"
	"maps"

	"github.com/roach88/livetable/internal/coerce"
	"github.com/roach88/livetable/internal/ir"
	"github.com/roach88/livetable/internal/schema"
)

// Hasher fingerprints a storage representation.
type Hasher interface {
	Hash(v any) (string, error)
}

// CanonicalHasher hashes the RFC 8785 canonical JSON of a value.
type CanonicalHasher struct{}

// Hash implements Hasher.
func (CanonicalHasher) Hash(v any) (string, error) {
	return ir.ColumnHash(v)
}

// ChangeSet maps property names to the values that need writing.
type ChangeSet = ir.Values

// Option configures a Tracker.
type Option func(*Tracker)

// WithHasher replaces the default canonical hasher.
func WithHasher(h Hasher) Option {
	return func(t *Tracker) { t.hasher = h }
}

// Tracker owns the snapshot of one record.
type Tracker struct {
	reg    *schema.Registry
	hasher Hasher
	snap   ir.Values
}

// NewTracker returns a tracker with an empty snapshot.
func NewTracker(reg *schema.Registry, opts ...Option) *Tracker {
	t := &Tracker{
		reg:    reg,
		hasher: CanonicalHasher{},
		snap:   ir.Values{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Capture replaces the snapshot with a copy of every registered property
// present in values.
func (t *Tracker) Capture(values ir.Values) {
	snap := make(ir.Values, len(values))
	for _, def := range t.reg.Properties() {
		v, ok := values[def.Name]
		if !ok {
			continue
		}
		snap[def.Name] = ir.Copy(v)
	}
	t.snap = snap
}

// Snapshot returns the captured values.
func (t *Tracker) Snapshot() ir.Values {
	return maps.Clone(t.snap)
}

// Diff returns the properties that must be written: every property with a
// value that is a uniqueness-key or origin-context property, or that
// changed since the last capture.
func (t *Tracker) Diff(values ir.Values) ChangeSet {
	diff := make(ChangeSet)
	for _, def := range t.reg.Properties() {
		cur, ok := values[def.Name]
		if !ok {
			continue
		}
		if def.Unique || schema.IsOriginContext(def.Name) || t.PropertyChanged(def.Name, cur, t.snap[def.Name]) {
			diff[def.Name] = cur
		}
	}
	return diff
}

// Changed reports whether anything beyond key and context properties
// differs from the snapshot.
func (t *Tracker) Changed(values ir.Values) bool {
	for name := range t.Diff(values) {
		if !t.reg.IsUnique(name) && !schema.IsOriginContext(name) {
			return true
		}
	}
	return false
}

// PropertyChanged compares two values of property name by the fingerprint
// of their storage representation.
func (t *Tracker) PropertyChanged(name string, a, b ir.Value) bool {
	typ := t.reg.TypeOf(name)
	return t.fingerprint(coerce.ToColumn(a, typ)) != t.fingerprint(coerce.ToColumn(b, typ))
}

func (t *Tracker) fingerprint(v any) string {
	if v == nil {
		return ""
	}
	h, err := t.hasher.Hash(v)
	if err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return h
}
