package schema

import (
	"slices"

	"github.com/roach88/livetable/internal/ir"
)

// Option configures a property during registration.
type Option func(*PropertyDefinition)

// Column overrides the default column name.
func Column(name string) Option {
	return func(d *PropertyDefinition) { d.Column = name }
}

// Indexed adds a single-column index for the property.
func Indexed() Option {
	return func(d *PropertyDefinition) { d.Index = true }
}

// Immutable keeps the column's stored value on conflict.
func Immutable() Option {
	return func(d *PropertyDefinition) {
		f := false
		d.CanUpdate = &f
	}
}

// Default sets the value new records and the column start with.
func Default(v any) Option {
	return func(d *PropertyDefinition) {
		d.HasDefault = true
		d.Default = v
	}
}

// PrimaryTimestamp marks the property whose column orders writes.
func PrimaryTimestamp() Option {
	return func(d *PropertyDefinition) { d.PrimaryTimestamp = true }
}

// NotNull adds a not-null constraint to the column.
func NotNull() Option {
	return func(d *PropertyDefinition) { d.NotNull = true }
}

// ColumnType overrides the storage type.
func ColumnType(t string) Option {
	return func(d *PropertyDefinition) { d.ColumnType = t }
}

// Builder collects an entity type's property registrations. Call Build
// once at type-definition time; the resulting Registry is immutable.
//
// Origin-context properties are always registered. Declaring one
// explicitly replaces its default options, and declaring another primary
// timestamp demotes blockTimestamp to an ordinary column.
type Builder struct {
	entityType string
	defs       []PropertyDefinition
	uniqueBy   []string
}

// NewBuilder starts a registration for entityType.
func NewBuilder(entityType string) *Builder {
	return &Builder{entityType: entityType}
}

// Property registers a property.
func (b *Builder) Property(name string, t ir.Type, opts ...Option) *Builder {
	def := PropertyDefinition{Name: name, Type: t}
	for _, opt := range opts {
		opt(&def)
	}
	b.defs = append(b.defs, def)
	return b
}

// Define registers a fully formed definition.
func (b *Builder) Define(def PropertyDefinition) *Builder {
	b.defs = append(b.defs, def)
	return b
}

// UniqueBy sets the uniqueness key.
func (b *Builder) UniqueBy(names ...string) *Builder {
	b.uniqueBy = slices.Clone(names)
	return b
}

// Build validates the registrations and returns the Registry. Unmappable
// semantic types are reported here rather than at first write.
func (b *Builder) Build() (*Registry, error) {
	defs := slices.Clone(b.defs)
	userTimestamp := slices.ContainsFunc(defs, func(d PropertyDefinition) bool { return d.PrimaryTimestamp })
	for _, origin := range OriginContext() {
		if slices.ContainsFunc(defs, func(d PropertyDefinition) bool { return d.Name == origin.Name }) {
			continue
		}
		if userTimestamp {
			origin.PrimaryTimestamp = false
		}
		defs = append(defs, origin)
	}

	reg, err := newRegistry(b.entityType, defs, b.uniqueBy)
	if err != nil {
		return nil, err
	}
	if _, err := reg.ToSchema(); err != nil {
		return nil, err
	}
	return reg, nil
}
