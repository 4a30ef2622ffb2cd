// Package schema holds the per-entity-type property registry: which
// properties exist, how they map to storage columns, and how a record's
// values convert to and from storage rows.
package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/livetable/internal/coerce"
	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/ir"
)

// Registry is the immutable set of properties of one entity type together
// with the property/column bijection.
type Registry struct {
	entityType       string
	defs             []PropertyDefinition
	byName           map[string]int
	propToCol        map[string]string
	colToProp        map[string]string
	uniqueBy         []string
	primaryTimestamp string
}

// New builds a Registry from definitions and a uniqueness key.
//
// It fails when the key is empty, names an unregistered property, two
// properties share a column, or more than one property is the primary
// ordering timestamp.
func New(defs []PropertyDefinition, uniqueBy []string) (*Registry, error) {
	return newRegistry("", defs, uniqueBy)
}

func newRegistry(entityType string, defs []PropertyDefinition, uniqueBy []string) (*Registry, error) {
	r := &Registry{
		entityType: entityType,
		defs:       make([]PropertyDefinition, 0, len(defs)),
		byName:     make(map[string]int, len(defs)),
		propToCol:  make(map[string]string, len(defs)),
		colToProp:  make(map[string]string, len(defs)),
		uniqueBy:   slices.Clone(uniqueBy),
	}

	if len(uniqueBy) == 0 {
		return nil, errs.NewRegistration(errs.CodeNoUniqueKey, entityType,
			"entity type declares no uniqueness-key properties")
	}

	for _, def := range defs {
		if _, dup := r.byName[def.Name]; dup {
			return nil, errs.NewRegistration(errs.CodeColumnCollision, entityType,
				fmt.Sprintf("property %q registered twice", def.Name), def.Name)
		}
		if def.Column == "" {
			def.Column = SnakeCase(def.Name)
		}
		if other, taken := r.colToProp[def.Column]; taken {
			return nil, errs.NewRegistration(errs.CodeColumnCollision, entityType,
				fmt.Sprintf("properties %q and %q both map to column %q", other, def.Name, def.Column),
				other, def.Name)
		}
		if def.PrimaryTimestamp {
			if r.primaryTimestamp != "" {
				return nil, errs.NewRegistration(errs.CodeMultiplePrimaryTimestamps, entityType,
					fmt.Sprintf("properties %q and %q are both primary timestamps", r.primaryTimestamp, def.Name),
					r.primaryTimestamp, def.Name)
			}
			r.primaryTimestamp = def.Name
		}
		def.Unique = slices.Contains(uniqueBy, def.Name)

		r.byName[def.Name] = len(r.defs)
		r.propToCol[def.Name] = def.Column
		r.colToProp[def.Column] = def.Name
		r.defs = append(r.defs, def)
	}

	var unknown []string
	for _, name := range uniqueBy {
		if _, ok := r.byName[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, errs.NewRegistration(errs.CodeUnknownUniqueProperty, entityType,
			fmt.Sprintf("uniqueness key references unregistered properties: %s", strings.Join(unknown, ", ")),
			unknown...)
	}

	return r, nil
}

// EntityType returns the name the registry was built for, if any.
func (r *Registry) EntityType() string { return r.entityType }

// Properties returns the definitions in registration order.
func (r *Registry) Properties() []PropertyDefinition {
	return slices.Clone(r.defs)
}

// Property looks up a definition by property name.
func (r *Registry) Property(name string) (PropertyDefinition, bool) {
	i, ok := r.byName[name]
	if !ok {
		return PropertyDefinition{}, false
	}
	return r.defs[i], true
}

// Has reports whether name is a registered property.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// TypeOf returns the semantic type of a property, or "" if unregistered.
func (r *Registry) TypeOf(name string) ir.Type {
	if i, ok := r.byName[name]; ok {
		return r.defs[i].Type
	}
	return ""
}

// UniqueBy returns the uniqueness key in declared order.
func (r *Registry) UniqueBy() []string {
	return slices.Clone(r.uniqueBy)
}

// UniqueColumns returns the uniqueness key's column names in declared order.
func (r *Registry) UniqueColumns() []string {
	cols := make([]string, len(r.uniqueBy))
	for i, name := range r.uniqueBy {
		cols[i] = r.propToCol[name]
	}
	return cols
}

// IsUnique reports whether name is part of the uniqueness key.
func (r *Registry) IsUnique(name string) bool {
	return slices.Contains(r.uniqueBy, name)
}

// CanUpdate reports whether a registered property may change on conflict.
func (r *Registry) CanUpdate(name string) bool {
	def, ok := r.Property(name)
	return ok && def.Updatable()
}

// PrimaryTimestamp returns the primary ordering timestamp property, if declared.
func (r *Registry) PrimaryTimestamp() (string, bool) {
	return r.primaryTimestamp, r.primaryTimestamp != ""
}

// ToColumnName maps a property name to its column.
func (r *Registry) ToColumnName(prop string) (string, bool) {
	col, ok := r.propToCol[prop]
	return col, ok
}

// FromColumnName maps a column back to its property name.
func (r *Registry) FromColumnName(col string) (string, bool) {
	prop, ok := r.colToProp[col]
	return prop, ok
}

// Validate checks that v may be assigned to property name.
func (r *Registry) Validate(name string, v ir.Value) error {
	def, ok := r.Property(name)
	if !ok {
		return errs.NewValidation(errs.CodeUnknownProperty, name, "property is not registered")
	}
	if !def.Type.Accepts(v) {
		return errs.NewValidation(errs.CodeInvalidValue, name,
			fmt.Sprintf("%T is not assignable to %s", v, def.Type))
	}
	return nil
}

// Defaults returns typed values for every property declaring a default.
func (r *Registry) Defaults() ir.Values {
	out := make(ir.Values)
	for _, def := range r.defs {
		if !def.HasDefault {
			continue
		}
		v, err := ir.FromNative(def.Default)
		if err != nil {
			continue
		}
		if _, isTime := v.(ir.Time); !isTime && !def.Type.IsStructured() {
			v = coerce.FromColumn(coerce.ToColumn(v, def.Type), def.Type)
		}
		out[def.Name] = v
	}
	return out
}
