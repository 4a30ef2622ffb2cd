package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/livetable/internal/coerce"
	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/ir"
)

// ColumnSchema is the storage description of one property's column.
type ColumnSchema struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Semantic ir.Type `json:"semantic"`
	NotNull  bool    `json:"not_null,omitempty"`
	Index    bool    `json:"index,omitempty"`
	Default  *string `json:"default,omitempty"`
}

// TableSpec describes the table backing an entity type.
type TableSpec struct {
	Schema   string         `json:"schema,omitempty"`
	Table    string         `json:"table"`
	Columns  []ColumnSchema `json:"columns"`
	UniqueBy [][]string     `json:"unique_by"`
	IndexBy  [][]string     `json:"index_by"`
}

// QualifiedName returns schema.table, or the bare table without a schema.
func (t *TableSpec) QualifiedName() string {
	if t.Schema == "" {
		return t.Table
	}
	return t.Schema + "." + t.Table
}

// Column looks up a column by name.
func (t *TableSpec) Column(name string) (ColumnSchema, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

// ToSchema describes every column in registration order. Numeric columns
// without an explicit default get 0 and array columns get an empty list.
func (r *Registry) ToSchema() ([]ColumnSchema, error) {
	cols := make([]ColumnSchema, 0, len(r.defs))
	for _, def := range r.defs {
		colType := def.ColumnType
		if colType == "" {
			st, err := coerce.StorageType(def.Type)
			if err != nil {
				var re *errs.RegistrationError
				if errors.As(err, &re) {
					re.EntityType = r.entityType
					re.Properties = []string{def.Name}
				}
				return nil, fmt.Errorf("column %s: %w", def.Column, err)
			}
			colType = st
		}

		cols = append(cols, ColumnSchema{
			Name:     def.Column,
			Type:     colType,
			Semantic: def.Type,
			NotNull:  def.NotNull,
			Index:    def.Index,
			Default:  columnDefault(def, colType),
		})
	}
	return cols, nil
}

func columnDefault(def PropertyDefinition, colType string) *string {
	var s string
	switch {
	case def.HasDefault:
		if def.Default == nil {
			return nil
		}
		if colType == coerce.ColumnJSON {
			data, err := ir.MarshalCanonical(def.Default)
			if err != nil {
				return nil
			}
			s = string(data)
		} else {
			s = fmt.Sprint(def.Default)
		}
	case def.Type.IsArray():
		s = "[]"
	case def.Type.IsNumeric():
		s = "0"
	default:
		return nil
	}
	return &s
}

// TableSpec builds the table description for table ("schema.table" or a
// bare name). indexBy and uniqueBy are groups of property names; uniqueBy
// defaults to the registry's uniqueness key. Properties flagged Index that
// no group already covers get a single-column index.
func (r *Registry) TableSpec(table string, indexBy, uniqueBy [][]string) (*TableSpec, error) {
	cols, err := r.ToSchema()
	if err != nil {
		return nil, err
	}

	spec := &TableSpec{Table: table, Columns: cols}
	if schemaName, name, ok := strings.Cut(table, "."); ok {
		spec.Schema, spec.Table = schemaName, name
	}

	if len(uniqueBy) == 0 {
		uniqueBy = [][]string{r.uniqueBy}
	}
	if spec.UniqueBy, err = r.columnGroups("uniqueBy", uniqueBy); err != nil {
		return nil, err
	}
	if spec.IndexBy, err = r.columnGroups("indexBy", indexBy); err != nil {
		return nil, err
	}

	covered := make(map[string]bool)
	for _, group := range spec.IndexBy {
		if len(group) == 1 {
			covered[group[0]] = true
		}
	}
	for _, c := range cols {
		if c.Index && !covered[c.Name] {
			spec.IndexBy = append(spec.IndexBy, []string{c.Name})
			covered[c.Name] = true
		}
	}
	return spec, nil
}

func (r *Registry) columnGroups(kind string, groups [][]string) ([][]string, error) {
	out := make([][]string, 0, len(groups))
	for _, group := range groups {
		cols := make([]string, 0, len(group))
		for _, prop := range group {
			col, ok := r.propToCol[prop]
			if !ok {
				return nil, errs.NewValidation(errs.CodeUnknownProperty, prop,
					fmt.Sprintf("%s references unknown property", kind))
			}
			cols = append(cols, col)
		}
		if len(cols) > 0 {
			out = append(out, cols)
		}
	}
	return slices.Clip(out), nil
}
