package schema

import (
	"github.com/roach88/livetable/internal/coerce"
	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/ir"
)

// ToRecord converts property values into a column-keyed storage row.
// Unregistered properties are dropped.
func (r *Registry) ToRecord(values ir.Values) map[string]any {
	row := make(map[string]any, len(values))
	for name, v := range values {
		col, ok := r.propToCol[name]
		if !ok {
			continue
		}
		row[col] = coerce.ToColumn(v, r.TypeOf(name))
	}
	return row
}

// FromRecord converts a storage row back into property values.
// Columns without a registered property are dropped.
func (r *Registry) FromRecord(row map[string]any) ir.Values {
	values := make(ir.Values, len(row))
	for col, raw := range row {
		name, ok := r.colToProp[col]
		if !ok {
			continue
		}
		values[name] = coerce.FromColumn(raw, r.TypeOf(name))
	}
	return values
}

// Serialize converts property values to their storage representation
// while keeping property-name keys. Used for change notifications.
func (r *Registry) Serialize(values ir.Values) map[string]any {
	out := make(map[string]any, len(values))
	for name, v := range values {
		if !r.Has(name) {
			continue
		}
		out[name] = coerce.ToColumn(v, r.TypeOf(name))
	}
	return out
}

// LoadFilters builds the column-keyed equality filter that identifies the
// row for values. Every uniqueness-key property must have a value.
func (r *Registry) LoadFilters(values ir.Values) (map[string]any, error) {
	filters := make(map[string]any, len(r.uniqueBy))
	for _, name := range r.uniqueBy {
		v, ok := values[name]
		if !ok || ir.IsNull(v) {
			return nil, errs.NewValidation(errs.CodeMissingUniqueValue, name,
				"uniqueness-key property has no value")
		}
		filters[r.propToCol[name]] = coerce.ToColumn(v, r.TypeOf(name))
	}
	return filters, nil
}
