// Package upsert turns a record's change set into a single
// insert-or-update instruction for row storage. It performs no I/O.
package upsert

import (
	"sort"

	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/ir"
	"github.com/roach88/livetable/internal/schema"
	"github.com/roach88/livetable/internal/snapshot"
)

// Spec is an "insert, on conflict update" instruction.
type Spec struct {
	Table string `json:"table"`

	// InsertData is keyed by column and holds storage representations.
	InsertData map[string]any `json:"data"`

	// ConflictColumns is the uniqueness key, in declared order.
	ConflictColumns []string `json:"conflict_columns"`

	// UpdateColumns change on conflict. Sorted.
	UpdateColumns []string `json:"update_columns"`

	// OrderingTimestampColumn, when set, guards against older writes
	// replacing newer rows.
	OrderingTimestampColumn string `json:"primary_timestamp_column,omitempty"`

	// Changes is the property-keyed change set the spec was built from.
	Changes snapshot.ChangeSet `json:"-"`
}

// Compose builds the Spec for values against the tracker's snapshot.
//
// It returns nil without error when a uniqueness-key property has no
// value: the record cannot be identified yet. It fails when the type has a
// primary ordering timestamp and the change set holds no value for it.
func Compose(reg *schema.Registry, tracker *snapshot.Tracker, values ir.Values, table string) (*Spec, error) {
	changes := tracker.Diff(values)

	for _, name := range reg.UniqueBy() {
		if v, ok := changes[name]; !ok || ir.IsNull(v) {
			return nil, nil
		}
	}

	var tsColumn string
	if ts, ok := reg.PrimaryTimestamp(); ok {
		if v, ok := changes[ts]; !ok || ir.IsNull(v) {
			return nil, errs.NewValidation(errs.CodeMissingOrderingTimestamp, ts,
				"primary ordering timestamp has no value")
		}
		tsColumn, _ = reg.ToColumnName(ts)
	}

	update := make([]string, 0, len(changes))
	for name := range changes {
		if reg.IsUnique(name) || !reg.CanUpdate(name) {
			continue
		}
		if col, ok := reg.ToColumnName(name); ok {
			update = append(update, col)
		}
	}
	sort.Strings(update)

	return &Spec{
		Table:                   table,
		InsertData:              reg.ToRecord(changes),
		ConflictColumns:         reg.UniqueColumns(),
		UpdateColumns:           update,
		OrderingTimestampColumn: tsColumn,
		Changes:                 changes,
	}, nil
}
