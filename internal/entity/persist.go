package entity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/livetable/internal/coerce"
	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/ir"
	"github.com/roach88/livetable/internal/queue"
	"github.com/roach88/livetable/internal/store"
	"github.com/roach88/livetable/internal/upsert"
)

var errNoTables = errors.New("no row storage configured")

// Save writes the record's changes.
//
// Nothing is written when a uniqueness-key property is unset, or when the
// record was already persisted and only key and origin-context properties
// remain in its change set. After a write the record is resynchronized
// from the returned row, the snapshot re-captured and a change
// notification queued. An empty result means the ordering guard rejected
// the write: the snapshot is kept and nothing is published.
func (r *Record) Save(ctx context.Context) error {
	spec, err := r.prepareSave()
	if err != nil || spec == nil {
		return err
	}
	if r.tables == nil {
		return &errs.StorageError{Op: "upsert", Target: spec.Table, Err: errNoTables}
	}

	rows, err := r.tables.Upsert(ctx, spec, r.auth)
	if err != nil {
		return storageError("upsert", spec.Table, err)
	}
	r.finishSave(spec, rows)
	return nil
}

// SaveAll saves records in one storage transaction, using the first
// record's row storage. Records with nothing to write are skipped.
func SaveAll(ctx context.Context, records ...*Record) error {
	var (
		specs  []*upsert.Spec
		owners []*Record
		tables Tables
		auth   store.AuthContext
	)
	for _, r := range records {
		if tables == nil {
			tables, auth = r.tables, r.auth
		}
		spec, err := r.prepareSave()
		if err != nil {
			return err
		}
		if spec != nil {
			specs = append(specs, spec)
			owners = append(owners, r)
		}
	}
	if len(specs) == 0 {
		return nil
	}
	if tables == nil {
		return &errs.StorageError{Op: "tx", Target: "multiple", Err: errNoTables}
	}

	results, err := tables.Transaction(ctx, specs, auth)
	if err != nil {
		return storageError("tx", "multiple", err)
	}
	for i, r := range owners {
		var rows []store.Row
		if i < len(results) {
			rows = results[i]
		}
		r.finishSave(specs[i], rows)
	}
	return nil
}

// prepareSave composes the upsert, or returns nil when there is nothing
// to write.
func (r *Record) prepareSave() (*upsert.Spec, error) {
	if r.persisted && !r.tracker.Changed(r.values) {
		slog.Warn("no properties changed", "type", r.typ.Name(), "table", r.typ.table)
		r.state = Skipped
		return nil, nil
	}

	spec, err := upsert.Compose(r.typ.registry, r.tracker, r.values, r.typ.table)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", r.typ.Name(), err)
	}
	if spec == nil {
		slog.Debug("uniqueness key incomplete, not saving", "type", r.typ.Name())
		r.state = Skipped
	}
	return spec, nil
}

func (r *Record) finishSave(spec *upsert.Spec, rows []store.Row) {
	if len(rows) == 0 || rows[0] == nil {
		slog.Info("write not applied", "type", r.typ.Name(), "table", spec.Table)
		r.state = Skipped
		return
	}
	r.assignProperties(r.typ.registry.FromRecord(rows[0]))
	r.persisted = true
	r.state = Saved
	r.publishChange(spec)
}

func (r *Record) publishChange(spec *upsert.Spec) {
	data := r.typ.registry.Serialize(spec.Changes)
	if len(data) == 0 {
		slog.Warn("no changes to publish", "event", r.typ.ChangedEventName())
		return
	}
	r.queues.Events.Push(queue.Event{Name: r.typ.ChangedEventName(), Data: data})
}

// Load reads the record's row by its uniqueness key. It reports whether
// the row existed.
func (r *Record) Load(ctx context.Context) (bool, error) {
	filter, err := r.typ.registry.LoadFilters(r.values)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", r.typ.Name(), err)
	}
	if r.tables == nil {
		return false, &errs.StorageError{Op: "select", Target: r.typ.table, Err: errNoTables}
	}

	rows, err := r.tables.Select(ctx, r.typ.table, []store.Filter{filter}, store.SelectOptions{Limit: 1}, r.auth)
	if err != nil {
		return false, storageError("select", r.typ.table, err)
	}
	if len(rows) == 0 {
		return false, nil
	}

	r.assignProperties(r.typ.registry.FromRecord(rows[0]))
	r.persisted = true
	r.assignOriginIfSameChain()
	return true, nil
}

// Where is a property-keyed filter. Values are ir.Values, plain Go values
// or store.Op comparisons.
type Where map[string]any

// FindOptions shapes Find. OrderBy holds property names; unknown ones are
// ignored.
type FindOptions struct {
	OrderBy []string
	Desc    bool
	Limit   int
	Offset  int
}

// Find returns records of t matching any of where, sharing this record's
// collaborators and input.
func (r *Record) Find(ctx context.Context, t *Type, where []Where, opts FindOptions) ([]*Record, error) {
	filters := make([]store.Filter, 0, len(where))
	for _, w := range where {
		f, err := t.columnFilter(w)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", t.Name(), err)
		}
		filters = append(filters, f)
	}

	sel := store.SelectOptions{Desc: opts.Desc, Limit: opts.Limit, Offset: opts.Offset}
	for _, prop := range opts.OrderBy {
		if col, ok := t.registry.ToColumnName(prop); ok {
			sel.OrderBy = append(sel.OrderBy, col)
		}
	}

	if r.tables == nil {
		return nil, &errs.StorageError{Op: "select", Target: t.table, Err: errNoTables}
	}
	rows, err := r.tables.Select(ctx, t.table, filters, sel, r.auth)
	if err != nil {
		return nil, storageError("select", t.table, err)
	}

	out := make([]*Record, 0, len(rows))
	for _, row := range rows {
		found := r.spawn(t)
		found.assignProperties(t.registry.FromRecord(row))
		found.persisted = true
		found.assignOriginIfSameChain()
		out = append(out, found)
	}
	return out, nil
}

// FindOne returns the first record of t matching where, or nil.
func (r *Record) FindOne(ctx context.Context, t *Type, where []Where, opts FindOptions) (*Record, error) {
	opts.Limit = 1
	found, err := r.Find(ctx, t, where, opts)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// columnFilter translates a property-keyed filter into storage columns
// and representations.
func (t *Type) columnFilter(w Where) (store.Filter, error) {
	f := make(store.Filter, len(w))
	for prop, want := range w {
		col, ok := t.registry.ToColumnName(prop)
		if !ok {
			return nil, errs.NewValidation(errs.CodeUnknownProperty, prop, "filter references unknown property")
		}
		typ := t.registry.TypeOf(prop)

		op, isOp := want.(store.Op)
		if !isOp {
			v, err := toColumnValue(want, typ)
			if err != nil {
				return nil, errs.NewValidation(errs.CodeInvalidValue, prop, err.Error())
			}
			f[col] = v
			continue
		}

		if list, ok := op.Value.([]any); ok {
			converted := make([]any, len(list))
			for i, item := range list {
				v, err := toColumnValue(item, typ)
				if err != nil {
					return nil, errs.NewValidation(errs.CodeInvalidValue, prop, err.Error())
				}
				converted[i] = v
			}
			f[col] = store.Op{Op: op.Op, Value: converted}
			continue
		}
		v, err := toColumnValue(op.Value, typ)
		if err != nil {
			return nil, errs.NewValidation(errs.CodeInvalidValue, prop, err.Error())
		}
		f[col] = store.Op{Op: op.Op, Value: v}
	}
	return f, nil
}

func toColumnValue(raw any, typ ir.Type) (any, error) {
	v, err := ir.FromNative(raw)
	if err != nil {
		return nil, err
	}
	return coerce.ToColumn(v, typ), nil
}

// storageError adds operation context unless the collaborator already did.
func storageError(op, target string, err error) error {
	if errs.IsStorage(err) {
		return err
	}
	return &errs.StorageError{Op: op, Target: target, Err: err}
}
