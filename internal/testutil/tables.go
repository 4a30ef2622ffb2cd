package testutil

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/querysql"
	"github.com/roach88/livetable/internal/store"
	"github.com/roach88/livetable/internal/upsert"
)

// MemoryTables is an in-memory row store with the same upsert semantics as
// store.Store: conflict on the spec's conflict columns, update only the
// listed columns, and skip updates that would move the ordering timestamp
// backwards. Rows are plain column maps; no type affinity is applied.
//
// Every upsert is recorded so tests can assert how many writes happened.
type MemoryTables struct {
	mu      sync.Mutex
	tables  map[string][]store.Row
	upserts []*upsert.Spec
	selects int

	// FailOn makes operations against the named table fail.
	FailOn map[string]error
}

// NewMemoryTables creates an empty store.
func NewMemoryTables() *MemoryTables {
	return &MemoryTables{tables: make(map[string][]store.Row)}
}

// Upserts returns every upsert spec received, in order.
func (m *MemoryTables) Upserts() []*upsert.Spec {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.upserts)
}

// Selects returns how many selects were executed.
func (m *MemoryTables) Selects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selects
}

// Rows returns a copy of every row of table in insertion order.
func (m *MemoryTables) Rows(table string) []store.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Row, len(m.tables[table]))
	for i, r := range m.tables[table] {
		out[i] = maps.Clone(r)
	}
	return out
}

// Put stores row as is, bypassing upsert semantics. Used to seed fixtures.
func (m *MemoryTables) Put(table string, row store.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = append(m.tables[table], maps.Clone(row))
}

// Select supports equality, in and not-in conditions, limit and offset.
// Rows come back in insertion order; OrderBy is ignored.
func (m *MemoryTables) Select(_ context.Context, table string, filters []store.Filter, opts store.SelectOptions, _ store.AuthContext) ([]store.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selects++
	if err := m.FailOn[table]; err != nil {
		return nil, &errs.StorageError{Op: "select", Target: table, Err: err}
	}

	var out []store.Row
	for _, row := range m.tables[table] {
		ok, err := matchAny(row, filters)
		if err != nil {
			return nil, &errs.StorageError{Op: "select", Target: table, Err: err}
		}
		if ok {
			out = append(out, maps.Clone(row))
		}
	}

	if opts.Offset > 0 {
		out = out[min(opts.Offset, len(out)):]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Upsert applies spec and returns the written row, or no row when the
// update was skipped.
func (m *MemoryTables) Upsert(_ context.Context, spec *upsert.Spec, _ store.AuthContext) ([]store.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts = append(m.upserts, spec)
	if err := m.FailOn[spec.Table]; err != nil {
		return nil, &errs.StorageError{Op: "upsert", Target: spec.Table, Err: err}
	}
	return m.apply(spec), nil
}

// Transaction applies specs in order. A failure leaves every table as it was.
func (m *MemoryTables) Transaction(_ context.Context, specs []*upsert.Spec, _ store.AuthContext) ([][]store.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := make(map[string][]store.Row, len(m.tables))
	for name, rows := range m.tables {
		saved[name] = slices.Clone(rows)
	}

	results := make([][]store.Row, 0, len(specs))
	for _, spec := range specs {
		m.upserts = append(m.upserts, spec)
		if err := m.FailOn[spec.Table]; err != nil {
			m.tables = saved
			return nil, &errs.StorageError{Op: "tx", Target: spec.Table, Err: err}
		}
		results = append(results, m.apply(spec))
	}
	return results, nil
}

func (m *MemoryTables) apply(spec *upsert.Spec) []store.Row {
	rows := m.tables[spec.Table]
	for i, existing := range rows {
		if !sameKey(existing, spec.InsertData, spec.ConflictColumns) {
			continue
		}
		if len(spec.UpdateColumns) == 0 || !newer(existing, spec) {
			return nil
		}
		updated := maps.Clone(existing)
		for _, col := range spec.UpdateColumns {
			updated[col] = spec.InsertData[col]
		}
		rows[i] = updated
		return []store.Row{maps.Clone(updated)}
	}

	row := maps.Clone(spec.InsertData)
	m.tables[spec.Table] = append(rows, row)
	return []store.Row{maps.Clone(row)}
}

func sameKey(row, data store.Row, cols []string) bool {
	for _, col := range cols {
		if fmt.Sprint(row[col]) != fmt.Sprint(data[col]) {
			return false
		}
	}
	return true
}

func newer(existing store.Row, spec *upsert.Spec) bool {
	col := spec.OrderingTimestampColumn
	if col == "" || existing[col] == nil {
		return true
	}
	return fmt.Sprint(spec.InsertData[col]) >= fmt.Sprint(existing[col])
}

func matchAny(row store.Row, filters []store.Filter) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}
	for _, f := range filters {
		ok, err := matchAll(row, f)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func matchAll(row store.Row, f store.Filter) (bool, error) {
	for col, want := range f {
		got := fmt.Sprint(row[col])
		op, isOp := want.(store.Op)
		if !isOp {
			if fmt.Sprint(want) != got {
				return false, nil
			}
			continue
		}

		switch op.Op {
		case querysql.OpIn, querysql.OpNotIn:
			list, _ := op.Value.([]any)
			found := slices.ContainsFunc(list, func(v any) bool { return fmt.Sprint(v) == got })
			if found != (op.Op == querysql.OpIn) {
				return false, nil
			}
		case querysql.OpNe:
			if fmt.Sprint(op.Value) == got {
				return false, nil
			}
		default:
			return false, fmt.Errorf("memory tables: unsupported operator %q", op.Op)
		}
	}
	return true, nil
}
