package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/querysql"
	"github.com/roach88/livetable/internal/upsert"
)

// Upsert executes one insert-or-update and returns the written row. No
// row comes back when the conflict update was skipped, either because the
// spec has no update columns or because the ordering guard rejected an
// older write.
func (s *Store) Upsert(ctx context.Context, spec *upsert.Spec, auth AuthContext) ([]Row, error) {
	if err := s.authorize(auth); err != nil {
		return nil, &errs.StorageError{Op: "upsert", Target: spec.Table, Err: err}
	}
	rows, err := execUpsert(ctx, s.db, spec)
	if err != nil {
		return nil, &errs.StorageError{Op: "upsert", Target: spec.Table, Err: err}
	}
	return rows, nil
}

// Transaction executes specs in order inside one transaction. Either every
// upsert is committed or none is. Results are returned per spec.
func (s *Store) Transaction(ctx context.Context, specs []*upsert.Spec, auth AuthContext) ([][]Row, error) {
	const target = "multiple"
	if err := s.authorize(auth); err != nil {
		return nil, &errs.StorageError{Op: "tx", Target: target, Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &errs.StorageError{Op: "tx", Target: target, Err: fmt.Errorf("begin: %w", err)}
	}
	defer tx.Rollback()

	results := make([][]Row, 0, len(specs))
	for _, spec := range specs {
		rows, err := execUpsert(ctx, tx, spec)
		if err != nil {
			return nil, &errs.StorageError{Op: "tx", Target: spec.Table, Err: err}
		}
		results = append(results, rows)
	}

	if err := tx.Commit(); err != nil {
		return nil, &errs.StorageError{Op: "tx", Target: target, Err: fmt.Errorf("commit: %w", err)}
	}
	return results, nil
}

func execUpsert(ctx context.Context, q querier, spec *upsert.Spec) ([]Row, error) {
	if spec == nil {
		return nil, fmt.Errorf("nil upsert spec")
	}

	cols := make([]string, 0, len(spec.InsertData))
	for col := range spec.InsertData {
		cols = append(cols, col)
	}
	slices.Sort(cols)
	values := make([]any, len(cols))
	for i, col := range cols {
		values[i] = spec.InsertData[col]
	}

	query, params, err := querysql.CompileUpsert(querysql.Upsert{
		Table:          spec.Table,
		Columns:        cols,
		Values:         values,
		Conflict:       spec.ConflictColumns,
		Update:         spec.UpdateColumns,
		OrderingColumn: spec.OrderingTimestampColumn,
	})
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}
