package store

import (
	"context"

	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/querysql"
)

// Select returns rows of table matching any of filters. No filters match
// every row.
func (s *Store) Select(ctx context.Context, table string, filters []Filter, opts SelectOptions, auth AuthContext) ([]Row, error) {
	if err := s.authorize(auth); err != nil {
		return nil, &errs.StorageError{Op: "select", Target: table, Err: err}
	}

	query, params, err := querysql.CompileSelect(querysql.Select{
		Table:   table,
		Where:   conditions(filters),
		OrderBy: opts.OrderBy,
		Desc:    opts.Desc,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
	if err != nil {
		return nil, &errs.StorageError{Op: "select", Target: table, Err: err}
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, &errs.StorageError{Op: "select", Target: table, Err: err}
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, &errs.StorageError{Op: "select", Target: table, Err: err}
	}
	return out, nil
}
