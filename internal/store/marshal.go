package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/livetable/internal/ir"
	"github.com/roach88/livetable/internal/schema"
)

// marshalSpec encodes a TableSpec for the live_tables bookkeeping row and
// returns the encoding with its hash. Struct fields encode in declaration
// order, so equal specs always encode identically.
func marshalSpec(spec *schema.TableSpec) (string, string, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return "", "", fmt.Errorf("marshal table spec: %w", err)
	}
	return string(data), ir.TableSpecHash(data), nil
}

// unmarshalSpec parses a stored TableSpec.
func unmarshalSpec(data string) (*schema.TableSpec, error) {
	var spec schema.TableSpec
	if err := json.Unmarshal([]byte(data), &spec); err != nil {
		return nil, fmt.Errorf("unmarshal table spec: %w", err)
	}
	return &spec, nil
}

// scanRows reads every row into a column-keyed map. TEXT that the driver
// hands back as []byte is converted to string.
func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
