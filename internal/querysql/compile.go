// Package querysql compiles row-storage requests into parameterized SQLite
// statements.
//
// Values are never interpolated; every literal becomes a ? placeholder.
// Identifiers are always double-quoted, so dotted table names such as
// acme.token_balance_01 name a single table.
package querysql

import (
	"fmt"
	"reflect"
	"strings"
)

// Comparison operators accepted in conditions.
const (
	OpEq    = "="
	OpNe    = "!="
	OpGt    = ">"
	OpGte   = ">="
	OpLt    = "<"
	OpLte   = "<="
	OpIn    = "in"
	OpNotIn = "not in"
)

// Condition compares one column to a value.
type Condition struct {
	Column string
	Op     string
	Value  any
}

// Select reads rows. Where is a disjunction of conjunctions: rows match
// when every condition of at least one group holds. An empty Where
// matches everything.
type Select struct {
	Table   string
	Where   [][]Condition
	OrderBy []string
	Desc    bool
	Limit   int
	Offset  int
}

// Upsert inserts one row and updates it on conflict.
type Upsert struct {
	Table    string
	Columns  []string
	Values   []any
	Conflict []string
	Update   []string

	// OrderingColumn, when set, skips updates that would move the row
	// back in time.
	OrderingColumn string
}

// QuoteIdent double-quotes an identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// CompileSelect builds a SELECT statement. Results are always ordered:
// by the requested columns, then by rowid so ties are deterministic.
func CompileSelect(q Select) (string, []any, error) {
	if q.Table == "" {
		return "", nil, fmt.Errorf("select: table is required")
	}

	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(QuoteIdent(q.Table))

	where, params, err := compileWhere(q.Where)
	if err != nil {
		return "", nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	dir := " ASC"
	if q.Desc {
		dir = " DESC"
	}
	sb.WriteString(" ORDER BY ")
	for _, col := range q.OrderBy {
		sb.WriteString(QuoteIdent(col))
		sb.WriteString(dir)
		sb.WriteString(", ")
	}
	sb.WriteString("rowid ASC")

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}
	if q.Offset > 0 {
		if q.Limit <= 0 {
			sb.WriteString(" LIMIT -1")
		}
		sb.WriteString(" OFFSET ?")
		params = append(params, q.Offset)
	}
	return sb.String(), params, nil
}

func compileWhere(groups [][]Condition) (string, []any, error) {
	var (
		ors    []string
		params []any
	)
	for _, group := range groups {
		if len(group) == 0 {
			// an empty group matches every row
			return "", nil, nil
		}
		ands := make([]string, 0, len(group))
		for _, c := range group {
			frag, p, err := compileCondition(c)
			if err != nil {
				return "", nil, err
			}
			ands = append(ands, frag)
			params = append(params, p...)
		}
		ors = append(ors, "("+strings.Join(ands, " AND ")+")")
	}
	return strings.Join(ors, " OR "), params, nil
}

func compileCondition(c Condition) (string, []any, error) {
	col := QuoteIdent(c.Column)
	op := strings.ToLower(strings.TrimSpace(c.Op))
	if op == "" {
		op = OpEq
	}

	switch op {
	case OpEq, OpNe:
		if c.Value == nil {
			if op == OpEq {
				return col + " IS NULL", nil, nil
			}
			return col + " IS NOT NULL", nil, nil
		}
		return col + " " + op + " ?", []any{c.Value}, nil
	case OpGt, OpGte, OpLt, OpLte:
		if c.Value == nil {
			return "", nil, fmt.Errorf("column %s: %s needs a value", c.Column, op)
		}
		return col + " " + op + " ?", []any{c.Value}, nil
	case OpIn, OpNotIn:
		values, err := listValues(c.Value)
		if err != nil {
			return "", nil, fmt.Errorf("column %s: %w", c.Column, err)
		}
		if len(values) == 0 {
			if op == OpIn {
				return "0 = 1", nil, nil
			}
			return "1 = 1", nil, nil
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		return col + " " + strings.ToUpper(op) + " (" + marks + ")", values, nil
	default:
		return "", nil, fmt.Errorf("column %s: unsupported operator %q", c.Column, c.Op)
	}
}

func listValues(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	if list, ok := v.([]any); ok {
		return list, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("in/not in needs a list, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// CompileUpsert builds an INSERT ... ON CONFLICT ... RETURNING * statement.
// With no update columns a conflicting insert does nothing and returns no
// row; the same holds when the ordering guard rejects an update.
func CompileUpsert(u Upsert) (string, []any, error) {
	if u.Table == "" {
		return "", nil, fmt.Errorf("upsert: table is required")
	}
	if len(u.Columns) == 0 || len(u.Columns) != len(u.Values) {
		return "", nil, fmt.Errorf("upsert %s: %d columns for %d values", u.Table, len(u.Columns), len(u.Values))
	}
	if len(u.Conflict) == 0 {
		return "", nil, fmt.Errorf("upsert %s: conflict columns are required", u.Table)
	}

	table := QuoteIdent(u.Table)
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES (%s)",
		table,
		joinIdents(u.Columns),
		strings.TrimSuffix(strings.Repeat("?, ", len(u.Columns)), ", "))

	fmt.Fprintf(&sb, " ON CONFLICT (%s) DO ", joinIdents(u.Conflict))
	if len(u.Update) == 0 {
		sb.WriteString("NOTHING")
	} else {
		sets := make([]string, len(u.Update))
		for i, col := range u.Update {
			q := QuoteIdent(col)
			sets[i] = q + " = excluded." + q
		}
		sb.WriteString("UPDATE SET ")
		sb.WriteString(strings.Join(sets, ", "))
		if u.OrderingColumn != "" {
			ts := QuoteIdent(u.OrderingColumn)
			fmt.Fprintf(&sb, " WHERE %s.%s IS NULL OR excluded.%s >= %s.%s", table, ts, ts, table, ts)
		}
	}
	sb.WriteString(" RETURNING *")

	params := make([]any, len(u.Values))
	copy(params, u.Values)
	return sb.String(), params, nil
}

func joinIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = QuoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}
