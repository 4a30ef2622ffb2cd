package store

import (
	"slices"

	"github.com/roach88/livetable/internal/querysql"
)

// AuthContext is the caller identity passed with every storage call.
type AuthContext struct {
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
}

// Row is one stored row keyed by column name.
type Row = map[string]any

// Filter is a column-keyed set of conditions that must all hold. A plain
// value means equality; an Op selects another comparison.
type Filter map[string]any

// Op is a non-equality comparison within a Filter.
type Op struct {
	Op    string
	Value any
}

// Ne matches values different from v.
func Ne(v any) Op { return Op{Op: querysql.OpNe, Value: v} }

// Gt matches values greater than v.
func Gt(v any) Op { return Op{Op: querysql.OpGt, Value: v} }

// Gte matches values greater than or equal to v.
func Gte(v any) Op { return Op{Op: querysql.OpGte, Value: v} }

// Lt matches values less than v.
func Lt(v any) Op { return Op{Op: querysql.OpLt, Value: v} }

// Lte matches values less than or equal to v.
func Lte(v any) Op { return Op{Op: querysql.OpLte, Value: v} }

// In matches any of values.
func In(values ...any) Op { return Op{Op: querysql.OpIn, Value: values} }

// NotIn matches none of values.
func NotIn(values ...any) Op { return Op{Op: querysql.OpNotIn, Value: values} }

// SelectOptions shapes a select.
type SelectOptions struct {
	OrderBy []string
	Desc    bool
	Limit   int
	Offset  int
}

// conditions converts filters into OR'ed groups of AND'ed conditions.
// Columns within a group are sorted so compiled SQL is stable.
func conditions(filters []Filter) [][]querysql.Condition {
	groups := make([][]querysql.Condition, 0, len(filters))
	for _, f := range filters {
		cols := make([]string, 0, len(f))
		for col := range f {
			cols = append(cols, col)
		}
		slices.Sort(cols)

		group := make([]querysql.Condition, 0, len(cols))
		for _, col := range cols {
			c := querysql.Condition{Column: col, Op: querysql.OpEq, Value: f[col]}
			if op, ok := f[col].(Op); ok {
				c.Op, c.Value = op.Op, op.Value
			}
			group = append(group, c)
		}
		groups = append(groups, group)
	}
	return groups
}
