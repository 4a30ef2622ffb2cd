package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/roach88/livetable/internal/ir"
	"github.com/roach88/livetable/internal/queue"
	"github.com/roach88/livetable/internal/store"
)

// validIdentifier matches column names and namespace-qualified table names.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Events   []queue.Event // Published events for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Events) > 0 {
		fmt.Fprintf(&buf, "\nPublished events:\n")
		for i, ev := range e.Events {
			fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, ev.Name, ev.Data)
		}
	}

	return buf.String()
}

// assertEventPublished checks that an event with the name and a data
// superset of assertion.Data was published.
func assertEventPublished(events []queue.Event, assertion Assertion) error {
	for _, ev := range events {
		if ev.Name == assertion.Event && matchData(ev.Data, assertion.Data) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertEventPublished,
		Expected: fmt.Sprintf("event %s with data %v", assertion.Event, assertion.Data),
		Actual:   "not published",
		Events:   events,
	}
}

// assertEventOrder checks that events appear in the specified order.
// Events don't need to be consecutive.
func assertEventOrder(events []queue.Event, assertion Assertion) error {
	pos := 0
	for _, want := range assertion.Events {
		found := false
		for pos < len(events) {
			name := events[pos].Name
			pos++
			if name == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("events in order: %v", assertion.Events),
				Actual:   fmt.Sprintf("%s missing or out of order", want),
				Events:   events,
			}
		}
	}
	return nil
}

// assertEventCount checks that the event was published exactly Count times.
func assertEventCount(events []queue.Event, assertion Assertion) error {
	count := 0
	for _, ev := range events {
		if ev.Name == assertion.Event {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Events:   events,
		}
	}
	return nil
}

// assertContractRegistered checks that the address was registered, in the
// named group when one is given. Addresses compare case-insensitively.
func assertContractRegistered(regs []queue.ContractRegistration, assertion Assertion) error {
	for _, reg := range regs {
		if !strings.EqualFold(reg.Address, assertion.Address) {
			continue
		}
		if assertion.Group == "" || reg.Group == assertion.Group {
			return nil
		}
	}

	got := make([]string, len(regs))
	for i, reg := range regs {
		got[i] = reg.Group + ":" + reg.Address
	}
	return &AssertionError{
		Type:     AssertContractRegistered,
		Expected: fmt.Sprintf("contract %s in group %q", assertion.Address, assertion.Group),
		Actual:   fmt.Sprintf("registered: %v", got),
	}
}

// assertFinalState checks that exactly one row of the table matches Where
// and that it holds the expected column values.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}
	for col := range assertion.Where {
		if !validIdentifier.MatchString(col) {
			return fmt.Errorf("invalid column name %q in where clause: must match pattern %s", col, validIdentifier.String())
		}
	}

	var filters []store.Filter
	if len(assertion.Where) > 0 {
		filters = []store.Filter{store.Filter(assertion.Where)}
	}

	rows, err := st.Select(ctx, assertion.Table, filters, store.SelectOptions{Limit: 2}, store.AuthContext{})
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	whereDesc := formatWhereClause(assertion.Where)
	switch len(rows) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, whereDesc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, whereDesc),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	row := rows[0]
	for _, key := range sortedKeys(assertion.Expect) {
		expected := assertion.Expect[key]
		actual, exists := row[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("column %q to exist", key),
				Actual:   fmt.Sprintf("columns: %v", sortedKeys(row)),
			}
		}
		if !valuesEqual(expected, actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("column %q = %v (type %T)", key, expected, expected),
				Actual:   fmt.Sprintf("column %q = %v (type %T)", key, actual, actual),
			}
		}
	}

	return nil
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// matchData checks if actual contains all expected fields (subset match).
func matchData(actual, expected map[string]any) bool {
	for key, want := range expected {
		got, exists := actual[key]
		if !exists || !valuesEqual(want, got) {
			return false
		}
	}
	return true
}

// valuesEqual compares a scenario value with a published or stored value.
// SQLite and the change encoding return numbers, big integers and times in
// different Go types than YAML decodes, so scalars compare by their text.
func valuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		return ok && len(act) == len(exp) && matchData(act, exp)
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !valuesEqual(exp[i], act[i]) {
				return false
			}
		}
		return true
	case bool:
		switch act := actual.(type) {
		case bool:
			return exp == act
		case int64:
			// SQLite stores booleans as integers
			return exp == (act != 0)
		}
		return false
	case time.Time:
		return ir.FormatISO(exp) == fmt.Sprint(actual)
	}

	if reflect.DeepEqual(expected, actual) {
		return true
	}
	return fmt.Sprint(expected) == fmt.Sprint(actual)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertEventPublished:
			err = assertEventPublished(result.Events, assertion)
		case AssertEventOrder:
			err = assertEventOrder(result.Events, assertion)
		case AssertEventCount:
			err = assertEventCount(result.Events, assertion)
		case AssertContractRegistered:
			err = assertContractRegistered(result.Contracts, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
