package compiler

import (
	"fmt"
	"regexp"

	"github.com/roach88/livetable/internal/coerce"
	"github.com/roach88/livetable/internal/schema"
)

// Validation error codes (E100-E199)
const (
	ErrManifestInvalid      = "E101" // namespace, name or version unusable
	ErrNoHandlers           = "E102" // no on_event or on_call entry
	ErrUnknownMethod        = "E103" // handler or before_all names no method
	ErrInvalidPropertyType  = "E104" // semantic type has no storage type
	ErrUnknownKeyProperty   = "E105" // unique_by or index_by names no property
	ErrMultiplePrimaryTS    = "E106" // more than one primary_timestamp
	ErrInvalidHandlerKey    = "E107" // malformed match key
	ErrDuplicateColumnNames = "E108" // two properties share a column
)

// ValidationError represents a definition validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// handlerKeyPattern matches dotted match keys with an optional @version.
var handlerKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_$]+(\.[A-Za-z0-9_$]+)+(@[A-Za-z0-9_.\-]+)?$`)

// Validate checks a compiled definition against the method table.
// Returns all errors found (does not fail-fast). Built-in methods are
// always considered available.
func Validate(def *EntityDef, methods Methods) []ValidationError {
	var errs []ValidationError

	m := def.Manifest
	if err := m.Validate(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "manifest",
			Message: err.Error(),
			Code:    ErrManifestInvalid,
			Line:    def.Pos.Line(),
		})
	}

	if len(def.OnEvent) == 0 && len(def.OnCall) == 0 {
		errs = append(errs, ValidationError{
			Field:   "on_event",
			Message: "at least one on_event or on_call handler is required",
			Code:    ErrNoHandlers,
			Line:    def.Pos.Line(),
		})
	}

	known := Builtins()
	hasMethod := func(name string) bool {
		_, builtin := known[name]
		_, ok := methods[name]
		return builtin || ok
	}
	for _, group := range []struct {
		field    string
		handlers []Handler
	}{{"on_event", def.OnEvent}, {"on_call", def.OnCall}} {
		field := group.field
		for _, h := range group.handlers {
			if !handlerKeyPattern.MatchString(h.Key) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.%s", field, h.Key),
					Message: fmt.Sprintf("invalid match key %q, expected dotted segments with optional @version", h.Key),
					Code:    ErrInvalidHandlerKey,
					Line:    h.Pos.Line(),
				})
			}
			if !hasMethod(h.Method) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.%s.method", field, h.Key),
					Message: fmt.Sprintf("unknown method %q", h.Method),
					Code:    ErrUnknownMethod,
					Line:    h.Pos.Line(),
				})
			}
		}
	}
	for i, name := range def.BeforeAll {
		if !hasMethod(name) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("before_all[%d]", i),
				Message: fmt.Sprintf("unknown method %q", name),
				Code:    ErrUnknownMethod,
				Line:    def.Pos.Line(),
			})
		}
	}

	props := make(map[string]bool)
	for _, p := range schema.OriginContext() {
		props[p.Name] = true
	}
	columns := make(map[string]string)
	primary := 0
	for _, p := range def.Properties {
		props[p.Name] = true
		if p.PrimaryTimestamp {
			primary++
		}
		if p.ColumnType == "" {
			if _, err := coerce.StorageType(p.Type); err != nil {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("properties.%s.type", p.Name),
					Message: fmt.Sprintf("no storage type for %q", p.Type),
					Code:    ErrInvalidPropertyType,
				})
			}
		}

		col := p.Column
		if col == "" {
			col = schema.SnakeCase(p.Name)
		}
		if other, dup := columns[col]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("properties.%s.column", p.Name),
				Message: fmt.Sprintf("column %q already used by %q", col, other),
				Code:    ErrDuplicateColumnNames,
			})
		}
		columns[col] = p.Name
	}
	if primary > 1 {
		errs = append(errs, ValidationError{
			Field:   "properties",
			Message: fmt.Sprintf("%d properties are marked primary_timestamp, at most one is allowed", primary),
			Code:    ErrMultiplePrimaryTS,
		})
	}

	for i, name := range def.UniqueBy {
		if !props[name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("unique_by[%d]", i),
				Message: fmt.Sprintf("unknown property %q", name),
				Code:    ErrUnknownKeyProperty,
			})
		}
	}
	for i, group := range def.IndexBy {
		for j, name := range group {
			if !props[name] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("index_by[%d][%d]", i, j),
					Message: fmt.Sprintf("unknown property %q", name),
					Code:    ErrUnknownKeyProperty,
				})
			}
		}
	}

	return errs
}
