package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/livetable/internal/ir"
	"github.com/roach88/livetable/internal/manifest"
	"github.com/roach88/livetable/internal/resolver"
	"github.com/roach88/livetable/internal/schema"
)

// EntityDef is an entity type definition compiled from CUE, before its
// handler methods are bound.
type EntityDef struct {
	Manifest   manifest.Manifest           `json:"manifest"`
	Table      string                      `json:"table,omitempty"`
	UniqueBy   []string                    `json:"unique_by"`
	IndexBy    [][]string                  `json:"index_by,omitempty"`
	Properties []schema.PropertyDefinition `json:"properties"`
	OnEvent    []Handler                   `json:"on_event,omitempty"`
	OnCall     []Handler                   `json:"on_call,omitempty"`
	BeforeAll  []string                    `json:"before_all,omitempty"`

	// Pos is where the definition starts.
	Pos token.Pos `json:"-"`
}

// Handler binds an input match key to a method name.
type Handler struct {
	Key     string           `json:"key"`
	Method  string           `json:"method"`
	Options resolver.Options `json:"options"`

	Pos token.Pos `json:"-"`
}

// CompileEntity parses a CUE value into an EntityDef.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value should be the entity struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`entity: TokenBalance: { ... }`)
//	def, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.TokenBalance")))
//
// The struct label is the entity name unless a name field overrides it.
func CompileEntity(v cue.Value) (*EntityDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &EntityDef{Pos: v.Pos()}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Manifest.Name = labels[len(labels)-1].Unquoted()
	}

	var err error
	for field, dst := range map[string]*string{
		"namespace":    &def.Manifest.Namespace,
		"name":         &def.Manifest.Name,
		"version":      &def.Manifest.Version,
		"display_name": &def.Manifest.DisplayName,
		"description":  &def.Manifest.Description,
		"table":        &def.Table,
	} {
		if err := optionalString(v, field, dst); err != nil {
			return nil, err
		}
	}
	for _, field := range []string{"namespace", "version"} {
		if !v.LookupPath(cue.ParsePath(field)).Exists() {
			return nil, &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
		}
	}

	if def.Manifest.Chains, err = stringList(v, "chains"); err != nil {
		return nil, err
	}
	if def.UniqueBy, err = stringList(v, "unique_by"); err != nil {
		return nil, err
	}
	if def.BeforeAll, err = stringList(v, "before_all"); err != nil {
		return nil, err
	}
	if def.IndexBy, err = parseIndexBy(v); err != nil {
		return nil, err
	}

	if def.Properties, err = parseProperties(v); err != nil {
		return nil, err
	}
	if len(def.UniqueBy) == 0 {
		for _, p := range def.Properties {
			if p.Unique {
				def.UniqueBy = append(def.UniqueBy, p.Name)
			}
		}
	}
	if len(def.UniqueBy) == 0 {
		return nil, &CompileError{
			Field:   "unique_by",
			Message: "at least one uniqueness-key property is required",
			Pos:     v.Pos(),
		}
	}

	if def.OnEvent, err = parseHandlers(v, "on_event"); err != nil {
		return nil, err
	}
	if def.OnCall, err = parseHandlers(v, "on_call"); err != nil {
		return nil, err
	}
	if len(def.OnEvent) == 0 && len(def.OnCall) == 0 {
		return nil, &CompileError{
			Field:   "on_event",
			Message: "at least one on_event or on_call handler is required",
			Pos:     v.Pos(),
		}
	}

	return def, nil
}

// parseProperties extracts property definitions in declaration order.
func parseProperties(v cue.Value) ([]schema.PropertyDefinition, error) {
	propsVal := v.LookupPath(cue.ParsePath("properties"))
	if !propsVal.Exists() {
		return nil, nil
	}

	iter, err := propsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var props []schema.PropertyDefinition
	for iter.Next() {
		name := iter.Selector().Unquoted()
		pv := iter.Value()

		def := schema.PropertyDefinition{Name: name}

		// A bare string is shorthand for {type: "..."}.
		if typ, err := pv.String(); err == nil {
			def.Type = ir.Type(typ)
			props = append(props, def)
			continue
		}

		typeVal := pv.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("properties.%s.type", name),
				Message: "property type is required",
				Pos:     pv.Pos(),
			}
		}
		typ, err := typeVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.Type = ir.Type(typ)

		if err := optionalString(pv, "column", &def.Column); err != nil {
			return nil, err
		}
		if err := optionalString(pv, "column_type", &def.ColumnType); err != nil {
			return nil, err
		}
		for field, dst := range map[string]*bool{
			"unique":            &def.Unique,
			"index":             &def.Index,
			"primary_timestamp": &def.PrimaryTimestamp,
			"not_null":          &def.NotNull,
		} {
			if _, err := optionalBool(pv, field, dst); err != nil {
				return nil, err
			}
		}
		var canUpdate bool
		if ok, err := optionalBool(pv, "can_update", &canUpdate); err != nil {
			return nil, err
		} else if ok {
			def.CanUpdate = &canUpdate
		}

		if dv := pv.LookupPath(cue.ParsePath("default")); dv.Exists() {
			var d any
			if err := dv.Decode(&d); err != nil {
				return nil, formatCUEError(err)
			}
			def.HasDefault = true
			def.Default = d
		}

		props = append(props, def)
	}
	return props, nil
}

// parseHandlers extracts {key: {method, auto_save?, signature?}} entries.
// A bare string value is shorthand for {method: "..."}.
func parseHandlers(v cue.Value, field string) ([]Handler, error) {
	hv := v.LookupPath(cue.ParsePath(field))
	if !hv.Exists() {
		return nil, nil
	}

	iter, err := hv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var handlers []Handler
	for iter.Next() {
		h := Handler{Key: iter.Selector().Unquoted(), Pos: iter.Value().Pos()}
		val := iter.Value()

		if method, err := val.String(); err == nil {
			h.Method = method
			handlers = append(handlers, h)
			continue
		}

		methodVal := val.LookupPath(cue.ParsePath("method"))
		if !methodVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("%s.%s.method", field, h.Key),
				Message: "handler method is required",
				Pos:     val.Pos(),
			}
		}
		if h.Method, err = methodVal.String(); err != nil {
			return nil, formatCUEError(err)
		}

		var autoSave bool
		if ok, err := optionalBool(val, "auto_save", &autoSave); err != nil {
			return nil, err
		} else if ok {
			h.Options.AutoSave = &autoSave
		}
		if _, err := optionalBool(val, "can_replay", &h.Options.CanReplay); err != nil {
			return nil, err
		}
		if err := optionalString(val, "signature", &h.Options.Signature); err != nil {
			return nil, err
		}

		handlers = append(handlers, h)
	}
	return handlers, nil
}

// parseIndexBy accepts a list of property lists; a plain string element
// is a single-property index.
func parseIndexBy(v cue.Value) ([][]string, error) {
	iv := v.LookupPath(cue.ParsePath("index_by"))
	if !iv.Exists() {
		return nil, nil
	}
	iter, err := iv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var groups [][]string
	for iter.Next() {
		if s, err := iter.Value().String(); err == nil {
			groups = append(groups, []string{s})
			continue
		}
		var group []string
		if err := iter.Value().Decode(&group); err != nil {
			return nil, &CompileError{
				Field:   "index_by",
				Message: "must be a list of property names or property-name lists",
				Pos:     iter.Value().Pos(),
			}
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func optionalString(v cue.Value, field string, dst *string) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	s, err := fv.String()
	if err != nil {
		return formatCUEError(err)
	}
	*dst = s
	return nil
}

func optionalBool(v cue.Value, field string, dst *bool) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	*dst = b
	return true, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	var out []string
	if err := fv.Decode(&out); err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: fv.Pos()}
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
