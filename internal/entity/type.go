package entity

import (
	"context"
	"fmt"

	"github.com/roach88/livetable/internal/manifest"
	"github.com/roach88/livetable/internal/resolver"
	"github.com/roach88/livetable/internal/schema"
	"github.com/roach88/livetable/internal/snapshot"
	"github.com/roach88/livetable/internal/store"
	"github.com/roach88/livetable/internal/upsert"
)

// Outcome is what a handler tells the controller to do next.
type Outcome int

const (
	// Continue proceeds normally: the next before-all handler runs, or the
	// record is auto-saved.
	Continue Outcome = iota
	// Halt stops dispatch. From a before-all handler it skips the handler
	// and the save; from a handler it skips the save.
	Halt
)

// HandlerFunc handles one input for a record.
type HandlerFunc func(ctx context.Context, r *Record, in Input) (Outcome, error)

// Tables is the row-storage collaborator records read from and write to.
type Tables interface {
	Select(ctx context.Context, table string, filters []store.Filter, opts store.SelectOptions, auth store.AuthContext) ([]store.Row, error)
	Upsert(ctx context.Context, spec *upsert.Spec, auth store.AuthContext) ([]store.Row, error)
	Transaction(ctx context.Context, specs []*upsert.Spec, auth store.AuthContext) ([][]store.Row, error)
}

var _ Tables = (*store.Store)(nil)

// Definition is everything needed to define a Type.
type Definition struct {
	Manifest manifest.Manifest
	Registry *schema.Registry

	// Table overrides the manifest's default table name.
	Table string

	// IndexBy and UniqueBy are groups of property names for the table.
	// UniqueBy defaults to the registry's uniqueness key.
	IndexBy  [][]string
	UniqueBy [][]string

	// Events and Calls hold handler registrations. Nil means none.
	Events *resolver.Registry
	Calls  *resolver.Registry

	// BeforeAll names methods run, in order, before every handler.
	BeforeAll []string

	// Methods is the method table handler registrations refer to.
	Methods map[string]HandlerFunc

	// Hasher overrides the change-detection fingerprint.
	Hasher snapshot.Hasher
}

// Type is an immutable entity type.
type Type struct {
	manifest  manifest.Manifest
	registry  *schema.Registry
	table     string
	spec      *schema.TableSpec
	events    *resolver.Registry
	calls     *resolver.Registry
	beforeAll []string
	methods   map[string]HandlerFunc
	hasher    snapshot.Hasher
}

// Define validates def and builds the Type.
func Define(def Definition) (*Type, error) {
	m := def.Manifest
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("define: %w", err)
	}
	if def.Registry == nil {
		return nil, fmt.Errorf("define %s: property registry is required", m.Name)
	}

	table := def.Table
	if table == "" {
		table = m.DefaultTable()
	}
	spec, err := def.Registry.TableSpec(table, def.IndexBy, def.UniqueBy)
	if err != nil {
		return nil, fmt.Errorf("define %s: %w", m.Name, err)
	}

	t := &Type{
		manifest:  m,
		registry:  def.Registry,
		table:     table,
		spec:      spec,
		events:    def.Events,
		calls:     def.Calls,
		beforeAll: append([]string(nil), def.BeforeAll...),
		methods:   make(map[string]HandlerFunc, len(def.Methods)),
		hasher:    def.Hasher,
	}
	if t.events == nil {
		t.events = resolver.NewRegistry()
	}
	if t.calls == nil {
		t.calls = resolver.NewRegistry()
	}
	for name, fn := range def.Methods {
		if fn != nil {
			t.methods[name] = fn
		}
	}
	return t, nil
}

// Name returns the manifest name.
func (t *Type) Name() string { return t.manifest.Name }

// Manifest returns the type's manifest.
func (t *Type) Manifest() manifest.Manifest { return t.manifest }

// Registry returns the property registry.
func (t *Type) Registry() *schema.Registry { return t.registry }

// Table returns the storage table name.
func (t *Type) Table() string { return t.table }

// TableSpec returns the table description.
func (t *Type) TableSpec() *schema.TableSpec { return t.spec }

// ChangedEventName returns the name of the type's change notifications.
func (t *Type) ChangedEventName() string { return t.manifest.ChangedEventName() }

// Handlers returns the registry for in's kind.
func (t *Type) Handlers(in Input) *resolver.Registry {
	if in.IsCall() {
		return t.calls
	}
	return t.events
}

// Resolve finds the registration handling in.
func (t *Type) Resolve(in Input) (resolver.Registration, bool) {
	return t.Handlers(in).Resolve(in.Name)
}

// PropertySpec describes one property in a TypeSpec.
type PropertySpec struct {
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"`
	Column string `json:"column" yaml:"column"`
}

// TypeSpec is the published description of a Type.
type TypeSpec struct {
	Namespace        string         `json:"namespace" yaml:"namespace"`
	Name             string         `json:"name" yaml:"name"`
	Version          string         `json:"version" yaml:"version"`
	DisplayName      string         `json:"displayName" yaml:"displayName"`
	Description      string         `json:"description,omitempty" yaml:"description,omitempty"`
	Chains           []string       `json:"chains" yaml:"chains"`
	Properties       []PropertySpec `json:"properties" yaml:"properties"`
	PrimaryTimestamp string         `json:"primaryTimestampProperty,omitempty" yaml:"primaryTimestampProperty,omitempty"`
	UniqueBy         []string       `json:"uniqueBy" yaml:"uniqueBy"`
	Table            string         `json:"table" yaml:"table"`
	ChangedEvent     string         `json:"changedEvent" yaml:"changedEvent"`
	InputEvents      []string       `json:"inputEvents" yaml:"inputEvents"`
	InputCalls       []string       `json:"inputCalls" yaml:"inputCalls"`
}

// Spec describes the type for publishing and the CLI.
func (t *Type) Spec() TypeSpec {
	props := make([]PropertySpec, 0, len(t.registry.Properties()))
	for _, def := range t.registry.Properties() {
		props = append(props, PropertySpec{Name: def.Name, Type: string(def.Type), Column: def.Column})
	}
	ts, _ := t.registry.PrimaryTimestamp()
	chains := t.manifest.Chains
	if chains == nil {
		chains = []string{}
	}
	return TypeSpec{
		Namespace:        t.manifest.Namespace,
		Name:             t.manifest.Name,
		Version:          t.manifest.Version,
		DisplayName:      t.manifest.Title(),
		Description:      t.manifest.Description,
		Chains:           chains,
		Properties:       props,
		PrimaryTimestamp: ts,
		UniqueBy:         t.registry.UniqueBy(),
		Table:            t.table,
		ChangedEvent:     t.ChangedEventName(),
		InputEvents:      t.events.Keys(),
		InputCalls:       t.calls.Keys(),
	}
}
