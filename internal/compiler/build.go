package compiler

import (
	"context"
	"fmt"
	"maps"

	"github.com/roach88/livetable/internal/entity"
	"github.com/roach88/livetable/internal/resolver"
	"github.com/roach88/livetable/internal/schema"
)

// Methods is the Go method table handler names resolve against.
type Methods map[string]entity.HandlerFunc

// Built-in method names, always available unless a table overrides them.
const (
	MethodAssign = "assign"
	MethodSkip   = "skip"
)

// Builtins returns the built-in method table:
//   - assign copies input data (or call arguments) onto same-named
//     properties, ignoring keys with no property.
//   - skip halts dispatch without saving.
func Builtins() Methods {
	return Methods{
		MethodAssign: func(_ context.Context, r *entity.Record, in entity.Input) (entity.Outcome, error) {
			return entity.Continue, r.AssignAll(in.Args())
		},
		MethodSkip: func(context.Context, *entity.Record, entity.Input) (entity.Outcome, error) {
			return entity.Halt, nil
		},
	}
}

// Build binds def to methods, layered over the built-ins, and defines the
// entity type. Handler names with no method stay registered; dispatching
// to them fails with HANDLER_NOT_INVOCABLE.
func Build(def *EntityDef, methods Methods) (*entity.Type, error) {
	b := schema.NewBuilder(def.Manifest.Name)
	for _, p := range def.Properties {
		p.Unique = false
		b.Define(p)
	}
	reg, err := b.UniqueBy(def.UniqueBy...).Build()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", def.Manifest.Name, err)
	}

	table := Builtins()
	maps.Copy(table, methods)

	return entity.Define(entity.Definition{
		Manifest:  def.Manifest,
		Registry:  reg,
		Table:     def.Table,
		IndexBy:   def.IndexBy,
		Events:    registry(def.OnEvent),
		Calls:     registry(def.OnCall),
		BeforeAll: def.BeforeAll,
		Methods:   table,
	})
}

func registry(handlers []Handler) *resolver.Registry {
	reg := resolver.NewRegistry()
	for _, h := range handlers {
		reg.Register(h.Key, h.Method, h.Options)
	}
	return reg
}
