package cli

import (
	"errors"
	"fmt"

	"github.com/roach88/livetable/internal/compiler"
	"github.com/roach88/livetable/internal/entity"
)

// loadTypes loads, validates and builds the definitions in dir for
// commands that execute handlers.
func loadTypes(opts *RootOptions, dir string) ([]*entity.Type, error) {
	types, errs := compiler.LoadTypes(dir, opts.Methods)
	if len(errs) > 0 {
		return nil, WrapExitError(ExitCommandError, "failed to load definitions", errors.Join(errs...))
	}
	return types, nil
}

// buildTypes builds the definitions in dir without requiring their handler
// methods to be bound. Used by commands that only inspect types.
func buildTypes(opts *RootOptions, dir string) ([]*entity.Type, error) {
	res, errs := compiler.LoadDir(dir, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, WrapExitError(ExitCommandError, "failed to load definitions", errs[0])
	}

	types := make([]*entity.Type, 0, len(res.Entities))
	for _, def := range res.Entities {
		t, err := compiler.Build(def, opts.Methods)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to build definitions", err)
		}
		types = append(types, t)
	}
	return types, nil
}

// findType returns the type named name.
func findType(types []*entity.Type, name string) (*entity.Type, error) {
	for _, t := range types {
		if t.Name() == name {
			return t, nil
		}
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name()
	}
	return nil, NewExitError(ExitCommandError, fmt.Sprintf("entity %q not found (have %v)", name, names))
}
