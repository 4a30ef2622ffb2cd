package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/livetable/internal/entity"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the definitions loaded from a directory.
type LoadResult struct {
	Entities  []*EntityDef
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load error codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeNoEntities  = "E007" // No entity definitions found
)

// LoadDir loads every entity: <Name>: {...} definition from the CUE
// package in dir. Definitions come back sorted by CUE field order.
func LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definitions directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing definitions directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{CUEValue: value, FileCount: len(cueFiles)}
	var errs []error

	entitiesVal := value.LookupPath(cue.ParsePath("entity"))
	if entitiesVal.Exists() {
		iter, iterErr := entitiesVal.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating entities: %v", iterErr)})
			if mode == LoadModeFailFast {
				return result, errs
			}
		} else {
			for iter.Next() {
				def, compileErr := CompileEntity(iter.Value())
				if compileErr != nil {
					errs = append(errs, convertCompileError(compileErr, "entity."+iter.Selector().String()))
					if mode == LoadModeFailFast {
						return result, errs
					}
					continue
				}
				result.Entities = append(result.Entities, def)
			}
		}
	}

	if len(result.Entities) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoEntities, Message: "no entity definitions found"})
	}
	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// MapFieldToErrorCode maps a compile error field to a validation code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "namespace" || field == "version" || field == "name":
		return ErrManifestInvalid
	case field == "on_event" || field == "on_call":
		return ErrNoHandlers
	case field == "unique_by" || field == "index_by":
		return ErrUnknownKeyProperty
	case strings.HasPrefix(field, "properties."):
		return ErrInvalidPropertyType
	case strings.HasPrefix(field, "on_"):
		return ErrInvalidHandlerKey
	default:
		return ErrCodeGeneric
	}
}

// LoadTypes loads dir, validates every definition against methods and
// builds the entity types in definition order. Load and validation
// errors are collected; nothing is built unless all definitions are valid.
func LoadTypes(dir string, methods Methods) ([]*entity.Type, []error) {
	res, errs := LoadDir(dir, LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, errs
	}
	for _, def := range res.Entities {
		for _, ve := range Validate(def, methods) {
			errs = append(errs, fmt.Errorf("entity %s: %w", def.Manifest.Name, ve))
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	types := make([]*entity.Type, 0, len(res.Entities))
	for _, def := range res.Entities {
		t, err := Build(def, methods)
		if err != nil {
			return nil, []error{err}
		}
		types = append(types, t)
	}
	return types, nil
}
