package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/livetable/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	IgnoreMethods bool // don't require handler methods to be bound
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Entities int                        `json:"entities"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <defs-dir>",
		Short: "Validate entity definitions",
		Long: `Validate CUE entity definitions without touching a database.

Performs syntax checking, definition compilation and consistency checks:
handler keys, method names, property types, column collisions and key
properties. All problems are reported, not just the first.

Handler methods other than the built-ins (assign, skip) are bound by the
program embedding livetable; pass --ignore-methods to check definitions
on their own.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.IgnoreMethods, "ignore-methods", false, "don't require handler methods to be bound")

	return cmd
}

func runValidate(opts *ValidateOptions, defsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := compiler.LoadDir(defsDir, compiler.LoadModeCollectAll)

	// Directory not found, no files, CUE syntax errors
	if loadResult == nil {
		var loadErr *compiler.LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, compiler.ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, defsDir)

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) {
			validationErrors = append(validationErrors, compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    lineOf(loadErr),
			})
		}
	}

	for _, def := range loadResult.Entities {
		formatter.VerboseLog("Validating entity: %s", def.Manifest.Name)
		for _, ve := range compiler.Validate(def, opts.Methods) {
			if opts.IgnoreMethods && ve.Code == compiler.ErrUnknownMethod {
				continue
			}
			ve.Field = def.Manifest.Name + "." + ve.Field
			validationErrors = append(validationErrors, ve)
		}
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return outputValidateSuccess(formatter, len(loadResult.Entities))
}

func lineOf(e *compiler.LoadError) int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, entities int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Entities: entities})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d entity definition(s) valid\n", entities)
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
