package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/livetable/internal/compiler"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config is loaded from ConfigPath before any command runs.
	Config Config

	// Methods are the Go handlers entity definitions may name, on top of
	// the built-in methods.
	Methods compiler.Methods
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the livetable CLI.
// methods may be nil when definitions only use built-in methods.
func NewRootCommand(methods compiler.Methods) *cobra.Command {
	opts := &RootOptions{Methods: methods}

	cmd := &cobra.Command{
		Use:   "livetable",
		Short: "livetable - live tables from chain events",
		Long:  "Compile entity definitions and index chain events and contract calls into live tables.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.ConfigPath != "" {
				cfg, err := LoadConfig(opts.ConfigPath)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load config", err)
				}
				opts.Config = cfg
				if !cmd.Flags().Changed("verbose") && cfg.Verbose {
					opts.Verbose = true
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
