package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/livetable/internal/entity"
	"github.com/roach88/livetable/internal/resolver"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Call bool // resolve against call handlers
}

// ResolveMatch is the registration an input name resolved to.
type ResolveMatch struct {
	Key      string `json:"key"`
	Method   string `json:"method"`
	AutoSave bool   `json:"autoSave"`
}

// ResolveResult shows how an input name is routed within one entity.
type ResolveResult struct {
	Entity     string        `json:"entity"`
	Input      string        `json:"input"`
	Kind       string        `json:"kind"`
	Candidates []string      `json:"candidates"`
	Match      *ResolveMatch `json:"match,omitempty"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <defs-dir> <entity> <name>",
		Short: "Show which handler an event or call name resolves to",
		Long: `Show the candidate keys tried for an input name, most specific first,
and the registration it resolves to within an entity.

Exit codes:
  0 - A handler matched
  1 - No handler matched
  2 - Command error

Examples:
  livetable resolve ./defs TokenBalance eth.contracts.acme.token.Transfer@2
  livetable resolve ./defs VaultDeposit eth.contracts.acme.vault.deposit@1 --call`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], args[1], args[2], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Call, "call", false, "resolve against call handlers")

	return cmd
}

func runResolve(opts *ResolveOptions, defsDir, entityName, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	types, err := buildTypes(opts.RootOptions, defsDir)
	if err != nil {
		return err
	}
	t, err := findType(types, entityName)
	if err != nil {
		return err
	}

	in := entity.Input{Name: name}
	if opts.Call {
		in.Inputs = map[string]any{}
	}

	result := ResolveResult{
		Entity:     t.Name(),
		Input:      name,
		Kind:       in.Kind(),
		Candidates: resolver.Candidates(name),
	}
	if reg, ok := t.Resolve(in); ok {
		result.Match = &ResolveMatch{Key: reg.MatchKey, Method: reg.Method, AutoSave: reg.ShouldAutoSave()}
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if result.Match == nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "NO_HANDLER", Message: fmt.Sprintf("no %s handler for %s", result.Kind, name)}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		fmt.Fprintf(w, "%s %s in %s\n", result.Kind, name, result.Entity)
		fmt.Fprintf(w, "candidates:\n  %s\n", strings.Join(result.Candidates, "\n  "))
		if result.Match != nil {
			fmt.Fprintf(w, "✓ %s -> %s\n", result.Match.Key, result.Match.Method)
		} else {
			fmt.Fprintln(w, "✗ no handler")
		}
	}

	if result.Match == nil {
		return NewExitError(ExitFailure, fmt.Sprintf("no %s handler for %s", result.Kind, name))
	}
	return nil
}
