package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/livetable/internal/batch"
	"github.com/roach88/livetable/internal/entity"
	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/ir"
	"github.com/roach88/livetable/internal/queue"
	"github.com/roach88/livetable/internal/rpc"
	"github.com/roach88/livetable/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// IDGenerator allows overriding the batch id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator batch.IDGenerator
}

// InputsFile is the document the run command reads its batch from.
type InputsFile struct {
	// RPC holds canned contract-call and metadata answers.
	RPC *rpc.Static `yaml:"rpc,omitempty"`

	// Inputs are processed as one batch, in order.
	Inputs []entity.Input `yaml:"inputs"`
}

// RunFailure describes the input a batch stopped at.
type RunFailure struct {
	Index   int    `json:"index"`
	Input   string `json:"input"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// RunResult is the output of one batch.
type RunResult struct {
	BatchID   string                       `json:"batchId"`
	Inputs    int                          `json:"inputs"`
	Events    []queue.Event                `json:"events"`
	Contracts []queue.ContractRegistration `json:"contracts"`
	Failure   *RunFailure                  `json:"failure,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <defs-dir> <inputs-file>",
		Short: "Process a batch of chain inputs",
		Long: `Process a batch of chain events and contract calls against entity
definitions, saving records to a SQLite database (created if missing).

The inputs file is YAML with an "inputs" list and an optional "rpc" block
of canned contract-call answers. Published change events and contract
registrations are printed in order.

Exit codes:
  0 - Batch processed
  1 - Batch stopped at an input (partial output is printed)
  2 - Command error

Examples:
  livetable run --db ./live.db ./defs ./inputs.yaml
  livetable run --config ./livetable.yaml ./defs ./inputs.yaml --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (defaults to config db)")

	return cmd
}

func runBatch(opts *RunOptions, defsDir, inputsPath string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	db := opts.Database
	if db == "" {
		db = opts.Config.DB
	}
	if db == "" {
		return NewExitError(ExitCommandError, "database path required (--db or config db)")
	}

	file, err := readInputs(inputsPath)
	if err != nil {
		return err
	}

	slog.Info("loading definitions", "dir", defsDir)
	types, err := loadTypes(opts.RootOptions, defsDir)
	if err != nil {
		return err
	}
	slog.Info("definitions loaded", "entities", len(types))

	st, err := openStore(db, opts.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	auth := store.AuthContext{Token: opts.Config.AuthToken}
	for _, t := range types {
		if err := st.EnsureTable(ctx, t.TableSpec(), auth); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to create table for %s", t.Name()), err)
		}
	}

	ids := opts.IDGenerator
	if ids == nil {
		ids = batch.UUIDv7Generator{}
	}
	batchOpts := []batch.Option{
		batch.WithTables(st),
		batch.WithAuth(auth),
		batch.WithIDGenerator(ids),
	}
	if file.RPC != nil {
		batchOpts = append(batchOpts, batch.WithRPC(rpc.NewClient(file.RPC)))
	}

	res, procErr := batch.New(types, batchOpts...).Process(ctx, file.Inputs)

	result := RunResult{
		BatchID:   res.ID,
		Inputs:    len(file.Inputs),
		Events:    append([]queue.Event{}, res.Events()...),
		Contracts: append([]queue.ContractRegistration{}, res.Contracts()...),
	}
	if procErr != nil {
		var be *batch.Error
		if !errors.As(procErr, &be) {
			return WrapExitError(ExitFailure, "batch failed", procErr)
		}
		result.Failure = &RunFailure{
			Index:   be.Index,
			Input:   be.Input,
			Code:    string(errs.CodeOf(be.Err)),
			Message: be.Err.Error(),
		}
	}

	if err := outputRun(formatter, result); err != nil {
		return err
	}
	if result.Failure != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("batch stopped at input %d", result.Failure.Index), procErr)
	}
	return nil
}

// readInputs decodes an inputs file. Unknown keys are rejected.
func readInputs(path string) (*InputsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read inputs", err)
	}

	var file InputsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to parse inputs", err)
	}
	for i, in := range file.Inputs {
		if in.Name == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("inputs[%d]: name is required", i))
		}
		if in.Origin.ChainID == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("inputs[%d]: origin.chainId is required", i))
		}
	}
	return &file, nil
}

func outputRun(f *OutputFormatter, result RunResult) error {
	if f.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result, BatchID: result.BatchID}
		if result.Failure != nil {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    result.Failure.Code,
				Message: result.Failure.Message,
				Details: map[string]any{"index": result.Failure.Index, "input": result.Failure.Input},
			}
		}
		return f.JSON(resp)
	}

	w := f.Writer
	fmt.Fprintf(w, "batch %s: %d input(s), %d event(s), %d contract(s)\n",
		result.BatchID, result.Inputs, len(result.Events), len(result.Contracts))
	for _, ev := range result.Events {
		data := ev.Data
		if data == nil {
			data = map[string]any{}
		}
		encoded, err := ir.MarshalCanonical(data)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", ev.Name, err)
		}
		fmt.Fprintf(w, "event %s %s\n", ev.Name, encoded)
	}
	for _, reg := range result.Contracts {
		fmt.Fprintf(w, "contract %s %s %s\n", reg.Group, reg.ChainID, reg.Address)
	}
	if result.Failure != nil {
		fmt.Fprintf(w, "✗ stopped at input %d (%s): %s\n", result.Failure.Index, result.Failure.Input, result.Failure.Message)
	}
	return nil
}
