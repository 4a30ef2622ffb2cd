package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/livetable/internal/batch"
	"github.com/roach88/livetable/internal/compiler"
	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/rpc"
	"github.com/roach88/livetable/internal/store"
	"github.com/roach88/livetable/internal/testutil"
)

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// methods supplies the Go handlers definitions refer to by name; the
// built-in methods are always available.
//
// An error is returned only when the scenario cannot be executed at all.
// Failed expectations are reported through Result.Errors.
func Run(ctx context.Context, scenario *Scenario, methods compiler.Methods) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	types, loadErrs := compiler.LoadTypes(scenario.Definitions, methods)
	if len(loadErrs) > 0 {
		return nil, fmt.Errorf("failed to load definitions: %w", errors.Join(loadErrs...))
	}

	for _, t := range types {
		if err := st.EnsureTable(ctx, t.TableSpec(), store.AuthContext{}); err != nil {
			return nil, fmt.Errorf("failed to create table for %s: %w", t.Name(), err)
		}
	}

	opts := []batch.Option{
		batch.WithTables(st),
		batch.WithIDGenerator(testutil.NewFixedIDGenerator(scenario.BatchID)),
	}
	if scenario.RPC != nil {
		opts = append(opts, batch.WithRPC(rpc.NewClient(scenario.RPC)))
	}

	res, procErr := batch.New(types, opts...).Process(ctx, scenario.Inputs)

	result := NewResult()
	result.BatchID = res.ID
	result.Events = append(result.Events, res.Events()...)
	result.Contracts = append(result.Contracts, res.Contracts()...)

	if procErr != nil {
		var be *batch.Error
		if !errors.As(procErr, &be) {
			return nil, fmt.Errorf("failed to process batch: %w", procErr)
		}
		result.Failure = &Failure{
			Index:   be.Index,
			Input:   be.Input,
			Code:    string(errs.CodeOf(be.Err)),
			Message: be.Err.Error(),
		}
	}

	checkFailure(result, scenario.ExpectError)

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// checkFailure compares the batch outcome with the expected failure.
func checkFailure(result *Result, expect *ExpectError) {
	f := result.Failure
	switch {
	case expect == nil && f == nil:
	case expect == nil:
		result.AddError(fmt.Sprintf("batch failed at input %d (%s): %s", f.Index, f.Input, f.Message))
	case f == nil:
		result.AddError(fmt.Sprintf("expected batch to fail at input %d, but it succeeded", expect.Index))
	case f.Index != expect.Index:
		result.AddError(fmt.Sprintf("expected batch to fail at input %d, failed at %d: %s", expect.Index, f.Index, f.Message))
	case expect.Code != "" && f.Code != expect.Code:
		result.AddError(fmt.Sprintf("expected error code %s at input %d, got %q: %s", expect.Code, f.Index, f.Code, f.Message))
	}
}
