package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/livetable/internal/compiler"
	"github.com/roach88/livetable/internal/ir"
	"github.com/roach88/livetable/internal/queue"
)

// Snapshot captures the observable output of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string                       `json:"scenario_name"`
	BatchID      string                       `json:"batch_id"`
	Events       []queue.Event                `json:"events"`
	Contracts    []queue.ContractRegistration `json:"contracts"`
	Failure      *Failure                     `json:"failure,omitempty"`
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(scenarioName string, result *Result) Snapshot {
	return Snapshot{
		ScenarioName: scenarioName,
		BatchID:      result.BatchID,
		Events:       result.Events,
		Contracts:    result.Contracts,
		Failure:      result.Failure,
	}
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization, which only handles IR values, primitives, maps and slices.
func (s Snapshot) toCanonicalMap() map[string]any {
	events := make([]any, len(s.Events))
	for i, ev := range s.Events {
		data := ev.Data
		if data == nil {
			data = map[string]any{}
		}
		events[i] = map[string]any{"name": ev.Name, "data": data}
	}

	contracts := make([]any, len(s.Contracts))
	for i, reg := range s.Contracts {
		contracts[i] = map[string]any{
			"address": reg.Address,
			"chainId": reg.ChainID,
			"group":   reg.Group,
		}
	}

	out := map[string]any{
		"scenario_name": s.ScenarioName,
		"batch_id":      s.BatchID,
		"events":        events,
		"contracts":     contracts,
	}
	if s.Failure != nil {
		failure := map[string]any{
			"index":   s.Failure.Index,
			"input":   s.Failure.Input,
			"message": s.Failure.Message,
		}
		if s.Failure.Code != "" {
			failure["code"] = s.Failure.Code
		}
		out["failure"] = failure
	}
	return out
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s Snapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario, methods compiler.Methods) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, methods)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result's snapshot against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewSnapshot(scenarioName, result)
	data, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
