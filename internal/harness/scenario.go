package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/livetable/internal/entity"
	"github.com/roach88/livetable/internal/rpc"
)

// Scenario defines a conformance test scenario.
// A scenario loads entity definitions, feeds a batch of chain inputs through
// them and asserts on the published events, contract registrations and final
// table state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Definitions is the directory of CUE entity definitions to load.
	// Relative paths are resolved against the scenario file location.
	Definitions string `yaml:"definitions"`

	// BatchID is an optional fixed batch id for deterministic output.
	// If empty, defaults to "test-batch-default".
	BatchID string `yaml:"batch_id,omitempty"`

	// RPC holds canned contract-call and metadata answers.
	RPC *rpc.Static `yaml:"rpc,omitempty"`

	// Inputs are the events and calls processed as one batch, in order.
	Inputs []entity.Input `yaml:"inputs"`

	// ExpectError declares that the batch is expected to stop at an input.
	ExpectError *ExpectError `yaml:"expect_error,omitempty"`

	// Assertions validate the batch output and final state.
	// Supported types: event_published, event_order, event_count,
	// contract_registered, final_state
	Assertions []Assertion `yaml:"assertions"`
}

// ExpectError specifies the expected batch failure.
type ExpectError struct {
	// Index is the position of the input the batch stops at.
	Index int `yaml:"index"`

	// Code is the expected error code, e.g. "NO_HANDLER". Optional.
	Code string `yaml:"code,omitempty"`
}

// Assertion validates batch output or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "event_published": an event with the name and data subset was published
	// - "event_order": events appear in order
	// - "event_count": an event was published exactly N times
	// - "contract_registered": an address was added to a contract group
	// - "final_state": query a table and verify expected column values
	Type string `yaml:"type"`

	// Event is the event name (event_published, event_count).
	Event string `yaml:"event,omitempty"`

	// Data are the expected event fields (event_published).
	// Subset match - only specified fields are validated.
	Data map[string]any `yaml:"data,omitempty"`

	// Count is the expected number of occurrences (event_count).
	Count int `yaml:"count,omitempty"`

	// Events is the expected event order (event_order).
	Events []string `yaml:"events,omitempty"`

	// Address and Group identify a registration (contract_registered).
	Address string `yaml:"address,omitempty"`
	Group   string `yaml:"group,omitempty"`

	// Table is the qualified table name (final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies column equality filters (final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected column values (final_state).
	// Subset match - only specified columns are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertEventPublished     = "event_published"
	AssertEventOrder         = "event_order"
	AssertEventCount         = "event_count"
	AssertContractRegistered = "contract_registered"
	AssertFinalState         = "final_state"
)

// LoadScenario reads and parses a scenario YAML file, resolving the
// definitions directory relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the definitions directory relative to basePath.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Definitions != "" && !filepath.IsAbs(scenario.Definitions) && basePath != "" {
		scenario.Definitions = filepath.Join(basePath, scenario.Definitions)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Definitions == "" {
		return fmt.Errorf("definitions directory is required")
	}

	if info, err := os.Stat(s.Definitions); err != nil || !info.IsDir() {
		return fmt.Errorf("definitions directory not found: %s", s.Definitions)
	}

	if len(s.Inputs) == 0 {
		return fmt.Errorf("inputs list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 && s.ExpectError == nil {
		return fmt.Errorf("assertions list is required unless expect_error is set")
	}

	for i, in := range s.Inputs {
		if in.Name == "" {
			return fmt.Errorf("inputs[%d]: name is required", i)
		}
		if in.Origin.ChainID == "" {
			return fmt.Errorf("inputs[%d]: origin.chainId is required", i)
		}
	}

	if s.ExpectError != nil && (s.ExpectError.Index < 0 || s.ExpectError.Index >= len(s.Inputs)) {
		return fmt.Errorf("expect_error: index %d out of range", s.ExpectError.Index)
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventPublished:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_published", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertContractRegistered:
		if a.Address == "" {
			return fmt.Errorf("assertions[%d]: address is required for contract_registered", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
