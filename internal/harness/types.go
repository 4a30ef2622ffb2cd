package harness

import "github.com/roach88/livetable/internal/queue"

// Failure describes the input a batch stopped at.
type Failure struct {
	Index   int    `json:"index"`
	Input   string `json:"input"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// BatchID is the id the batch ran under.
	BatchID string `json:"batch_id"`

	// Events are all published events in order.
	Events []queue.Event `json:"events"`

	// Contracts are all contract registrations in order.
	Contracts []queue.ContractRegistration `json:"contracts"`

	// Failure is set when the batch stopped at an input.
	Failure *Failure `json:"failure,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Events:    []queue.Event{},
		Contracts: []queue.ContractRegistration{},
		Errors:    []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// EventNames returns the names of published events in order.
func (r *Result) EventNames() []string {
	names := make([]string, len(r.Events))
	for i, ev := range r.Events {
		names[i] = ev.Name
	}
	return names
}
