package batch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/livetable/internal/entity"
	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/queue"
	"github.com/roach88/livetable/internal/rpc"
	"github.com/roach88/livetable/internal/store"
)

// Result holds the side effects of a batch, one slot per processed input.
type Result struct {
	ID string `json:"id"`

	// PublishedEvents[i] are the notifications input i produced.
	PublishedEvents [][]queue.Event `json:"publishedEvents"`

	// NewContractInstances[i] are the contract registrations input i produced.
	NewContractInstances [][]queue.ContractRegistration `json:"newContractInstances"`
}

// Events returns every published notification in order.
func (r *Result) Events() []queue.Event {
	var out []queue.Event
	for _, evs := range r.PublishedEvents {
		out = append(out, evs...)
	}
	return out
}

// Contracts returns every contract registration in order.
func (r *Result) Contracts() []queue.ContractRegistration {
	var out []queue.ContractRegistration
	for _, regs := range r.NewContractInstances {
		out = append(out, regs...)
	}
	return out
}

// Option configures a Processor.
type Option func(*Processor)

// WithTables sets the row storage records load from and save to.
func WithTables(t entity.Tables) Option {
	return func(p *Processor) { p.tables = t }
}

// WithRPC sets the contract-call client handed to records.
func WithRPC(c *rpc.Client) Option {
	return func(p *Processor) { p.rpc = c }
}

// WithAuth sets the identity passed with every storage call.
func WithAuth(auth store.AuthContext) Option {
	return func(p *Processor) { p.auth = auth }
}

// WithIDGenerator replaces the UUIDv7 batch id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(p *Processor) { p.ids = g }
}

// Processor routes inputs to entity types.
//
// Types are consulted in the order given; when several resolve the same
// input, each handles it in that order.
type Processor struct {
	types  []*entity.Type
	tables entity.Tables
	rpc    *rpc.Client
	auth   store.AuthContext
	ids    IDGenerator
}

// New creates a Processor over types. The slice is copied.
func New(types []*entity.Type, opts ...Option) *Processor {
	p := &Processor{
		types: append([]*entity.Type(nil), types...),
		ids:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Types returns the entity types in routing order.
func (p *Processor) Types() []*entity.Type {
	return append([]*entity.Type(nil), p.types...)
}

// Process handles inputs in order. On failure it returns the partial
// Result together with an *Error.
func (p *Processor) Process(ctx context.Context, inputs []entity.Input) (*Result, error) {
	res := &Result{
		ID:                   p.ids.Generate(),
		PublishedEvents:      make([][]queue.Event, 0, len(inputs)),
		NewContractInstances: make([][]queue.ContractRegistration, 0, len(inputs)),
	}
	queues := queue.New()
	log := slog.With("batch", res.ID)
	log.Info("batch started", "inputs", len(inputs))

	for i, in := range inputs {
		mark := queues.Mark()
		if err := p.handle(ctx, log, queues, in); err != nil {
			log.Error("batch failed", "index", i, "input", in.Name, "error", err)
			return res, &Error{BatchID: res.ID, Index: i, Input: in.Name, Err: err}
		}
		events, contracts := queues.After(mark)
		res.PublishedEvents = append(res.PublishedEvents, events)
		res.NewContractInstances = append(res.NewContractInstances, contracts)
	}

	log.Info("batch finished",
		"inputs", len(inputs),
		"events", queues.Events.Len(),
		"contracts", queues.Contracts.Len())
	return res, nil
}

func (p *Processor) handle(ctx context.Context, log *slog.Logger, queues *queue.Queues, in entity.Input) error {
	handled := false
	for _, t := range p.types {
		if _, ok := t.Resolve(in); !ok {
			continue
		}
		handled = true

		r := entity.NewRecord(t,
			entity.WithTables(p.tables),
			entity.WithRPC(p.rpc),
			entity.WithQueues(queues),
			entity.WithAuth(p.auth))
		save, err := r.Handle(ctx, in)
		if err != nil {
			return err
		}
		if save {
			if err := r.Save(ctx); err != nil {
				return err
			}
		}
		log.Debug("input handled", "type", t.Name(), "input", in.Name, "state", r.State())
	}
	if !handled {
		return &errs.DispatchError{Code: errs.CodeNoHandler, Input: in.Name}
	}
	return nil
}

// Error reports the input a batch stopped at.
type Error struct {
	BatchID string
	Index   int
	Input   string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("batch %s: input %d (%s): %v", e.BatchID, e.Index, e.Input, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
