package entity

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/roach88/livetable/internal/coerce"
	"github.com/roach88/livetable/internal/ir"
	"github.com/roach88/livetable/internal/queue"
	"github.com/roach88/livetable/internal/rpc"
	"github.com/roach88/livetable/internal/schema"
	"github.com/roach88/livetable/internal/snapshot"
	"github.com/roach88/livetable/internal/store"
)

// State is a record's lifecycle state.
type State int

const (
	Unbound State = iota
	Dispatching
	Saved
	Skipped
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Dispatching:
		return "dispatching"
	case Saved:
		return "saved"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures a Record.
type Option func(*Record)

// WithTables sets the row storage a record loads from and saves to.
func WithTables(t Tables) Option {
	return func(r *Record) { r.tables = t }
}

// WithRPC sets the contract-call client.
func WithRPC(c *rpc.Client) Option {
	return func(r *Record) { r.rpc = c }
}

// WithQueues sets the side-effect queues. Records created without queues
// get private ones.
func WithQueues(q *queue.Queues) Option {
	return func(r *Record) { r.queues = q }
}

// WithAuth sets the identity passed with every storage call.
func WithAuth(auth store.AuthContext) Option {
	return func(r *Record) { r.auth = auth }
}

// Record is one live entity instance: typed property values plus the
// snapshot they are diffed against.
type Record struct {
	typ       *Type
	values    ir.Values
	tracker   *snapshot.Tracker
	state     State
	persisted bool
	input     Input

	tables Tables
	rpc    *rpc.Client
	queues *queue.Queues
	auth   store.AuthContext
}

// NewRecord creates an unbound record of t with its declared defaults
// assigned and captured.
func NewRecord(t *Type, opts ...Option) *Record {
	var trackerOpts []snapshot.Option
	if t.hasher != nil {
		trackerOpts = append(trackerOpts, snapshot.WithHasher(t.hasher))
	}

	r := &Record{
		typ:     t,
		values:  t.registry.Defaults(),
		tracker: snapshot.NewTracker(t.registry, trackerOpts...),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.queues == nil {
		r.queues = queue.New()
	}
	if len(r.values) > 0 {
		r.tracker.Capture(r.values)
	}
	return r
}

// Type returns the record's entity type.
func (r *Record) Type() *Type { return r.typ }

// State returns the lifecycle state.
func (r *Record) State() State { return r.state }

// Input returns the input being handled, if any.
func (r *Record) Input() Input { return r.input }

// Origin returns the origin of the input being handled.
func (r *Record) Origin() Origin { return r.input.Origin }

// Queues returns the side-effect queues the record publishes to.
func (r *Record) Queues() *queue.Queues { return r.queues }

// Get returns the value of a property and whether it is set.
func (r *Record) Get(name string) (ir.Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Set assigns a typed value. The property must be registered and the value
// compatible with its semantic type.
func (r *Record) Set(name string, v ir.Value) error {
	if v == nil {
		v = ir.Null{}
	}
	if err := r.typ.registry.Validate(name, v); err != nil {
		return err
	}
	r.values[name] = v
	return nil
}

// Assign converts raw data (decoded JSON/YAML, storage values, Go
// scalars) to the property's semantic type and sets it.
func (r *Record) Assign(name string, raw any) error {
	if !r.typ.registry.Has(name) {
		return r.typ.registry.Validate(name, ir.Null{})
	}
	if v, ok := raw.(ir.Value); ok {
		raw = ir.ToNative(v)
	}
	return r.Set(name, coerce.FromColumn(raw, r.typ.registry.TypeOf(name)))
}

// AssignAll assigns every entry of data. Keys without a registered
// property are ignored; conversion failures are returned.
func (r *Record) AssignAll(data map[string]any) error {
	for name, raw := range data {
		if !r.typ.registry.Has(name) {
			continue
		}
		if err := r.Assign(name, raw); err != nil {
			return err
		}
	}
	return nil
}

// Unset removes a property's value.
func (r *Record) Unset(name string) {
	delete(r.values, name)
}

// Values returns a copy of the current property values.
func (r *Record) Values() ir.Values {
	return maps.Clone(r.values)
}

// Changes returns the current change set against the snapshot.
func (r *Record) Changes() snapshot.ChangeSet {
	return r.tracker.Diff(r.values)
}

// ChainID returns the record's chain id, or "" when unset.
func (r *Record) ChainID() string {
	v, ok := r.values[schema.PropChainID]
	if !ok || ir.IsNull(v) {
		return ""
	}
	return fmt.Sprint(ir.ToNative(v))
}

// assignProperties merges data into the record and re-captures the
// snapshot.
func (r *Record) assignProperties(data ir.Values) {
	if len(data) == 0 {
		slog.Warn("assigning empty properties", "type", r.typ.Name())
	}
	maps.Copy(r.values, data)
	r.tracker.Capture(r.values)
}

// assignOrigin copies origin-context values from the current input.
func (r *Record) assignOrigin() {
	for name, v := range r.input.Origin.Values() {
		if r.typ.registry.Has(name) {
			r.values[name] = v
		}
	}
}

// assignOriginIfSameChain re-assigns origin context onto a record read
// from storage unless it belongs to a different chain than the input.
func (r *Record) assignOriginIfSameChain() {
	chain := r.ChainID()
	if chain == "" || chain == r.input.Origin.ChainID {
		r.assignOrigin()
	}
}

// spawn creates a record of t sharing this record's collaborators and
// input.
func (r *Record) spawn(t *Type) *Record {
	child := NewRecord(t, WithTables(r.tables), WithRPC(r.rpc), WithQueues(r.queues), WithAuth(r.auth))
	child.input = r.input
	return child
}
