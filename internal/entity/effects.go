package entity

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/queue"
	"github.com/roach88/livetable/internal/resolver"
	"github.com/roach88/livetable/internal/rpc"
	"github.com/roach88/livetable/internal/schema"
)

var errNoRPC = errors.New("no contract-call client configured")

// New creates a record of t that shares this record's collaborators and
// input. Origin-context values are inherited unless initial sets them.
func (r *Record) New(t *Type, initial map[string]any) (*Record, error) {
	child := r.spawn(t)
	for _, def := range schema.OriginContext() {
		if _, given := initial[def.Name]; given {
			continue
		}
		if v, ok := r.values[def.Name]; ok && t.registry.Has(def.Name) {
			child.values[def.Name] = v
		}
	}
	for name, raw := range initial {
		if err := child.Assign(name, raw); err != nil {
			return nil, fmt.Errorf("new %s: %w", t.Name(), err)
		}
	}
	return child, nil
}

// PublishEvent queues a custom notification.
func (r *Record) PublishEvent(name string, data map[string]any) {
	r.queues.Events.Push(queue.Event{Name: name, Data: maps.Clone(data)})
}

// AddContractToGroup asks for address, on the record's chain, to be
// indexed as a member of group.
func (r *Record) AddContractToGroup(address, group string) {
	r.queues.Contracts.Push(queue.ContractRegistration{
		Address: address,
		ChainID: r.ChainID(),
		Group:   group,
	})
}

// ContractGroup returns namespace.contract of the input being handled.
func (r *Record) ContractGroup() (string, bool) {
	return resolver.ContractGroup(r.input.Name)
}

// Call reads method from the contract that emitted the current input.
func (r *Record) Call(ctx context.Context, method string, args ...any) (map[string]any, error) {
	return r.CallAt(ctx, r.input.Origin.ContractAddress, method, args...)
}

// CallAt reads method from the contract at address on the record's chain.
func (r *Record) CallAt(ctx context.Context, address, method string, args ...any) (map[string]any, error) {
	if r.rpc == nil {
		return nil, &errs.RpcError{Op: "call", ChainID: r.ChainID(), Target: address, Method: method, Err: errNoRPC}
	}
	return r.rpc.Call(ctx, r.ChainID(), address, method, args)
}

// ResolveMetadata fetches off-chain metadata, falling back per opts.
func (r *Record) ResolveMetadata(ctx context.Context, pointer string, opts rpc.MetadataOptions) (map[string]any, error) {
	if r.rpc == nil {
		if opts.Required {
			return nil, &errs.RpcError{Op: "resolve_metadata", Target: pointer, Err: errNoRPC}
		}
		if opts.Fallback == nil {
			return map[string]any{}, nil
		}
		return maps.Clone(opts.Fallback), nil
	}
	return r.rpc.ResolveMetadata(ctx, pointer, opts)
}
