// Package rpc is the contract-call collaborator boundary. Callers talk to
// a Client, which wraps whatever Caller reaches the chain and turns its
// failures into errs.RpcError.
package rpc

import (
	"context"
	"log/slog"
	"maps"

	"github.com/roach88/livetable/internal/errs"
)

// Caller performs contract reads and metadata lookups.
type Caller interface {
	Call(ctx context.Context, chainID, address, method string, args []any) (map[string]any, error)
	ResolveMetadata(ctx context.Context, pointer, protocol string) (map[string]any, error)
}

// MetadataOptions control ResolveMetadata.
type MetadataOptions struct {
	// Protocol hints how pointer should be resolved (ipfs, arweave, ...).
	Protocol string
	// Required turns resolution failures into errors instead of falling back.
	Required bool
	// Fallback is returned when resolution fails or yields nothing.
	// Nil means an empty map.
	Fallback map[string]any
}

// Client wraps a Caller with error context.
type Client struct {
	caller Caller
}

// NewClient returns a Client over caller.
func NewClient(caller Caller) *Client {
	return &Client{caller: caller}
}

// Call invokes a contract method.
func (c *Client) Call(ctx context.Context, chainID, address, method string, args []any) (map[string]any, error) {
	out, err := c.caller.Call(ctx, chainID, address, method, args)
	if err != nil {
		return nil, &errs.RpcError{Op: "call", ChainID: chainID, Target: address, Method: method, Err: err}
	}
	return out, nil
}

// ResolveMetadata fetches off-chain metadata. Unless opts.Required is set,
// failures are logged and the fallback is returned.
func (c *Client) ResolveMetadata(ctx context.Context, pointer string, opts MetadataOptions) (map[string]any, error) {
	fallback := opts.Fallback
	if fallback == nil {
		fallback = map[string]any{}
	}

	out, err := c.caller.ResolveMetadata(ctx, pointer, opts.Protocol)
	if err != nil {
		if opts.Required {
			return nil, &errs.RpcError{Op: "resolve_metadata", Target: pointer, Err: err}
		}
		slog.Warn("metadata resolution failed, using fallback",
			"pointer", pointer,
			"protocol", opts.Protocol,
			"error", err)
		return maps.Clone(fallback), nil
	}
	if out == nil {
		return maps.Clone(fallback), nil
	}
	return out, nil
}
