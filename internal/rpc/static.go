package rpc

import (
	"context"
	"fmt"
	"maps"
	"strings"
)

// Static is a Caller answering from fixed tables. Keys for Calls are
// "chainID:address:method" with the address lowercased.
type Static struct {
	Calls    map[string]map[string]any `yaml:"calls"`
	Metadata map[string]map[string]any `yaml:"metadata"`
}

// CallKey builds the Calls lookup key.
func CallKey(chainID, address, method string) string {
	return chainID + ":" + strings.ToLower(address) + ":" + method
}

// Call implements Caller.
func (s *Static) Call(_ context.Context, chainID, address, method string, _ []any) (map[string]any, error) {
	out, ok := s.Calls[CallKey(chainID, address, method)]
	if !ok {
		return nil, fmt.Errorf("no result for %s on %s", method, address)
	}
	return maps.Clone(out), nil
}

// ResolveMetadata implements Caller.
func (s *Static) ResolveMetadata(_ context.Context, pointer, _ string) (map[string]any, error) {
	out, ok := s.Metadata[pointer]
	if !ok {
		return nil, fmt.Errorf("metadata not found: %s", pointer)
	}
	return maps.Clone(out), nil
}
