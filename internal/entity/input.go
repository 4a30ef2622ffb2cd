package entity

import (
	"time"

	"github.com/roach88/livetable/internal/ir"
	"github.com/roach88/livetable/internal/schema"
)

// Origin locates an input on chain.
type Origin struct {
	ChainID         string    `json:"chainId" yaml:"chainId"`
	BlockHash       string    `json:"blockHash,omitempty" yaml:"blockHash,omitempty"`
	BlockNumber     int64     `json:"blockNumber,omitempty" yaml:"blockNumber,omitempty"`
	BlockTimestamp  time.Time `json:"blockTimestamp" yaml:"blockTimestamp"`
	ContractAddress string    `json:"contractAddress,omitempty" yaml:"contractAddress,omitempty"`
	TransactionHash string    `json:"transactionHash,omitempty" yaml:"transactionHash,omitempty"`
}

// Values returns the origin-context property values the origin carries.
// Empty fields are left out so they never overwrite existing values.
func (o Origin) Values() ir.Values {
	out := make(ir.Values, 4)
	if o.ChainID != "" {
		out[schema.PropChainID] = ir.String(o.ChainID)
	}
	if o.BlockHash != "" {
		out[schema.PropBlockHash] = ir.String(o.BlockHash)
	}
	if o.BlockNumber != 0 || o.BlockHash != "" {
		out[schema.PropBlockNumber] = ir.BigIntFromInt64(o.BlockNumber)
	}
	if !o.BlockTimestamp.IsZero() {
		out[schema.PropBlockTimestamp] = ir.NewTime(o.BlockTimestamp.UTC())
	}
	return out
}

// Input is an event or contract call delivered to a record.
type Input struct {
	Name   string         `json:"name" yaml:"name"`
	Origin Origin         `json:"origin" yaml:"origin"`
	Data   map[string]any `json:"data,omitempty" yaml:"data,omitempty"`

	// Inputs and Outputs are a call's arguments and return values. An input
	// carrying Inputs, even empty, is a call.
	Inputs  map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs map[string]any `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// IsCall reports whether the input is a contract call rather than an event.
func (in Input) IsCall() bool {
	return in.Inputs != nil
}

// Kind returns "call" or "event".
func (in Input) Kind() string {
	if in.IsCall() {
		return "call"
	}
	return "event"
}

// Args returns the payload handlers read: call inputs for calls, event
// data otherwise.
func (in Input) Args() map[string]any {
	if in.IsCall() {
		return in.Inputs
	}
	return in.Data
}
