package entity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/livetable/internal/ir"
	"github.com/roach88/livetable/internal/manifest"
	"github.com/roach88/livetable/internal/resolver"
	"github.com/roach88/livetable/internal/schema"
	"github.com/roach88/livetable/internal/testutil"
)

const (
	balanceTable = "acme.token_balance_1"
	tokenAddress = "0xabc"
)

func ptr[T any](v T) *T { return &v }

func originAt(b testutil.Block, chain, contract string) Origin {
	return Origin{
		ChainID:         chain,
		BlockHash:       b.Hash,
		BlockNumber:     b.Number,
		BlockTimestamp:  b.Timestamp,
		ContractAddress: contract,
		TransactionHash: fmt.Sprintf("0xtx%d", b.Number),
	}
}

func transfer(b testutil.Block, to, value string) Input {
	return Input{
		Name:   "eth.contracts.acme.token.Transfer@2",
		Origin: originAt(b, "1", tokenAddress),
		Data:   map[string]any{"to": to, "value": value},
	}
}

func onTransfer(_ context.Context, r *Record, in Input) (Outcome, error) {
	if err := r.Assign("tokenAddress", in.Origin.ContractAddress); err != nil {
		return Continue, err
	}
	return Continue, r.AssignAll(map[string]any{"owner": in.Data["to"], "balance": in.Data["value"]})
}

func balanceRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.NewBuilder("TokenBalance").
		Property("tokenAddress", ir.TypeAddress).
		Property("owner", ir.TypeAddress, schema.Indexed()).
		Property("balance", ir.TypeBigInt).
		UniqueBy("chainId", "tokenAddress").
		Build()
	require.NoError(t, err)
	return reg
}

// balanceType defines TokenBalance with a Transfer handler. mutate may
// adjust the definition before Define.
func balanceType(t *testing.T, mutate ...func(*Definition)) *Type {
	t.Helper()
	events := resolver.NewRegistry()
	events.Register("acme.token.Transfer", "onTransfer", resolver.Options{})

	def := Definition{
		Manifest: manifest.Manifest{Namespace: "acme", Name: "TokenBalance", Version: "1", Chains: []string{"1", "1"}},
		Registry: balanceRegistry(t),
		Events:   events,
		Methods:  map[string]HandlerFunc{"onTransfer": onTransfer},
	}
	for _, m := range mutate {
		m(&def)
	}
	typ, err := Define(def)
	require.NoError(t, err)
	return typ
}

func vaultType(t *testing.T) *Type {
	t.Helper()
	reg, err := schema.NewBuilder("VaultDeposit").
		Property("vaultAddress", ir.TypeAddress).
		Property("depositor", ir.TypeAddress).
		Property("amount", ir.TypeBigInt).
		UniqueBy("chainId", "vaultAddress", "depositor").
		Build()
	require.NoError(t, err)

	calls := resolver.NewRegistry()
	calls.Register("acme.vault.deposit", "onDeposit", resolver.Options{})

	typ, err := Define(Definition{
		Manifest: manifest.Manifest{Namespace: "acme", Name: "VaultDeposit", Version: "0.1"},
		Registry: reg,
		Calls:    calls,
		Methods: map[string]HandlerFunc{
			"onDeposit": func(_ context.Context, r *Record, in Input) (Outcome, error) {
				if err := r.Assign("vaultAddress", in.Origin.ContractAddress); err != nil {
					return Continue, err
				}
				if err := r.AssignAll(map[string]any{"depositor": in.Inputs["sender"], "amount": in.Inputs["amount"]}); err != nil {
					return Continue, err
				}
				if share, ok := in.Outputs["share"].(string); ok {
					r.AddContractToGroup(share, "acme.share")
				}
				return Continue, nil
			},
		},
	})
	require.NoError(t, err)
	return typ
}

func newClock() *testutil.BlockClock {
	return testutil.NewBlockClock(time.Time{})
}
