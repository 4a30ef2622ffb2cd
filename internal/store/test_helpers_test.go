package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/livetable/internal/ir"
	"github.com/roach88/livetable/internal/schema"
	"github.com/roach88/livetable/internal/snapshot"
	"github.com/roach88/livetable/internal/upsert"
)

const balanceTable = "acme.token_balance_1"

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func balanceRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.NewBuilder("TokenBalance").
		Property("tokenAddress", ir.TypeAddress).
		Property("owner", ir.TypeAddress, schema.Indexed()).
		Property("balance", ir.TypeBigInt).
		Property("holders", ir.ArrayOf(ir.TypeAddress)).
		UniqueBy("chainId", "tokenAddress").
		Build()
	require.NoError(t, err)
	return reg
}

func tokenBalanceTable(t *testing.T) *schema.TableSpec {
	t.Helper()
	spec, err := balanceRegistry(t).TableSpec(balanceTable, nil, nil)
	require.NoError(t, err)
	return spec
}

// balanceUpsert composes the upsert for a fresh TokenBalance record.
func balanceUpsert(t *testing.T, token, balance, ts string) *upsert.Spec {
	t.Helper()
	reg := balanceRegistry(t)
	at, err := time.Parse(time.RFC3339, ts)
	require.NoError(t, err)

	values := ir.Values{
		"chainId":        ir.String("1"),
		"tokenAddress":   ir.String(token),
		"owner":          ir.String("0xowner"),
		"balance":        ir.MustBigInt(balance),
		"blockTimestamp": ir.NewTime(at),
	}
	spec, err := upsert.Compose(reg, snapshot.NewTracker(reg), values, balanceTable)
	require.NoError(t, err)
	require.NotNil(t, spec)
	return spec
}
