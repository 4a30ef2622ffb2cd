package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/store"
	"github.com/roach88/livetable/internal/upsert"
)

func spec(key, balance, ts string) *upsert.Spec {
	return &upsert.Spec{
		Table:                   "acme.vault_1",
		InsertData:              map[string]any{"id": key, "balance": balance, "block_timestamp": ts},
		ConflictColumns:         []string{"id"},
		UpdateColumns:           []string{"balance", "block_timestamp"},
		OrderingTimestampColumn: "block_timestamp",
	}
}

func TestMemoryTables_Upsert(t *testing.T) {
	m := NewMemoryTables()
	ctx := context.Background()

	rows, err := m.Upsert(ctx, spec("a", "1", "2024-01-02"), store.AuthContext{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows, err = m.Upsert(ctx, spec("a", "2", "2024-01-03"), store.AuthContext{})
	require.NoError(t, err)
	assert.Equal(t, "2", rows[0]["balance"])

	rows, err = m.Upsert(ctx, spec("a", "0", "2024-01-01"), store.AuthContext{})
	require.NoError(t, err)
	assert.Empty(t, rows, "older write rejected")

	assert.Len(t, m.Rows("acme.vault_1"), 1)
	assert.Len(t, m.Upserts(), 3)
}

func TestMemoryTables_Select(t *testing.T) {
	m := NewMemoryTables()
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		_, err := m.Upsert(ctx, spec(k, "1", "2024-01-01"), store.AuthContext{})
		require.NoError(t, err)
	}

	rows, err := m.Select(ctx, "acme.vault_1", []store.Filter{{"id": "b"}, {"id": "c"}}, store.SelectOptions{Limit: 1}, store.AuthContext{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0]["id"])

	rows, err = m.Select(ctx, "acme.vault_1", []store.Filter{{"id": store.NotIn("a")}}, store.SelectOptions{}, store.AuthContext{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = m.Select(ctx, "acme.vault_1", []store.Filter{{"id": store.Gt("a")}}, store.SelectOptions{}, store.AuthContext{})
	require.Error(t, err)
	assert.Equal(t, 3, m.Selects())
}

func TestMemoryTables_TransactionRollsBack(t *testing.T) {
	m := NewMemoryTables()
	m.FailOn = map[string]error{"acme.broken_1": errors.New("disk full")}

	bad := spec("x", "1", "2024-01-01")
	bad.Table = "acme.broken_1"
	_, err := m.Transaction(context.Background(), []*upsert.Spec{spec("a", "1", "2024-01-01"), bad}, store.AuthContext{})
	require.Error(t, err)
	assert.True(t, errs.IsStorage(err))
	assert.Empty(t, m.Rows("acme.vault_1"))
}
