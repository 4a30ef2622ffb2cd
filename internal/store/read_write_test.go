package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/upsert"
)

func ensuredStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	require.NoError(t, s.EnsureTable(context.Background(), tokenBalanceTable(t), AuthContext{}))
	return s
}

func TestUpsert_InsertThenUpdate(t *testing.T) {
	s := ensuredStore(t)
	ctx := context.Background()

	rows, err := s.Upsert(ctx, balanceUpsert(t, "0xabc", "100", "2024-01-01T00:00:00Z"), AuthContext{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "100", rows[0]["balance"])
	assert.Equal(t, "0xabc", rows[0]["token_address"])
	assert.Equal(t, "[]", rows[0]["holders"], "column default applied")

	rows, err = s.Upsert(ctx, balanceUpsert(t, "0xabc", "250", "2024-01-02T00:00:00Z"), AuthContext{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "250", rows[0]["balance"])

	all, err := s.Select(ctx, balanceTable, nil, SelectOptions{}, AuthContext{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsert_OrderingGuardRejectsOlderWrite(t *testing.T) {
	s := ensuredStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, balanceUpsert(t, "0xabc", "100", "2024-01-02T00:00:00Z"), AuthContext{})
	require.NoError(t, err)

	rows, err := s.Upsert(ctx, balanceUpsert(t, "0xabc", "5", "2024-01-01T00:00:00Z"), AuthContext{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	got, err := s.Select(ctx, balanceTable, []Filter{{"token_address": "0xabc"}}, SelectOptions{Limit: 1}, AuthContext{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "100", got[0]["balance"])
}

func TestUpsert_NoUpdateColumnsKeepsRow(t *testing.T) {
	s := ensuredStore(t)
	ctx := context.Background()

	first := balanceUpsert(t, "0xabc", "100", "2024-01-01T00:00:00Z")
	_, err := s.Upsert(ctx, first, AuthContext{})
	require.NoError(t, err)

	keysOnly := *first
	keysOnly.UpdateColumns = nil
	keysOnly.InsertData = map[string]any{"chain_id": "1", "token_address": "0xabc", "block_timestamp": "2024-02-01T00:00:00.000Z"}
	rows, err := s.Upsert(ctx, &keysOnly, AuthContext{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSelect_Filters(t *testing.T) {
	s := ensuredStore(t)
	ctx := context.Background()
	for _, token := range []string{"0xa", "0xb", "0xc"} {
		_, err := s.Upsert(ctx, balanceUpsert(t, token, "1", "2024-01-01T00:00:00Z"), AuthContext{})
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		filters []Filter
		opts    SelectOptions
		want    []string
	}{
		{"all in insertion order", nil, SelectOptions{}, []string{"0xa", "0xb", "0xc"}},
		{"equality", []Filter{{"token_address": "0xb"}}, SelectOptions{}, []string{"0xb"}},
		{"or groups", []Filter{{"token_address": "0xa"}, {"token_address": "0xc"}}, SelectOptions{}, []string{"0xa", "0xc"}},
		{"not in", []Filter{{"token_address": NotIn("0xa")}}, SelectOptions{}, []string{"0xb", "0xc"}},
		{"in", []Filter{{"token_address": In("0xa", "0xc")}}, SelectOptions{}, []string{"0xa", "0xc"}},
		{"greater than", []Filter{{"token_address": Gt("0xa")}}, SelectOptions{}, []string{"0xb", "0xc"}},
		{"descending with limit", nil, SelectOptions{OrderBy: []string{"token_address"}, Desc: true, Limit: 2}, []string{"0xc", "0xb"}},
		{"offset", nil, SelectOptions{Offset: 2}, []string{"0xc"}},
		{"no match", []Filter{{"token_address": "0xz"}}, SelectOptions{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := s.Select(ctx, balanceTable, tt.filters, tt.opts, AuthContext{})
			require.NoError(t, err)
			var got []string
			for _, r := range rows {
				got = append(got, r["token_address"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelect_UnknownTable(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Select(context.Background(), "acme.missing_1", nil, SelectOptions{}, AuthContext{})
	require.Error(t, err)

	var se *errs.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "select", se.Op)
	assert.Equal(t, "acme.missing_1", se.Target)
}

func TestTransaction(t *testing.T) {
	s := ensuredStore(t)
	ctx := context.Background()

	results, err := s.Transaction(ctx, []*upsert.Spec{
		balanceUpsert(t, "0xa", "1", "2024-01-01T00:00:00Z"),
		balanceUpsert(t, "0xb", "2", "2024-01-01T00:00:00Z"),
	}, AuthContext{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "2", results[1][0]["balance"])

	t.Run("rolls back on failure", func(t *testing.T) {
		bad := balanceUpsert(t, "0xc", "3", "2024-01-01T00:00:00Z")
		bad.Table = "acme.missing_1"
		_, err := s.Transaction(ctx, []*upsert.Spec{
			balanceUpsert(t, "0xd", "4", "2024-01-01T00:00:00Z"),
			bad,
		}, AuthContext{})
		require.Error(t, err)
		assert.True(t, errs.IsStorage(err))

		rows, err := s.Select(ctx, balanceTable, []Filter{{"token_address": "0xd"}}, SelectOptions{}, AuthContext{})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}
