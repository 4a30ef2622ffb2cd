package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livetable/internal/errs"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='live_tables'").Scan(&name)
	if err != nil {
		t.Errorf("live_tables not found after idempotent opens: %v", err)
	}

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, s.verifyPragma(tt.name, tt.expected))
		})
	}
}

func TestRequiredToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.db")
	s, err := Open(path, WithRequiredToken("secret"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	spec := tokenBalanceTable(t)

	err = s.EnsureTable(ctx, spec, AuthContext{Token: "wrong"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, errs.IsStorage(err))

	require.NoError(t, s.EnsureTable(ctx, spec, AuthContext{Token: "secret"}))

	_, err = s.Select(ctx, spec.QualifiedName(), nil, SelectOptions{}, AuthContext{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = s.Upsert(ctx, balanceUpsert(t, "0xabc", "1", "2024-01-01T00:00:00Z"), AuthContext{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = s.Transaction(ctx, nil, AuthContext{Token: "nope"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}
