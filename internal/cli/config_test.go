package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "livetable.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Config
		wantErr string
	}{
		{
			name:    "full",
			content: "db: ./live.db\nauth_token: secret\nverbose: true\n",
			want:    Config{DB: "./live.db", AuthToken: "secret", Verbose: true},
		},
		{
			name:    "empty",
			content: "",
			want:    Config{},
		},
		{
			name:    "unknown key",
			content: "database: ./live.db\n",
			wantErr: "field database not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.content))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestRootCommand_ConfigDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "live.db")
	path := writeConfig(t, "db: "+db+"\n")

	cmd := NewRootCommand(bankMethods())
	out, err := execute(t, cmd, "--config", path, "run", defsDir, "testdata/inputs/deposits.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "3 input(s), 3 event(s), 1 contract(s)")

	_, err = os.Stat(db)
	assert.NoError(t, err, "run used the config database")
}
