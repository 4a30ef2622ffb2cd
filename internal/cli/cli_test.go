package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livetable/internal/compiler"
	"github.com/roach88/livetable/internal/entity"
)

const defsDir = "testdata/defs"

// bankMethods supplies the Go handler the bank definitions name.
func bankMethods() compiler.Methods {
	return compiler.Methods{
		"onVaultCreated": func(ctx context.Context, r *entity.Record, in entity.Input) (entity.Outcome, error) {
			vault := fmt.Sprint(in.Data["vault"])
			if err := r.Assign("vault", vault); err != nil {
				return entity.Continue, err
			}
			out, err := r.CallAt(ctx, vault, "symbol")
			if err != nil {
				return entity.Continue, err
			}
			if err := r.Assign("symbol", out["symbol"]); err != nil {
				return entity.Continue, err
			}
			r.AddContractToGroup(vault, "acme.vault")
			return entity.Continue, nil
		},
	}
}

// execute runs cmd with args and returns its stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	err := cmd.Execute()
	return buf.String(), err
}

// writeDefs writes a single definitions file into a fresh directory.
func writeDefs(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "defs.cue"), []byte(content), 0o644))
	return dir
}
