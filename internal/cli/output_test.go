package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
	assert.NotContains(t, buf.String(), "batch_id")
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	details := map[string]string{"file": "bank.cue", "line": "42"}
	require.NoError(t, formatter.Error("E101", "unique_by is required", details))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E101", resp.Error.Code)
	assert.Equal(t, "unique_by is required", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			require.NoError(t, formatter.Error("NO_HANDLER", "no event handler", map[string]string{"input": "acme.bank.Withdraw"}))
			assert.Contains(t, buf.String(), "Error [NO_HANDLER]: no event handler")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details:")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			errOut := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: tt.verbose}

			formatter.VerboseLog("Processing %s", "bank.cue")

			assert.Empty(t, out.String(), "verbose logs must not corrupt JSON output")
			if tt.wantLog {
				assert.Contains(t, errOut.String(), "Processing bank.cue")
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}

func TestGetErrWriter_FallsBackToWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}
	assert.Same(t, buf, formatter.GetErrWriter())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"exit error", NewExitError(ExitCommandError, "bad path"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewExitError(ExitSuccess, "ok")), ExitSuccess},
		{"plain error", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestWrapExitError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitFailure, "failed to write", cause)

	assert.Equal(t, "failed to write: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "bad path", NewExitError(ExitCommandError, "bad path").Error())
}
