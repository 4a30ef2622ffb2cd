package entity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/ir"
	"github.com/roach88/livetable/internal/resolver"
)

func TestHandleEvent_AssignsOriginAndRunsHandler(t *testing.T) {
	b := newClock().Next()
	r := NewRecord(balanceType(t))

	save, err := r.HandleEvent(context.Background(), transfer(b, "0xowner", "100"))
	require.NoError(t, err)
	assert.True(t, save)
	assert.Equal(t, Dispatching, r.State())

	values := r.Values()
	assert.Equal(t, ir.String("1"), values["chainId"])
	assert.Equal(t, ir.String(b.Hash), values["blockHash"])
	assert.Equal(t, ir.String(tokenAddress), values["tokenAddress"])
	assert.Equal(t, "100", values["balance"].(ir.BigInt).String())
	assert.Equal(t, "eth.contracts.acme.token.Transfer@2", r.Input().Name)
}

func TestHandleEvent_DispatchErrors(t *testing.T) {
	typ := balanceType(t, func(d *Definition) {
		d.Events.Register("acme.token.Burn", "onBurn", resolver.Options{})
	})
	b := newClock().Next()

	tests := []struct {
		name       string
		input      string
		wantCode   errs.Code
		wantMethod string
	}{
		{"no handler", "eth.contracts.acme.token.Approval@2", errs.CodeNoHandler, ""},
		{"handler not invocable", "eth.contracts.acme.token.Burn@2", errs.CodeHandlerNotInvocable, "onBurn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRecord(typ)
			in := transfer(b, "0xowner", "1")
			in.Name = tt.input

			save, err := r.HandleEvent(context.Background(), in)
			require.Error(t, err)
			assert.False(t, save)

			var de *errs.DispatchError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.wantCode, de.Code)
			assert.Equal(t, tt.input, de.Input)
			assert.Equal(t, tt.wantMethod, de.Method)
			assert.Equal(t, Unbound, r.State())
		})
	}
}

func TestHandleEvent_BeforeAll(t *testing.T) {
	var calls []string
	typ := balanceType(t, func(d *Definition) {
		d.BeforeAll = []string{"logged", "mainnetOnly"}
		d.Methods["logged"] = func(_ context.Context, _ *Record, in Input) (Outcome, error) {
			calls = append(calls, "logged")
			return Continue, nil
		}
		d.Methods["mainnetOnly"] = func(_ context.Context, r *Record, in Input) (Outcome, error) {
			calls = append(calls, "mainnetOnly")
			if r.ChainID() != "1" {
				return Halt, nil
			}
			return Continue, nil
		}
		d.Methods["onTransfer"] = func(ctx context.Context, r *Record, in Input) (Outcome, error) {
			calls = append(calls, "onTransfer")
			return onTransfer(ctx, r, in)
		}
	})
	b := newClock().Next()

	t.Run("runs in order then handler", func(t *testing.T) {
		calls = nil
		save, err := NewRecord(typ).HandleEvent(context.Background(), transfer(b, "0xa", "1"))
		require.NoError(t, err)
		assert.True(t, save)
		assert.Equal(t, []string{"logged", "mainnetOnly", "onTransfer"}, calls)
	})

	t.Run("halt aborts dispatch", func(t *testing.T) {
		calls = nil
		in := transfer(b, "0xa", "1")
		in.Origin.ChainID = "5"
		r := NewRecord(typ)

		save, err := r.HandleEvent(context.Background(), in)
		require.NoError(t, err)
		assert.False(t, save)
		assert.Equal(t, Skipped, r.State())
		assert.Equal(t, []string{"logged", "mainnetOnly"}, calls)
	})
}

func TestHandleEvent_BeforeAllNotInvocable(t *testing.T) {
	typ := balanceType(t, func(d *Definition) { d.BeforeAll = []string{"ghost"} })

	_, err := NewRecord(typ).HandleEvent(context.Background(), transfer(newClock().Next(), "0xa", "1"))
	var de *errs.DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, errs.CodeHandlerNotInvocable, de.Code)
	assert.Equal(t, "ghost", de.Method)
}

func TestHandleEvent_AutoSave(t *testing.T) {
	b := newClock().Next()

	tests := []struct {
		name     string
		opts     resolver.Options
		outcome  Outcome
		wantSave bool
	}{
		{"default saves", resolver.Options{}, Continue, true},
		{"explicit auto save", resolver.Options{AutoSave: ptr(true)}, Continue, true},
		{"auto save disabled", resolver.Options{AutoSave: ptr(false)}, Continue, false},
		{"handler halts", resolver.Options{}, Halt, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := resolver.NewRegistry()
			events.Register("acme.token.Transfer", "h", tt.opts)
			typ := balanceType(t, func(d *Definition) {
				d.Events = events
				d.Methods["h"] = func(context.Context, *Record, Input) (Outcome, error) { return tt.outcome, nil }
			})

			r := NewRecord(typ)
			save, err := r.HandleEvent(context.Background(), transfer(b, "0xa", "1"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantSave, save)
			if !tt.wantSave {
				assert.Equal(t, Skipped, r.State())
			}
		})
	}
}

func TestHandleEvent_HandlerError(t *testing.T) {
	boom := errors.New("boom")
	typ := balanceType(t, func(d *Definition) {
		d.Methods["onTransfer"] = func(context.Context, *Record, Input) (Outcome, error) { return Continue, boom }
	})

	_, err := NewRecord(typ).HandleEvent(context.Background(), transfer(newClock().Next(), "0xa", "1"))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "handler onTransfer")
}

func TestHandleCall_VaultDepositResolvesThroughFallback(t *testing.T) {
	typ := vaultType(t)
	in := Input{
		Name:    "eth.contracts.acme.vault.deposit@1",
		Origin:  originAt(newClock().Next(), "1", "0xvault"),
		Inputs:  map[string]any{"sender": "0xme", "amount": "5"},
		Outputs: map[string]any{"share": "0xshare"},
	}

	r := NewRecord(typ)
	save, err := r.HandleCall(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, save)

	v, _ := r.Get("depositor")
	assert.Equal(t, ir.String("0xme"), v)
	assert.Len(t, r.Queues().Contracts.Items(), 1)

	// calls and events are separate registries
	_, err = NewRecord(typ).HandleEvent(context.Background(), in)
	assert.Equal(t, errs.CodeNoHandler, errs.CodeOf(err))

	// Handle routes by shape
	save, err = NewRecord(typ).Handle(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, save)
}
