package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidates(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "chain qualified with version",
			in:   "eth.contracts.acme.token.Transfer@2",
			want: []string{
				"eth.contracts.acme.token.Transfer@2",
				"acme.token.Transfer@2",
				"token.Transfer@2",
				"eth.token.Transfer@2",
				"eth.contracts.acme.token.Transfer",
				"acme.token.Transfer",
				"token.Transfer",
				"eth.token.Transfer",
			},
		},
		{
			name: "chain qualified without version",
			in:   "polygon.contracts.acme.vault.deposit",
			want: []string{
				"polygon.contracts.acme.vault.deposit",
				"acme.vault.deposit",
				"vault.deposit",
				"polygon.vault.deposit",
			},
		},
		{
			name: "dotted namespace",
			in:   "eth.contracts.acme.defi.pool.Swap@1",
			want: []string{
				"eth.contracts.acme.defi.pool.Swap@1",
				"acme.defi.pool.Swap@1",
				"pool.Swap@1",
				"eth.pool.Swap@1",
				"eth.contracts.acme.defi.pool.Swap",
				"acme.defi.pool.Swap",
				"pool.Swap",
				"eth.pool.Swap",
			},
		},
		{
			name: "namespaced name",
			in:   "acme.TokenChanged@0.0.1",
			want: []string{"acme.TokenChanged@0.0.1", "acme.TokenChanged"},
		},
		{
			name: "bare name",
			in:   "Transfer",
			want: []string{"Transfer"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Candidates(tt.in))
		})
	}
}

func TestResolvePriority(t *testing.T) {
	const input = "eth.contracts.acme.token.Transfer@2"
	keys := []string{
		"eth.token.Transfer",
		"token.Transfer",
		"acme.token.Transfer",
		input,
	}

	// Remove registrations from most to least specific; each time the
	// next most specific one must win.
	for i := len(keys); i > 0; i-- {
		reg := NewRegistry()
		for _, k := range keys[:i] {
			reg.Register(k, "on:"+k, Options{})
		}
		got, ok := reg.Resolve(input)
		require.True(t, ok)
		assert.Equal(t, keys[i-1], got.MatchKey)
		assert.Equal(t, "on:"+keys[i-1], got.Method)
	}
}

func TestResolveVersionedBeforeVersionless(t *testing.T) {
	reg := NewRegistry()
	reg.Register("acme.token.Transfer", "loose", Options{})
	reg.Register("eth.token.Transfer@2", "versioned", Options{})

	got, ok := reg.Resolve("eth.contracts.acme.token.Transfer@2")
	require.True(t, ok)
	assert.Equal(t, "versioned", got.Method)
}

func TestResolveChainAndVersionStripped(t *testing.T) {
	reg := NewRegistry()
	reg.Register("acme.vault.deposit", "onDeposit", Options{})

	got, ok := reg.Resolve("eth.contracts.acme.vault.deposit@1")
	require.True(t, ok)
	assert.Equal(t, "onDeposit", got.Method)
}

func TestResolveMiss(t *testing.T) {
	reg := NewRegistry()
	reg.Register("acme.vault.deposit", "onDeposit", Options{})

	_, ok := reg.Resolve("eth.contracts.other.vault.withdraw@1")
	assert.False(t, ok)
}

func TestRegisterSignature(t *testing.T) {
	reg := NewRegistry()
	r1 := reg.Register("acme.token.Transfer", "onTransfer", Options{Signature: "0xddf252ad"})
	r2 := reg.Register("acme.token.Approval@3", "onApproval", Options{Signature: "0x8c5be1e5"})

	assert.Equal(t, "acme.token.Transfer@0xddf252ad", r1.MatchKey)
	assert.Equal(t, "acme.token.Approval@3", r2.MatchKey)
	assert.Equal(t, []string{"acme.token.Transfer@0xddf252ad", "acme.token.Approval@3"}, reg.Keys())

	got, ok := reg.Resolve("eth.contracts.acme.token.Transfer@0xddf252ad")
	require.True(t, ok)
	assert.Equal(t, "onTransfer", got.Method)
}

func TestRegisterReplaces(t *testing.T) {
	reg := NewRegistry()
	reg.Register("a.b", "first", Options{})
	reg.Register("a.b", "second", Options{})

	assert.Equal(t, 1, reg.Len())
	got, _ := reg.Resolve("a.b")
	assert.Equal(t, "second", got.Method)
}

func TestShouldAutoSave(t *testing.T) {
	f := false
	assert.True(t, Registration{}.ShouldAutoSave())
	assert.False(t, Registration{Options: Options{AutoSave: &f}}.ShouldAutoSave())
}

func TestParseName(t *testing.T) {
	n, ok := ParseName("eth.contracts.acme.token.Transfer@2")
	require.True(t, ok)
	assert.Equal(t, Name{Chain: "eth", Namespace: "acme", Contract: "token", Member: "Transfer", Version: "2"}, n)
	assert.Equal(t, "eth.contracts.acme.token.Transfer@2", n.String())
	assert.Equal(t, "acme.token", n.ContractGroup())

	for _, bad := range []string{"acme.token.Transfer", "eth.acme.x.token.Transfer", "eth.contracts..token.Transfer"} {
		_, ok := ParseName(bad)
		assert.False(t, ok, bad)
	}
}

func TestContractGroupAndFormatName(t *testing.T) {
	g, ok := ContractGroup("eth.contracts.acme.vault.deposit@1")
	require.True(t, ok)
	assert.Equal(t, "acme.vault", g)

	_, ok = ContractGroup("deposit")
	assert.False(t, ok)

	assert.Equal(t, "acme.TokenChanged@0.0.1", FormatName("acme", "TokenChanged", "0.0.1"))
	assert.Equal(t, "acme.TokenChanged", FormatName("acme", "TokenChanged", ""))
}
