package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livetable/internal/ir"
)

const tokenBalanceCUE = `
entity: TokenBalance: {
	namespace: "acme"
	version:   "1"
	chains: ["1", "10", "1"]
	display_name: "Token balance"

	unique_by: ["chainId", "tokenAddress", "owner"]
	index_by: ["owner", ["tokenAddress", "balance"]]

	properties: {
		tokenAddress: "address"
		owner: {type: "address", can_update: false}
		balance: {type: "BigInt", default: 0, not_null: true}
		symbol: {type: "string", column: "ticker", column_type: "varchar(12)"}
	}

	on_event: {
		"acme.token.Transfer": {method: "assign"}
		"acme.token.Approval": {method: "skip", auto_save: false}
		"eth.contracts.acme.token.Mint@1": "onMint"
	}
	on_call: {
		"acme.token.burn": {method: "onBurn", signature: "uint256"}
	}
	before_all: ["mainnetOnly"]
}
`

func compile(t *testing.T, src, path string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v.LookupPath(cue.ParsePath(path))
}

func TestCompileEntityBasic(t *testing.T) {
	def, err := CompileEntity(compile(t, tokenBalanceCUE, "entity.TokenBalance"))
	require.NoError(t, err)

	assert.Equal(t, "TokenBalance", def.Manifest.Name)
	assert.Equal(t, "acme", def.Manifest.Namespace)
	assert.Equal(t, "1", def.Manifest.Version)
	assert.Equal(t, "Token balance", def.Manifest.DisplayName)
	assert.Equal(t, []string{"1", "10", "1"}, def.Manifest.Chains)
	assert.Equal(t, []string{"chainId", "tokenAddress", "owner"}, def.UniqueBy)
	assert.Equal(t, [][]string{{"owner"}, {"tokenAddress", "balance"}}, def.IndexBy)
	assert.Equal(t, []string{"mainnetOnly"}, def.BeforeAll)

	require.Len(t, def.Properties, 4)
	names := make([]string, 0, len(def.Properties))
	for _, p := range def.Properties {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"tokenAddress", "owner", "balance", "symbol"}, names)

	assert.Equal(t, ir.TypeAddress, def.Properties[0].Type)
	require.NotNil(t, def.Properties[1].CanUpdate)
	assert.False(t, *def.Properties[1].CanUpdate)
	assert.True(t, def.Properties[2].HasDefault)
	assert.True(t, def.Properties[2].NotNull)
	assert.EqualValues(t, 0, def.Properties[2].Default)
	assert.Equal(t, "ticker", def.Properties[3].Column)
	assert.Equal(t, "varchar(12)", def.Properties[3].ColumnType)

	require.Len(t, def.OnEvent, 3)
	assert.Equal(t, "acme.token.Transfer", def.OnEvent[0].Key)
	assert.Equal(t, "assign", def.OnEvent[0].Method)
	assert.Nil(t, def.OnEvent[0].Options.AutoSave)
	require.NotNil(t, def.OnEvent[1].Options.AutoSave)
	assert.False(t, *def.OnEvent[1].Options.AutoSave)
	assert.Equal(t, "onMint", def.OnEvent[2].Method)

	require.Len(t, def.OnCall, 1)
	assert.Equal(t, "uint256", def.OnCall[0].Options.Signature)
}

func TestCompileEntityNameOverride(t *testing.T) {
	def, err := CompileEntity(compile(t, `
		entity: balances: {
			namespace: "acme"
			name:      "TokenBalance"
			version:   "2"
			properties: tokenAddress: {type: "address", unique: true}
			on_event: "acme.token.Transfer": "assign"
		}
	`, "entity.balances"))
	require.NoError(t, err)

	assert.Equal(t, "TokenBalance", def.Manifest.Name)
	assert.Equal(t, []string{"tokenAddress"}, def.UniqueBy)
}

func TestCompileEntityErrors(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantField string
	}{
		{
			name: "missing namespace",
			src: `entity: E: {
				version: "1"
				unique_by: ["chainId"]
				on_event: "a.b": "assign"
			}`,
			wantField: "namespace",
		},
		{
			name: "missing version",
			src: `entity: E: {
				namespace: "acme"
				unique_by: ["chainId"]
				on_event: "a.b": "assign"
			}`,
			wantField: "version",
		},
		{
			name: "no uniqueness key",
			src: `entity: E: {
				namespace: "acme"
				version: "1"
				properties: owner: "address"
				on_event: "a.b": "assign"
			}`,
			wantField: "unique_by",
		},
		{
			name: "no handlers",
			src: `entity: E: {
				namespace: "acme"
				version: "1"
				unique_by: ["chainId"]
			}`,
			wantField: "on_event",
		},
		{
			name: "property without type",
			src: `entity: E: {
				namespace: "acme"
				version: "1"
				unique_by: ["chainId"]
				properties: owner: {index: true}
				on_event: "a.b": "assign"
			}`,
			wantField: "properties.owner.type",
		},
		{
			name: "handler without method",
			src: `entity: E: {
				namespace: "acme"
				version: "1"
				unique_by: ["chainId"]
				on_event: "a.b": {auto_save: false}
			}`,
			wantField: "on_event.a.b.method",
		},
		{
			name: "unique_by not a list",
			src: `entity: E: {
				namespace: "acme"
				version: "1"
				unique_by: "chainId"
				on_event: "a.b": "assign"
			}`,
			wantField: "unique_by",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileEntity(compile(t, tt.src, "entity.E"))
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantField, ce.Field)
		})
	}
}

func TestCompileErrorFormatting(t *testing.T) {
	err := &CompileError{Field: "unique_by", Message: "required"}
	assert.Equal(t, "unique_by: required", err.Error())
}

func TestFormatCUEErrorNil(t *testing.T) {
	assert.NoError(t, formatCUEError(nil))
}
