package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/manifest"
)

func TestDefine(t *testing.T) {
	typ := balanceType(t)

	assert.Equal(t, "TokenBalance", typ.Name())
	assert.Equal(t, balanceTable, typ.Table())
	assert.Equal(t, "acme.TokenBalanceChanged@1", typ.ChangedEventName())
	assert.Equal(t, "acme", typ.TableSpec().Schema)
	assert.Equal(t, "token_balance_1", typ.TableSpec().Table)
	assert.Equal(t, []string{"1"}, typ.Manifest().Chains, "chains de-duplicated")
}

func TestDefine_TableOverride(t *testing.T) {
	typ := balanceType(t, func(d *Definition) { d.Table = "custom.balances" })
	assert.Equal(t, "custom.balances", typ.Table())
}

func TestDefine_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Definition)
		check  func(t *testing.T, err error)
	}{
		{
			name:   "invalid manifest",
			mutate: func(d *Definition) { d.Manifest = manifest.Manifest{Name: "X"} },
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "namespace is required")
			},
		},
		{
			name:   "missing registry",
			mutate: func(d *Definition) { d.Registry = nil },
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "property registry is required")
			},
		},
		{
			name:   "index on unknown property",
			mutate: func(d *Definition) { d.IndexBy = [][]string{{"nope"}} },
			check: func(t *testing.T, err error) {
				assert.True(t, errs.IsValidation(err))
				assert.Equal(t, errs.CodeUnknownProperty, errs.CodeOf(err))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := balanceType(t)
			def := Definition{
				Manifest: events.Manifest(),
				Registry: events.Registry(),
			}
			tt.mutate(&def)
			_, err := Define(def)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestType_Spec(t *testing.T) {
	spec := balanceType(t).Spec()

	assert.Equal(t, "acme", spec.Namespace)
	assert.Equal(t, "TokenBalance", spec.DisplayName)
	assert.Equal(t, balanceTable, spec.Table)
	assert.Equal(t, "blockTimestamp", spec.PrimaryTimestamp)
	assert.Equal(t, []string{"chainId", "tokenAddress"}, spec.UniqueBy)
	assert.Equal(t, []string{"acme.token.Transfer"}, spec.InputEvents)
	assert.Empty(t, spec.InputCalls)
	assert.Equal(t, "acme.TokenBalanceChanged@1", spec.ChangedEvent)

	var columns []string
	for _, p := range spec.Properties {
		columns = append(columns, p.Column)
	}
	assert.Equal(t, []string{"token_address", "owner", "balance", "block_hash", "block_number", "block_timestamp", "chain_id"}, columns)
}
