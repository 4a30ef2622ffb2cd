package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livetable/internal/coerce"
	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/ir"
)

func strPtr(s string) *string { return &s }

func TestToSchema(t *testing.T) {
	reg, err := New([]PropertyDefinition{
		{Name: "id", Type: ir.TypeString, NotNull: true},
		{Name: "balance", Type: ir.TypeNumber},
		{Name: "supply", Type: ir.TypeBigInt},
		{Name: "holders", Type: ir.ArrayOf(ir.TypeAddress)},
		{Name: "meta", Type: ir.TypeJSON, HasDefault: true, Default: map[string]any{"v": 1}},
		{Name: "decimals", Type: ir.TypeNumber, HasDefault: true, Default: 18},
		{Name: "owner", Type: ir.TypeAddress, Index: true},
		{Name: "memo", Type: ir.TypeString, ColumnType: "text"},
	}, []string{"id"})
	require.NoError(t, err)

	cols, err := reg.ToSchema()
	require.NoError(t, err)

	assert.Equal(t, []ColumnSchema{
		{Name: "id", Type: coerce.ColumnVarchar, Semantic: ir.TypeString, NotNull: true},
		{Name: "balance", Type: coerce.ColumnNumeric, Semantic: ir.TypeNumber, Default: strPtr("0")},
		{Name: "supply", Type: coerce.ColumnNumeric, Semantic: ir.TypeBigInt, Default: strPtr("0")},
		{Name: "holders", Type: coerce.ColumnJSON, Semantic: ir.ArrayOf(ir.TypeAddress), Default: strPtr("[]")},
		{Name: "meta", Type: coerce.ColumnJSON, Semantic: ir.TypeJSON, Default: strPtr(`{"v":1}`)},
		{Name: "decimals", Type: coerce.ColumnNumeric, Semantic: ir.TypeNumber, Default: strPtr("18")},
		{Name: "owner", Type: coerce.ColumnVarchar, Semantic: ir.TypeAddress, Index: true},
		{Name: "memo", Type: "text", Semantic: ir.TypeString},
	}, cols)
}

func TestToSchemaUnmappable(t *testing.T) {
	reg, err := New([]PropertyDefinition{
		{Name: "id", Type: ir.TypeString},
		{Name: "blob", Type: "bytes"},
	}, []string{"id"})
	require.NoError(t, err)

	_, err = reg.ToSchema()
	require.Error(t, err)
	assert.Equal(t, errs.CodeUnmappableType, errs.CodeOf(err))
}

func TestTableSpec(t *testing.T) {
	reg, err := NewBuilder("TokenBalance").
		Property("tokenAddress", ir.TypeAddress).
		Property("owner", ir.TypeAddress, Indexed()).
		Property("balance", ir.TypeBigInt).
		UniqueBy("chainId", "tokenAddress", "owner").
		Build()
	require.NoError(t, err)

	spec, err := reg.TableSpec("acme.token_balance_01", [][]string{{"owner", "tokenAddress"}}, nil)
	require.NoError(t, err)

	assert.Equal(t, "acme", spec.Schema)
	assert.Equal(t, "token_balance_01", spec.Table)
	assert.Equal(t, "acme.token_balance_01", spec.QualifiedName())
	assert.Equal(t, [][]string{{"chain_id", "token_address", "owner"}}, spec.UniqueBy)
	assert.Equal(t, [][]string{{"owner", "token_address"}, {"owner"}}, spec.IndexBy)

	col, ok := spec.Column("block_number")
	require.True(t, ok)
	assert.Equal(t, coerce.ColumnInt8, col.Type)
}

func TestTableSpecUnknownProperty(t *testing.T) {
	reg, err := New(tokenBalanceDefs(), []string{"chainId"})
	require.NoError(t, err)

	_, err = reg.TableSpec("t", [][]string{{"ghost"}}, nil)
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	assert.Equal(t, errs.CodeUnknownProperty, errs.CodeOf(err))

	_, err = reg.TableSpec("t", nil, [][]string{{"chainId", "ghost"}})
	assert.Equal(t, errs.CodeUnknownProperty, errs.CodeOf(err))
}
