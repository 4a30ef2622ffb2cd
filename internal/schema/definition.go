package schema

import "github.com/roach88/livetable/internal/ir"

// PropertyDefinition describes one registered property of an entity type.
// Definitions are immutable once a Registry has been built from them.
type PropertyDefinition struct {
	Name string
	Type ir.Type

	// Column overrides the default snake_case column name.
	Column string

	// Unique is set by the Registry for members of the uniqueness key.
	Unique bool

	Index bool

	// CanUpdate nil means the column is updated on conflict.
	CanUpdate *bool

	HasDefault bool
	Default    any

	// PrimaryTimestamp marks the property whose column orders writes.
	PrimaryTimestamp bool

	NotNull bool

	// ColumnType overrides the storage type derived from Type.
	ColumnType string
}

// Updatable reports whether the column may change on conflict.
func (d PropertyDefinition) Updatable() bool {
	return d.CanUpdate == nil || *d.CanUpdate
}

// Origin-context property names. Every entity type carries these; their
// values come from the block an event or call was observed in.
const (
	PropBlockHash      = "blockHash"
	PropBlockNumber    = "blockNumber"
	PropBlockTimestamp = "blockTimestamp"
	PropChainID        = "chainId"
)

// OriginContext returns the definitions registered on every entity type.
func OriginContext() []PropertyDefinition {
	return []PropertyDefinition{
		{Name: PropBlockHash, Type: ir.TypeBlockHash},
		{Name: PropBlockNumber, Type: ir.TypeBlockNumber},
		{Name: PropBlockTimestamp, Type: ir.TypeTimestamp, PrimaryTimestamp: true},
		{Name: PropChainID, Type: ir.TypeChainID},
	}
}

// IsOriginContext reports whether name is an origin-context property.
func IsOriginContext(name string) bool {
	switch name {
	case PropBlockHash, PropBlockNumber, PropBlockTimestamp, PropChainID:
		return true
	}
	return false
}
