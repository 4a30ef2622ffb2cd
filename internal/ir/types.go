package ir

import "strings"

// Type is the semantic type of a property. It decides how values are
// coerced to and from storage and which storage column type is used.
type Type string

const (
	TypeString          Type = "string"
	TypeNumber          Type = "number"
	TypeBoolean         Type = "boolean"
	TypeBigInt          Type = "BigInt"
	TypeBigFloat        Type = "BigFloat"
	TypeBlockNumber     Type = "BlockNumber"
	TypeDate            Type = "date"
	TypeTimestamp       Type = "timestamp"
	TypeJSON            Type = "json"
	TypeObject          Type = "object"
	TypeAddress         Type = "address"
	TypeBlockHash       Type = "blockHash"
	TypeTransactionHash Type = "transactionHash"
	TypeChainID         Type = "chainId"
)

// arraySuffix marks a sequence type, e.g. "address[]".
const arraySuffix = "[]"

// ArrayOf returns the sequence type of elem.
func ArrayOf(elem Type) Type {
	return elem + arraySuffix
}

// IsArray reports whether t is a sequence type.
func (t Type) IsArray() bool {
	return strings.HasSuffix(string(t), arraySuffix)
}

// Elem returns the element type of a sequence type, or t itself.
func (t Type) Elem() Type {
	return Type(strings.TrimSuffix(string(t), arraySuffix))
}

// IsNumeric reports whether t holds numbers that default to 0.
func (t Type) IsNumeric() bool {
	switch t {
	case TypeNumber, TypeBigInt, TypeBigFloat:
		return true
	}
	return false
}

// IsBigInteger reports whether t is stored as an arbitrary-precision integer.
func (t Type) IsBigInteger() bool {
	return t == TypeBigInt || t == TypeBlockNumber
}

// IsTemporal reports whether t holds a date value.
func (t Type) IsTemporal() bool {
	return t == TypeDate || t == TypeTimestamp
}

// IsStructured reports whether t is serialized as JSON text.
func (t Type) IsStructured() bool {
	if t.IsArray() {
		return true
	}
	lower := strings.ToLower(string(t))
	return lower == string(TypeJSON) || lower == string(TypeObject)
}

// Accepts reports whether v may be assigned to a property of type t.
// Null is always accepted. Numbers also accept numeric strings since
// coercion attempts a parse.
func (t Type) Accepts(v Value) bool {
	if IsNull(v) {
		return true
	}
	switch {
	case t.IsArray():
		_, ok := v.(Array)
		return ok
	case t.IsStructured():
		switch v.(type) {
		case Object, Array, String:
			return true
		}
		return false
	case t.IsTemporal():
		_, ok := v.(Time)
		return ok
	case t.IsBigInteger():
		_, ok := v.(BigInt)
		return ok
	}

	switch t {
	case TypeNumber:
		switch v.(type) {
		case Number, String:
			return true
		}
		return false
	case TypeBoolean:
		_, ok := v.(Bool)
		return ok
	case TypeBigFloat:
		_, ok := v.(BigFloat)
		return ok
	default:
		_, ok := v.(String)
		return ok
	}
}
