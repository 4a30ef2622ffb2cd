package ir

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"math/big"
	"slices"
	"time"
	"unicode/utf16"

	"github.com/cockroachdb/apd/v3"
)

// Value is a sealed interface over the property value variants a live record
// can hold. Only Null, String, Number, Bool, BigInt, BigFloat, Time, Array and
// Object implement it.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null represents an explicitly empty property value.
type Null struct{}

func (Null) irValue() {}

// String represents text, addresses, hashes and chain ids.
type String string

func (String) irValue() {}

// Number represents a plain (float64) numeric value.
type Number float64

func (Number) irValue() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) irValue() {}

// BigInt represents an arbitrary-precision integer.
// The wrapped *big.Int is treated as immutable and shared by reference.
type BigInt struct {
	Int *big.Int
}

func (BigInt) irValue() {}

// String returns the decimal representation.
func (b BigInt) String() string {
	if b.Int == nil {
		return "0"
	}
	return b.Int.String()
}

// BigFloat represents an arbitrary-precision decimal.
// The wrapped *apd.Decimal is treated as immutable and shared by reference.
type BigFloat struct {
	Dec *apd.Decimal
}

func (BigFloat) irValue() {}

// String returns the decimal representation without exponent notation.
func (b BigFloat) String() string {
	if b.Dec == nil {
		return "0"
	}
	return b.Dec.Text('f')
}

// Time represents a date or timestamp.
type Time struct {
	time.Time
}

func (Time) irValue() {}

// Array represents an ordered sequence of values.
type Array []Value

func (Array) irValue() {}

// Object represents a structured value keyed by string.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) irValue() {}

// Values maps property names to their current values.
// An absent key means the property is unset.
type Values map[string]Value

// NewBigInt parses a base-10 integer string.
func NewBigInt(s string) (BigInt, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return BigInt{}, fmt.Errorf("invalid big integer %q", s)
	}
	return BigInt{Int: n}, nil
}

// MustBigInt is like NewBigInt but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustBigInt(s string) BigInt {
	b, err := NewBigInt(s)
	if err != nil {
		panic(err)
	}
	return b
}

// BigIntFromInt64 creates a BigInt from an int64.
func BigIntFromInt64(n int64) BigInt {
	return BigInt{Int: big.NewInt(n)}
}

// NewBigFloat parses a decimal string.
func NewBigFloat(s string) (BigFloat, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return BigFloat{}, fmt.Errorf("invalid big float %q: %w", s, err)
	}
	return BigFloat{Dec: d}, nil
}

// MustBigFloat is like NewBigFloat but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustBigFloat(s string) BigFloat {
	b, err := NewBigFloat(s)
	if err != nil {
		panic(err)
	}
	return b
}

// NewTime wraps a time.Time.
func NewTime(t time.Time) Time {
	return Time{Time: t}
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 which produces a different order.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	// If all compared units are equal, shorter string comes first
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// Copy returns a copy suitable for snapshotting: arrays are copied
// element-wise, objects shallow-copied, everything else returned as is
// (scalars are values; big numbers are immutable and shared).
func Copy(v Value) Value {
	switch val := v.(type) {
	case Array:
		return slices.Clone(val)
	case Object:
		return Object(maps.Clone(val))
	default:
		return v
	}
}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// FromNative converts decoded JSON/YAML data into a Value.
// Integers become Number unless they overflow float64 precision, in which
// case they become BigInt.
func FromNative(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case float64:
		return Number(val), nil
	case float32:
		return Number(val), nil
	case int:
		return fromInt64(int64(val)), nil
	case int64:
		return fromInt64(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return BigInt{Int: new(big.Int).SetUint64(val)}, nil
		}
		return fromInt64(int64(val)), nil
	case json.Number:
		return fromJSONNumber(val)
	case *big.Int:
		return BigInt{Int: val}, nil
	case time.Time:
		return Time{Time: val}, nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			irElem, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			irElem, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// maxExactFloatInt is the largest integer float64 represents exactly (2^53).
const maxExactFloatInt = 1 << 53

func fromInt64(n int64) Value {
	if n > maxExactFloatInt || n < -maxExactFloatInt {
		return BigIntFromInt64(n)
	}
	return Number(n)
}

// fromJSONNumber keeps integers beyond int64 exact as BigInt.
func fromJSONNumber(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return fromInt64(i), nil
	}
	if b, ok := new(big.Int).SetString(n.String(), 10); ok {
		return BigInt{Int: b}, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid JSON number %q: %w", n, err)
	}
	return Number(f), nil
}

// ToNative converts a Value into plain Go data suitable for encoding/json or
// yaml output. Big numbers become decimal strings, times RFC 3339 strings.
func ToNative(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Number:
		return float64(val)
	case Bool:
		return bool(val)
	case BigInt:
		return val.String()
	case BigFloat:
		return val.String()
	case Time:
		return val.UTC().Format(time.RFC3339Nano)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToNative(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToNative(elem)
		}
		return out
	default:
		return nil
	}
}
