// Package coerce converts property values between their semantic form and
// the primitive representation row storage holds.
//
// Every function here is pure. Values that do not fit their declared type
// pass through unchanged instead of failing: storage is the authority on
// what it accepts.
package coerce

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/ir"
)

// Storage column types.
const (
	ColumnVarchar   = "varchar"
	ColumnNumeric   = "numeric"
	ColumnBoolean   = "boolean"
	ColumnTimestamp = "timestamp with time zone"
	ColumnInt8      = "int8"
	ColumnJSON      = "json"
)

var storageTypes = map[ir.Type]string{
	ir.TypeString:          ColumnVarchar,
	ir.TypeAddress:         ColumnVarchar,
	ir.TypeBlockHash:       ColumnVarchar,
	ir.TypeTransactionHash: ColumnVarchar,
	ir.TypeChainID:         ColumnVarchar,
	ir.TypeNumber:          ColumnNumeric,
	ir.TypeBigInt:          ColumnNumeric,
	ir.TypeBigFloat:        ColumnNumeric,
	ir.TypeBoolean:         ColumnBoolean,
	ir.TypeDate:            ColumnTimestamp,
	ir.TypeTimestamp:       ColumnTimestamp,
	ir.TypeBlockNumber:     ColumnInt8,
	ir.TypeJSON:            ColumnJSON,
	ir.TypeObject:          ColumnJSON,
}

// StorageType returns the storage column type for a semantic type.
// Array types are stored as JSON.
func StorageType(t ir.Type) (string, error) {
	if t.IsStructured() {
		return ColumnJSON, nil
	}
	if st, ok := storageTypes[t]; ok {
		return st, nil
	}
	return "", &errs.RegistrationError{
		Code:    errs.CodeUnmappableType,
		Message: fmt.Sprintf("no storage type for semantic type %q", t),
	}
}

// ToColumn converts v into its storage representation for type t.
// Null maps to nil.
func ToColumn(v ir.Value, t ir.Type) any {
	if ir.IsNull(v) {
		return nil
	}
	if tv, ok := v.(ir.Time); ok {
		return ir.FormatISO(tv.Time)
	}

	switch {
	case t == ir.TypeNumber:
		return ir.ToNative(parseNumber(v))
	case t == ir.TypeBoolean:
		return bool(truthy(v))
	case t.IsBigInteger(), t == ir.TypeBigFloat:
		return stringOf(v)
	case t.IsStructured():
		return serialize(v)
	}

	switch val := v.(type) {
	case ir.Array, ir.Object:
		return serialize(val)
	default:
		return ir.ToNative(v)
	}
}

// FromColumn converts a raw storage value back into a property value for
// type t. Nil maps to ir.Null.
func FromColumn(raw any, t ir.Type) ir.Value {
	if raw == nil {
		return ir.Null{}
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}

	switch {
	case t.IsStructured():
		return parseStructured(raw, t)
	case t.IsTemporal():
		return parseDate(raw)
	case t == ir.TypeNumber:
		return parseNumber(native(raw))
	case t == ir.TypeBoolean:
		return truthy(native(raw))
	case t.IsBigInteger():
		return parseBigInt(raw)
	case t == ir.TypeBigFloat:
		return parseBigFloat(raw)
	}
	return native(raw)
}

// native lifts a raw storage value into a Value without type direction.
func native(raw any) ir.Value {
	v, err := ir.FromNative(raw)
	if err != nil {
		return ir.String(fmt.Sprint(raw))
	}
	return v
}

// parseStructured decodes the JSON text of a structured column. Text that
// is not a JSON array or object stays a string. Array elements are
// coerced to the element type.
func parseStructured(raw any, t ir.Type) ir.Value {
	v := native(raw)
	if s, ok := v.(ir.String); ok {
		trimmed := strings.TrimSpace(string(s))
		if !strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "{") {
			return s
		}
		decoded, err := ir.ParseJSON([]byte(trimmed))
		if err != nil {
			return s
		}
		v = decoded
	}
	arr, ok := v.(ir.Array)
	if !ok || !t.IsArray() {
		return v
	}
	elem := t.Elem()
	out := make(ir.Array, len(arr))
	for i, e := range arr {
		out[i] = FromColumn(ir.ToNative(e), elem)
	}
	return out
}

// parseNumber attempts a numeric parse; values that are not numeric, or
// whose magnitude exceeds what float64 holds exactly, pass through.
func parseNumber(v ir.Value) ir.Value {
	var f float64
	switch val := v.(type) {
	case ir.Number:
		return val
	case ir.String:
		s := strings.TrimSpace(string(val))
		if s == "" {
			return ir.Number(0)
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return val
		}
		f = parsed
	case ir.Bool:
		if val {
			return ir.Number(1)
		}
		return ir.Number(0)
	case ir.BigInt:
		if val.Int == nil {
			return ir.Number(0)
		}
		f, _ = new(big.Float).SetInt(val.Int).Float64()
	case ir.BigFloat:
		if val.Dec == nil {
			return ir.Number(0)
		}
		parsed, err := val.Dec.Float64()
		if err != nil {
			return val
		}
		f = parsed
	default:
		return v
	}
	if math.Abs(f) > maxSafeInteger {
		return v
	}
	return ir.Number(f)
}

const maxSafeInteger = 1<<53 - 1

// truthy follows the usual truthiness rules: zero values, empty strings and
// the strings "false" and "0" are false.
func truthy(v ir.Value) ir.Bool {
	switch val := v.(type) {
	case ir.Bool:
		return val
	case ir.Number:
		return ir.Bool(val != 0 && !math.IsNaN(float64(val)))
	case ir.String:
		s := strings.TrimSpace(strings.ToLower(string(val)))
		return ir.Bool(s != "" && s != "false" && s != "0")
	case ir.BigInt:
		return ir.Bool(val.Int != nil && val.Int.Sign() != 0)
	case ir.BigFloat:
		return ir.Bool(val.Dec != nil && !val.Dec.IsZero())
	case ir.Null, nil:
		return false
	default:
		return true
	}
}

func stringOf(v ir.Value) any {
	switch val := v.(type) {
	case ir.BigInt:
		return val.String()
	case ir.BigFloat:
		return val.String()
	case ir.String:
		return string(val)
	case ir.Number:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	default:
		return fmt.Sprint(ir.ToNative(v))
	}
}

// serialize renders structured values as canonical JSON text, or nil when
// the value has no JSON form. Strings are assumed to already hold JSON.
func serialize(v ir.Value) any {
	if s, ok := v.(ir.String); ok {
		return string(s)
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return nil
	}
	return string(data)
}

func parseDate(raw any) ir.Value {
	switch val := raw.(type) {
	case time.Time:
		return ir.NewTime(val.UTC())
	case string:
		t, err := ir.ParseISO(val)
		if err != nil {
			return ir.String(val)
		}
		return ir.NewTime(t)
	}
	return native(raw)
}

func parseBigInt(raw any) ir.Value {
	switch val := raw.(type) {
	case int64:
		return ir.BigIntFromInt64(val)
	case int:
		return ir.BigIntFromInt64(int64(val))
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) {
			n, _ := big.NewFloat(val).Int(nil)
			return ir.BigInt{Int: n}
		}
	case string:
		if b, err := ir.NewBigInt(strings.TrimSpace(val)); err == nil {
			return b
		}
		// numeric columns may hand back exponent or decimal forms
		if d, _, err := apd.NewFromString(strings.TrimSpace(val)); err == nil {
			whole, _, _ := strings.Cut(d.Text('f'), ".")
			if n, ok := new(big.Int).SetString(whole, 10); ok {
				return ir.BigInt{Int: n}
			}
		}
	}
	return native(raw)
}

func parseBigFloat(raw any) ir.Value {
	switch val := raw.(type) {
	case int64:
		return ir.BigFloat{Dec: apd.New(val, 0)}
	case float64:
		d := new(apd.Decimal)
		if _, err := d.SetFloat64(val); err == nil {
			return ir.BigFloat{Dec: d}
		}
	case string:
		if b, err := ir.NewBigFloat(strings.TrimSpace(val)); err == nil {
			return b
		}
	}
	return native(raw)
}
