package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON.
// This is the only serialization used for change-detection hashing and for
// the JSON text stored in structured columns.
//
// Key differences from standard json.Marshal:
// 1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
// 2. No HTML escaping (< > & are NOT escaped)
// 3. Strings are NFC normalized
// 4. Non-finite floats are rejected
// 5. Big numbers are encoded as decimal strings, times as ISO-8601 strings
func MarshalCanonical(v any) ([]byte, error) {
	return marshalCanonical(v)
}

// ParseJSON decodes JSON text into a Value. Integers are kept exact, so
// values written by MarshalCanonical read back without float rounding.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var native any
	if err := dec.Decode(&native); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode JSON: trailing data after value")
	}
	return FromNative(native)
}

func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case String:
		return marshalCanonicalString(string(val))
	case Number:
		return marshalCanonicalNumber(float64(val))
	case Bool:
		return marshalCanonicalBool(bool(val)), nil
	case BigInt:
		return marshalCanonicalString(val.String())
	case BigFloat:
		return marshalCanonicalString(val.String())
	case Time:
		return marshalCanonicalString(FormatISO(val.Time))
	case Array:
		return marshalCanonicalArray(val)
	case Object:
		return marshalCanonicalObject(val)
	case string:
		return marshalCanonicalString(val)
	case float64:
		return marshalCanonicalNumber(val)
	case float32:
		return marshalCanonicalNumber(float64(val))
	case int64:
		return []byte(strconv.FormatInt(val, 10)), nil
	case int:
		return []byte(strconv.Itoa(val)), nil
	case bool:
		return marshalCanonicalBool(val), nil
	case []any:
		arr, err := FromNative(val)
		if err != nil {
			return nil, err
		}
		return marshalCanonical(arr)
	case map[string]any:
		obj, err := FromNative(val)
		if err != nil {
			return nil, err
		}
		return marshalCanonical(obj)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func marshalCanonicalBool(b bool) []byte {
	if b {
		return []byte("true")
	}
	return []byte("false")
}

// marshalCanonicalNumber renders a finite float in its shortest round-trip
// form. NaN and infinities have no JSON representation.
func marshalCanonicalNumber(f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number is not representable in JSON: %v", f)
	}
	if f == 0 {
		// -0 and 0 serialize identically
		return []byte("0"), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

// marshalCanonicalString produces canonical JSON string with NFC normalization.
// CRITICAL: RFC 8785 compliance:
// - No HTML escaping (<, >, & are NOT escaped)
// - U+2028 (LINE SEPARATOR) and U+2029 (PARAGRAPH SEPARATOR) are NOT escaped
// - Only control characters (U+0000-U+001F), backslash, and quote are escaped
func marshalCanonicalString(s string) ([]byte, error) {
	// NFC normalize at serialization boundary
	normalized := norm.NFC.String(s)

	// Use encoder with HTML escaping disabled
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // CRITICAL: <, >, & must NOT be escaped
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds trailing newline, remove it
	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}

	// RFC 8785 leaves U+2028/U+2029 unescaped; json.Encoder escapes them.
	result = unescapeU2028U2029(result)

	return result, nil
}

// unescapeU2028U2029 converts \u2028 and \u2029 escape sequences back to
// literal characters, leaving \\u2028 (an escaped backslash followed by the
// text "u2028") untouched. An escape is real only when preceded by an even
// number of backslashes.
func unescapeU2028U2029(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	backslashes := 0
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == '\\' && backslashes%2 == 0 && i+5 < len(data) &&
			string(data[i+1:i+5]) == "u202" && (data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			backslashes = 0
			continue
		}
		if c == '\\' {
			backslashes++
		} else {
			backslashes = 0
		}
		out = append(out, c)
	}
	return out
}

// marshalCanonicalArray marshals an array to canonical JSON.
func marshalCanonicalArray(arr Array) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := marshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// marshalCanonicalObject marshals an object to canonical JSON with RFC 8785 key ordering.
func marshalCanonicalObject(obj Object) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	// CRITICAL: RFC 8785 UTF-16 code unit ordering
	keys := obj.SortedKeys()

	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		// Marshal key (NFC normalized, no HTML escape)
		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		// Marshal value
		valBytes, err := marshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
