// Package ir provides the value representation shared by every livetable
// package.
//
// This package imports nothing internal. It defines:
//   - Value, a sealed interface over the property value variants (Null,
//     String, Number, Bool, BigInt, BigFloat, Time, Array, Object)
//   - Type, the semantic property types and their classification
//   - RFC 8785 canonical JSON, used both for structured column text and for
//     change-detection hashing
//   - domain-separated SHA-256 fingerprints of storage values
package ir
