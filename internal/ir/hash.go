package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashing.
// Version suffix enables future algorithm migration.
const (
	DomainColumnValue = "livetable/column/v1"
	DomainTableSpec   = "livetable/tablespec/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ColumnHash fingerprints a storage-coerced column value.
// Returns error if the value has no canonical JSON form.
func ColumnHash(v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("ColumnHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainColumnValue, canonical), nil
}

// TableSpecHash fingerprints the encoded description of a table. Row
// storage records it to detect definition changes between runs.
func TableSpecHash(encoded []byte) string {
	return hashWithDomain(DomainTableSpec, encoded)
}
