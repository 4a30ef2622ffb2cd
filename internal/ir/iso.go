package ir

import (
	"fmt"
	"time"
)

// isoLayout is the ISO-8601 form dates take in storage: UTC with
// millisecond precision and a literal Z.
const isoLayout = "2006-01-02T15:04:05.000Z"

// FormatISO renders t as an ISO-8601 UTC string with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseISO parses the date forms storage and inputs are known to produce.
func ParseISO(s string) (time.Time, error) {
	for _, layout := range []string{isoLayout, time.RFC3339Nano, "2006-01-02 15:04:05Z07:00", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
