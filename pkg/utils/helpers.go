package utils

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the wire format of block-time literals used by the query
// API, matching the original `%Y-%m-%d %H:%M:%S` filter format.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatTimestamp renders a nullable block time for API responses. Returns nil
// for a nil input so the JSON encoder emits null.
func FormatTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(TimestampLayout)
	return &s
}

// ParseTimestampLiteral parses a date literal as received in a query parameter.
// Clients send the literal quoted (`"2023-01-05 10:00:00"`); the surrounding
// quotes are stripped when present on both ends.
func ParseTimestampLiteral(literal string) (time.Time, error) {
	s := literal
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date literal %q, expected \"YYYY-MM-DD HH:MM:SS\": %w", literal, err)
	}
	return t, nil
}
