package domain

import (
	"strconv"
	"strings"
)

// NormalizeIdentity reduces a license identifier to its canonical string
// form so that a raw numeric value and its textual form compare equal.
// Spreadsheet round trips tend to turn "1010157" into "1010157.0"; identity
// keys must survive that. Alphanumeric identifiers are kept as-is apart
// from whitespace trimming and upper-casing.
func NormalizeIdentity(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	// Float artifact from spreadsheet imports ("1010157.0").
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
	}

	if isDigits(s) {
		// Strip leading zeros so "0001010157" and 1010157 collapse.
		trimmed := strings.TrimLeft(s, "0")
		if trimmed == "" {
			return "0"
		}
		return trimmed
	}

	return strings.ToUpper(s)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
