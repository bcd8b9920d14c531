package utils

import (
	"strconv"
	"strings"
	"unicode"
)

// IndexIgnoreCase returns the byte index of the first case-insensitive
// occurrence of substr in s, or -1 if absent. Folding is plain ASCII
// lowercasing, which keeps byte offsets stable for slicing the original.
func IndexIgnoreCase(s, substr string) int {
	return strings.Index(toLowerASCII(s), toLowerASCII(substr))
}

func toLowerASCII(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

// ContainsControl reports whether a string has control characters in it,
// newlines and tabs included. Queries arriving over the wire are rejected
// rather than sanitized.
func ContainsControl(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}

// IsValidQuery checks if a typed query should be processed at all.
// Whitespace-only and control-laden input never produces useful candidates.
func IsValidQuery(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	return !ContainsControl(s)
}

// FormatWithCommas renders an int with thousands separators for CLI output.
func FormatWithCommas(n int) string {
	s := strconv.Itoa(n)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	var b strings.Builder
	for i, d := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + b.String()
}
