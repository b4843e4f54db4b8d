package opportunity

import (
	"strconv"
	"unicode/utf8"
)

// Truncate returns the first n characters (runes) of s.  A cut may land in
// the middle of a token; callers rely on that being deterministic.
func Truncate(s string, n int) string {
	if n < 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// FormatFloat renders v in the shortest form that round-trips.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
