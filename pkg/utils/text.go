// Package utils provides shared utilities for text and logging.
package utils

import "unicode/utf8"

const ellipsis = "..."

// Truncate returns s cut to at most maxLen runes, ending in "..." when cut.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= len(ellipsis) {
		return string([]rune(s)[:maxLen])
	}
	return string([]rune(s)[:maxLen-len(ellipsis)]) + ellipsis
}
