package wire

import (
	"strings"
	"unicode"
)

// CleanLabel drops control characters and collapses runs of whitespace.
func CleanLabel(value string) string {
	value = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, value)
	return strings.Join(strings.Fields(value), " ")
}

// Truncate shortens value to at most max runes.
func Truncate(value string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return strings.TrimSpace(string(runes[:max]))
}

// Label cleans and truncates value, returning nil when nothing informative
// is left.
func Label(value string, max int) *string {
	cleaned := Truncate(CleanLabel(value), max)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
