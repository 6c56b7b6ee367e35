package search

import (
	"strings"
	"unicode"
)

// Tokenize lowercases text and splits it on any non-alphanumeric rune.
// Empty fields are dropped.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
