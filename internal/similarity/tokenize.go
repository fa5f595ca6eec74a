// Package similarity scores how alike two scenarios are, so imports can
// drop near-duplicates of what the library already holds.
package similarity

import (
	"strings"
	"unicode"
)

// Tokenize splits s into lowercase word tokens. Word characters are letters
// and digits; single-character tokens are dropped.
func Tokenize(s string) []string {
	words := make([]string, 0)
	var current strings.Builder
	flush := func() {
		if current.Len() > 1 {
			words = append(words, current.String())
		}
		current.Reset()
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return words
}
