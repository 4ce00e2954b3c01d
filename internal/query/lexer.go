package query

import (
	"strings"
	"unicode"
)

// Tokenize splits a search string into lower-cased words.
// Double quotes group characters (including spaces) into one word and are dropped;
// a quote may start mid-word, so title:"menu bar" yields `title:menu bar`.
// An unterminated quote runs to the end of the input.
func Tokenize(input string) []string {
	var (
		words   []string
		sb      strings.Builder
		quoted  bool
		started bool
	)

	flush := func() {
		if started && sb.Len() > 0 {
			words = append(words, strings.ToLower(sb.String()))
		}
		sb.Reset()
		started = false
	}

	for _, r := range input {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case unicode.IsSpace(r) && !quoted:
			flush()
		default:
			sb.WriteRune(r)
			started = true
		}
	}
	flush()

	return words
}
