package analyzer

import (
	"strings"
	"unicode"
)

// Tokenize splits text into lowercase code tokens. The rules are shared by
// the sparse index builder and the query path so both sides of BM25 see the
// same vocabulary: split on any non-alphanumeric character (also separating
// letter runs from digit runs), then sub-split camelCase boundaries,
// lowercase, and drop single-character tokens.
func Tokenize(text string) []string {
	words := splitRuns(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		for _, part := range splitCamel(word) {
			part = strings.ToLower(part)
			if len(part) > 1 {
				tokens = append(tokens, part)
			}
		}
	}

	return tokens
}

// splitRuns extracts maximal letter runs and digit runs. Underscores and
// every other non-alphanumeric rune act as separators, which handles
// snake_case for free.
func splitRuns(text string) []string {
	var words []string
	var current strings.Builder
	var currentDigit bool

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	for _, r := range text {
		switch {
		case unicode.IsLetter(r):
			if currentDigit {
				flush()
			}
			currentDigit = false
			current.WriteRune(r)
		case unicode.IsDigit(r):
			if !currentDigit {
				flush()
			}
			currentDigit = true
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return words
}

// splitCamel splits at lower-to-upper boundaries: "parseJSONFast" yields
// "parse", "JSONFast". Runs of capitals stay together.
func splitCamel(word string) []string {
	var parts []string
	runes := []rune(word)
	start := 0

	for i := 1; i < len(runes); i++ {
		if unicode.IsLower(runes[i-1]) && unicode.IsUpper(runes[i]) {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))

	return parts
}
