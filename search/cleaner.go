package search

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// Markup tags
	htmlTagRegex = regexp.MustCompile(`<[^>]+>`)

	// C0 and C1 control characters
	controlCharRegex = regexp.MustCompile(`[\x00-\x1F\x7F-\x9F]+`)

	// Runs of two or more whitespace characters, including Unicode spaces
	// such as U+3000 and U+00A0 that RE2's \s does not cover
	whitespaceRegex = regexp.MustCompile(`[\s\p{Zs}\x{2028}\x{2029}\x{FEFF}]{2,}`)
)

// Clean normalizes a raw line into a readable excerpt. The order matters:
// tags go first, then control characters, then whitespace runs.
func Clean(raw string) string {
	text := htmlTagRegex.ReplaceAllString(raw, "")
	text = controlCharRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimFunc(text, isSpace)
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}
