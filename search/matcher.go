package search

import (
	"strings"
	"unicode/utf8"
)

// Ellipsis marks a truncated excerpt.
const Ellipsis = "..."

// Matcher finds case-insensitive substring matches of a single query in
// file names and extracted text.
type Matcher struct {
	lower      string
	maxExcerpt int
}

// NewMatcher creates a matcher for query. maxExcerpt bounds excerpt length
// in runes.
func NewMatcher(query string, maxExcerpt int) *Matcher {
	return &Matcher{
		lower:      strings.ToLower(query),
		maxExcerpt: maxExcerpt,
	}
}

// MatchName reports whether name contains the query, ignoring case.
func (m *Matcher) MatchName(name string) bool {
	return strings.Contains(strings.ToLower(name), m.lower)
}

// MatchLines returns one cleaned, length-bounded excerpt per line of text
// that contains the query. Excerpts that clean to nothing are dropped; line
// order is preserved.
func (m *Matcher) MatchLines(text string) []string {
	if text == "" || m.lower == "" {
		return nil
	}
	// Cheap whole-text check before splitting.
	if !strings.Contains(strings.ToLower(text), m.lower) {
		return nil
	}

	var excerpts []string
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(strings.ToLower(line), m.lower) {
			continue
		}
		excerpt := Truncate(Clean(line), m.maxExcerpt)
		if excerpt == "" {
			continue
		}
		excerpts = append(excerpts, excerpt)
	}
	return excerpts
}

// Truncate cuts s to at most maxLen runes, appending Ellipsis when it cut.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + Ellipsis
		}
		n++
	}
	return s
}

// MatchName is a convenience wrapper over Matcher.MatchName.
func MatchName(name, query string) bool {
	return NewMatcher(query, 0).MatchName(name)
}

// MatchLines is a convenience wrapper over Matcher.MatchLines.
func MatchLines(text, query string, maxExcerpt int) []string {
	return NewMatcher(query, maxExcerpt).MatchLines(text)
}
