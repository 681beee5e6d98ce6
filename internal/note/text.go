package note

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// TitleMaxChars bounds the derived title shown in listings.
const TitleMaxChars = 60

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize trims, lowercases and collapses internal whitespace.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// Title derives a one-line title from the first non-blank line of content,
// truncated to TitleMaxChars runes with a trailing ellipsis.
func Title(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = whitespaceRegex.ReplaceAllString(strings.TrimSpace(line), " ")
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > TitleMaxChars {
			return string(runes[:TitleMaxChars-1]) + "…"
		}
		return line
	}
	return ""
}

// Matches reports whether content contains query, ignoring case and
// whitespace differences. An empty query matches everything.
func Matches(content, query string) bool {
	q := Normalize(query)
	if q == "" {
		return true
	}
	return strings.Contains(Normalize(content), q)
}
