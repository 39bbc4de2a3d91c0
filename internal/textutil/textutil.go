// Package textutil normalizes provider and model text before it reaches
// prompts, chat messages or the publish endpoint.
package textutil

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// PlainText strips all markup from s, decodes entities and collapses
// whitespace runs into single spaces.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	cleaned := html.UnescapeString(stripPolicy.Sanitize(s))
	return strings.Join(strings.Fields(cleaned), " ")
}

// Truncate cuts s to at most max runes. It never splits a rune.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// EscapeHTML escapes s for Telegram's HTML mode, keeping the escaped result
// within max runes. Entities are never split.
func EscapeHTML(s string, max int) string {
	var (
		b strings.Builder
		n int
	)
	for _, r := range s {
		piece := html.EscapeString(string(r))
		size := utf8.RuneCountInString(piece)
		if n+size > max {
			break
		}
		b.WriteString(piece)
		n += size
	}
	return b.String()
}
