package main

import (
	"strings"
	"unicode/utf8"

	"github.com/rivo/tview"
)

// htmlEscaper mirrors the entity escaping the forum web client applies to
// user content, so content copied out of the terminal stays inert if it ever
// lands in a browser.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// escapeHTML neutralizes HTML markup in user-supplied text.
func escapeHTML(s string) string {
	if s == "" {
		return ""
	}
	return htmlEscaper.Replace(s)
}

// escapeContent prepares user content for the transcript: HTML entities
// first, then tview color-tag escaping so content cannot restyle the UI.
func escapeContent(s string) string {
	return tview.Escape(escapeHTML(s))
}

// truncate shortens a string for previews and notification lines, cutting
// on a rune boundary so multibyte content is never split mid-sequence.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
