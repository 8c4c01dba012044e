package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEscapeHTML(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"<script>alert('x')</script>", "&lt;script&gt;alert(&#039;x&#039;)&lt;/script&gt;"},
		{`a & b < c > "d"`, "a &amp; b &lt; c &gt; &quot;d&quot;"},
		// already-escaped input is escaped again, never trusted
		{"&lt;", "&amp;lt;"},
	}
	for _, tc := range cases {
		if got := escapeHTML(tc.in); got != tc.want {
			t.Fatalf("escapeHTML(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Fatalf("short string changed: %q", got)
	}
	if got := truncate("hello world", 5); got != "hello..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncate("hello", 0); got != "hello" {
		t.Fatalf("zero max should disable truncation: %q", got)
	}
}

func TestTruncateRuneBoundary(t *testing.T) {
	// "héllo" is 6 bytes; a byte cut at 2 would land inside the é
	got := truncate("héllo", 2)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got)
	}
	if got != "h..." {
		t.Fatalf("unexpected truncation: %q", got)
	}

	long := strings.Repeat("日", 10)
	got = truncate(long, 10)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got)
	}
	if got != strings.Repeat("日", 3)+"..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
}
