package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"mvdan.cc/xurls/v2"
)

// NewsAPI cuts content and appends e.g. "… [+2345 chars]".
var truncationMarkerRe = regexp.MustCompile(`\s*…?\s*\[\+\d+ chars\]\s*$`)

var urlRe = xurls.Relaxed()

// Truncate keeps at most maxRunes runes of s. It counts code points, not
// model tokens.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if len(s) <= maxRunes {
		return s
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}

	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}

	return s
}

// Clean reduces upstream body text to plain prose.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if strings.ContainsRune(s, '<') {
		s = StripHTML(s)
	}

	s = truncationMarkerRe.ReplaceAllString(s, "")
	s = urlRe.ReplaceAllString(s, "")

	return CollapseSpace(s)
}

// StripHTML returns the text content of an HTML fragment. Input that
// fails to parse is returned unchanged.
func StripHTML(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}

	return doc.Text()
}

func CollapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}

	return b.String()
}

// Snippet returns the start of an upstream body for error details.
func Snippet(body []byte, maxRunes int) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "<empty>"
	}
	if t := Truncate(s, maxRunes); len(t) < len(s) {
		return t + "..."
	}
	return s
}

// TrimModelOutput removes code fences and wrapping quotes that models
// sometimes put around a plain answer.
func TrimModelOutput(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	return s
}
