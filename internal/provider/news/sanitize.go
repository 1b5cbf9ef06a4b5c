package news

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// skippableElements are containers whose text content must never reach a
// script prompt.
var skippableElements = map[string]bool{
	"script":   true,
	"style":    true,
	"iframe":   true,
	"noscript": true,
}

// sanitize strips markup and control characters from feed text and clamps
// it to maxRunes. Feed titles and summaries pass through here before they
// are stored; everything downstream treats the result as plain text.
func sanitize(raw string, maxRunes int) string {
	if raw == "" {
		return ""
	}

	out := stripTags(raw)
	// Double-encoded feeds decode into markup on the first pass.
	if strings.Contains(out, "<") {
		out = stripTags(out)
	}
	out = collapseWhitespace(out)

	return truncateRunes(out, maxRunes)
}

// stripTags drops every element, keeping text content only. Entities are
// decoded by the tokenizer along the way.
func stripTags(s string) string {
	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(s))

	depth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// Truncated markup ends the stream; keep what was collected.
			return b.String()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippableElements[string(name)] {
				depth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippableElements[string(name)] && depth > 0 {
				depth--
			}
		case html.TextToken:
			if depth == 0 {
				b.Write(tokenizer.Text())
			}
		}
	}
}

func collapseWhitespace(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
