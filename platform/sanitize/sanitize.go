// Package sanitize cleans model output before it is sent as WhatsApp text.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	markdownBold    = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	markdownHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// StripHTML removes HTML tags and decodes entities.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = html.UnescapeString(result)
	// Re-strip after entity decode to catch encoded tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Bubble turns one generated message into WhatsApp-ready text: no HTML,
// WhatsApp bold instead of markdown bold, no headings, at most one blank line.
func Bubble(s string) string {
	result := StripHTML(strings.ReplaceAll(s, "\r\n", "\n"))
	result = markdownBold.ReplaceAllString(result, "*$1*")
	result = markdownHeading.ReplaceAllString(result, "")
	result = blankLines.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}
