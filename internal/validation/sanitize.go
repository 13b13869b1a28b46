package validation

import (
	"regexp"
	"strings"
)

var (
	scriptOpenPattern  = regexp.MustCompile(`(?i)<\s*script`)
	scriptClosePattern = regexp.MustCompile(`(?i)<\s*/\s*script\s*>`)
	jsSchemePattern    = regexp.MustCompile(`(?i)javascript\s*:`)
	handlerPattern     = regexp.MustCompile(`(?i)\bon[a-z]+\s*=`)
)

// SanitizeContent strips the most obvious script vectors from rich text
// before it is rendered. It is a string blacklist, not an HTML sanitizer:
// rendered output must still be escaped.
func SanitizeContent(s string) string {
	s = SanitizeInput(s)
	s = scriptOpenPattern.ReplaceAllString(s, "")
	s = scriptClosePattern.ReplaceAllString(s, "")
	s = jsSchemePattern.ReplaceAllString(s, "")
	s = handlerPattern.ReplaceAllString(s, "")

	return strings.TrimSpace(s)
}
