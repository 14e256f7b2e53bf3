package sanitize

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicy  = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()

	slugInvalidRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// HTML keeps user-generated formatting (lists, links, emphasis) and strips
// scripts, event handlers and unsafe URLs.
func HTML(input string) string {
	return strings.TrimSpace(richPolicy.Sanitize(input))
}

// Text removes all markup.
func Text(input string) string {
	return strings.TrimSpace(plainPolicy.Sanitize(input))
}

// Slug lowercases s and collapses anything non-alphanumeric into single dashes.
func Slug(s string) string {
	s = slugInvalidRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	return strings.Trim(s, "-")
}
