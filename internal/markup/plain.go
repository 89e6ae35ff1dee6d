package markup

import (
	"html"
	"regexp"
	"strings"
)

var (
	breakRe = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagRe   = regexp.MustCompile(`<[^>]*>`)
)

// Plain strips tags from a rendered fragment, turning line breaks back
// into newlines.
func Plain(fragment string) string {
	s := breakRe.ReplaceAllString(fragment, "\n")
	s = tagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}
