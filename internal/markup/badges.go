package markup

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

var violationRe = regexp.MustCompile(`^([A-Z_]+):\s*'([^']+)'`)

// Violation is an enforcement finding of the form TYPE: 'quoted text' ...
type Violation struct {
	Type  string
	Quote string
	Raw   string
}

// ParseViolation extracts the type and quoted text. ok is false for
// free-form findings that carry no quote.
func ParseViolation(v string) (Violation, bool) {
	m := violationRe.FindStringSubmatch(v)
	if m == nil {
		return Violation{}, false
	}
	return Violation{Type: m[1], Quote: m[2], Raw: v}, true
}

// InjectViolationBadges marks the first occurrence of each quoted finding in
// fragment and appends a badge naming the violation type. Findings already
// badged, or whose text does not appear outside markup, are skipped.
func InjectViolationBadges(fragment string, violations []string) string {
	for _, raw := range violations {
		v, ok := ParseViolation(raw)
		if !ok {
			continue
		}
		needle := html.EscapeString(v.Quote)
		if strings.Contains(fragment, fmt.Sprintf(`data-violation="%s"`, v.Type)) && strings.Contains(fragment, needle) {
			continue
		}
		i := indexInText(fragment, needle)
		if i < 0 {
			continue
		}
		badge := fmt.Sprintf(`<span class="flagged-content">%s</span><span class="violation-badge" data-violation="%s" title="%s">%s</span>`,
			needle, v.Type, html.EscapeString(v.Raw), v.Type)
		fragment = fragment[:i] + badge + fragment[i+len(needle):]
	}
	return fragment
}

// indexInText finds needle in s ignoring anything between < and >.
func indexInText(s, needle string) int {
	if needle == "" {
		return -1
	}
	inTag := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '<':
			inTag = true
			continue
		case inTag && s[i] == '>':
			inTag = false
			continue
		case inTag:
			continue
		}
		if strings.HasPrefix(s[i:], needle) {
			return i
		}
	}
	return -1
}
