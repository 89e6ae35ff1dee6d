// Package speech splits a podcast-style consensus into speaker turns.
package speech

import (
	"regexp"
	"strings"
)

type Speaker string

const (
	HostA Speaker = "A"
	HostB Speaker = "B"
)

func (s Speaker) Label() string { return "Host " + string(s) }

type Turn struct {
	Speaker Speaker
	Text    string
}

var (
	hostA = regexp.MustCompile(`(?i)\**Host\s*[A1]\**[:.]?`)
	hostB = regexp.MustCompile(`(?i)\**Host\s*[B2]\**[:.]?`)
)

// ParseTurns returns one turn per tagged line. Untagged lines continue the
// previous turn; lines before the first tag are dropped. Fragments shorter
// than two characters are ignored. A nil result means no line was tagged
// and the text should be read as a whole.
func ParseTurns(text string) []Turn {
	var turns []Turn
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var sp Speaker
		content := line
		switch {
		case hostA.MatchString(line):
			sp = HostA
			content = strings.TrimSpace(hostA.ReplaceAllString(line, ""))
		case hostB.MatchString(line):
			sp = HostB
			content = strings.TrimSpace(hostB.ReplaceAllString(line, ""))
		}
		if len([]rune(content)) < 2 {
			continue
		}
		if sp == "" {
			if n := len(turns); n > 0 {
				turns[n-1].Text += " " + content
			}
			continue
		}
		turns = append(turns, Turn{Speaker: sp, Text: content})
	}
	return turns
}
