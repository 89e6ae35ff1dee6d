package markup

import "regexp"

type segmentKind int

const (
	segText segmentKind = iota
	segMermaid
	segPreview
	segFence
	segInlineCode
)

func (k segmentKind) String() string {
	switch k {
	case segText:
		return "text"
	case segMermaid:
		return "mermaid"
	case segPreview:
		return "preview"
	case segFence:
		return "fence"
	case segInlineCode:
		return "inline_code"
	default:
		return "unknown"
	}
}

type segment struct {
	kind segmentKind
	lang string
	body string
}

var (
	fenceRe      = regexp.MustCompile("(?s)```(\\w*)\\n(.*?)\\n```")
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
)

// tokenize splits text into ordered segments. Fenced blocks are matched
// first, inline code spans only in the text between them.
func tokenize(text string) []segment {
	var out []segment
	last := 0
	for _, loc := range fenceRe.FindAllStringSubmatchIndex(text, -1) {
		out = appendInline(out, text[last:loc[0]])
		lang := text[loc[2]:loc[3]]
		out = append(out, segment{kind: fenceKind(lang), lang: lang, body: text[loc[4]:loc[5]]})
		last = loc[1]
	}
	return appendInline(out, text[last:])
}

func appendInline(out []segment, text string) []segment {
	if text == "" {
		return out
	}
	last := 0
	for _, loc := range inlineCodeRe.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > last {
			out = append(out, segment{kind: segText, body: text[last:loc[0]]})
		}
		out = append(out, segment{kind: segInlineCode, body: text[loc[2]:loc[3]]})
		last = loc[1]
	}
	if last < len(text) {
		out = append(out, segment{kind: segText, body: text[last:]})
	}
	return out
}

func fenceKind(lang string) segmentKind {
	switch lang {
	case "mermaid":
		return segMermaid
	case "xml", "svg", "html":
		return segPreview
	default:
		return segFence
	}
}
