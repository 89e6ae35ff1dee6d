// Package markup converts the markdown dialect returned by council models
// into HTML fragments. Code and diagram spans are cut out before any inline
// formatting runs, so nothing inside them is ever rewritten.
package markup

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

var (
	boldRe   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe = regexp.MustCompile(`\*([^*]+)\*`)
	cveRe    = regexp.MustCompile(`(?i)(CVE-\d{4}-\d{4,7})`)
	ghsaRe   = regexp.MustCompile(`(?i)(GHSA-[a-z0-9]{4}-[a-z0-9]{4}-[a-z0-9]{4})`)
	rfcRe    = regexp.MustCompile(`(?i)RFC (\d+)`)
	imageRe  = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)
)

const (
	cveLink  = `<a href="https://nvd.nist.gov/vuln/detail/$1" target="_blank" rel="noopener" class="tech-link">$1</a>`
	ghsaLink = `<a href="https://github.com/advisories/$1" target="_blank" rel="noopener" class="tech-link">$1</a>`
	rfcLink  = `<a href="https://datatracker.ietf.org/doc/html/rfc$1" target="_blank" rel="noopener" class="tech-link">RFC $1</a>`
)

// Render converts text into an HTML fragment. It never fails; input it
// cannot interpret is passed through as escaped text.
//
// Code and diagram segments are rendered first and stand in the text as
// NUL-delimited atoms, so bold and italic may span them while nothing
// inside them is rewritten. NUL never survives from the input itself.
func Render(text string) string {
	if text == "" {
		return ""
	}
	var (
		r     renderer
		b     strings.Builder
		atoms []string
	)
	for _, seg := range tokenize(text) {
		if seg.kind == segText {
			b.WriteString(strings.ReplaceAll(seg.body, atomMark, "\uFFFD"))
			continue
		}
		b.WriteString(atomMark + strconv.Itoa(len(atoms)) + atomMark)
		atoms = append(atoms, r.segment(seg))
	}
	out := formatText(b.String())
	if len(atoms) == 0 {
		return out
	}
	return atomRe.ReplaceAllStringFunc(out, func(a string) string {
		i, err := strconv.Atoi(a[1 : len(a)-1])
		if err != nil || i >= len(atoms) {
			return a
		}
		return atoms[i]
	})
}

const atomMark = "\x00"

var atomRe = regexp.MustCompile(`\x00(\d+)\x00`)

type renderer struct {
	previews int
}

func (r *renderer) segment(seg segment) string {
	switch seg.kind {
	case segMermaid:
		return `<div class="mermaid">` + seg.body + `</div>`
	case segPreview:
		r.previews++
		return codeBlock(seg.lang, seg.body) + previewControl(r.previews, seg.lang, seg.body)
	case segFence:
		return codeBlock(seg.lang, seg.body)
	default:
		return "<code>" + escapeCode(seg.body) + "</code>"
	}
}

func codeBlock(lang, body string) string {
	return fmt.Sprintf(`<pre><code class="language-%s">%s</code></pre>`, lang, escapeCode(body))
}

// previewControl emits a collapsed preview whose iframe receives the raw
// markup through srcdoc. The empty sandbox attribute blocks scripts, forms
// and same-origin access.
func previewControl(n int, lang, body string) string {
	return fmt.Sprintf(
		`<details class="render-preview" id="code-preview-%d"><summary>▶ Render Preview</summary><iframe class="preview-box" sandbox="" srcdoc="%s"></iframe></details>`,
		n, html.EscapeString(PreviewDocument(lang, body)),
	)
}

// PreviewDocument returns the standalone document shown by a render
// preview. SVG (or XML carrying an svg element) is centred on a white page.
func PreviewDocument(lang, code string) string {
	if lang == "svg" || (lang == "xml" && strings.Contains(code, "<svg")) {
		return "<style>body { margin: 0; display: flex; justify-content: center; align-items: center; height: 100vh; background: #fff; } svg { max-width: 95%; max-height: 95%; }</style>\n" + code
	}
	return code
}

func escapeCode(s string) string {
	return strings.ReplaceAll(s, "<", "&lt;")
}

func formatText(s string) string {
	s = html.EscapeString(s)
	s = boldRe.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicRe.ReplaceAllString(s, "<em>$1</em>")
	s = cveRe.ReplaceAllString(s, cveLink)
	s = ghsaRe.ReplaceAllString(s, ghsaLink)
	s = rfcRe.ReplaceAllString(s, rfcLink)
	s = imageRe.ReplaceAllStringFunc(s, imageTag)
	s = strings.ReplaceAll(s, "\n\n", "<br><br>")
	return strings.ReplaceAll(s, "\n", "<br>")
}

func imageTag(match string) string {
	sub := imageRe.FindStringSubmatch(match)
	if len(sub) != 3 || strings.Contains(match, atomMark) || !allowedImageSource(sub[2]) {
		return match
	}
	return fmt.Sprintf(`<img src="%s" alt="%s" style="max-width:100%%; border-radius:4px; margin: 10px 0;">`, sub[2], sub[1])
}

func allowedImageSource(src string) bool {
	s := strings.ToLower(strings.TrimSpace(src))
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "data:image/")
}
