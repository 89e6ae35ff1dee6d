package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEmpty(t *testing.T) {
	assert.Equal(t, "", Render(""))
}

func TestRenderBoldItalic(t *testing.T) {
	assert.Equal(t, "<strong>bold</strong> and <em>italic</em>", Render("**bold** and *italic*"))
}

func TestRenderInlineCodeIsInert(t *testing.T) {
	out := Render("see `a*b*c` here")
	assert.Contains(t, out, "<code>a*b*c</code>")
	assert.NotContains(t, out, "<em>")
}

func TestRenderMermaidVerbatim(t *testing.T) {
	out := Render("before\n```mermaid\ngraph TD;A-->B\n```\nafter")
	assert.Contains(t, out, `<div class="mermaid">graph TD;A-->B</div>`)
	assert.True(t, strings.HasPrefix(out, "before<br>"))
	assert.True(t, strings.HasSuffix(out, "<br>after"))
}

func TestRenderRFCLink(t *testing.T) {
	out := Render("Reference RFC 791 for details")
	assert.Contains(t, out, `href="https://datatracker.ietf.org/doc/html/rfc791"`)
	assert.Contains(t, out, ">RFC 791</a>")
}

func TestRenderAdvisoryLinks(t *testing.T) {
	out := Render("Patch CVE-2021-44228 and GHSA-jfh8-c2jp-5v3q now")
	assert.Contains(t, out, `href="https://nvd.nist.gov/vuln/detail/CVE-2021-44228"`)
	assert.Contains(t, out, `href="https://github.com/advisories/GHSA-jfh8-c2jp-5v3q"`)
	assert.Equal(t, 2, strings.Count(out, `class="tech-link"`))
}

func TestRenderFencedCodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		lang string
		code string
	}{
		{name: "go", lang: "go", code: "x := a * b * c\n\nfmt.Println(\"**not bold**\")"},
		{name: "no language", lang: "", code: "if a<b {\n\treturn\n}"},
		{name: "cve inside code", lang: "txt", code: "CVE-2020-1234 RFC 9110"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := Render("intro\n```" + tc.lang + "\n" + tc.code + "\n```\n")
			want := strings.ReplaceAll(tc.code, "<", "&lt;")
			assert.Contains(t, out, `<pre><code class="language-`+tc.lang+`">`+want+"</code></pre>")
			assert.NotContains(t, out, "tech-link")
			assert.NotContains(t, out, "<strong>")
		})
	}
}

func TestRenderPreviewBlock(t *testing.T) {
	src := "```svg\n<svg><circle r=\"4\"/></svg>\n```"
	out := Render(src + "\n" + src)

	assert.Contains(t, out, `<pre><code class="language-svg">&lt;svg>&lt;circle r="4"/>&lt;/svg></code></pre>`)
	assert.Contains(t, out, `id="code-preview-1"`)
	assert.Contains(t, out, `id="code-preview-2"`)
	assert.Contains(t, out, `sandbox=""`)
	assert.NotContains(t, out, "<svg>", "raw markup must only appear escaped inside srcdoc")
}

func TestRenderUnterminatedFence(t *testing.T) {
	out := Render("```go\nfunc main() {}")
	assert.NotContains(t, out, "<pre>")
	assert.Contains(t, out, "func main() {}")
}

func TestRenderEscapesText(t *testing.T) {
	out := Render("<script>alert(1)</script>")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestRenderImages(t *testing.T) {
	out := Render("![chart](https://example.com/c.png)")
	assert.Equal(t, `<img src="https://example.com/c.png" alt="chart" style="max-width:100%; border-radius:4px; margin: 10px 0;">`, out)

	blocked := Render("![x](javascript:alert(1))")
	assert.NotContains(t, blocked, "<img")
}

func TestRenderLineBreaks(t *testing.T) {
	assert.Equal(t, "a<br><br>b<br>c", Render("a\n\nb\nc"))
}

func TestTokenizeOrder(t *testing.T) {
	segs := tokenize("one `two` three\n```mermaid\ngraph\n```\n```html\n<b>x</b>\n```")
	kinds := make([]string, 0, len(segs))
	for _, s := range segs {
		kinds = append(kinds, s.kind.String())
	}
	require.Equal(t, []string{"text", "inline_code", "text", "mermaid", "text", "preview"}, kinds)
	assert.Equal(t, "html", segs[5].lang)
	assert.Equal(t, "<b>x</b>", segs[5].body)
}

func TestPreviewDocument(t *testing.T) {
	assert.Equal(t, "<p>hi</p>", PreviewDocument("html", "<p>hi</p>"))
	assert.Contains(t, PreviewDocument("svg", "<svg/>"), "justify-content: center")
	assert.Contains(t, PreviewDocument("xml", "<svg/>"), "justify-content: center")
	assert.Equal(t, "<note/>", PreviewDocument("xml", "<note/>"))
}

func TestPlain(t *testing.T) {
	assert.Equal(t, "bold and <tag>\nnext", Plain(Render("**bold** and <tag>\nnext")))
}

func TestRenderFormattingSpansInlineCode(t *testing.T) {
	assert.Equal(t, "<strong>Use <code>foo()</code> now</strong>", Render("**Use `foo()` now**"))
	assert.Equal(t, "<em>see <code>x</code> here</em>", Render("*see `x` here*"))
	assert.Equal(t, "<strong>a <code>b</code> c</strong>", Render("**a `b` c**"))
}

func TestRenderFormattingSpansFence(t *testing.T) {
	out := Render("**before\n```go\nx := 1\n```\nafter**")
	assert.Equal(t, `<strong>before<br><pre><code class="language-go">x := 1</code></pre><br>after</strong>`, out)
}

func TestRenderInputCannotForgeAtoms(t *testing.T) {
	out := Render("a\x000\x00b `c`")
	assert.Equal(t, 1, strings.Count(out, "<code>c</code>"))
	assert.Contains(t, out, "a�0�b")
	assert.NotContains(t, out, "\x00")
}

func TestRenderImageIgnoresCodeInAttributes(t *testing.T) {
	out := Render("![`\" onerror=\"x`](https://example.com/a.png)")
	assert.NotContains(t, out, "<img")
	assert.Contains(t, out, "<code>\" onerror=\"x</code>")
}
