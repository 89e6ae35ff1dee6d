package main

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer renders answers through glamour, rebuilding the term
// renderer when the wrap width changes. Output is cached per width.
type markdownRenderer struct {
	mu       sync.Mutex
	plain    bool
	width    int
	renderer *glamour.TermRenderer
	cache    map[string]string
}

func newMarkdownRenderer(plain bool) *markdownRenderer {
	return &markdownRenderer{plain: plain, cache: map[string]string{}}
}

func (r *markdownRenderer) render(content string, width int) string {
	if r == nil || strings.TrimSpace(content) == "" {
		return content
	}
	if width < 20 {
		width = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.renderer == nil || r.width != width {
		opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
		if r.plain {
			opts = append(opts, glamour.WithStylePath("notty"))
		} else {
			opts = append(opts, glamour.WithAutoStyle())
		}
		tr, err := glamour.NewTermRenderer(opts...)
		if err != nil {
			return content
		}
		r.renderer = tr
		r.width = width
		r.cache = map[string]string{}
	}
	if out, ok := r.cache[content]; ok {
		return out
	}
	out := strings.Trim(safeRender(r.renderer, content), "\n")
	r.cache[content] = out
	return out
}

// safeRender falls back to the raw text when glamour fails or panics.
func safeRender(tr *glamour.TermRenderer, content string) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			result = content
		}
	}()
	out, err := tr.Render(content)
	if err != nil {
		return content
	}
	return out
}
