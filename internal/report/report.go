// Package report turns comparisons into markdown and standalone HTML
// exports.
package report

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"
	"time"

	"github.com/jcccaz/TRIAI/internal/council"
	"github.com/jcccaz/TRIAI/internal/markup"
	"github.com/jcccaz/TRIAI/internal/session"
)

const (
	untitled   = "Untitled Query"
	timeLayout = "2006-01-02 15:04:05"
	maxTitle   = 50
)

// Comparison renders the full council report and returns its title.
func Comparison(c *session.Comparison, project string, now time.Time) (string, string) {
	title := untitled
	if c != nil && strings.TrimSpace(c.Question) != "" {
		title = strings.TrimSpace(c.Question)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# TriAI Report: %s\n\n", title)
	fmt.Fprintf(&b, "**Date:** %s\n", now.Format(timeLayout))
	if project != "" {
		fmt.Fprintf(&b, "**Project:** %s\n", project)
	}
	if c == nil {
		return title, b.String()
	}
	fmt.Fprintf(&b, "\n---\n\n## Consensus Analysis\n\n%s\n\n---\n\n", c.Consensus)
	for _, p := range c.Providers() {
		r := c.Results[p]
		fmt.Fprintf(&b, "## %s (%s)\n\n", strings.ToUpper(string(p)), nonEmpty(r.Model, p.Vendor()))
		if r.Enforcement != nil {
			fmt.Fprintf(&b, "*Truth Score: %d/100*\n\n", r.Enforcement.Credibility())
		}
		fmt.Fprintf(&b, "%s\n\n---\n\n", r.Response)
	}
	return title, b.String()
}

// Individual renders a single provider's answer.
func Individual(c *session.Comparison, p council.Provider, now time.Time) (string, bool) {
	if c == nil {
		return "", false
	}
	r, ok := c.Results[p]
	if !ok || r.Response == "" {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# TriAI Individual Report: %s\n\n", strings.ToUpper(string(p)))
	fmt.Fprintf(&b, "**Query:** %s\n", nonEmpty(strings.TrimSpace(c.Question), untitled))
	fmt.Fprintf(&b, "**Model:** %s\n", nonEmpty(r.Model, strings.ToUpper(string(p))))
	fmt.Fprintf(&b, "**Date:** %s\n\n", now.Format(timeLayout))
	fmt.Fprintf(&b, "---\n\n%s\n", r.Response)
	return b.String(), true
}

var (
	nonAlnum      = regexp.MustCompile(`[^a-zA-Z0-9]`)
	nonAlnumSpace = regexp.MustCompile(`[^a-zA-Z0-9 ]`)
)

// Filename names a downloaded report: TriAI_<title>.md with every
// non-alphanumeric replaced by an underscore.
func Filename(title string) string {
	return "TriAI_" + truncate(nonAlnum.ReplaceAllString(title, "_"), maxTitle) + ".md"
}

// ObsidianFilename names a vault note: TriAI - <title>.md.
func ObsidianFilename(title string) string {
	safe := strings.TrimSpace(truncate(strings.TrimSpace(nonAlnumSpace.ReplaceAllString(title, "")), maxTitle))
	if safe == "" {
		safe = "Report"
	}
	return "TriAI - " + safe + ".md"
}

func IndividualFilename(p council.Provider, now time.Time) string {
	return fmt.Sprintf("TriAI_%s_%d.md", p, now.UnixMilli())
}

var page = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,sans-serif;max-width:960px;margin:2rem auto;padding:0 1rem;background:#0b0b0f;color:#e6e6e6;line-height:1.55}
pre{background:#15151c;padding:1rem;overflow-x:auto;border-radius:6px}
code{font-family:ui-monospace,monospace}
a.tech-link{color:#06B6D4}
.mermaid{background:#15151c;padding:1rem;white-space:pre}
.preview-box{width:100%;min-height:320px;border:1px solid #333;background:#fff}
.flagged-content{background:rgba(255,0,85,.18);border-bottom:1px dashed #FF0055}
.violation-badge{font-size:.7em;color:#FF0055;margin-left:.25em}
img{max-width:100%}
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{.Body}}
</body>
</html>
`))

// HTML wraps rendered markdown into a standalone page.
func HTML(title, markdown string) (string, error) {
	return wrap(title, markup.Render(markdown))
}

// ComparisonHTML renders the council report as a standalone page. Each
// answer carries badges over the passages its enforcement findings quote.
func ComparisonHTML(c *session.Comparison, project string, now time.Time) (string, error) {
	title, md := Comparison(c, project, now)
	if c == nil {
		return HTML(title, md)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<p><strong>Date:</strong> %s", now.Format(timeLayout))
	if project != "" {
		fmt.Fprintf(&b, "<br><strong>Project:</strong> %s", html.EscapeString(project))
	}
	fmt.Fprintf(&b, "</p>\n<h2>Consensus Analysis</h2>\n<div>%s</div>\n", markup.Render(c.Consensus))
	for _, p := range c.Providers() {
		r := c.Results[p]
		fmt.Fprintf(&b, "<hr>\n<h2>%s (%s)</h2>\n", strings.ToUpper(string(p)), html.EscapeString(nonEmpty(r.Model, p.Vendor())))
		body := markup.Render(r.Response)
		if r.Enforcement != nil {
			fmt.Fprintf(&b, "<p><em>Truth Score: %d/100</em></p>\n", r.Enforcement.Credibility())
			body = markup.InjectViolationBadges(body, r.Enforcement.Violations)
		}
		fmt.Fprintf(&b, "<div>%s</div>\n", body)
	}
	return wrap(title, b.String())
}

func wrap(title, fragment string) (string, error) {
	var buf bytes.Buffer
	err := page.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{Title: title, Body: template.HTML(fragment)})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func nonEmpty(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
