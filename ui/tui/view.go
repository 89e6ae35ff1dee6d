package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jcccaz/TRIAI/internal/council"
	"github.com/jcccaz/TRIAI/internal/markup"
	"github.com/jcccaz/TRIAI/internal/session"
	"github.com/jcccaz/TRIAI/internal/speech"
	"github.com/jcccaz/TRIAI/internal/workflow"
)

func (m appModel) View() string {
	w, h := m.effectiveSize()
	// If the terminal is extremely small, render a stable hint instead of a broken layout.
	if w < 40 || h < 12 {
		return m.viewTooSmall(w, h)
	}

	var base string
	switch m.currentScreen() {
	case screenWorkflow:
		base = m.viewWorkflow()
	case screenHistory:
		base = m.viewHistory()
	case screenProjects:
		base = m.viewProjects()
	default:
		base = m.viewDeck()
	}

	switch m.currentOverlay() {
	case overlayCommandPalette:
		return renderOverlay(m.th, base, m.viewCommandPalette())
	case overlayProviders:
		return renderOverlay(m.th, base, m.viewProviders())
	case overlayWorkflowSelect:
		return renderOverlay(m.th, base, m.viewWorkflowSelect())
	case overlayRecommend:
		return renderOverlay(m.th, base, m.viewRecommend())
	case overlayInterrogation:
		return renderOverlay(m.th, base, m.viewInterrogation())
	case overlayStepEdit:
		return renderOverlay(m.th, base, m.viewStepEdit())
	case overlayStopConfirm:
		return renderOverlay(m.th, base, m.viewStopConfirm())
	case overlayQuitConfirm:
		return renderOverlay(m.th, base, m.viewQuitConfirm())
	}
	return base
}

func renderHeader(th theme, version, sessionID, baseURL, project string) string {
	left := fmt.Sprintf("TRIAI COUNCIL %s", version)
	right := fmt.Sprintf("[ %s ]", baseURL)
	line := fmt.Sprintf("%s %s", left, right)
	sub := fmt.Sprintf("Session: %s", sessionID)
	if project != "" {
		sub += "    Project: " + project
	}
	return th.Header.Render(line) + "\n" + th.Muted.Render(sub)
}

func (m appModel) header() string {
	return renderHeader(m.th, m.cfg.version, m.sessionID, nonEmpty(m.cfg.baseURL, "offline"), m.sess.Project)
}

func (m appModel) viewDeck() string {
	w, _ := m.effectiveSize()
	results := m.results
	results.SetContent(m.deckContent(results.Width))

	body := lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.th.Panel.Width(w-2).Render(results.View()),
		m.viewStatusBar(w),
		m.th.Frame.Width(w-2).Render(m.input.View()),
		m.th.Muted.Render("[Enter] Ask    [/] Commands    [Tab] Next card    [PgUp/PgDn] Scroll    [Esc] Cancel/Quit"),
	)
	return body
}

// deckContent is the scrollable consensus plus one card per provider.
func (m appModel) deckContent(width int) string {
	c := m.sess.Comparison()
	if c == nil {
		lines := []string{
			m.th.Muted.Render("No comparison yet."),
			m.th.Muted.Render("Type a question and press Enter to convene the council."),
		}
		if m.selectedWorkflow != "" {
			lines = append(lines, m.th.Accent.Render("Workflow mode: "+m.selectedWorkflow))
		}
		return strings.Join(lines, "\n")
	}

	var b strings.Builder
	b.WriteString(m.th.Accent.Render("QUESTION") + "\n" + c.Question + "\n\n")
	b.WriteString(m.viewConsensus(c, width))

	focused, _ := m.focusedProvider()
	for _, p := range c.Providers() {
		b.WriteString("\n\n")
		b.WriteString(m.viewCard(c, p, p == focused, width))
	}
	return b.String()
}

func (m appModel) viewConsensus(c *session.Comparison, width int) string {
	lines := []string{m.th.Accent.Render("CONSENSUS")}
	if c.FromHistory {
		lines = append(lines, m.th.Muted.Render("(loaded from history)"))
	}
	if c.ConsensusCompromised() {
		lines = append(lines, m.th.Danger.Render("⚠ CONSENSUS COMPROMISED: a source scored below 70. Run /resynth."))
	} else if c.Stale {
		lines = append(lines, m.th.Alert.Render("Scores changed since this consensus was written. Run /resynth."))
	}
	if strings.TrimSpace(c.Consensus) == "" {
		lines = append(lines, m.th.Muted.Render("(no consensus)"))
		return strings.Join(lines, "\n")
	}
	if m.sess.Options.Podcast {
		if turns := speech.ParseTurns(c.Consensus); len(turns) > 0 {
			for _, t := range turns {
				style := m.th.Accent
				if t.Speaker == speech.HostB {
					style = m.th.Success
				}
				lines = append(lines, style.Render(t.Speaker.Label()+": ")+t.Text)
			}
			return strings.Join(lines, "\n")
		}
	}
	lines = append(lines, m.md.render(c.Consensus, width-2))
	return strings.Join(lines, "\n")
}

func (m appModel) viewCard(c *session.Comparison, p council.Provider, focused bool, width int) string {
	r := c.Results[p]
	head := m.th.provider(p).Render(p.DisplayName())
	meta := fmt.Sprintf("%s  %.1fs  $%.4f", nonEmpty(r.Model, "?"), r.Time, r.Cost)
	if role := nonEmpty(r.Role, m.sess.Roles[p].Role); role != "" && m.sess.Options.Council {
		meta += "  " + role
	}
	lines := []string{head + "  " + m.th.Muted.Render(meta)}

	if label := session.BiasLabel(r.ExecutionBias); label != "" {
		lines = append(lines, label)
	}
	switch session.Sandbag(r) {
	case session.SandbagGeneric:
		lines = append(lines, m.th.Danger.Render("⚠ Sandbagging: the answer is generic next to its reasoning"))
	case session.SandbagImbalance:
		lines = append(lines, m.th.Alert.Render("⚠ Reasoning outweighs the delivered answer"))
	}

	if !r.Success {
		lines = append(lines, m.th.Danger.Render("Failed: "+nonEmpty(r.Response, "no response")))
		return m.th.card(p, focused).Width(max(20, width-2)).Render(strings.Join(lines, "\n"))
	}

	score := r.Enforcement.Credibility()
	lines = append(lines, m.th.band(score).Render(fmt.Sprintf("Truth score %d (%s)", score, council.Band(score))))
	lines = append(lines, m.findings(r.Enforcement)...)

	if m.sess.Options.Thoughts && strings.TrimSpace(r.Thought) != "" {
		lines = append(lines, m.th.Muted.Render("Thinking:"), m.th.Fading.Render(r.Thought))
	}
	lines = append(lines, m.md.render(r.Response, width-4))
	if m.sess.Options.Citations && r.HasCitations {
		lines = append(lines, m.th.Muted.Render("[sources cited]"))
	}

	for _, v := range c.Verdicts[p] {
		style := m.th.Danger
		if v.Result.Defended() {
			style = m.th.Success
		}
		lines = append(lines, style.Render(fmt.Sprintf("Interrogated: %s → %s", v.Question, nonEmpty(v.Result.Outcome, "ANSWERED"))))
	}
	if url, ok := m.charts[p]; ok {
		lines = append(lines, m.th.Accent.Render("Visual: "+url))
	}
	return m.th.card(p, focused).Width(max(20, width-2)).Render(strings.Join(lines, "\n"))
}

// findings lists enforcement violations and warnings as bullets.
func (m appModel) findings(e *council.Enforcement) []string {
	if e == nil {
		return nil
	}
	var lines []string
	for _, v := range e.Violations {
		if pv, ok := markup.ParseViolation(v); ok {
			lines = append(lines, m.th.Danger.Render(fmt.Sprintf("✗ %s: %q", pv.Type, pv.Quote)))
			continue
		}
		lines = append(lines, m.th.Danger.Render("✗ "+v))
	}
	for _, warn := range e.Warnings {
		lines = append(lines, m.th.Alert.Render("! "+warn))
	}
	return lines
}

func (m appModel) viewStatusBar(width int) string {
	var active []string
	for _, p := range council.Providers() {
		label := p.DisplayName()
		if m.sess.IsActive(p) {
			active = append(active, m.th.provider(p).Render(label))
		} else {
			active = append(active, m.th.Muted.Render(label))
		}
	}
	var toggles []string
	for _, t := range session.Toggles() {
		if m.sess.Option(t) {
			toggles = append(toggles, string(t))
		}
	}
	lines := []string{
		"Models:  " + strings.Join(active, " "),
		"Options: " + nonEmpty(strings.Join(toggles, ","), "-"),
	}
	if n := len(m.sess.Attachments); n > 0 {
		names := make([]string, 0, n)
		for i, a := range m.sess.Attachments {
			names = append(names, fmt.Sprintf("%d:%s", i+1, a.Name))
		}
		lines = append(lines, "Files:   "+strings.Join(names, " "))
	}
	if m.selectedWorkflow != "" {
		lines = append(lines, fmt.Sprintf("Workflow: %s (%s)", m.selectedWorkflow, m.workflowState()))
	}
	if m.busy() {
		rot := m.status.current()
		caption := rot.text()
		style := m.th.Accent
		if rot.fading {
			style = m.th.Fading
		}
		if caption == "" && m.interroBusy {
			caption = "Interrogating..."
		}
		lines = append(lines, m.spin.View()+" "+style.Render(caption))
	}

	recent := m.alerts
	if len(recent) > 6 {
		recent = recent[len(recent)-6:]
	}
	for _, a := range recent {
		lines = append(lines, m.renderAlert(a))
	}
	return m.th.Panel.Width(width - 2).Render(strings.Join(lines, "\n"))
}

func (m appModel) renderAlert(a systemAlert) string {
	line := fmt.Sprintf("[%s] %s", a.Severity, a.Message)
	switch a.Severity {
	case alertCritical, alertError:
		return m.th.Danger.Render(line)
	case alertWarn:
		return m.th.Alert.Render(line)
	default:
		return m.th.Muted.Render(line)
	}
}

func (m appModel) viewWorkflow() string {
	w, _ := m.effectiveSize()
	results := m.results
	results.SetContent(m.workflowContent(w - 6))

	recent := m.alerts
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	var alerts []string
	for _, a := range recent {
		alerts = append(alerts, m.renderAlert(a))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.th.Panel.Width(w-2).Render(results.View()),
		strings.Join(alerts, "\n"),
		m.th.Muted.Render("[Up/Down] Step    [e] Edit    [i] Interrogate    [x] Export    [s] Stop    [r] Re-run    [Esc] Back"),
	)
}

func (m appModel) workflowContent(width int) string {
	if m.runner == nil {
		return m.th.Muted.Render("No workflow has run yet.")
	}
	tpl := m.runner.Template()
	name := nonEmpty(tpl.Name, nonEmpty(tpl.ID, m.selectedWorkflow))
	lines := []string{
		m.th.Accent.Render("WORKFLOW: " + name),
		m.bar.ViewAs(float64(m.runner.Progress())/100) + fmt.Sprintf("  %s", m.runner.State()),
	}
	if m.runner.State() == workflow.StateFailed {
		lines = append(lines, m.th.Danger.Render(sentence(errText(m.runner.Err()))))
	}
	lines = append(lines, "")
	for i, s := range m.runner.Steps() {
		lines = append(lines, m.viewStep(s, i == m.stepIndex, width))
	}
	if m.workflowRunning() {
		lines = append(lines, m.spin.View()+" "+m.th.Accent.Render(nonEmpty(m.status[laneWorkflow].text(), "Waiting for the next step...")))
	}
	return strings.Join(lines, "\n")
}

func (m appModel) viewStep(s workflow.Step, selected bool, width int) string {
	title := fmt.Sprintf("STEP %d: %s (%s)", s.Ordinal, strings.ToUpper(nonEmpty(s.Role, s.Key)), s.Model)
	status := m.th.Success.Render("✓ Complete")
	if !s.Data.Success {
		status = m.th.Danger.Render("❌ Failed")
	}
	if s.Edited {
		status += m.th.Alert.Render(" (edited)")
	}
	head := title + "  " + status
	if selected {
		head = m.th.Accent.Render("> ") + head
	} else {
		head = "  " + head
	}
	lines := []string{head}
	if s.Objective != "" {
		lines = append(lines, m.th.Muted.Render("Objective: "+s.Objective))
	}
	if s.Data.Enforcement != nil {
		score := s.Data.Enforcement.Credibility()
		lines = append(lines, m.th.band(score).Render(fmt.Sprintf("Truth score %d", score)))
		lines = append(lines, m.findings(s.Data.Enforcement)...)
	}
	lines = append(lines, m.md.render(s.Data.Response, width))
	st := m.th.Card
	if p, ok := council.ParseProvider(s.Model); ok {
		st = m.th.card(p, selected)
	}
	return st.Render(strings.Join(lines, "\n"))
}

func (m appModel) viewHistory() string {
	w, _ := m.effectiveSize()
	lines := []string{m.th.Accent.Render("HISTORY")}
	if len(m.history) == 0 {
		lines = append(lines, m.th.Muted.Render("No stored comparisons. [r] Refresh"))
	}
	for i, it := range m.history {
		row := fmt.Sprintf("%-19s  %s", truncateRunes(it.Timestamp, 19), truncateRunes(it.Question, max(10, w-30)))
		prefix := "  "
		if i == m.historyIndex {
			prefix = m.th.Accent.Render("> ")
			row = m.th.Accent.Render(row)
		}
		lines = append(lines, prefix+row)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.th.Panel.Width(w-2).Render(strings.Join(lines, "\n")),
		m.th.Muted.Render("[Up/Down] Navigate    [Enter] Load    [d] Delete    [r] Refresh    [Esc] Back"),
	)
}

func (m appModel) viewProjects() string {
	w, _ := m.effectiveSize()
	lines := []string{m.th.Accent.Render("PROJECTS")}
	if len(m.projects) == 0 {
		lines = append(lines, m.th.Muted.Render("No projects. Create one with //newproject <name>"))
	}
	for i, name := range m.projects {
		row := name
		if name == m.sess.Project {
			row += " (current)"
		}
		prefix := "  "
		if i == m.projectIndex {
			prefix = m.th.Accent.Render("> ")
			row = m.th.Accent.Render(row)
		}
		lines = append(lines, prefix+row)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.th.Panel.Width(w-2).Render(strings.Join(lines, "\n")),
		m.th.Muted.Render("[Up/Down] Navigate    [Enter] Use    [d] Delete    [r] Refresh    [Esc] Back"),
	)
}

func (m appModel) viewCommandPalette() string {
	items := filteredCommandPaletteItems(m.commandPaletteNamespace, m.commandPaletteQuery)
	ns := m.commandPaletteNamespace
	if ns != "//" {
		ns = "/"
	}
	lines := []string{
		m.th.Accent.Render(ns + " COMMAND PALETTE"),
		m.th.Muted.Render("> " + ns + m.commandPaletteQuery),
	}
	for i, it := range items {
		prefix := "  "
		label := ns + it.cmd
		if it.args != "" {
			label += " " + it.args
		}
		row := fmt.Sprintf("%-28s %s", label, it.desc)
		if i == m.commandPaletteIndex {
			prefix = m.th.Accent.Render("> ")
			row = m.th.Accent.Render(row)
		}
		lines = append(lines, prefix+row)
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m appModel) viewProviders() string {
	lines := []string{
		m.th.Accent.Render("//providers  MODELS & OPTIONS"),
		m.th.Muted.Render("Esc: back    Enter/Space: toggle"),
		"",
	}
	for i, row := range providerRows() {
		var label string
		var on bool
		if p, ok := council.ParseProvider(row); ok {
			label = p.DisplayName()
			on = m.sess.IsActive(p)
		} else {
			t := session.Toggle(row)
			label = toggleLabel(t)
			on = m.sess.Option(t)
		}
		if i == len(council.Providers()) {
			lines = append(lines, "")
		}
		box := "[ ]"
		if on {
			box = "[x]"
		}
		text := fmt.Sprintf("%s %s", box, label)
		prefix := "  "
		if i == m.providerIndex {
			prefix = m.th.Accent.Render("> ")
			text = m.th.Accent.Render(text)
		}
		lines = append(lines, prefix+text)
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m appModel) viewWorkflowSelect() string {
	lines := []string{
		m.th.Accent.Render("WORKFLOWS"),
		m.th.Muted.Render("Esc: back    Enter: select"),
		"",
	}
	for i, tpl := range m.workflows {
		row := fmt.Sprintf("%-20s %s (%d steps)", tpl.ID, tpl.Name, len(tpl.Steps))
		if tpl.ID == m.selectedWorkflow {
			row += " (current)"
		}
		prefix := "  "
		if i == m.workflowIndex {
			prefix = m.th.Accent.Render("> ")
			row = m.th.Accent.Render(row)
		}
		lines = append(lines, prefix+row)
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m appModel) viewRecommend() string {
	lines := []string{m.th.Accent.Render("RECOMMENDED ROLES")}
	if rec := m.recommendation; rec != nil {
		lines = append(lines, m.th.Muted.Render(fmt.Sprintf("%s  (avg rating %.1f)", nonEmpty(rec.Category, "general"), rec.Recommendation.AvgRating)), "")
		roles := rec.Recommendation.Roles()
		for _, p := range council.Providers() {
			if role, ok := roles[p]; ok && role != "" {
				lines = append(lines, fmt.Sprintf("%s %s", m.th.provider(p).Render(fmt.Sprintf("%-11s", p.DisplayName())), role))
			}
		}
	}
	lines = append(lines, "", m.th.Muted.Render("Enter/y: apply    Esc/n: dismiss"))
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m appModel) viewInterrogation() string {
	i := m.sess.Interrogation()
	if i == nil {
		return m.th.OverlayBox.Render(m.th.Muted.Render("No open interrogation"))
	}
	w, _ := m.effectiveSize()
	width := clamp(w-8, 30, 100)
	title := fmt.Sprintf("INTERROGATION: %s as %s", i.Model.DisplayName(), i.Role)
	if m.interroTarget.workflow {
		title += fmt.Sprintf(" (step %d)", m.interroTarget.step)
	}
	lines := []string{
		m.th.provider(i.Model).Render(title),
		m.th.Muted.Render(fmt.Sprintf("Round %d", i.Rounds)),
		"",
		m.md.render(tailRunes(i.Transcript, 2000), width),
		"",
		m.editor.View(),
	}
	footer := "Enter: send    Esc: close"
	if m.interroBusy {
		footer = m.spin.View() + " awaiting testimony..."
	}
	lines = append(lines, m.th.Muted.Render(footer))
	return m.th.OverlayBox.Width(width + 4).Render(strings.Join(lines, "\n"))
}

func (m appModel) viewStepEdit() string {
	lines := []string{
		m.th.Accent.Render(fmt.Sprintf("EDIT STEP %d", m.editStep)),
		m.th.Muted.Render("Edits stay local and feed later interrogations and the report."),
		"",
		m.editor.View(),
		m.th.Muted.Render("Ctrl+S: save    Esc: discard"),
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m appModel) viewStopConfirm() string {
	lines := []string{
		m.th.Alert.Render("STOP WORKFLOW?"),
		m.th.Muted.Render("Steps already received are kept."),
		m.th.Muted.Render("Enter/y: stop    Esc/n: keep running"),
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m appModel) viewQuitConfirm() string {
	lines := []string{
		m.th.Danger.Render("QUIT TRIAI?"),
		m.th.Muted.Render("Enter/y: quit    Esc/n: cancel"),
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func renderOverlay(th theme, base string, overlay string) string {
	dim := th.Overlay.Render(base)
	return dim + "\n\n" + overlay
}

func (m appModel) viewTooSmall(w, h int) string {
	lines := []string{
		m.th.Header.Render("TRIAI"),
		m.th.Alert.Render("Terminal too small"),
		m.th.Muted.Render(fmt.Sprintf("Minimum: 40x12. Current: %dx%d", w, h)),
		m.th.Muted.Render("Tip: resize the terminal window."),
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// tailRunes keeps the end of long transcripts, where the latest answer is.
func tailRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "…" + string(r[len(r)-n:])
}
