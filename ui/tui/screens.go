package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jcccaz/TRIAI/internal/council"
	"github.com/jcccaz/TRIAI/internal/session"
)

func (m appModel) updateDeck(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEnter:
		line := strings.TrimSpace(m.input.Value())
		if line == "" {
			return m.openPalette("/"), nil
		}
		if strings.HasPrefix(line, "/") {
			m.input.Reset()
			return m.executeCommandText(line)
		}
		return m.submitAsk(false)
	case tea.KeyRunes:
		if len(k.Runes) == 1 && k.Runes[0] == '/' && strings.TrimSpace(m.input.Value()) == "" {
			// Palette opens on the session namespace; a second '/' promotes it.
			return m.openPalette("/"), nil
		}
	case tea.KeyTab:
		return m.focusCard(1), nil
	case tea.KeyShiftTab:
		return m.focusCard(-1), nil
	case tea.KeyPgUp, tea.KeyPgDown:
		m.results.SetContent(m.deckContent(m.results.Width))
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(k)
		return m, cmd
	case tea.KeyCtrlP:
		m.providerIndex = 0
		return m.openOverlay(overlayProviders), nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(k)
	return m, cmd
}

// focusCard moves the highlighted provider card, wrapping around.
func (m appModel) focusCard(delta int) appModel {
	c := m.sess.Comparison()
	if c == nil {
		return m
	}
	n := len(c.Providers())
	if n == 0 {
		return m
	}
	m.cardIndex = ((m.cardIndex+delta)%n + n) % n
	return m
}

func (m appModel) focusedProvider() (council.Provider, bool) {
	c := m.sess.Comparison()
	if c == nil {
		return "", false
	}
	ps := c.Providers()
	if len(ps) == 0 {
		return "", false
	}
	return ps[clamp(m.cardIndex, 0, len(ps)-1)], true
}

func (m appModel) updateWorkflow(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	var steps int
	if m.runner != nil {
		steps = len(m.runner.Steps())
	}
	switch k.String() {
	case "up", "k":
		if m.stepIndex > 0 {
			m.stepIndex--
		}
	case "down", "j":
		if m.stepIndex < steps-1 {
			m.stepIndex++
		}
	case "e":
		if id, ok := m.selectedStepID(); ok {
			return m.openStepEdit(id), nil
		}
	case "i":
		if id, ok := m.selectedStepID(); ok {
			return m.openStepInterrogation(id), nil
		}
	case "s":
		return m.runCommand("stop", nil)
	case "x":
		return m.exportWorkflow(), nil
	case "r":
		return m.startWorkflow()
	case "pgup", "pgdown":
		w, _ := m.effectiveSize()
		m.results.SetContent(m.workflowContent(w - 6))
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(k)
		return m, cmd
	}
	return m, nil
}

func (m appModel) selectedStepID() (int, bool) {
	if m.runner == nil {
		return 0, false
	}
	steps := m.runner.Steps()
	if len(steps) == 0 {
		return 0, false
	}
	return steps[clamp(m.stepIndex, 0, len(steps)-1)].Step, true
}

func (m appModel) updateHistory(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "up", "k":
		if m.historyIndex > 0 {
			m.historyIndex--
		}
	case "down", "j":
		if m.historyIndex < len(m.history)-1 {
			m.historyIndex++
		}
	case "enter":
		if len(m.history) == 0 {
			return m, nil
		}
		item := m.history[clamp(m.historyIndex, 0, len(m.history)-1)]
		c := m.sess.LoadHistoryItem(item)
		m.input.SetValue(item.Question)
		m.charts = map[council.Provider]string{}
		m.cardIndex = 0
		m = m.popScreen()
		m.systemAlert(alertInfo, "history.loaded", fmt.Sprintf("Loaded comparison %s", c.ID), nil)
		return m, nil
	case "d":
		if len(m.history) == 0 {
			return m, nil
		}
		return m.deleteHistory(m.history[clamp(m.historyIndex, 0, len(m.history)-1)].ID)
	case "r":
		return m.refresh()
	}
	return m, nil
}

func (m appModel) updateProjects(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "up", "k":
		if m.projectIndex > 0 {
			m.projectIndex--
		}
	case "down", "j":
		if m.projectIndex < len(m.projects)-1 {
			m.projectIndex++
		}
	case "enter":
		if len(m.projects) == 0 {
			return m, nil
		}
		name := m.projects[clamp(m.projectIndex, 0, len(m.projects)-1)]
		m, cmd := m.runCommand("project", []string{name})
		return m.popScreen(), cmd
	case "d":
		if len(m.projects) == 0 {
			return m, nil
		}
		return m.runCommand("delproject", []string{m.projects[clamp(m.projectIndex, 0, len(m.projects)-1)]})
	case "r":
		return m.refresh()
	}
	return m, nil
}

// providerRows lists the providers overlay: models first, then options.
func providerRows() []string {
	rows := make([]string, 0, 10)
	for _, p := range council.Providers() {
		rows = append(rows, string(p))
	}
	for _, t := range session.Toggles() {
		rows = append(rows, string(t))
	}
	return rows
}

func (m appModel) updateProviders(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := providerRows()
	switch k.String() {
	case "up", "k":
		if m.providerIndex > 0 {
			m.providerIndex--
		}
	case "down", "j":
		if m.providerIndex < len(rows)-1 {
			m.providerIndex++
		}
	case "enter", " ":
		m = m.toggle(rows[clamp(m.providerIndex, 0, len(rows)-1)])
	}
	return m, nil
}

func (m appModel) updateWorkflowSelect(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "up", "k":
		if m.workflowIndex > 0 {
			m.workflowIndex--
		}
	case "down", "j":
		if m.workflowIndex < len(m.workflows)-1 {
			m.workflowIndex++
		}
	case "enter":
		if len(m.workflows) == 0 {
			m = m.closeOverlay()
			return m, nil
		}
		tpl := m.workflows[clamp(m.workflowIndex, 0, len(m.workflows)-1)]
		m = m.closeOverlay()
		return m.selectWorkflow(tpl.ID), nil
	}
	return m, nil
}

func (m appModel) updateRecommend(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "enter", "y", "Y":
		if m.recommendation != nil {
			m.sess.ApplyRecommendation(m.recommendation.Recommendation)
			m.systemAlert(alertInfo, "recommend.applied", fmt.Sprintf("Applied %s roles", nonEmpty(m.recommendation.Category, "recommended")), nil)
		}
		m = m.closeOverlay()
	case "n", "N":
		m = m.closeOverlay()
	}
	return m, nil
}

func (m appModel) openCardInterrogation(p council.Provider) appModel {
	c := m.sess.Comparison()
	if c == nil {
		m.systemAlert(alertWarn, "interrogate.invalid", sentence(session.ErrNoComparison.Error()), nil)
		return m
	}
	r, ok := c.Results[p]
	if !ok {
		m.systemAlert(alertWarn, "interrogate.invalid", fmt.Sprintf("No %s answer to interrogate", p.DisplayName()), nil)
		return m
	}
	m.sess.OpenInterrogation(p, r.Response, m.sess.Roles[p].Role)
	m.interroTarget = interrogationTarget{provider: p}
	m.editor.Reset()
	m.editor.Placeholder = "Challenge " + p.DisplayName() + "..."
	return m.openOverlay(overlayInterrogation)
}

func (m appModel) openStepInterrogation(stepID int) appModel {
	if m.runner == nil {
		return m
	}
	var step *council.StepResult
	for _, s := range m.runner.Steps() {
		if s.Step == stepID {
			res := s.StepResult
			step = &res
			break
		}
	}
	if step == nil {
		m.systemAlert(alertWarn, "interrogate.invalid", fmt.Sprintf("Step %d has no output yet", stepID), nil)
		return m
	}
	p, ok := council.ParseProvider(step.Model)
	if !ok {
		m.systemAlert(alertWarn, "interrogate.invalid", fmt.Sprintf("Step %d ran on %q, which cannot be interrogated", stepID, step.Model), nil)
		return m
	}
	text, _ := m.runner.StepOutput(stepID)
	m.sess.OpenInterrogation(p, text, step.Role)
	m.interroTarget = interrogationTarget{provider: p, workflow: true, step: stepID}
	m.editor.Reset()
	m.editor.Placeholder = fmt.Sprintf("Challenge step %d...", stepID)
	return m.openOverlay(overlayInterrogation)
}

func (m appModel) updateInterrogation(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k.Type == tea.KeyEnter {
		if m.interroBusy {
			return m, nil
		}
		q := m.editor.Value()
		var cmd tea.Cmd
		m, cmd = m.interrogate(m.interroTarget, q)
		if m.interroBusy {
			m.editor.Reset()
		}
		return m, cmd
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(k)
	return m, cmd
}

func (m appModel) openStepEdit(stepID int) appModel {
	if m.runner == nil {
		m.systemAlert(alertWarn, "edit.invalid", "No workflow has run yet", nil)
		return m
	}
	text, ok := m.runner.StepOutput(stepID)
	if !ok {
		m.systemAlert(alertWarn, "edit.invalid", fmt.Sprintf("Step %d has no output yet", stepID), nil)
		return m
	}
	m = m.openOverlay(overlayStepEdit)
	m.editStep = stepID
	m.editor.Placeholder = ""
	m.editor.SetValue(text)
	return m
}

func (m appModel) updateStepEdit(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k.Type == tea.KeyCtrlS {
		id := m.editStep
		if err := m.runner.EditStep(id, m.editor.Value()); err != nil {
			m.systemAlert(alertError, "edit.failed", sentence(err.Error()), nil)
			return m, nil
		}
		m = m.closeOverlay()
		m.systemAlert(alertInfo, "edit.saved", fmt.Sprintf("Step %d updated locally", id), nil)
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(k)
	return m, cmd
}

func (m appModel) updateStopConfirm(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "enter", "y", "Y":
		m.emitEvent("command.submitted", m.actionSource, map[string]any{"namespace": "ui", "text": "workflow.stop"}, "", "")
		m.recentCommands = append(m.recentCommands, "workflow.stop")
		if m.runner != nil {
			m.runner.Stop()
		}
		m = m.closeOverlay()
	case "n", "N":
		m = m.closeOverlay()
	}
	return m, nil
}

func (m appModel) updateQuitConfirm(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEnter:
		m.emitEvent("command.submitted", m.actionSource, map[string]any{"namespace": "ui", "text": "quit.confirm"}, "", "")
		m.recentCommands = append(m.recentCommands, "quit.confirm")
		m = m.shutdown()
		return m, tea.Quit
	case tea.KeyRunes:
		if string(k.Runes) == "y" || string(k.Runes) == "Y" {
			m.emitEvent("command.submitted", m.actionSource, map[string]any{"namespace": "ui", "text": "quit.y"}, "", "")
			m.recentCommands = append(m.recentCommands, "quit.y")
			m = m.shutdown()
			return m, tea.Quit
		}
		if string(k.Runes) == "n" || string(k.Runes) == "N" {
			m.emitEvent("command.submitted", m.actionSource, map[string]any{"namespace": "ui", "text": "quit.n"}, "", "")
			m.recentCommands = append(m.recentCommands, "quit.n")
			m = m.closeOverlay()
			return m, nil
		}
	}
	return m, nil
}
