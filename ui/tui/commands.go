package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jcccaz/TRIAI/internal/council"
	"github.com/jcccaz/TRIAI/internal/media"
	"github.com/jcccaz/TRIAI/internal/session"
)

type paletteItem struct {
	cmd  string
	args string
	desc string
}

// needsArgs reports whether the command cannot run without arguments.
func (it paletteItem) needsArgs() bool {
	return strings.HasPrefix(it.args, "<")
}

func commandPaletteItems() []paletteItem {
	return []paletteItem{
		{cmd: "interrogate", args: "<provider> [question]", desc: "Challenge a model's answer"},
		{cmd: "visualize", args: "<provider> [profile]", desc: "Generate a visual for an answer"},
		{cmd: "visual", desc: "Ask with a forced visual mockup"},
		{cmd: "resynth", desc: "Re-synthesize the consensus from current scores"},
		{cmd: "recommend", desc: "Recommend council roles for the question"},
		{cmd: "rate", args: "<provider> up|down", desc: "Rate one answer"},
		{cmd: "feedback", args: "<1-4> [comment]", desc: "Rate the whole comparison"},
		{cmd: "export", args: "[md|html]", desc: "Save the comparison report"},
		{cmd: "wfexport", desc: "Save the workflow discovery report"},
		{cmd: "obsidian", desc: "Save the report to the Obsidian vault"},
		{cmd: "attach", args: "<path>", desc: "Attach a file to the next ask"},
		{cmd: "detach", args: "<n>", desc: "Remove attachment n"},
		{cmd: "workflows", desc: "Pick a workflow template"},
		{cmd: "workflow", args: "<id|off>", desc: "Select a workflow or leave workflow mode"},
		{cmd: "run", desc: "Run the selected workflow"},
		{cmd: "stop", desc: "Stop the running workflow"},
		{cmd: "edit", args: "<step>", desc: "Edit a workflow step's output"},
		{cmd: "clear", desc: "Clear question, attachments and results"},
	}
}

func systemCommandPaletteItems() []paletteItem {
	return []paletteItem{
		{cmd: "providers", desc: "Toggle models and options"},
		{cmd: "toggle", args: "<name>", desc: "Flip a model or council|hard|vault|citations|thoughts|podcast"},
		{cmd: "project", args: "[name|clear]", desc: "Set the active project"},
		{cmd: "projects", desc: "Browse projects"},
		{cmd: "newproject", args: "<name>", desc: "Create a project"},
		{cmd: "delproject", args: "<name>", desc: "Delete a project"},
		{cmd: "history", desc: "Browse past comparisons"},
		{cmd: "delhistory", args: "<id>", desc: "Delete a history entry"},
		{cmd: "quit", desc: "Close session"},
	}
}

func filteredCommandPaletteItems(namespace string, query string) []paletteItem {
	items := commandPaletteItems()
	if namespace == "//" {
		items = systemCommandPaletteItems()
	}
	q := strings.TrimSpace(strings.ToLower(query))
	if q == "" {
		return items
	}
	type scored struct {
		it    paletteItem
		score int
		idx   int
	}
	matches := make([]scored, 0, len(items))
	for i, it := range items {
		cmd := strings.ToLower(it.cmd)
		desc := strings.ToLower(it.desc)
		score := -1
		if strings.HasPrefix(cmd, q) {
			score = 0
		} else if strings.Contains(cmd, q) {
			score = 1
		} else if strings.Contains(desc, q) {
			score = 2
		}
		if score >= 0 {
			matches = append(matches, scored{it: it, score: score, idx: i})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score < matches[j].score
		}
		return matches[i].idx < matches[j].idx
	})
	out := make([]paletteItem, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.it)
	}
	return out
}

// findPaletteItem looks in the given namespace first, then the other one,
// so /history and //history both resolve.
func findPaletteItem(namespace string, cmd string) (paletteItem, string, bool) {
	name := strings.ToLower(strings.TrimSpace(cmd))
	if name == "" {
		return paletteItem{}, "", false
	}
	order := []string{"/", "//"}
	if namespace == "//" {
		order = []string{"//", "/"}
	}
	for _, ns := range order {
		items := commandPaletteItems()
		if ns == "//" {
			items = systemCommandPaletteItems()
		}
		for _, it := range items {
			if it.cmd == name {
				return it, ns, true
			}
		}
	}
	return paletteItem{}, "", false
}

func (m appModel) openPalette(namespace string) appModel {
	m.commandPaletteNamespace = namespace
	m.commandPaletteQuery = ""
	m.commandPaletteIndex = 0
	return m.openOverlay(overlayCommandPalette)
}

func (m appModel) updateCommandPalette(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k.Type == tea.KeyRunes && len(k.Runes) == 1 && k.Runes[0] == '/' && m.commandPaletteQuery == "" && m.commandPaletteNamespace == "/" {
		// A second '/' with an empty query always enters the session namespace.
		m.commandPaletteNamespace = "//"
		m.commandPaletteIndex = 0
		return m, nil
	}

	if k.Type == tea.KeyBackspace {
		if len(m.commandPaletteQuery) == 0 {
			m = m.closeOverlay()
			return m, nil
		}
		m.commandPaletteQuery = m.commandPaletteQuery[:len(m.commandPaletteQuery)-1]
		m.commandPaletteIndex = 0
		return m, nil
	}

	if k.Type == tea.KeyRunes && len(k.Runes) > 0 {
		m.commandPaletteQuery += string(k.Runes)
		m.commandPaletteIndex = 0
		return m, nil
	}
	if k.Type == tea.KeySpace {
		m.commandPaletteQuery += " "
		m.commandPaletteIndex = 0
		return m, nil
	}

	items := filteredCommandPaletteItems(m.commandPaletteNamespace, m.commandPaletteQuery)
	if len(items) == 0 {
		if k.Type == tea.KeyEnter {
			m = m.closeOverlay()
		}
		return m, nil
	}

	switch k.Type {
	case tea.KeyUp:
		if m.commandPaletteIndex > 0 {
			m.commandPaletteIndex--
		}
	case tea.KeyDown:
		if m.commandPaletteIndex < len(items)-1 {
			m.commandPaletteIndex++
		}
	case tea.KeyEnter:
		item := items[clamp(m.commandPaletteIndex, 0, len(items)-1)]
		return m.applyCommandPalette(m.commandPaletteNamespace, item, nil)
	}
	return m, nil
}

func (m appModel) applyCommandPalette(ns string, item paletteItem, args []string) (appModel, tea.Cmd) {
	text := strings.TrimSpace(ns + item.cmd + " " + strings.Join(args, " "))
	m.recentCommands = append(m.recentCommands, text)
	if len(m.recentCommands) > 20 {
		m.recentCommands = m.recentCommands[len(m.recentCommands)-20:]
	}
	m = m.closeAllOverlays()

	if len(args) == 0 && item.needsArgs() {
		// Picked from the palette: stage the command so the user can finish it.
		m.input.SetValue(ns + item.cmd + " ")
		m.input.CursorEnd()
		return m, nil
	}
	m.emitEvent("command.submitted", m.actionSource, map[string]any{"namespace": ns, "text": text}, "", "")
	return m.runCommand(item.cmd, args)
}

func (m appModel) runCommand(name string, args []string) (appModel, tea.Cmd) {
	rest := strings.TrimSpace(strings.Join(args, " "))
	switch name {
	case "providers":
		m.providerIndex = 0
		m = m.openOverlay(overlayProviders)
		return m, nil
	case "toggle":
		if len(args) == 0 {
			m.providerIndex = 0
			m = m.openOverlay(overlayProviders)
			return m, nil
		}
		for _, a := range args {
			m = m.toggle(a)
		}
		return m, nil
	case "attach":
		return m.attach(rest), nil
	case "detach":
		n, err := strconv.Atoi(rest)
		if err != nil {
			m.systemAlert(alertWarn, "command.invalid", "Usage: /detach <n>", nil)
			return m, nil
		}
		a, err := m.sess.Detach(n)
		if err != nil {
			m.systemAlert(alertWarn, "attach.invalid", sentence(err.Error()), nil)
			return m, nil
		}
		m.systemAlert(alertInfo, "attach.removed", "Removed "+a.Name, nil)
		return m, nil
	case "project":
		switch strings.ToLower(rest) {
		case "":
			m.systemAlert(alertInfo, "project.current", "Project: "+nonEmpty(m.sess.Project, "(none)"), nil)
		case "clear", "none":
			m.sess.Project = ""
			m.systemAlert(alertInfo, "project.set", "Project cleared", nil)
		default:
			m.sess.Project = rest
			m.systemAlert(alertInfo, "project.set", "Project: "+rest, nil)
		}
		return m, nil
	case "projects":
		m = m.pushScreen(screenProjects)
		return m.refresh()
	case "newproject":
		if rest == "" {
			m.systemAlert(alertWarn, "command.invalid", "Usage: //newproject <name>", nil)
			return m, nil
		}
		return m.remote("newproject", "project.created", "Project created", true, func(ctx context.Context, api councilAPI) (string, error) {
			return api.CreateProject(ctx, rest)
		})
	case "delproject":
		if rest == "" {
			m.systemAlert(alertWarn, "command.invalid", "Usage: //delproject <name>", nil)
			return m, nil
		}
		if m.sess.Project == rest {
			m.sess.Project = ""
		}
		return m.remote("delproject", "project.deleted", "Project deleted", true, func(ctx context.Context, api councilAPI) (string, error) {
			return rest, api.DeleteProject(ctx, rest)
		})
	case "history":
		m = m.pushScreen(screenHistory)
		return m.refresh()
	case "delhistory":
		if rest == "" {
			m.systemAlert(alertWarn, "command.invalid", "Usage: //delhistory <id>", nil)
			return m, nil
		}
		return m.deleteHistory(council.ID(rest))
	case "workflows":
		return m.loadWorkflows()
	case "workflow":
		if strings.EqualFold(rest, "off") {
			return m.selectWorkflow(""), nil
		}
		return m.selectWorkflow(rest), nil
	case "run":
		return m.startWorkflow()
	case "stop":
		if !m.workflowRunning() {
			m.systemAlert(alertInfo, "workflow.idle", "No workflow is running", nil)
			return m, nil
		}
		m = m.openOverlay(overlayStopConfirm)
		return m, nil
	case "edit":
		id, err := strconv.Atoi(rest)
		if err != nil {
			m.systemAlert(alertWarn, "command.invalid", "Usage: /edit <step>", nil)
			return m, nil
		}
		return m.openStepEdit(id), nil
	case "interrogate":
		if len(args) == 0 {
			m.systemAlert(alertWarn, "command.invalid", "Usage: /interrogate <provider> [question]", nil)
			return m, nil
		}
		p, ok := council.ParseProvider(args[0])
		if !ok {
			m.systemAlert(alertWarn, "command.invalid", "Unknown provider "+args[0], nil)
			return m, nil
		}
		if len(args) == 1 {
			return m.openCardInterrogation(p), nil
		}
		return m.interrogate(interrogationTarget{provider: p}, strings.Join(args[1:], " "))
	case "visualize":
		if len(args) == 0 {
			m.systemAlert(alertWarn, "command.invalid", "Usage: /visualize <provider> [profile]", nil)
			return m, nil
		}
		p, ok := council.ParseProvider(args[0])
		if !ok {
			m.systemAlert(alertWarn, "command.invalid", "Unknown provider "+args[0], nil)
			return m, nil
		}
		profile := ""
		if len(args) > 1 {
			profile = args[1]
		}
		return m.visualize(p, profile)
	case "visual":
		return m.submitAsk(true)
	case "resynth":
		return m.resynthesize()
	case "recommend":
		return m.recommendRoles()
	case "rate":
		return m.rate(args)
	case "feedback":
		return m.feedback(args)
	case "export":
		format := strings.ToLower(rest)
		if format != "" && format != "md" && format != "html" {
			m.systemAlert(alertWarn, "command.invalid", "Usage: /export [md|html]", nil)
			return m, nil
		}
		return m.export(format), nil
	case "wfexport":
		return m.exportWorkflow(), nil
	case "obsidian":
		return m.saveToVault()
	case "clear":
		m.sess.Clear()
		m.input.Reset()
		m.alerts = []systemAlert{}
		m.charts = map[council.Provider]string{}
		m.cardIndex = 0
		m.systemAlert(alertInfo, "deck.cleared", "Deck cleared", nil)
		return m, nil
	case "quit":
		m = m.shutdown()
		m.quitRequested = true
		return m, tea.Quit
	default:
		m.systemAlert(alertError, "command.not_found", "Command not found", map[string]any{"cmd": name})
		return m, nil
	}
}

func (m appModel) toggle(name string) appModel {
	if p, ok := council.ParseProvider(name); ok {
		on := m.sess.ToggleProvider(p)
		m.systemAlert(alertInfo, "provider.toggled", fmt.Sprintf("%s %s", p.DisplayName(), onOff(on)), map[string]any{"provider": p, "active": on})
		return m
	}
	t := session.Toggle(strings.ToLower(strings.TrimSpace(name)))
	on, err := m.sess.Flip(t)
	if err != nil {
		m.systemAlert(alertWarn, "toggle.invalid", sentence(err.Error()), map[string]any{"name": name})
		return m
	}
	m.systemAlert(alertInfo, "option.toggled", fmt.Sprintf("%s %s", toggleLabel(t), onOff(on)), map[string]any{"option": t, "on": on})
	return m
}

func (m appModel) attach(path string) appModel {
	if path == "" {
		m.systemAlert(alertWarn, "command.invalid", "Usage: /attach <path>", nil)
		return m
	}
	a, err := media.Prepare(path)
	if err != nil {
		m.systemAlert(alertError, "attach.failed", sentence(err.Error()), map[string]any{"path": path})
		return m
	}
	m.sess.Attach(a)
	m.systemAlert(alertInfo, "attach.added", fmt.Sprintf("Attached %s (%s, %d KB)", a.Name, a.ContentType, (len(a.Data)+1023)/1024), nil)
	return m
}

func (m appModel) rate(args []string) (appModel, tea.Cmd) {
	if len(args) != 2 {
		m.systemAlert(alertWarn, "command.invalid", "Usage: /rate <provider> up|down", nil)
		return m, nil
	}
	p, ok := council.ParseProvider(args[0])
	if !ok {
		m.systemAlert(alertWarn, "command.invalid", "Unknown provider "+args[0], nil)
		return m, nil
	}
	var up bool
	switch strings.ToLower(args[1]) {
	case "up", "+", "+1":
		up = true
	case "down", "-", "-1":
	default:
		m.systemAlert(alertWarn, "command.invalid", "Usage: /rate <provider> up|down", nil)
		return m, nil
	}
	r, err := m.sess.Rate(p, up)
	if err != nil {
		m.systemAlert(alertWarn, "rate.invalid", sentence(err.Error()), nil)
		return m, nil
	}
	return m.remote("rate", "rate.saved", "Rating saved", false, func(ctx context.Context, api councilAPI) (string, error) {
		return p.DisplayName(), api.SubmitResponseRating(ctx, r)
	})
}

func (m appModel) feedback(args []string) (appModel, tea.Cmd) {
	if len(args) == 0 {
		m.systemAlert(alertWarn, "command.invalid", "Usage: /feedback <1-4> [comment]", nil)
		return m, nil
	}
	rating, err := strconv.Atoi(args[0])
	if err != nil || rating < 1 || rating > 4 {
		m.systemAlert(alertWarn, "command.invalid", "Rating must be 1-4", nil)
		return m, nil
	}
	fb, err := m.sess.Feedback(rating, strings.Join(args[1:], " "))
	if err != nil {
		m.systemAlert(alertWarn, "feedback.invalid", sentence(err.Error()), nil)
		return m, nil
	}
	return m.remote("feedback", "feedback.saved", "Feedback saved", false, func(ctx context.Context, api councilAPI) (string, error) {
		return "", api.SubmitFeedback(ctx, fb)
	})
}

func (m appModel) deleteHistory(id council.ID) (appModel, tea.Cmd) {
	return m.remote("delhistory", "history.deleted", "History entry deleted", true, func(ctx context.Context, api councilAPI) (string, error) {
		return id.String(), api.DeleteHistory(ctx, id)
	})
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func toggleLabel(t session.Toggle) string {
	switch t {
	case session.ToggleCouncil:
		return "Council mode"
	case session.ToggleHard:
		return "Hard mode"
	case session.ToggleVault:
		return "Vault"
	case session.ToggleCitations:
		return "Citations"
	case session.ToggleThoughts:
		return "Thoughts"
	case session.TogglePodcast:
		return "Podcast mode"
	default:
		return string(t)
	}
}
