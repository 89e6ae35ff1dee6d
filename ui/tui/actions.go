package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/jcccaz/TRIAI/internal/council"
	"github.com/jcccaz/TRIAI/internal/report"
	"github.com/jcccaz/TRIAI/internal/session"
	"github.com/jcccaz/TRIAI/internal/workflow"
)

type askDoneMsg struct {
	correlationID string
	question      string
	resp          *council.AskResponse
	err           error
}

type interrogateDoneMsg struct {
	target       interrogationTarget
	comparisonID council.ID
	drawer       bool
	question     string
	res          *council.InterrogateResult
	err          error
}

type visualizeDoneMsg struct {
	provider council.Provider
	url      string
	err      error
}

type resynthDoneMsg struct {
	comparisonID council.ID
	consensus    string
	err          error
}

type recommendDoneMsg struct {
	res *council.RecommendRolesResult
	err error
}

type workflowsLoadedMsg struct {
	templates []council.WorkflowTemplate
	err       error
}

type workflowStartedMsg struct {
	runner *workflow.Runner
	err    error
}

type workflowEventMsg struct {
	runner *workflow.Runner
	ev     workflow.Event
	ok     bool
}

type refreshDoneMsg struct {
	history  []council.HistoryItem
	projects []string
	err      error
}

// remoteDoneMsg closes out fire-and-report calls (ratings, feedback,
// project and history edits, vault saves).
type remoteDoneMsg struct {
	code    string
	message string
	refresh bool
	err     error
}

// allowNetwork gates every server call and counts the ones that go out.
func (m *appModel) allowNetwork(action string) bool {
	if m.cfg.disableNetwork || m.api == nil {
		m.systemAlert(alertWarn, "network.disabled", fmt.Sprintf("Network disabled, %s skipped", action), map[string]any{"action": action})
		return false
	}
	m.netCalls++
	return true
}

func (m appModel) submitAsk(visualize bool) (appModel, tea.Cmd) {
	m.sess.Question = strings.TrimSpace(m.input.Value())
	if m.selectedWorkflow != "" && !visualize {
		return m.startWorkflow()
	}
	req, err := m.sess.BeginAsk(visualize)
	if err != nil {
		code := "ask.invalid"
		if errors.Is(err, session.ErrQueryInFlight) {
			code = "ask.busy"
		}
		m.systemAlert(alertWarn, code, sentence(err.Error()), nil)
		return m, nil
	}
	if !m.allowNetwork("ask") {
		m.sess.FailAsk()
		return m, nil
	}

	cid := newCorrelationID()
	ctx, cancel := context.WithCancel(context.Background())
	m.askCorrelationID = cid
	m.askCancel = cancel
	question := m.sess.Question
	m.recordEvent(m.actionSource, askSubmitted{
		Question:  question,
		Providers: req.ActiveModels,
		Files:     len(req.Files),
		Council:   req.CouncilMode,
		Visualize: visualize,
	}, cid)

	var rot tea.Cmd
	m.status, rot = m.status.start(laneAsk)
	api := m.api
	return m, tea.Batch(rot, m.spin.Tick, func() tea.Msg {
		resp, err := api.Ask(ctx, req)
		return askDoneMsg{correlationID: cid, question: question, resp: resp, err: err}
	})
}

func (m appModel) onAskDone(t askDoneMsg) (tea.Model, tea.Cmd) {
	if t.correlationID != m.askCorrelationID {
		return m, nil
	}
	m.askCorrelationID = ""
	if m.askCancel != nil {
		m.askCancel()
		m.askCancel = nil
	}
	m.status = m.status.stop(laneAsk)

	if t.err != nil {
		m.sess.FailAsk()
		if errors.Is(t.err, context.Canceled) {
			m.systemAlert(alertInfo, "ask.cancelled", "Ask cancelled", nil)
			return m, nil
		}
		m.systemAlert(alertError, "ask.failed", "Ask failed: "+t.err.Error(), nil)
		m.recordEvent("system", askFailed{Error: t.err.Error()}, t.correlationID)
		return m, nil
	}

	c := m.sess.FinishAsk(t.question, t.resp)
	m.charts = map[council.Provider]string{}
	m.cardIndex = 0
	m.results.GotoTop()
	m.recordEvent("system", askCompleted{
		ComparisonID: c.ID,
		Providers:    c.Providers(),
		Credibility:  c.Credibility(),
		Compromised:  c.ConsensusCompromised(),
	}, t.correlationID)
	m.systemAlert(alertInfo, "ask.complete", fmt.Sprintf("Council answered (%d models)", len(c.Providers())), map[string]any{"comparisonId": c.ID})
	if c.ConsensusCompromised() {
		m.systemAlert(alertWarn, "consensus.compromised", "Consensus compromised: a source scored below 70, run /resynth", nil)
	}
	return m, nil
}

func (m appModel) interrogate(target interrogationTarget, question string) (appModel, tea.Cmd) {
	question = strings.TrimSpace(question)
	if question == "" {
		m.systemAlert(alertWarn, "interrogate.invalid", "Enter a question for the interrogation", nil)
		return m, nil
	}

	drawer := m.currentOverlay() == overlayInterrogation && m.sess.Interrogation() != nil
	var (
		req          council.InterrogateRequest
		comparisonID council.ID
	)
	if c := m.sess.Comparison(); c != nil && !target.workflow {
		comparisonID = c.ID
	}
	if drawer {
		projectContext := ""
		if target.workflow {
			projectContext = m.workflowContextJSON()
		}
		req = m.sess.Interrogation().Request(question, projectContext)
	} else {
		c := m.sess.Comparison()
		if c == nil {
			m.systemAlert(alertWarn, "interrogate.invalid", sentence(session.ErrNoComparison.Error()), nil)
			return m, nil
		}
		r, ok := c.InterrogateRequest(target.provider, question, "")
		if !ok {
			m.systemAlert(alertWarn, "interrogate.invalid", fmt.Sprintf("No %s answer to interrogate", target.provider.DisplayName()), nil)
			return m, nil
		}
		req = r
	}

	if err := m.sess.BeginSecondary(target.provider, session.ActionInterrogate); err != nil {
		m.systemAlert(alertWarn, "interrogate.busy", sentence(err.Error()), nil)
		return m, nil
	}
	if !m.allowNetwork("interrogate") {
		m.sess.EndSecondary(target.provider, session.ActionInterrogate)
		return m, nil
	}
	m.interroBusy = true
	m.recordEvent(m.actionSource, interrogationSubmitted{Provider: target.provider, ComparisonID: comparisonID, Step: target.step, Question: question}, "")

	api := m.api
	return m, tea.Batch(m.spin.Tick, func() tea.Msg {
		res, err := api.Interrogate(context.Background(), req)
		return interrogateDoneMsg{target: target, comparisonID: comparisonID, drawer: drawer, question: question, res: res, err: err}
	})
}

func (m appModel) onInterrogateDone(t interrogateDoneMsg) (tea.Model, tea.Cmd) {
	p := t.target.provider
	m.sess.EndSecondary(p, session.ActionInterrogate)
	m.interroBusy = false

	if t.res == nil {
		msg := "Interrogation failed"
		if t.err != nil {
			msg += ": " + t.err.Error()
		}
		m.systemAlert(alertError, "interrogate.failed", msg, map[string]any{"provider": p})
		return m, nil
	}
	res := *t.res
	if !res.Success {
		msg := fmt.Sprintf("%s interrogation returned no verdict", p.DisplayName())
		if t.err != nil {
			msg = sentence(t.err.Error())
		}
		m.systemAlert(alertWarn, "interrogate.refused", msg, map[string]any{"provider": p})
		return m, nil
	}

	if !t.target.workflow {
		c := m.sess.Comparison()
		if c == nil || c.ID != t.comparisonID {
			m.systemAlert(alertInfo, "interrogate.stale", fmt.Sprintf("%s verdict belongs to an earlier comparison and was discarded", p.DisplayName()), map[string]any{"comparisonId": t.comparisonID})
			return m, nil
		}
		before := c.Credibility()[p]
		c.ApplyInterrogation(p, t.question, res, time.Now())
		after := c.Credibility()[p]
		m.recordEvent("system", interrogationVerdict{Provider: p, ComparisonID: c.ID, Outcome: res.Outcome, Before: before, After: after}, "")
		if c.ConsensusCompromised() && c.Stale {
			m.systemAlert(alertWarn, "consensus.compromised", "Consensus compromised: run /resynth", map[string]any{"provider": p, "credibility": after})
		}
	}
	if t.drawer && m.interroTarget == t.target {
		if i := m.sess.Interrogation(); i != nil {
			i.RecordFollowUp(t.question, res.Testimony())
		}
	}
	m.systemAlert(alertInfo, "interrogate.complete", fmt.Sprintf("%s: %s", p.DisplayName(), nonEmpty(res.Outcome, "ANSWERED")), map[string]any{"classification": res.Classification})
	return m, nil
}

func (m appModel) visualize(p council.Provider, profile string) (appModel, tea.Cmd) {
	req, err := m.sess.VisualizeRequest(p, profile)
	if err != nil {
		m.systemAlert(alertWarn, "visualize.invalid", sentence(err.Error()), nil)
		return m, nil
	}
	if err := m.sess.BeginSecondary(p, session.ActionVisualize); err != nil {
		m.systemAlert(alertWarn, "visualize.busy", sentence(err.Error()), nil)
		return m, nil
	}
	if !m.allowNetwork("visualize") {
		m.sess.EndSecondary(p, session.ActionVisualize)
		return m, nil
	}
	m.systemAlert(alertInfo, "visualize.started", fmt.Sprintf("Generating visual for %s...", p.DisplayName()), nil)
	api := m.api
	return m, func() tea.Msg {
		url, err := api.Visualize(context.Background(), req)
		return visualizeDoneMsg{provider: p, url: url, err: err}
	}
}

func (m appModel) onVisualizeDone(t visualizeDoneMsg) (tea.Model, tea.Cmd) {
	m.sess.EndSecondary(t.provider, session.ActionVisualize)
	if t.err != nil {
		m.systemAlert(alertError, "visualize.failed", "Visualization failed: "+t.err.Error(), map[string]any{"provider": t.provider})
		return m, nil
	}
	m.charts[t.provider] = t.url
	m.systemAlert(alertInfo, "visualize.complete", fmt.Sprintf("Visual ready for %s", t.provider.DisplayName()), map[string]any{"url": t.url})
	return m, nil
}

func (m appModel) resynthesize() (appModel, tea.Cmd) {
	c := m.sess.Comparison()
	if c == nil {
		m.systemAlert(alertWarn, "resynth.invalid", sentence(session.ErrNoComparison.Error()), nil)
		return m, nil
	}
	req := c.ResynthesisRequest(m.sess.Options.Council)
	if len(req.Responses) == 0 {
		m.systemAlert(alertWarn, "resynth.invalid", "No successful answers to synthesize", nil)
		return m, nil
	}
	if !m.allowNetwork("resynth") {
		return m, nil
	}
	var rot tea.Cmd
	m.status, rot = m.status.start(laneResynth)
	id := c.ID
	api := m.api
	return m, tea.Batch(rot, func() tea.Msg {
		text, err := api.Resynthesize(context.Background(), req)
		return resynthDoneMsg{comparisonID: id, consensus: text, err: err}
	})
}

func (m appModel) onResynthDone(t resynthDoneMsg) (tea.Model, tea.Cmd) {
	m.status = m.status.stop(laneResynth)
	if t.err != nil {
		m.systemAlert(alertError, "resynth.failed", "Re-synthesis failed: "+t.err.Error(), nil)
		return m, nil
	}
	c := m.sess.Comparison()
	if c == nil || c.ID != t.comparisonID {
		return m, nil
	}
	c.SetConsensus(t.consensus)
	m.systemAlert(alertInfo, "resynth.complete", "Consensus re-synthesized", map[string]any{"comparisonId": c.ID})
	return m, nil
}

func (m appModel) recommendRoles() (appModel, tea.Cmd) {
	q := strings.TrimSpace(m.input.Value())
	if q == "" {
		q = strings.TrimSpace(m.sess.Question)
	}
	if !m.sess.Options.Council {
		m.systemAlert(alertWarn, "recommend.invalid", "Role recommendations need council mode", nil)
		return m, nil
	}
	if utf8.RuneCountInString(q) < 10 {
		m.systemAlert(alertWarn, "recommend.invalid", "Type a longer question first", nil)
		return m, nil
	}
	if !m.allowNetwork("recommend") {
		return m, nil
	}
	api := m.api
	return m, func() tea.Msg {
		res, err := api.RecommendRoles(context.Background(), q)
		return recommendDoneMsg{res: res, err: err}
	}
}

func (m appModel) onRecommendDone(t recommendDoneMsg) (tea.Model, tea.Cmd) {
	if t.err != nil {
		m.systemAlert(alertError, "recommend.failed", "Role recommendation failed: "+t.err.Error(), nil)
		return m, nil
	}
	if t.res == nil || !t.res.Exists {
		m.systemAlert(alertInfo, "recommend.none", "No rated role set for this kind of question yet", nil)
		return m, nil
	}
	m.recommendation = t.res
	m = m.openOverlay(overlayRecommend)
	return m, nil
}

func (m appModel) loadWorkflows() (appModel, tea.Cmd) {
	if !m.allowNetwork("workflows") {
		return m, nil
	}
	api := m.api
	return m, func() tea.Msg {
		api.InvalidateWorkflows()
		all, err := api.Workflows(context.Background())
		return workflowsLoadedMsg{templates: council.SortedWorkflows(all), err: err}
	}
}

func (m appModel) onWorkflowsLoaded(t workflowsLoadedMsg) (tea.Model, tea.Cmd) {
	if t.err != nil {
		m.systemAlert(alertError, "workflows.failed", "Could not load workflows: "+t.err.Error(), nil)
		return m, nil
	}
	m.workflows = t.templates
	m.workflowIndex = 0
	for i, tpl := range m.workflows {
		if tpl.ID == m.selectedWorkflow {
			m.workflowIndex = i
		}
	}
	if len(m.workflows) == 0 {
		m.systemAlert(alertInfo, "workflows.empty", "The server has no workflow templates", nil)
		return m, nil
	}
	m = m.openOverlay(overlayWorkflowSelect)
	return m, nil
}

func (m appModel) selectWorkflow(id string) appModel {
	m.selectedWorkflow = id
	if id == "" {
		m.systemAlert(alertInfo, "workflow.mode", "Workflow mode off", nil)
		return m
	}
	m.systemAlert(alertInfo, "workflow.mode", fmt.Sprintf("Workflow mode: %s (Enter runs it)", id), nil)
	return m
}

func (m appModel) startWorkflow() (appModel, tea.Cmd) {
	q := strings.TrimSpace(m.sess.Question)
	if q == "" {
		q = strings.TrimSpace(m.input.Value())
	}
	if q == "" {
		m.systemAlert(alertWarn, "workflow.invalid", sentence(session.ErrEmptyQuestion.Error()), nil)
		return m, nil
	}
	if m.selectedWorkflow == "" {
		m.systemAlert(alertWarn, "workflow.invalid", sentence(workflow.ErrNoWorkflow.Error()), nil)
		return m, nil
	}
	if m.workflowRunning() {
		m.systemAlert(alertWarn, "workflow.busy", "A workflow is already running (/stop first)", nil)
		return m, nil
	}
	if !m.allowNetwork("workflow") {
		return m, nil
	}

	r := workflow.NewRunner(m.api, workflow.Options{Interval: m.cfg.pollInterval, Logger: m.log})
	m.runner = r
	m.stepIndex = 0
	m = m.pushScreen(screenWorkflow)
	var rot tea.Cmd
	m.status, rot = m.status.start(laneWorkflow)
	req := council.RunWorkflowRequest{Question: q, WorkflowID: m.selectedWorkflow, HardMode: m.sess.Options.Hard}
	m.recordEvent(m.actionSource, workflowSubmitted{Workflow: req.WorkflowID, Question: q, Hard: req.HardMode}, "")
	return m, tea.Batch(rot, m.spin.Tick, func() tea.Msg {
		return workflowStartedMsg{runner: r, err: r.Start(context.Background(), req)}
	})
}

func waitWorkflowEvent(r *workflow.Runner) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-r.Events()
		return workflowEventMsg{runner: r, ev: ev, ok: ok}
	}
}

func (m appModel) onWorkflowStarted(t workflowStartedMsg) (tea.Model, tea.Cmd) {
	if t.runner != m.runner {
		return m, nil
	}
	if t.err != nil {
		m.status = m.status.stop(laneWorkflow)
		if errors.Is(t.err, workflow.ErrStopped) {
			m.systemAlert(alertInfo, "workflow.stopped", "Workflow stopped", nil)
			return m, nil
		}
		m.systemAlert(alertError, "workflow.start_failed", sentence(t.err.Error()), nil)
		return m, nil
	}
	tpl := t.runner.Template()
	m.systemAlert(alertInfo, "workflow.started", fmt.Sprintf("Running %s (%d steps)", nonEmpty(tpl.Name, tpl.ID), len(tpl.Steps)), map[string]any{"jobId": t.runner.JobID()})
	return m, waitWorkflowEvent(t.runner)
}

func (m appModel) onWorkflowEvent(t workflowEventMsg) (tea.Model, tea.Cmd) {
	if t.runner != m.runner {
		return m, nil
	}
	if !t.ok {
		m.status = m.status.stop(laneWorkflow)
		switch t.runner.State() {
		case workflow.StateComplete:
			m.systemAlert(alertInfo, "workflow.complete", "Workflow complete", map[string]any{"jobId": t.runner.JobID()})
		case workflow.StateFailed:
			m.systemAlert(alertError, "workflow.failed", sentence(errText(t.runner.Err())), map[string]any{"jobId": t.runner.JobID()})
		default:
			m.systemAlert(alertInfo, "workflow.stopped", "Workflow stopped", map[string]any{"jobId": t.runner.JobID()})
		}
		return m, nil
	}

	switch t.ev.Kind {
	case workflow.EventStep:
		m.stepIndex = len(t.runner.Steps()) - 1
		m.recordEvent("system", workflowStepDone{Step: t.ev.Step.Step, Model: t.ev.Step.Model, Success: t.ev.Step.Data.Success, Progress: t.ev.Progress}, "")
	case workflow.EventPollError:
		m.recordEvent("system", workflowPollFailed{Error: errText(t.ev.Err)}, "")
	}
	return m, waitWorkflowEvent(t.runner)
}

func (m appModel) workflowContextJSON() string {
	if m.runner == nil {
		return ""
	}
	b, err := json.Marshal(m.runner.Context())
	if err != nil {
		return ""
	}
	return string(b)
}

// refresh loads history and projects side by side.
func (m appModel) refresh() (appModel, tea.Cmd) {
	if !m.allowNetwork("refresh") {
		return m, nil
	}
	api := m.api
	limit := m.cfg.historyLimit
	return m, func() tea.Msg {
		var out refreshDoneMsg
		g, ctx := errgroup.WithContext(context.Background())
		g.Go(func() error {
			items, err := api.History(ctx, limit)
			out.history = items
			return err
		})
		g.Go(func() error {
			names, err := api.Projects(ctx)
			out.projects = names
			return err
		})
		out.err = g.Wait()
		return out
	}
}

func (m appModel) onRefreshDone(t refreshDoneMsg) (tea.Model, tea.Cmd) {
	if t.err != nil {
		m.systemAlert(alertError, "refresh.failed", "Refresh failed: "+t.err.Error(), nil)
	}
	if t.history != nil || t.err == nil {
		m.history = t.history
		m.historyIndex = clamp(m.historyIndex, 0, max(0, len(m.history)-1))
	}
	if t.projects != nil || t.err == nil {
		m.projects = t.projects
		m.projectIndex = clamp(m.projectIndex, 0, max(0, len(m.projects)-1))
	}
	return m, nil
}

// remote runs a call whose only result is success or an error alert.
func (m appModel) remote(action, code, okMessage string, refresh bool, call func(context.Context, councilAPI) (string, error)) (appModel, tea.Cmd) {
	if !m.allowNetwork(action) {
		return m, nil
	}
	api := m.api
	return m, func() tea.Msg {
		detail, err := call(context.Background(), api)
		msg := okMessage
		if detail != "" {
			msg += ": " + detail
		}
		return remoteDoneMsg{code: code, message: msg, refresh: refresh, err: err}
	}
}

func (m appModel) onRemoteDone(t remoteDoneMsg) (tea.Model, tea.Cmd) {
	if t.err != nil {
		m.systemAlert(alertError, t.code+".failed", sentence(t.err.Error()), nil)
		return m, nil
	}
	m.systemAlert(alertInfo, t.code, t.message, nil)
	if t.refresh {
		return m.refresh()
	}
	return m, nil
}

// export writes the current comparison into the export directory.
func (m appModel) export(format string) appModel {
	c := m.sess.Comparison()
	if c == nil {
		m.systemAlert(alertWarn, "export.invalid", sentence(session.ErrNoComparison.Error()), nil)
		return m
	}
	now := time.Now()
	title, md := report.Comparison(c, m.sess.Project, now)
	name := report.Filename(title)
	body := md
	if format == "html" {
		page, err := report.ComparisonHTML(c, m.sess.Project, now)
		if err != nil {
			m.systemAlert(alertError, "export.failed", "Export failed: "+err.Error(), nil)
			return m
		}
		name = strings.TrimSuffix(name, ".md") + ".html"
		body = page
	}
	return m.writeExport(name, body)
}

func (m appModel) exportWorkflow() appModel {
	if m.runner == nil || len(m.runner.Steps()) == 0 {
		m.systemAlert(alertWarn, "export.invalid", "No workflow results to export", nil)
		return m
	}
	tpl := m.runner.Template()
	return m.writeExport(workflow.ReportFilename(nonEmpty(tpl.Name, tpl.ID)), m.runner.Report(time.Now()))
}

func (m appModel) writeExport(name, body string) appModel {
	dir := nonEmpty(m.cfg.exportDir, ".")
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		m.systemAlert(alertError, "export.failed", "Export failed: "+err.Error(), nil)
		return m
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		m.systemAlert(alertError, "export.failed", "Export failed: "+err.Error(), nil)
		return m
	}
	m.recordEvent(m.actionSource, reportExported{Path: path, Bytes: len(body)}, "")
	m.systemAlert(alertInfo, "export.complete", "Saved "+path, map[string]any{"path": path})
	return m
}

func (m appModel) saveToVault() (appModel, tea.Cmd) {
	c := m.sess.Comparison()
	if c == nil {
		m.systemAlert(alertWarn, "obsidian.invalid", sentence(session.ErrNoComparison.Error()), nil)
		return m, nil
	}
	title, md := report.Comparison(c, m.sess.Project, time.Now())
	note := council.ObsidianNote{Filename: report.ObsidianFilename(title), Content: md}
	return m.remote("obsidian", "obsidian.saved", "Saved to Obsidian", false, func(ctx context.Context, api councilAPI) (string, error) {
		return api.SaveToObsidian(ctx, note)
	})
}

func errText(err error) string {
	if err == nil {
		return "Unknown Error"
	}
	return err.Error()
}

// sentence upper-cases the first letter of an error string for display.
func sentence(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
