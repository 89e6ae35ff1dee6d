package main

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcccaz/TRIAI/internal/council"
	"github.com/jcccaz/TRIAI/internal/workflow"
)

type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	template council.WorkflowTemplate
	status   *council.WorkflowStatus
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls: map[string]int{},
		template: council.WorkflowTemplate{
			ID:   "discovery",
			Name: "Market Scan",
			Steps: []council.WorkflowStep{
				{ID: 1, Key: "research", Role: "analyst", Model: "openai", Instruction: "Map the market."},
				{ID: 2, Key: "synthesis", Role: "strategist", Model: "anthropic", Instruction: "Recommend a move."},
			},
		},
		status: &council.WorkflowStatus{
			Status: "complete",
			Results: []council.StepResult{
				{Step: 1, Key: "research", Role: "analyst", Model: "openai", Data: council.StepData{Response: "Three players.", Success: true}},
				{Step: 2, Key: "synthesis", Role: "strategist", Model: "anthropic", Data: council.StepData{Response: "Enter the mid tier.", Success: true}},
			},
		},
	}
}

func (f *fakeAPI) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) RunWorkflow(ctx context.Context, req council.RunWorkflowRequest) (council.ID, error) {
	f.hit("run")
	return "job-1", nil
}

func (f *fakeAPI) Workflow(ctx context.Context, id string) (council.WorkflowTemplate, error) {
	f.hit("workflow")
	return f.template, nil
}

func (f *fakeAPI) WorkflowStatus(ctx context.Context, jobID council.ID) (*council.WorkflowStatus, error) {
	f.hit("status")
	return f.status, nil
}

func (f *fakeAPI) Ask(ctx context.Context, req council.AskRequest) (*council.AskResponse, error) {
	f.hit("ask")
	return &council.AskResponse{}, nil
}

func (f *fakeAPI) Interrogate(ctx context.Context, req council.InterrogateRequest) (*council.InterrogateResult, error) {
	f.hit("interrogate")
	return &council.InterrogateResult{Success: true}, nil
}

func (f *fakeAPI) Visualize(ctx context.Context, req council.VisualizeRequest) (string, error) {
	f.hit("visualize")
	return "https://charts.example/1.png", nil
}

func (f *fakeAPI) Resynthesize(ctx context.Context, req council.ResynthesizeRequest) (string, error) {
	f.hit("resynth")
	return "New consensus.", nil
}

func (f *fakeAPI) RecommendRoles(ctx context.Context, question string) (*council.RecommendRolesResult, error) {
	f.hit("recommend")
	return &council.RecommendRolesResult{}, nil
}

func (f *fakeAPI) Workflows(ctx context.Context) (map[string]council.WorkflowTemplate, error) {
	f.hit("workflows")
	return map[string]council.WorkflowTemplate{f.template.ID: f.template}, nil
}

func (f *fakeAPI) InvalidateWorkflows() { f.hit("invalidate") }

func (f *fakeAPI) History(ctx context.Context, limit int) ([]council.HistoryItem, error) {
	f.hit("history")
	return nil, nil
}

func (f *fakeAPI) DeleteHistory(ctx context.Context, id council.ID) error {
	f.hit("delhistory")
	return nil
}

func (f *fakeAPI) Projects(ctx context.Context) ([]string, error) {
	f.hit("projects")
	return []string{"alpha"}, nil
}

func (f *fakeAPI) CreateProject(ctx context.Context, name string) (string, error) {
	f.hit("newproject")
	return name, nil
}

func (f *fakeAPI) DeleteProject(ctx context.Context, name string) error {
	f.hit("delproject")
	return nil
}

func (f *fakeAPI) SubmitFeedback(ctx context.Context, fb council.Feedback) error {
	f.hit("feedback")
	return nil
}

func (f *fakeAPI) SubmitResponseRating(ctx context.Context, r council.ResponseRating) error {
	f.hit("rate")
	return nil
}

func (f *fakeAPI) SaveToObsidian(ctx context.Context, note council.ObsidianNote) (string, error) {
	f.hit("obsidian")
	return "vault/" + note.Filename, nil
}

func newTestModel(t *testing.T, api councilAPI) appModel {
	t.Helper()
	return newAppModel(appConfig{
		stateDir:     t.TempDir(),
		sessionID:    "sess_test",
		version:      "test",
		baseURL:      "http://council.test",
		exportDir:    t.TempDir(),
		plain:        true,
		pollInterval: 5 * time.Millisecond,
	}, api, nil)
}

func update(t *testing.T, m appModel, msg tea.Msg) appModel {
	t.Helper()
	next, _ := m.Update(msg)
	am, ok := next.(appModel)
	require.True(t, ok)
	return am
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func hasAlert(m appModel, code string) bool {
	for _, a := range m.alerts {
		if a.Code == code {
			return true
		}
	}
	return false
}

func score(v float64) *council.Enforcement {
	return &council.Enforcement{Status: "PASSED", CurrentCredibility: &v}
}

func answered(scores map[council.Provider]float64) *council.AskResponse {
	resp := &council.AskResponse{
		Results:      map[council.Provider]council.ProviderResult{},
		Consensus:    "Paris is the capital.",
		ComparisonID: "cmp-1",
	}
	for p, s := range scores {
		resp.Results[p] = council.ProviderResult{Model: string(p) + "-model", Success: true, Response: "Paris.", Enforcement: score(s)}
	}
	return resp
}

func TestAskWithNoProvidersSendsNothing(t *testing.T) {
	api := newFakeAPI()
	m := newTestModel(t, api)
	for _, p := range council.Providers() {
		m.sess.SetActive(p, false)
	}
	m.input.SetValue("What is the capital of France?")

	m, cmd := m.submitAsk(false)

	assert.Nil(t, cmd)
	assert.True(t, hasAlert(m, "ask.invalid"))
	assert.Zero(t, m.netCalls)
	assert.False(t, m.sess.Querying())
	assert.Zero(t, api.count("ask"))
}

func TestAskEmptyQuestionRejected(t *testing.T) {
	m := newTestModel(t, newFakeAPI())
	m.input.SetValue("   ")

	m, cmd := m.submitAsk(false)

	assert.Nil(t, cmd)
	a, ok := m.lastAlert()
	require.True(t, ok)
	assert.Equal(t, "ask.invalid", a.Code)
	assert.Equal(t, "Please enter a question", a.Message)
}

func TestAskRoundTrip(t *testing.T) {
	m := newTestModel(t, newFakeAPI())
	m.input.SetValue("What is the capital of France?")

	m, cmd := m.submitAsk(false)
	require.NotNil(t, cmd)
	require.True(t, m.sess.Querying())
	require.NotEmpty(t, m.askCorrelationID)
	assert.True(t, m.status[laneAsk].active)
	assert.Equal(t, 1, m.netCalls)

	m, again := m.submitAsk(false)
	assert.Nil(t, again)
	assert.True(t, hasAlert(m, "ask.busy"))

	m = update(t, m, askDoneMsg{
		correlationID: m.askCorrelationID,
		question:      "What is the capital of France?",
		resp:          answered(map[council.Provider]float64{council.OpenAI: 95, council.Anthropic: 88}),
	})

	c := m.sess.Comparison()
	require.NotNil(t, c)
	assert.Equal(t, council.ID("cmp-1"), c.ID)
	assert.Equal(t, []council.Provider{council.OpenAI, council.Anthropic}, c.Providers())
	assert.False(t, m.sess.Querying())
	assert.False(t, m.status[laneAsk].active)
	assert.Empty(t, m.askCorrelationID)
	assert.True(t, hasAlert(m, "ask.complete"))
	assert.False(t, hasAlert(m, "consensus.compromised"))
}

func TestAskLowScoreFlagsConsensus(t *testing.T) {
	m := newTestModel(t, newFakeAPI())
	m.input.SetValue("Is the moon made of cheese?")
	m, _ = m.submitAsk(false)

	m = update(t, m, askDoneMsg{
		correlationID: m.askCorrelationID,
		question:      "Is the moon made of cheese?",
		resp:          answered(map[council.Provider]float64{council.OpenAI: 95, council.Google: 62}),
	})

	assert.True(t, hasAlert(m, "consensus.compromised"))
}

func TestStaleAskResultIgnored(t *testing.T) {
	m := newTestModel(t, newFakeAPI())
	m.input.SetValue("What is the capital of France?")
	m, _ = m.submitAsk(false)

	m = update(t, m, askDoneMsg{correlationID: "someone-else", resp: answered(map[council.Provider]float64{council.OpenAI: 90})})

	assert.True(t, m.sess.Querying())
	assert.Nil(t, m.sess.Comparison())
}

func TestEscCancelsInFlightAsk(t *testing.T) {
	m := newTestModel(t, newFakeAPI())
	m.input.SetValue("What is the capital of France?")
	m, _ = m.submitAsk(false)
	cid := m.askCorrelationID

	m = update(t, m, key(tea.KeyEscape))

	assert.False(t, m.sess.Querying())
	assert.Nil(t, m.askCancel)
	assert.False(t, m.status[laneAsk].active)
	assert.True(t, hasAlert(m, "ask.cancel.requested"))
	assert.Equal(t, overlayNone, m.currentOverlay())

	// The cancelled call finishing late must not resurrect the result.
	m = update(t, m, askDoneMsg{correlationID: cid, resp: answered(map[council.Provider]float64{council.OpenAI: 90})})
	assert.Nil(t, m.sess.Comparison())
}

func TestNetworkDisabledSkipsAsk(t *testing.T) {
	api := newFakeAPI()
	m := newTestModel(t, api)
	m.cfg.disableNetwork = true
	m.input.SetValue("What is the capital of France?")

	m, cmd := m.submitAsk(false)

	assert.Nil(t, cmd)
	assert.True(t, hasAlert(m, "network.disabled"))
	assert.False(t, m.sess.Querying())
	assert.Zero(t, m.netCalls)
}

func TestInterrogationVerdictUpdatesScore(t *testing.T) {
	m := newTestModel(t, newFakeAPI())
	m.sess.FinishAsk("q", answered(map[council.Provider]float64{council.OpenAI: 92, council.Anthropic: 90}))

	m, cmd := m.interrogate(interrogationTarget{provider: council.OpenAI}, "Cite your source")
	require.NotNil(t, cmd)
	require.True(t, m.interroBusy)

	newScore := 55.0
	m = update(t, m, interrogateDoneMsg{
		target:       interrogationTarget{provider: council.OpenAI},
		comparisonID: "cmp-1",
		question:     "Cite your source",
		res:          &council.InterrogateResult{Success: true, Outcome: "FAILED", NewCredibility: &newScore},
	})

	c := m.sess.Comparison()
	assert.False(t, m.interroBusy)
	assert.Equal(t, 55, c.Credibility()[council.OpenAI])
	assert.True(t, c.Stale)
	assert.Len(t, c.Verdicts[council.OpenAI], 1)
	assert.True(t, hasAlert(m, "consensus.compromised"))
	assert.True(t, hasAlert(m, "interrogate.complete"))
}

func TestInterrogationDrawerRecordsTranscript(t *testing.T) {
	m := newTestModel(t, newFakeAPI())
	m.sess.FinishAsk("q", answered(map[council.Provider]float64{council.Anthropic: 90}))

	m = m.openCardInterrogation(council.Anthropic)
	require.Equal(t, overlayInterrogation, m.currentOverlay())
	require.NotNil(t, m.sess.Interrogation())

	m.editor.SetValue("Why Paris?")
	next, cmd := m.updateInterrogation(key(tea.KeyEnter))
	m = next.(appModel)
	require.NotNil(t, cmd)
	assert.Empty(t, m.editor.Value())

	m = update(t, m, interrogateDoneMsg{
		target:       m.interroTarget,
		comparisonID: "cmp-1",
		drawer:       true,
		question:     "Why Paris?",
		res:          &council.InterrogateResult{Success: true, Outcome: "DEFENDED", Defense: "It is the seat of government."},
	})

	i := m.sess.Interrogation()
	require.NotNil(t, i)
	assert.Equal(t, 1, i.Rounds)
	assert.Contains(t, i.Transcript, "Why Paris?")

	m = update(t, m, key(tea.KeyEscape))
	assert.Nil(t, m.sess.Interrogation())
	assert.Equal(t, overlayNone, m.currentOverlay())
}

func TestCardInterrogationNeedsAnswer(t *testing.T) {
	m := newTestModel(t, newFakeAPI())

	m = m.openCardInterrogation(council.OpenAI)
	assert.Equal(t, overlayNone, m.currentOverlay())
	assert.True(t, hasAlert(m, "interrogate.invalid"))

	m.sess.FinishAsk("q", answered(map[council.Provider]float64{council.Anthropic: 90}))
	m = m.openCardInterrogation(council.OpenAI)
	assert.Equal(t, overlayNone, m.currentOverlay())
}

func TestEscPriority(t *testing.T) {
	m := newTestModel(t, newFakeAPI())
	m = m.pushScreen(screenHistory)
	m = m.openPalette("/")

	m = update(t, m, key(tea.KeyEscape))
	assert.Equal(t, overlayNone, m.currentOverlay())
	assert.Equal(t, screenHistory, m.currentScreen())

	m = update(t, m, key(tea.KeyEscape))
	assert.Equal(t, screenDeck, m.currentScreen())

	m = update(t, m, key(tea.KeyEscape))
	assert.Equal(t, overlayQuitConfirm, m.currentOverlay())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestProvidersOverlayToggles(t *testing.T) {
	m := newTestModel(t, newFakeAPI())
	m = update(t, m, key(tea.KeyCtrlP))
	require.Equal(t, overlayProviders, m.currentOverlay())

	m = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.False(t, m.sess.IsActive(council.OpenAI))

	// Rows after the four models are the options.
	for i := 0; i < 5; i++ {
		m = update(t, m, key(tea.KeyDown))
	}
	m = update(t, m, key(tea.KeyEnter))
	assert.True(t, m.sess.Options.Hard)
}

func TestWorkflowRunToCompletion(t *testing.T) {
	api := newFakeAPI()
	m := newTestModel(t, api)
	m = m.selectWorkflow("discovery")
	m.input.SetValue("Should we enter the EU market?")

	m, cmd := m.submitAsk(false)
	require.NotNil(t, cmd)
	require.NotNil(t, m.runner)
	assert.Equal(t, screenWorkflow, m.currentScreen())
	assert.Zero(t, api.count("ask"))

	r := m.runner
	err := r.Start(context.Background(), council.RunWorkflowRequest{Question: "Should we enter the EU market?", WorkflowID: "discovery"})
	m = update(t, m, workflowStartedMsg{runner: r, err: err})
	require.NoError(t, err)
	assert.True(t, hasAlert(m, "workflow.started"))

	for {
		msg := waitWorkflowEvent(r)().(workflowEventMsg)
		m = update(t, m, msg)
		if !msg.ok {
			break
		}
	}

	assert.Equal(t, workflow.StateComplete, m.workflowState())
	assert.True(t, hasAlert(m, "workflow.complete"))
	assert.Len(t, r.Steps(), 2)
	assert.Equal(t, 1, m.stepIndex)
	assert.False(t, m.status[laneWorkflow].active)

	// A second run while the first is terminal is allowed; a running one is not.
	assert.False(t, m.workflowRunning())
}

func TestStepEditSavesLocally(t *testing.T) {
	api := newFakeAPI()
	m := newTestModel(t, api)
	m = m.selectWorkflow("discovery")
	m.input.SetValue("Should we enter the EU market?")
	m, _ = m.startWorkflow()
	r := m.runner
	require.NoError(t, r.Start(context.Background(), council.RunWorkflowRequest{Question: "Go?", WorkflowID: "discovery"}))
	for range r.Events() {
	}

	m = m.openStepEdit(1)
	require.Equal(t, overlayStepEdit, m.currentOverlay())
	assert.Equal(t, "Three players.", m.editor.Value())

	m.editor.SetValue("Four players.")
	m = update(t, m, key(tea.KeyCtrlS))

	out, ok := r.StepOutput(1)
	require.True(t, ok)
	assert.Equal(t, "Four players.", out)
	assert.True(t, r.Steps()[0].Edited)
	assert.Equal(t, overlayNone, m.currentOverlay())
	assert.Equal(t, -1, m.editStep)
	assert.True(t, hasAlert(m, "edit.saved"))
}

func TestStepInterrogationCarriesWorkflowContext(t *testing.T) {
	api := newFakeAPI()
	m := newTestModel(t, api)
	m = m.selectWorkflow("discovery")
	m.input.SetValue("Should we enter the EU market?")
	m, _ = m.startWorkflow()
	r := m.runner
	require.NoError(t, r.Start(context.Background(), council.RunWorkflowRequest{Question: "Go?", WorkflowID: "discovery"}))
	for range r.Events() {
	}

	m = m.openStepInterrogation(2)
	require.Equal(t, overlayInterrogation, m.currentOverlay())
	assert.Equal(t, interrogationTarget{provider: council.Anthropic, workflow: true, step: 2}, m.interroTarget)

	m, cmd := m.interrogate(m.interroTarget, "Why the mid tier?")
	require.NotNil(t, cmd)
	assert.NotEmpty(t, m.workflowContextJSON())
}

func TestWorkflowGuards(t *testing.T) {
	m := newTestModel(t, newFakeAPI())

	m, cmd := m.startWorkflow()
	assert.Nil(t, cmd)
	assert.True(t, hasAlert(m, "workflow.invalid"))

	m.input.SetValue("A question")
	m, cmd = m.startWorkflow()
	assert.Nil(t, cmd)
	a, _ := m.lastAlert()
	assert.Equal(t, "Please select a workflow template", a.Message)
}

func TestHistoryLoadReplacesDeck(t *testing.T) {
	m := newTestModel(t, newFakeAPI())
	m = m.pushScreen(screenHistory)
	m = update(t, m, refreshDoneMsg{
		history: []council.HistoryItem{{
			ID:       "h-1",
			Question: "Old question",
			Responses: []council.HistoryResponse{
				{AIProvider: "openai", ModelName: "gpt-4o", ResponseText: "See [1]", Success: true},
			},
		}},
		projects: []string{"alpha"},
	})

	m = update(t, m, key(tea.KeyEnter))

	c := m.sess.Comparison()
	require.NotNil(t, c)
	assert.True(t, c.FromHistory)
	assert.Equal(t, "Old question", m.input.Value())
	assert.Equal(t, screenDeck, m.currentScreen())
	assert.True(t, c.Results[council.OpenAI].HasCitations)
}

func TestRefreshRunsConcurrently(t *testing.T) {
	api := newFakeAPI()
	m := newTestModel(t, api)

	m, cmd := m.refresh()
	require.NotNil(t, cmd)
	msg := cmd().(refreshDoneMsg)
	require.NoError(t, msg.err)
	assert.Equal(t, []string{"alpha"}, msg.projects)
	assert.Equal(t, 1, api.count("history"))
	assert.Equal(t, 1, api.count("projects"))

	m = update(t, m, msg)
	assert.Equal(t, []string{"alpha"}, m.projects)
}

func TestViewRendersEveryOverlay(t *testing.T) {
	m := newTestModel(t, newFakeAPI())
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m.sess.FinishAsk("What is the capital of France?", answered(map[council.Provider]float64{council.OpenAI: 95, council.Google: 60}))

	assert.Contains(t, m.View(), "TRIAI COUNCIL test")
	assert.Contains(t, m.View(), "CONSENSUS COMPROMISED")

	for _, o := range []overlay{overlayCommandPalette, overlayProviders, overlayWorkflowSelect, overlayRecommend, overlayStopConfirm, overlayQuitConfirm} {
		v := m.openOverlay(o).View()
		assert.NotEmpty(t, v, o.String())
	}

	small := update(t, m, tea.WindowSizeMsg{Width: 30, Height: 8})
	assert.Contains(t, small.View(), "Terminal too small")
}

func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, runCmd(c)...)
	}
	return out
}

func TestStepCardListsFindings(t *testing.T) {
	m := newTestModel(t, newFakeAPI())
	s := workflow.Step{
		StepResult: council.StepResult{
			Step: 1, Key: "research", Role: "analyst", Model: "openai",
			Data: council.StepData{
				Response: "Forty percent of buyers churn.",
				Success:  true,
				Enforcement: &council.Enforcement{
					Violations: []string{"UNSOURCED: 'forty percent' claim", "Vague sizing"},
					Warnings:   []string{"HEDGE_WARN"},
				},
			},
		},
		Ordinal: 1,
	}

	out := m.viewStep(s, false, 100)

	assert.Contains(t, out, "STEP 1: ANALYST (openai)")
	assert.Contains(t, out, "Truth score 100")
	assert.Contains(t, out, `✗ UNSOURCED: "forty percent"`)
	assert.Contains(t, out, "✗ Vague sizing")
	assert.Contains(t, out, "! HEDGE_WARN")

	s.Data.Enforcement = nil
	out = m.viewStep(s, false, 100)
	assert.NotContains(t, out, "Truth score")
	assert.NotContains(t, out, "HEDGE_WARN")
}

func TestInterrogationVerdictForEarlierComparisonDropped(t *testing.T) {
	api := newFakeAPI()
	m := newTestModel(t, api)
	m.sess.FinishAsk("q", answered(map[council.Provider]float64{council.OpenAI: 92}))

	m, cmd := m.interrogate(interrogationTarget{provider: council.OpenAI}, "Cite your source")
	require.NotNil(t, cmd)
	var done interrogateDoneMsg
	for _, msg := range runCmd(cmd) {
		if d, ok := msg.(interrogateDoneMsg); ok {
			done = d
		}
	}
	assert.Equal(t, council.ID("cmp-1"), done.comparisonID)

	next := answered(map[council.Provider]float64{council.OpenAI: 92})
	next.ComparisonID = "cmp-2"
	m.sess.FinishAsk("q2", next)

	newScore := 40.0
	done.res = &council.InterrogateResult{Success: true, Outcome: "FAILED", NewCredibility: &newScore}
	m = update(t, m, done)

	c := m.sess.Comparison()
	require.Equal(t, council.ID("cmp-2"), c.ID)
	assert.Equal(t, 92, c.Credibility()[council.OpenAI])
	assert.False(t, c.Stale)
	assert.Empty(t, c.Verdicts[council.OpenAI])
	assert.False(t, m.interroBusy)
	assert.True(t, hasAlert(m, "interrogate.stale"))
	assert.False(t, hasAlert(m, "consensus.compromised"))

	// The provider is free for a new interrogation against cmp-2.
	_, cmd = m.interrogate(interrogationTarget{provider: council.OpenAI}, "Again?")
	assert.NotNil(t, cmd)
}

func TestAskDuringWorkflowKeepsWorkflowCaption(t *testing.T) {
	m := newTestModel(t, newFakeAPI())
	m = m.selectWorkflow("discovery")
	m.input.SetValue("Should we enter the EU market?")
	m, cmd := m.startWorkflow()
	require.NotNil(t, cmd)
	require.True(t, m.workflowRunning())
	require.True(t, m.status[laneWorkflow].active)

	m = m.selectWorkflow("")
	m.input.SetValue("What is the capital of France?")
	m, cmd = m.submitAsk(false)
	require.NotNil(t, cmd)
	m = update(t, m, askDoneMsg{
		correlationID: m.askCorrelationID,
		question:      "What is the capital of France?",
		resp:          answered(map[council.Provider]float64{council.OpenAI: 95}),
	})
	assert.False(t, m.status[laneAsk].active)
	assert.True(t, m.status[laneWorkflow].active)

	m, cmd = m.resynthesize()
	require.NotNil(t, cmd)
	m = update(t, m, resynthDoneMsg{comparisonID: "cmp-1", consensus: "Paris."})
	assert.False(t, m.status[laneResynth].active)
	assert.True(t, m.status[laneWorkflow].active)
	assert.Contains(t, m.workflowContent(100), statusPhrases[0])
}
