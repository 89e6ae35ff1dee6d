package main

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jcccaz/TRIAI/internal/council"
	"github.com/jcccaz/TRIAI/internal/logging"
	"github.com/jcccaz/TRIAI/internal/session"
	"github.com/jcccaz/TRIAI/internal/workflow"
)

type screen int

const (
	screenDeck screen = iota
	screenWorkflow
	screenHistory
	screenProjects
)

func (s screen) String() string {
	switch s {
	case screenDeck:
		return "deck"
	case screenWorkflow:
		return "workflow"
	case screenHistory:
		return "history"
	case screenProjects:
		return "projects"
	default:
		return "unknown"
	}
}

type overlay int

const (
	overlayNone overlay = iota
	overlayCommandPalette
	overlayProviders
	overlayWorkflowSelect
	overlayRecommend
	overlayInterrogation
	overlayStepEdit
	overlayStopConfirm
	overlayQuitConfirm
)

func (o overlay) String() string {
	switch o {
	case overlayNone:
		return "none"
	case overlayCommandPalette:
		return "command_palette"
	case overlayProviders:
		return "providers"
	case overlayWorkflowSelect:
		return "workflow_select"
	case overlayRecommend:
		return "recommend"
	case overlayInterrogation:
		return "interrogation"
	case overlayStepEdit:
		return "step_edit"
	case overlayStopConfirm:
		return "stop_confirm"
	case overlayQuitConfirm:
		return "quit_confirm"
	default:
		return "unknown"
	}
}

type appConfig struct {
	stateDir       string
	sessionID      string
	version        string
	baseURL        string
	commandsPath   string
	exportDir      string
	disableNetwork bool
	plain          bool
	pollInterval   time.Duration
	historyLimit   int
}

// councilAPI is the slice of council.Client the cockpit drives.
type councilAPI interface {
	workflow.API
	Ask(ctx context.Context, req council.AskRequest) (*council.AskResponse, error)
	Interrogate(ctx context.Context, req council.InterrogateRequest) (*council.InterrogateResult, error)
	Visualize(ctx context.Context, req council.VisualizeRequest) (string, error)
	Resynthesize(ctx context.Context, req council.ResynthesizeRequest) (string, error)
	RecommendRoles(ctx context.Context, question string) (*council.RecommendRolesResult, error)
	Workflows(ctx context.Context) (map[string]council.WorkflowTemplate, error)
	InvalidateWorkflows()
	History(ctx context.Context, limit int) ([]council.HistoryItem, error)
	DeleteHistory(ctx context.Context, id council.ID) error
	Projects(ctx context.Context) ([]string, error)
	CreateProject(ctx context.Context, name string) (string, error)
	DeleteProject(ctx context.Context, name string) error
	SubmitFeedback(ctx context.Context, fb council.Feedback) error
	SubmitResponseRating(ctx context.Context, r council.ResponseRating) error
	SaveToObsidian(ctx context.Context, note council.ObsidianNote) (string, error)
}

// interrogationTarget names what the interrogation drawer is pointed at:
// a provider card on the deck or a workflow step.
type interrogationTarget struct {
	provider council.Provider
	workflow bool
	step     int
}

type appModel struct {
	cfg appConfig
	th  theme
	api councilAPI
	log *logging.Logger
	md  *markdownRenderer

	width  int
	height int
	now    time.Time

	sessionID string
	screens   []screen
	overlays  []overlay

	sess    *session.State
	input   textarea.Model
	editor  textarea.Model
	spin    spinner.Model
	bar     progress.Model
	results viewport.Model
	status  statusBoard

	cardIndex     int
	providerIndex int

	commandPaletteNamespace string
	commandPaletteQuery     string
	commandPaletteIndex     int

	askCorrelationID string
	askCancel        context.CancelFunc

	charts         map[council.Provider]string
	recommendation *council.RecommendRolesResult

	workflows        []council.WorkflowTemplate
	workflowIndex    int
	selectedWorkflow string
	runner           *workflow.Runner
	stepIndex        int
	editStep         int

	interroTarget interrogationTarget
	interroBusy   bool

	history      []council.HistoryItem
	historyIndex int
	projects     []string
	projectIndex int

	alerts         []systemAlert
	recentCommands []string
	events         *eventLogger
	netCalls       int

	commandBusPath   string
	commandBusOffset int64
	actionSource     string
	quitRequested    bool
}

func newAppModel(cfg appConfig, api councilAPI, log *logging.Logger) appModel {
	if log == nil {
		log = logging.Nop()
	}
	if cfg.pollInterval <= 0 {
		cfg.pollInterval = workflow.DefaultInterval
	}
	if cfg.historyLimit <= 0 {
		cfg.historyLimit = 20
	}

	input := textarea.New()
	input.Placeholder = "Ask the council...  (/ commands, alt+enter newline)"
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.SetHeight(3)
	input.KeyMap.InsertNewline.SetKeys("alt+enter")
	input.Focus()

	editor := textarea.New()
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.SetHeight(8)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = defaultTheme().Accent

	m := appModel{
		cfg:                     cfg,
		th:                      defaultTheme(),
		api:                     api,
		log:                     log,
		md:                      newMarkdownRenderer(cfg.plain),
		sessionID:               cfg.sessionID,
		screens:                 []screen{screenDeck},
		sess:                    session.New(),
		input:                   input,
		editor:                  editor,
		spin:                    sp,
		status:                  newStatusBoard(),
		bar:                     progress.New(progress.WithDefaultGradient()),
		results:                 viewport.New(80, 20),
		charts:                  map[council.Provider]string{},
		editStep:                -1,
		alerts:                  []systemAlert{},
		recentCommands:          []string{},
		events:                  newEventLogger(cfg.stateDir, cfg.sessionID),
		commandPaletteNamespace: "/",
		commandBusPath:          cfg.commandsPath,
		actionSource:            "tui",
	}
	m.commandBusOffset = initCommandBus(cfg.commandsPath)
	m = m.layout()
	m.systemAlert(alertInfo, "triai.started", "TriAI council ready", map[string]any{"baseUrl": cfg.baseURL})
	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(tickCmd(), textarea.Blink)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch t := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = t.Width
		m.height = t.Height
		m = m.layout()
		return m, nil
	case time.Time:
		return m.onTick(t)
	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(t)
		return m, cmd
	case statusTickMsg:
		var cmd tea.Cmd
		m.status, cmd = m.status.update(t)
		return m, cmd
	case askDoneMsg:
		return m.onAskDone(t)
	case interrogateDoneMsg:
		return m.onInterrogateDone(t)
	case visualizeDoneMsg:
		return m.onVisualizeDone(t)
	case resynthDoneMsg:
		return m.onResynthDone(t)
	case recommendDoneMsg:
		return m.onRecommendDone(t)
	case workflowsLoadedMsg:
		return m.onWorkflowsLoaded(t)
	case workflowStartedMsg:
		return m.onWorkflowStarted(t)
	case workflowEventMsg:
		return m.onWorkflowEvent(t)
	case refreshDoneMsg:
		return m.onRefreshDone(t)
	case remoteDoneMsg:
		return m.onRemoteDone(t)
	case tea.KeyMsg:
		return m.updateKey(t)
	}

	var cmd tea.Cmd
	switch m.currentOverlay() {
	case overlayInterrogation, overlayStepEdit:
		m.editor, cmd = m.editor.Update(msg)
	default:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m appModel) updateKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k.String() == "esc" {
		return m.handleEsc()
	}
	if k.Type == tea.KeyCtrlC {
		m = m.shutdown()
		return m, tea.Quit
	}

	switch m.currentOverlay() {
	case overlayCommandPalette:
		return m.updateCommandPalette(k)
	case overlayProviders:
		return m.updateProviders(k)
	case overlayWorkflowSelect:
		return m.updateWorkflowSelect(k)
	case overlayRecommend:
		return m.updateRecommend(k)
	case overlayInterrogation:
		return m.updateInterrogation(k)
	case overlayStepEdit:
		return m.updateStepEdit(k)
	case overlayStopConfirm:
		return m.updateStopConfirm(k)
	case overlayQuitConfirm:
		return m.updateQuitConfirm(k)
	default:
		// fallthrough to screen
	}

	switch m.currentScreen() {
	case screenWorkflow:
		return m.updateWorkflow(k)
	case screenHistory:
		return m.updateHistory(k)
	case screenProjects:
		return m.updateProjects(k)
	default:
		return m.updateDeck(k)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return t })
}

func (m appModel) onTick(now time.Time) (appModel, tea.Cmd) {
	m.now = now
	var busCmd tea.Cmd
	m, busCmd = m.consumeCommandBus()
	if m.quitRequested {
		return m, tea.Quit
	}
	if busCmd == nil {
		return m, tickCmd()
	}
	return m, tea.Batch(tickCmd(), busCmd)
}

func (m appModel) currentScreen() screen {
	if len(m.screens) == 0 {
		return screenDeck
	}
	return m.screens[len(m.screens)-1]
}

func (m appModel) pushScreen(s screen) appModel {
	if m.currentScreen() == s {
		return m
	}
	m.screens = append(m.screens, s)
	m.emitEvent("ui.nav.push", m.actionSource, map[string]any{"screen": s.String(), "depth": len(m.screens)}, "", "")
	return m
}

func (m appModel) popScreen() appModel {
	if len(m.screens) <= 1 {
		return m
	}
	popped := m.screens[len(m.screens)-1]
	m.screens = m.screens[:len(m.screens)-1]
	m.emitEvent("ui.nav.pop", m.actionSource, map[string]any{"screen": popped.String(), "depth": len(m.screens)}, "", "")
	return m
}

func (m appModel) currentOverlay() overlay {
	if len(m.overlays) == 0 {
		return overlayNone
	}
	return m.overlays[len(m.overlays)-1]
}

func (m appModel) openOverlay(o overlay) appModel {
	m.overlays = append(m.overlays, o)
	m.emitEvent("ui.overlay.open", m.actionSource, map[string]any{"overlay": o.String(), "depth": len(m.overlays)}, "", "")
	switch o {
	case overlayInterrogation, overlayStepEdit:
		m.input.Blur()
		m.editor.Focus()
	}
	return m
}

func (m appModel) closeOverlay() appModel {
	if len(m.overlays) == 0 {
		return m
	}
	popped := m.overlays[len(m.overlays)-1]
	m.overlays = m.overlays[:len(m.overlays)-1]
	m.emitEvent("ui.overlay.close", m.actionSource, map[string]any{"overlay": popped.String(), "depth": len(m.overlays)}, "", "")
	switch popped {
	case overlayInterrogation:
		m.sess.CloseInterrogation()
		m.interroTarget = interrogationTarget{}
	case overlayStepEdit:
		m.editStep = -1
	}
	if popped == overlayInterrogation || popped == overlayStepEdit {
		m.editor.Reset()
		m.editor.Blur()
		m.input.Focus()
	}
	return m
}

func (m appModel) closeAllOverlays() appModel {
	for len(m.overlays) > 0 {
		m = m.closeOverlay()
	}
	return m
}

func (m appModel) handleEsc() (tea.Model, tea.Cmd) {
	// Priority:
	// 1) Close top overlay
	// 2) Cancel the in-flight ask on the deck
	// 3) Pop screen stack
	// 4) Deck root -> quit confirmation
	if m.currentOverlay() != overlayNone {
		m = m.closeOverlay()
		return m, nil
	}
	if m.currentScreen() == screenDeck && m.sess.Querying() {
		if m.askCancel != nil {
			m.askCancel()
			m.askCancel = nil
		}
		m.sess.FailAsk()
		m.status = m.status.stop(laneAsk)
		cid := m.askCorrelationID
		m.askCorrelationID = ""
		m.systemAlert(alertInfo, "ask.cancel.requested", "Cancellation requested", nil)
		m.emitEvent("command.cancel.requested", m.actionSource, map[string]any{"kind": "ask"}, cid, "")
		return m, nil
	}
	if m.currentScreen() != screenDeck {
		m = m.popScreen()
		return m, nil
	}
	m = m.openOverlay(overlayQuitConfirm)
	return m, nil
}

// shutdown cancels anything still talking to the server.
func (m appModel) shutdown() appModel {
	if m.askCancel != nil {
		m.askCancel()
		m.askCancel = nil
	}
	if m.runner != nil {
		m.runner.Stop()
	}
	return m
}

func (m appModel) busy() bool {
	return m.sess.Querying() || m.workflowRunning() || m.interroBusy
}

func (m appModel) workflowRunning() bool {
	return m.runner != nil && !m.runner.State().Terminal()
}

func (m appModel) workflowState() workflow.State {
	if m.runner == nil {
		return workflow.StateIdle
	}
	return m.runner.State()
}

// layout sizes the bubbles components to the terminal.
func (m appModel) layout() appModel {
	w, h := m.effectiveSize()
	inner := max(20, w-4)
	m.input.SetWidth(inner)
	m.editor.SetWidth(clamp(w-8, 20, 100))
	m.bar.Width = clamp(w-10, 10, 60)
	m.results.Width = inner
	m.results.Height = max(3, h-12)
	return m
}

func (m appModel) emitEvent(eventType string, source string, payload any, correlationID string, causationID string) {
	if m.events == nil {
		return
	}
	m.events.Append(source, eventType, payload, correlationID, causationID)
}

func (m appModel) recordEvent(source string, ev councilEvent, correlationID string) {
	if m.events == nil {
		return
	}
	m.events.Record(source, ev, correlationID)
}

func (m *appModel) systemAlert(sev alertSeverity, code string, message string, context map[string]any) {
	cid := newCorrelationID()
	a := systemAlert{
		At:            time.Now().UTC().Format(time.RFC3339Nano),
		Severity:      sev,
		Code:          code,
		Message:       message,
		Context:       context,
		CorrelationID: cid,
	}
	m.alerts = append(m.alerts, a)
	if len(m.alerts) > 50 {
		m.alerts = m.alerts[len(m.alerts)-50:]
	}
	m.emitEvent("system.alert", "system", map[string]any{
		"severity":       string(sev),
		"code":           code,
		"message":        message,
		"context":        context,
		"correlation_id": cid,
	}, cid, "")

	details := map[string]any{"code": code, "context": context}
	switch sev {
	case alertError, alertCritical:
		m.log.Error("tui", message, details)
	case alertWarn:
		m.log.Warn("tui", message, details)
	default:
		m.log.Debug("tui", message, details)
	}
}

func (m appModel) lastAlert() (systemAlert, bool) {
	if len(m.alerts) == 0 {
		return systemAlert{}, false
	}
	return m.alerts[len(m.alerts)-1], true
}

func (m appModel) effectiveSize() (int, int) {
	w := m.width
	h := m.height
	// Smoke runs and headless sessions may never see a WindowSizeMsg.
	if w <= 0 {
		w = 80
	}
	if h <= 0 {
		h = 24
	}
	return w, h
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func nonEmpty(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
