package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jcccaz/TRIAI/internal/council"
)

// eventLogger appends the session audit trail to <state>/<session>/events.jsonl.
// Council activity is recorded with the typed payloads below; navigation and
// command events carry a loose map.
type eventLogger struct {
	path    string
	session string

	mu  sync.Mutex
	seq uint64
}

type eventRecord struct {
	Timestamp     string `json:"timestamp"`
	Seq           uint64 `json:"seq"`
	Session       string `json:"session"`
	Source        string `json:"source"`
	Type          string `json:"type"`
	Payload       any    `json:"payload"`
	CorrelationID string `json:"correlation_id,omitempty"`
	CausationID   string `json:"causation_id,omitempty"`
}

// councilEvent is a typed payload for one kind of council activity.
type councilEvent interface {
	eventType() string
}

type askSubmitted struct {
	Question  string             `json:"question"`
	Providers []council.Provider `json:"providers"`
	Files     int                `json:"files"`
	Council   bool               `json:"council"`
	Visualize bool               `json:"visualize"`
}

type askCompleted struct {
	ComparisonID council.ID               `json:"comparison_id"`
	Providers    []council.Provider       `json:"providers"`
	Credibility  map[council.Provider]int `json:"credibility"`
	Compromised  bool                     `json:"compromised"`
}

type askFailed struct {
	Error string `json:"error"`
}

type interrogationSubmitted struct {
	Provider     council.Provider `json:"provider"`
	ComparisonID council.ID       `json:"comparison_id,omitempty"`
	Step         int              `json:"step,omitempty"`
	Question     string           `json:"question"`
}

type interrogationVerdict struct {
	Provider     council.Provider `json:"provider"`
	ComparisonID council.ID       `json:"comparison_id"`
	Outcome      string           `json:"outcome"`
	Before       int              `json:"before"`
	After        int              `json:"after"`
}

type workflowSubmitted struct {
	Workflow string `json:"workflow"`
	Question string `json:"question"`
	Hard     bool   `json:"hard"`
}

type workflowStepDone struct {
	Step     int    `json:"step"`
	Model    string `json:"model"`
	Success  bool   `json:"success"`
	Progress int    `json:"progress"`
}

type workflowPollFailed struct {
	Error string `json:"error"`
}

type reportExported struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

func (askSubmitted) eventType() string           { return "ask.submitted" }
func (askCompleted) eventType() string           { return "ask.completed" }
func (askFailed) eventType() string              { return "ask.failed" }
func (interrogationSubmitted) eventType() string { return "interrogate.submitted" }
func (interrogationVerdict) eventType() string   { return "interrogate.verdict" }
func (workflowSubmitted) eventType() string      { return "workflow.submitted" }
func (workflowStepDone) eventType() string       { return "workflow.step" }
func (workflowPollFailed) eventType() string     { return "workflow.poll_error" }
func (reportExported) eventType() string         { return "report.exported" }

func newEventLogger(stateDir string, sessionID string) *eventLogger {
	if stateDir == "" {
		return nil
	}
	if sessionID == "" {
		sessionID = "sess_unknown"
	}
	dir := filepath.Join(stateDir, sessionID)
	_ = os.MkdirAll(dir, 0o755)
	return &eventLogger{path: filepath.Join(dir, "events.jsonl"), session: sessionID}
}

// Record appends a council event under its own type name.
func (l *eventLogger) Record(source string, ev councilEvent, correlationID string) {
	l.Append(source, ev.eventType(), ev, correlationID, "")
}

func (l *eventLogger) Append(source string, eventType string, payload any, correlationID string, causationID string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	b, err := json.Marshal(eventRecord{
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Seq:           l.seq,
		Session:       l.session,
		Source:        source,
		Type:          eventType,
		Payload:       payload,
		CorrelationID: correlationID,
		CausationID:   causationID,
	})
	if err != nil {
		return
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(b, '\n'))
}

func newCorrelationID() string {
	return uuid.NewString()
}
