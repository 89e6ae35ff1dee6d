// Package workflow drives one server-side multi-step job: it starts the
// job, polls its status on a fixed interval and reports each newly finished
// step exactly once, in arrival order.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jcccaz/TRIAI/internal/council"
	"github.com/jcccaz/TRIAI/internal/logging"
)

// API is the subset of the council client a runner needs.
type API interface {
	RunWorkflow(ctx context.Context, req council.RunWorkflowRequest) (council.ID, error)
	Workflow(ctx context.Context, id string) (council.WorkflowTemplate, error)
	WorkflowStatus(ctx context.Context, jobID council.ID) (*council.WorkflowStatus, error)
}

type State int

const (
	StateIdle State = iota
	StateInitializing
	StatePolling
	StateComplete
	StateFailed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StatePolling:
		return "polling"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further polling can happen.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed || s == StateStopped
}

var (
	ErrNoWorkflow     = errors.New("please select a workflow template")
	ErrAlreadyStarted = errors.New("workflow runner already started")
	ErrStopped        = errors.New("workflow stopped")
	ErrUnknownStep    = errors.New("unknown workflow step")
)

const (
	DefaultInterval  = 2 * time.Second
	GoalKey          = "initial_goal"
	defaultObjective = "Step execution."
)

type Options struct {
	Interval    time.Duration
	Logger      *logging.Logger
	EventBuffer int
}

// Runner is single-use: a re-run needs a new Runner, so every run starts
// from step one with empty local state.
type Runner struct {
	api      API
	log      *logging.Logger
	interval time.Duration

	mu       sync.Mutex
	state    State
	jobID    council.ID
	template council.WorkflowTemplate
	vars     map[string]string
	steps    []Step
	rendered map[int]bool
	progress int
	err      error
	cancel   context.CancelFunc

	events chan Event
	done   chan struct{}
}

func NewRunner(api API, opts Options) *Runner {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	buf := opts.EventBuffer
	if buf <= 0 {
		buf = 64
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Runner{
		api:      api,
		log:      log,
		interval: interval,
		vars:     map[string]string{},
		rendered: map[int]bool{},
		events:   make(chan Event, buf),
		done:     make(chan struct{}),
	}
}

// Events delivers step, progress and terminal events. It is closed once
// the runner stops for any reason.
func (r *Runner) Events() <-chan Event { return r.events }

// Done is closed when the poller has exited.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Start issues the start call and loads the template. On success polling
// runs in the background until a terminal status or Stop.
func (r *Runner) Start(parent context.Context, req council.RunWorkflowRequest) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	if req.WorkflowID == "" {
		r.mu.Unlock()
		return ErrNoWorkflow
	}
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.state = StateInitializing
	r.vars = map[string]string{GoalKey: req.Question}
	r.mu.Unlock()

	jobID, err := r.api.RunWorkflow(ctx, req)
	if err == nil {
		var tmpl council.WorkflowTemplate
		tmpl, err = r.api.Workflow(ctx, req.WorkflowID)
		if err == nil {
			r.mu.Lock()
			if r.state == StateInitializing {
				r.jobID = jobID
				r.template = tmpl
				r.state = StatePolling
				r.mu.Unlock()
				r.log.Info("workflow", "job started", map[string]any{"job_id": jobID.String(), "workflow_id": req.WorkflowID, "steps": len(tmpl.Steps)})
				go r.loop(ctx)
				return nil
			}
			r.mu.Unlock()
			err = ErrStopped
		}
	}

	r.mu.Lock()
	if r.state == StateStopped {
		err = ErrStopped
	} else {
		r.state = StateFailed
		r.err = fmt.Errorf("workflow init: %w", err)
		err = r.err
	}
	r.mu.Unlock()
	cancel()
	r.log.Warn("workflow", "start failed", map[string]any{"workflow_id": req.WorkflowID, "error": err.Error()})
	close(r.events)
	close(r.done)
	return err
}

// Stop halts polling immediately. The server is not told to abort.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.state == StateInitializing || r.state == StatePolling {
		r.state = StateStopped
		r.log.Info("workflow", "stopped by user", map[string]any{"job_id": r.jobID.String()})
	}
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)
	defer close(r.events)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.poll(ctx) {
				return
			}
		}
	}
}

// poll runs one status cycle and reports whether polling is over.
func (r *Runner) poll(ctx context.Context) bool {
	status, err := r.api.WorkflowStatus(ctx, r.JobID())
	if ctx.Err() != nil {
		return true
	}
	if err != nil {
		if council.IsApplication(err) {
			r.finish(ctx, StateFailed, fmt.Errorf("polling error: %w", err))
			return true
		}
		r.log.Warn("workflow", "polling cycle error", map[string]any{"job_id": r.JobID().String(), "error": err.Error()})
		r.emit(ctx, Event{Kind: EventPollError, Err: err, Progress: r.Progress()})
		return false
	}

	for _, res := range status.Results {
		step, progress, fresh := r.record(res)
		if fresh {
			r.emit(ctx, Event{Kind: EventStep, Step: &step, Progress: progress})
		}
	}

	switch status.Status {
	case "complete":
		r.finish(ctx, StateComplete, nil)
		return true
	case "failed":
		r.finish(ctx, StateFailed, fmt.Errorf("workflow failed: %s", nonEmpty(status.Error, "Unknown Error")))
		return true
	}
	return false
}

func (r *Runner) record(res council.StepResult) (Step, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePolling || r.rendered[res.Step] {
		return Step{}, r.progress, false
	}
	r.rendered[res.Step] = true
	step := Step{StepResult: res, Ordinal: len(r.steps) + 1, Objective: r.objectiveLocked(res.Step)}
	r.steps = append(r.steps, step)
	r.vars[stepKey(res.Key, res.Step)] = res.Data.Response
	r.progress = percent(len(r.rendered), len(r.template.Steps))
	return step, r.progress, true
}

func (r *Runner) finish(ctx context.Context, st State, err error) {
	r.mu.Lock()
	if r.state != StatePolling {
		r.mu.Unlock()
		return
	}
	r.state = st
	r.err = err
	progress := r.progress
	jobID := r.jobID
	r.mu.Unlock()

	kind := EventComplete
	details := map[string]any{"job_id": jobID.String(), "progress": progress}
	if st == StateFailed {
		kind = EventFailed
		details["error"] = err.Error()
		r.log.Warn("workflow", "job failed", details)
	} else {
		r.log.Info("workflow", "job complete", details)
	}
	r.emit(ctx, Event{Kind: kind, Err: err, Progress: progress})
}

func (r *Runner) emit(ctx context.Context, ev Event) {
	select {
	case r.events <- ev:
	case <-ctx.Done():
	}
}

// percent is rendered/total rounded to the nearest integer, 0 for an empty
// template and never above 100.
func percent(rendered, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(float64(rendered) / float64(total) * 100))
	if p > 100 {
		return 100
	}
	return p
}

func stepKey(key string, id int) string {
	if key != "" {
		return key
	}
	return fmt.Sprintf("step_%d", id)
}

func nonEmpty(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
