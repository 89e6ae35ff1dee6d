package workflow

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jcccaz/TRIAI/internal/council"
)

type EventKind int

const (
	EventStep EventKind = iota
	EventPollError
	EventComplete
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStep:
		return "step"
	case EventPollError:
		return "poll_error"
	case EventComplete:
		return "complete"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind     EventKind
	Step     *Step
	Progress int
	Err      error
}

// Step is a rendered step: the server result plus local display data.
type Step struct {
	council.StepResult
	Ordinal   int
	Objective string
	Edited    bool
}

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) JobID() council.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobID
}

func (r *Runner) Template() council.WorkflowTemplate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.template
}

func (r *Runner) Progress() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Steps returns the rendered steps in arrival order.
func (r *Runner) Steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Step(nil), r.steps...)
}

// Context returns a copy of the step outputs keyed by step key, seeded
// with the initial goal.
func (r *Runner) Context() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.vars))
	for k, v := range r.vars {
		out[k] = v
	}
	return out
}

// Objective returns the template instruction for a step id.
func (r *Runner) Objective(stepID int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.objectiveLocked(stepID)
}

func (r *Runner) objectiveLocked(stepID int) string {
	if s, ok := r.template.Step(stepID); ok && s.Instruction != "" {
		return s.Instruction
	}
	return defaultObjective
}

// EditStep replaces a step's output locally. Nothing is sent to the server
// and steps that already ran are not recomputed.
func (r *Runner) EditStep(stepID int, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tmpl, inTemplate := r.template.Step(stepID)
	idx := -1
	for i := range r.steps {
		if r.steps[i].Step == stepID {
			idx = i
			break
		}
	}
	if !inTemplate && idx < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownStep, stepID)
	}
	key := stepKey(tmpl.Key, stepID)
	if !inTemplate {
		key = stepKey(r.steps[idx].Key, stepID)
	}
	r.vars[key] = text
	if idx >= 0 {
		r.steps[idx].Data.Response = text
		r.steps[idx].Edited = true
	}
	return nil
}

// StepOutput returns the current output of a step, including local edits.
func (r *Runner) StepOutput(stepID int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := stepKey("", stepID)
	if s, ok := r.template.Step(stepID); ok {
		key = stepKey(s.Key, stepID)
	} else {
		for _, s := range r.steps {
			if s.Step == stepID {
				key = stepKey(s.Key, stepID)
			}
		}
	}
	v, ok := r.vars[key]
	return v, ok
}

// Report renders the discovery report in template order.
func (r *Runner) Report(now time.Time) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "# Discovery Report: %s\n", r.template.Name)
	fmt.Fprintf(&b, "Generated: %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Goal: %s\n\n", r.vars[GoalKey])
	for _, s := range r.template.Steps {
		out := r.vars[stepKey(s.Key, s.ID)]
		if out == "" {
			out = "No output."
		}
		fmt.Fprintf(&b, "## STEP %d: %s (%s)\n", s.ID, strings.ToUpper(s.Role), s.Model)
		fmt.Fprintf(&b, "%s\n\n---\n\n", out)
	}
	return b.String()
}

var spaceRun = regexp.MustCompile(`\s+`)

// ReportFilename names the exported discovery report.
func ReportFilename(workflowName string) string {
	return "TriAI_Discovery_" + spaceRun.ReplaceAllString(strings.TrimSpace(workflowName), "_") + ".md"
}
