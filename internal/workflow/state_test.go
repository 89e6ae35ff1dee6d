package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcccaz/TRIAI/internal/council"
)

// seeded builds a runner in the polling state without a backend.
func seeded() *Runner {
	r := NewRunner(nil, Options{})
	r.state = StatePolling
	r.vars[GoalKey] = "map the market"
	r.template = council.WorkflowTemplate{
		ID:   "discovery",
		Name: "Market Scan",
		Steps: []council.WorkflowStep{
			{ID: 1, Key: "landscape", Role: "analyst", Model: "openai", Instruction: "Survey competitors."},
			{ID: 2, Role: "critic", Model: "anthropic"},
			{ID: 3, Role: "scout", Model: "perplexity"},
		},
	}
	r.record(council.StepResult{Step: 1, Key: "landscape", Role: "analyst", Model: "openai", Data: council.StepData{Response: "three players", Success: true}})
	r.record(council.StepResult{Step: 2, Role: "critic", Model: "anthropic", Data: council.StepData{Response: "weak moat", Success: true}})
	return r
}

func TestObjective(t *testing.T) {
	r := seeded()
	assert.Equal(t, "Survey competitors.", r.Objective(1))
	assert.Equal(t, "Step execution.", r.Objective(2))
	assert.Equal(t, "Step execution.", r.Objective(99))
	assert.Equal(t, "Survey competitors.", r.Steps()[0].Objective)
}

func TestEditStep(t *testing.T) {
	r := seeded()

	require.NoError(t, r.EditStep(1, "four players"))
	require.NoError(t, r.EditStep(2, "strong moat"))
	require.NoError(t, r.EditStep(3, "pre-filled"))

	ctx := r.Context()
	assert.Equal(t, "four players", ctx["landscape"])
	assert.Equal(t, "strong moat", ctx["step_2"])
	assert.Equal(t, "pre-filled", ctx["step_3"])

	steps := r.Steps()
	assert.True(t, steps[0].Edited)
	assert.Equal(t, "four players", steps[0].Data.Response)

	out, ok := r.StepOutput(1)
	assert.True(t, ok)
	assert.Equal(t, "four players", out)

	assert.ErrorIs(t, r.EditStep(42, "x"), ErrUnknownStep)
}

func TestReport(t *testing.T) {
	r := seeded()
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	want := "# Discovery Report: Market Scan\n" +
		"Generated: 2026-03-01 09:30:00\n" +
		"Goal: map the market\n\n" +
		"## STEP 1: ANALYST (openai)\nthree players\n\n---\n\n" +
		"## STEP 2: CRITIC (anthropic)\nweak moat\n\n---\n\n" +
		"## STEP 3: SCOUT (perplexity)\nNo output.\n\n---\n\n"
	assert.Equal(t, want, r.Report(at))
}

func TestReportFilename(t *testing.T) {
	assert.Equal(t, "TriAI_Discovery_Market_Scan.md", ReportFilename("Market Scan"))
	assert.Equal(t, "TriAI_Discovery_A_B.md", ReportFilename("  A \t B "))
}

func TestStateTerminal(t *testing.T) {
	assert.False(t, StatePolling.Terminal())
	assert.True(t, StateStopped.Terminal())
	assert.Equal(t, "complete", StateComplete.String())
}
