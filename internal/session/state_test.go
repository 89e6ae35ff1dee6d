package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcccaz/TRIAI/internal/council"
)

func score(v float64) *float64 { return &v }

func TestBeginAskGuards(t *testing.T) {
	s := New()

	_, err := s.BeginAsk(false)
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	s.Question = "  what now?  "
	for _, p := range council.Providers() {
		s.SetActive(p, false)
	}
	_, err = s.BeginAsk(false)
	assert.ErrorIs(t, err, ErrNoProviders)
	assert.False(t, s.Querying())

	s.SetActive(council.Anthropic, true)
	s.SetActive(council.OpenAI, true)
	req, err := s.BeginAsk(false)
	require.NoError(t, err)
	assert.True(t, s.Querying())
	assert.Equal(t, "what now?", req.Question)
	assert.Equal(t, []council.Provider{council.OpenAI, council.Anthropic}, req.ActiveModels)
	assert.Len(t, req.CouncilRoles, 2)
	assert.Equal(t, "containment", req.CouncilRoles[council.Anthropic].Role)

	_, err = s.BeginAsk(false)
	assert.ErrorIs(t, err, ErrQueryInFlight)

	s.FailAsk()
	_, err = s.BeginAsk(false)
	assert.NoError(t, err)
}

func TestBeginAskVisualHint(t *testing.T) {
	s := New()
	s.Question = "compare cloud vendors"
	req, err := s.BeginAsk(true)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(req.Question, visualHint))
	assert.True(t, req.ForcedVisualize)

	s.FailAsk()
	s.Question = "show a Visual of vendors"
	req, err = s.BeginAsk(true)
	require.NoError(t, err)
	assert.Equal(t, "show a Visual of vendors", req.Question)
}

func TestBeginAskWithoutCouncil(t *testing.T) {
	s := New()
	s.Question = "q"
	_, err := s.Flip(ToggleCouncil)
	require.NoError(t, err)
	req, err := s.BeginAsk(false)
	require.NoError(t, err)
	assert.Nil(t, req.CouncilRoles)
	assert.False(t, req.CouncilMode)
}

func TestFinishAskReplacesComparison(t *testing.T) {
	s := New()
	s.Question = "q1"
	s.Attach(council.Attachment{Name: "a.txt", Data: []byte("x")})
	req, err := s.BeginAsk(false)
	require.NoError(t, err)
	assert.Len(t, req.Files, 1)

	first := s.FinishAsk(req.Question, &council.AskResponse{
		Results:      map[council.Provider]council.ProviderResult{council.OpenAI: {Success: true, Response: "one"}},
		Consensus:    "c1",
		ComparisonID: "11",
	})
	assert.False(t, s.Querying())
	assert.Empty(t, s.Attachments)

	s.Question = "q2"
	req, err = s.BeginAsk(false)
	require.NoError(t, err)
	second := s.FinishAsk(req.Question, &council.AskResponse{
		Results:      map[council.Provider]council.ProviderResult{council.Google: {Success: true, Response: "two"}},
		ComparisonID: "12",
	})
	assert.NotSame(t, first, second)
	assert.Equal(t, []council.Provider{council.Google}, s.Comparison().Providers())
	assert.Equal(t, council.ID("12"), s.Comparison().ID)
}

func TestFlipAndDetach(t *testing.T) {
	s := New()
	v, err := s.Flip(ToggleHard)
	require.NoError(t, err)
	assert.True(t, v)
	assert.True(t, s.Option(ToggleHard))

	_, err = s.Flip("turbo")
	assert.ErrorIs(t, err, ErrUnknownToggle)

	s.Attach(council.Attachment{Name: "a"})
	s.Attach(council.Attachment{Name: "b"})
	a, err := s.Detach(1)
	require.NoError(t, err)
	assert.Equal(t, "a", a.Name)
	assert.Equal(t, "b", s.Attachments[0].Name)
	_, err = s.Detach(5)
	assert.Error(t, err)
}

func TestClearKeepsSelection(t *testing.T) {
	s := New()
	s.Question = "q"
	s.SetActive(council.Google, false)
	s.Options.Podcast = true
	s.FinishAsk("q", &council.AskResponse{ComparisonID: "1"})
	s.OpenInterrogation(council.OpenAI, "claim", "")

	s.Clear()
	assert.Empty(t, s.Question)
	assert.Nil(t, s.Comparison())
	assert.Nil(t, s.Interrogation())
	assert.False(t, s.IsActive(council.Google))
	assert.True(t, s.Options.Podcast)
}

func TestApplyInterrogation(t *testing.T) {
	s := New()
	c := s.FinishAsk("q", &council.AskResponse{
		Results: map[council.Provider]council.ProviderResult{
			council.OpenAI:    {Success: true, Response: "a", Enforcement: &council.Enforcement{CurrentCredibility: score(92), Violations: []string{"HEDGING: 'maybe'"}}},
			council.Anthropic: {Success: true, Response: "b"},
		},
		Consensus:    "agreed",
		ComparisonID: "5",
	})
	assert.False(t, c.ConsensusCompromised())

	c.ApplyInterrogation(council.OpenAI, "prove it", council.InterrogateResult{
		Success:        true,
		Outcome:        "FAILED",
		NewCredibility: score(61),
		Violations:     []string{"HEDGING: 'maybe'", "FABRICATION: 'source X'"},
	}, time.Unix(0, 0))

	r := c.Results[council.OpenAI]
	assert.Equal(t, 61, r.Enforcement.Credibility())
	assert.Len(t, r.Enforcement.Violations, 2)
	assert.Len(t, c.Verdicts[council.OpenAI], 1)
	assert.True(t, c.ConsensusCompromised())
	assert.True(t, c.Stale)

	req := c.ResynthesisRequest(true)
	assert.Equal(t, map[council.Provider]int{council.OpenAI: 61, council.Anthropic: 100}, req.Credibility)
	assert.Equal(t, "b", req.Responses[council.Anthropic])

	c.SetConsensus("revised")
	assert.False(t, c.Stale)

	c.ApplyInterrogation(council.Perplexity, "?", council.InterrogateResult{NewCredibility: score(1)}, time.Unix(0, 0))
	assert.NotContains(t, c.Results, council.Perplexity)
}

func TestSandbag(t *testing.T) {
	long := strings.Repeat("r", 400)
	tests := []struct {
		name string
		in   council.ProviderResult
		want SandbagLevel
	}{
		{"no thought", council.ProviderResult{Success: true, Response: long}, SandbagNone},
		{"failed", council.ProviderResult{Thought: "t", Response: long}, SandbagNone},
		{"balanced", council.ProviderResult{Success: true, Thought: strings.Repeat("t", 400), Response: long}, SandbagNone},
		{"imbalance", council.ProviderResult{Success: true, Thought: strings.Repeat("t", 700), Response: long}, SandbagImbalance},
		{"thought triple", council.ProviderResult{Success: true, Thought: strings.Repeat("t", 1300), Response: long}, SandbagGeneric},
		{"short answer", council.ProviderResult{Success: true, Thought: "t", Response: "short"}, SandbagGeneric},
		{"narrative", council.ProviderResult{Success: true, Thought: "t", Response: long, ExecutionBias: "narrative"}, SandbagGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sandbag(tt.in))
		})
	}
}

func TestLoadHistoryItem(t *testing.T) {
	s := New()
	c := s.LoadHistoryItem(council.HistoryItem{
		ID:       "77",
		Question: "old question",
		Responses: []council.HistoryResponse{
			{AIProvider: "OpenAI", ModelName: "gpt-4o", ResponseText: "see [1]", Success: true},
			{AIProvider: "anthropic", ModelName: "claude", ResponseText: "plain"},
			{AIProvider: "mistral", ResponseText: "ignored"},
		},
	})
	assert.True(t, c.FromHistory)
	assert.Equal(t, "old question", s.Question)
	assert.Equal(t, []council.Provider{council.OpenAI, council.Anthropic}, c.Providers())
	assert.True(t, c.Results[council.OpenAI].HasCitations)
	assert.False(t, c.Results[council.Anthropic].HasCitations)
	assert.Same(t, c, s.Comparison())
}

func TestFeedbackAndRating(t *testing.T) {
	s := New()
	_, err := s.Feedback(3, "")
	assert.ErrorIs(t, err, ErrNoComparison)
	_, err = s.Rate(council.OpenAI, true)
	assert.ErrorIs(t, err, ErrNoComparison)

	s.FinishAsk("why", &council.AskResponse{ComparisonID: "9"})
	fb, err := s.Feedback(4, "great")
	require.NoError(t, err)
	assert.Equal(t, "integrity", fb.GPTRole)
	assert.Equal(t, "why", fb.QueryText)

	r, err := s.Rate(council.Google, false)
	require.NoError(t, err)
	assert.Equal(t, -1, r.Rating)
}

func TestSecondaryGuard(t *testing.T) {
	s := New()
	require.NoError(t, s.BeginSecondary(council.OpenAI, ActionInterrogate))
	assert.ErrorIs(t, s.BeginSecondary(council.OpenAI, ActionInterrogate), ErrBusy)
	assert.NoError(t, s.BeginSecondary(council.Google, ActionInterrogate))
	assert.NoError(t, s.BeginSecondary(council.OpenAI, ActionVisualize))
	s.EndSecondary(council.OpenAI, ActionInterrogate)
	assert.NoError(t, s.BeginSecondary(council.OpenAI, ActionInterrogate))
}

func TestInterrogationTranscript(t *testing.T) {
	s := New()
	i := s.OpenInterrogation(council.Anthropic, "Step 2 output", "")
	assert.Equal(t, "Expert", i.Role)

	req := i.Request("why?", `{"initial_goal":"x"}`)
	assert.Equal(t, "Step 2 output", req.PreviousResponse)

	i.RecordFollowUp("why?", "because")
	assert.Equal(t, "Step 2 output\n\nUser Question: why?\nYour Follow-up: because", i.Transcript)
	assert.Equal(t, 1, i.Rounds)

	s.CloseInterrogation()
	assert.Nil(t, s.Interrogation())
}

func TestBiasLabel(t *testing.T) {
	assert.Equal(t, "🟢 Action-Forward", BiasLabel("action-forward"))
	assert.Equal(t, "", BiasLabel("other"))
}
