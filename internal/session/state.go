// Package session holds the client-side state of one council session. The
// TUI owns a single State and changes it only through these methods.
package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jcccaz/TRIAI/internal/council"
)

var (
	ErrQueryInFlight = errors.New("a query is already running")
	ErrEmptyQuestion = errors.New("please enter a question")
	ErrNoProviders   = errors.New("please select at least one AI model")
	ErrNoComparison  = errors.New("no comparison to act on yet")
	ErrUnknownToggle = errors.New("unknown toggle")
	ErrBusy          = errors.New("already running for this provider")
)

const visualHint = " [Please generate a visual mockup/diagram for this query]"

type Toggle string

const (
	ToggleCouncil   Toggle = "council"
	ToggleHard      Toggle = "hard"
	ToggleVault     Toggle = "vault"
	ToggleCitations Toggle = "citations"
	ToggleThoughts  Toggle = "thoughts"
	TogglePodcast   Toggle = "podcast"
)

func Toggles() []Toggle {
	return []Toggle{ToggleCouncil, ToggleHard, ToggleVault, ToggleCitations, ToggleThoughts, TogglePodcast}
}

type Options struct {
	Council   bool
	Hard      bool
	Vault     bool
	Citations bool
	Thoughts  bool
	Podcast   bool
}

type State struct {
	Question    string
	Project     string
	Attachments []council.Attachment
	Options     Options
	Roles       map[council.Provider]council.RoleAssignment

	active     map[council.Provider]bool
	querying   bool
	comparison *Comparison
	secondary  map[secondaryKey]bool
	interro    *Interrogation
}

func New() *State {
	active := make(map[council.Provider]bool, 4)
	for _, p := range council.Providers() {
		active[p] = true
	}
	return &State{
		Options:   Options{Council: true, Citations: true},
		Roles:     council.DefaultRoles(),
		active:    active,
		secondary: map[secondaryKey]bool{},
	}
}

func (s *State) Querying() bool { return s.querying }

// Active returns the active providers in roster order.
func (s *State) Active() []council.Provider {
	out := make([]council.Provider, 0, len(s.active))
	for _, p := range council.Providers() {
		if s.active[p] {
			out = append(out, p)
		}
	}
	return out
}

func (s *State) IsActive(p council.Provider) bool { return s.active[p] }

// SetActive switches one provider on or off. Any subset is allowed here;
// the non-empty rule is enforced when a query is submitted.
func (s *State) SetActive(p council.Provider, on bool) {
	if on {
		s.active[p] = true
		return
	}
	delete(s.active, p)
}

func (s *State) ToggleProvider(p council.Provider) bool {
	s.SetActive(p, !s.active[p])
	return s.active[p]
}

// Flip inverts a named option and returns its new value.
func (s *State) Flip(t Toggle) (bool, error) {
	v := s.option(t)
	if v == nil {
		return false, fmt.Errorf("%w: %s", ErrUnknownToggle, t)
	}
	*v = !*v
	return *v, nil
}

func (s *State) Option(t Toggle) bool {
	if v := s.option(t); v != nil {
		return *v
	}
	return false
}

func (s *State) option(t Toggle) *bool {
	switch Toggle(strings.ToLower(string(t))) {
	case ToggleCouncil:
		return &s.Options.Council
	case ToggleHard:
		return &s.Options.Hard
	case ToggleVault:
		return &s.Options.Vault
	case ToggleCitations:
		return &s.Options.Citations
	case ToggleThoughts:
		return &s.Options.Thoughts
	case TogglePodcast:
		return &s.Options.Podcast
	}
	return nil
}

func (s *State) Attach(a council.Attachment) {
	s.Attachments = append(s.Attachments, a)
}

// Detach removes the attachment at 1-based position n.
func (s *State) Detach(n int) (council.Attachment, error) {
	if n < 1 || n > len(s.Attachments) {
		return council.Attachment{}, fmt.Errorf("no attachment #%d", n)
	}
	a := s.Attachments[n-1]
	s.Attachments = append(s.Attachments[:n-1], s.Attachments[n:]...)
	return a, nil
}

// SetRole assigns a council persona, keeping the provider's visual profile.
func (s *State) SetRole(p council.Provider, role string) {
	ra := s.Roles[p]
	ra.Role = role
	if ra.VisualProfile == "" {
		ra.VisualProfile = "off"
	}
	s.Roles[p] = ra
}

// ApplyRecommendation copies recommended roles onto the council seats.
// Empty suggestions leave the current role in place.
func (s *State) ApplyRecommendation(rec council.RoleRecommendation) {
	for p, role := range rec.Roles() {
		if role != "" {
			s.SetRole(p, role)
		}
	}
}

// BeginAsk validates the session and builds the ask request. On success
// the session is marked as querying until FinishAsk or FailAsk.
func (s *State) BeginAsk(visualize bool) (council.AskRequest, error) {
	if s.querying {
		return council.AskRequest{}, ErrQueryInFlight
	}
	q := strings.TrimSpace(s.Question)
	if q == "" {
		return council.AskRequest{}, ErrEmptyQuestion
	}
	active := s.Active()
	if len(active) == 0 {
		return council.AskRequest{}, ErrNoProviders
	}
	if visualize && !strings.Contains(strings.ToLower(q), "visual") {
		q += visualHint
	}

	req := council.AskRequest{
		Question:        q,
		UseVault:        s.Options.Vault,
		PodcastMode:     s.Options.Podcast,
		CouncilMode:     s.Options.Council,
		HardMode:        s.Options.Hard,
		ActiveModels:    active,
		ForcedVisualize: visualize,
		ProjectName:     s.Project,
		Files:           append([]council.Attachment(nil), s.Attachments...),
	}
	if s.Options.Council {
		req.CouncilRoles = make(map[council.Provider]council.RoleAssignment, len(active))
		for _, p := range active {
			req.CouncilRoles[p] = s.Roles[p]
		}
	}
	s.querying = true
	return req, nil
}

// FinishAsk replaces the comparison with a fresh one and clears the
// attachments that were sent.
func (s *State) FinishAsk(question string, resp *council.AskResponse) *Comparison {
	s.querying = false
	s.Attachments = nil
	s.comparison = newComparison(question, resp)
	return s.comparison
}

func (s *State) FailAsk() { s.querying = false }

func (s *State) Comparison() *Comparison { return s.comparison }

// Clear resets the deck. Provider selection, options and roles survive.
func (s *State) Clear() {
	s.Question = ""
	s.Attachments = nil
	s.comparison = nil
	s.interro = nil
}

// Feedback builds an overall rating for the current comparison.
func (s *State) Feedback(rating int, text string) (council.Feedback, error) {
	c := s.comparison
	if c == nil || c.ID == "" {
		return council.Feedback{}, ErrNoComparison
	}
	return council.Feedback{
		ComparisonID:   c.ID,
		Rating:         rating,
		FeedbackText:   text,
		GPTRole:        s.Roles[council.OpenAI].Role,
		ClaudeRole:     s.Roles[council.Anthropic].Role,
		GeminiRole:     s.Roles[council.Google].Role,
		PerplexityRole: s.Roles[council.Perplexity].Role,
		QueryText:      c.Question,
	}, nil
}

// Rate builds a thumbs up/down for one provider's answer.
func (s *State) Rate(p council.Provider, up bool) (council.ResponseRating, error) {
	c := s.comparison
	if c == nil || c.ID == "" {
		return council.ResponseRating{}, ErrNoComparison
	}
	rating := -1
	if up {
		rating = 1
	}
	return council.ResponseRating{ComparisonID: c.ID, AIProvider: p, Rating: rating}, nil
}

// VisualizeRequest targets one provider's answer in the current comparison.
func (s *State) VisualizeRequest(p council.Provider, profile string) (council.VisualizeRequest, error) {
	c := s.comparison
	if c == nil || c.ID == "" {
		return council.VisualizeRequest{}, ErrNoComparison
	}
	if profile == "" {
		if ra := s.Roles[p]; ra.VisualProfile != "" && ra.VisualProfile != "off" {
			profile = ra.VisualProfile
		}
	}
	return council.VisualizeRequest{ComparisonID: c.ID, Provider: p, VisualProfile: profile}, nil
}
