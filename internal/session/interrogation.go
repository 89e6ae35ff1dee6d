package session

import (
	"fmt"

	"github.com/jcccaz/TRIAI/internal/council"
)

type Action string

const (
	ActionInterrogate Action = "interrogate"
	ActionVisualize   Action = "visualize"
)

type secondaryKey struct {
	provider council.Provider
	action   Action
}

// BeginSecondary claims the per-provider slot for an action. A second
// claim for the same provider and action fails until EndSecondary; other
// providers and actions are independent.
func (s *State) BeginSecondary(p council.Provider, a Action) error {
	k := secondaryKey{p, a}
	if s.secondary[k] {
		return fmt.Errorf("%s %s: %w", a, p, ErrBusy)
	}
	s.secondary[k] = true
	return nil
}

func (s *State) EndSecondary(p council.Provider, a Action) {
	delete(s.secondary, secondaryKey{p, a})
}

func (s *State) SecondaryBusy(p council.Provider, a Action) bool {
	return s.secondary[secondaryKey{p, a}]
}

// Interrogation is an open challenge thread against one model. The
// transcript grows with every answered follow-up so later questions carry
// the whole exchange.
type Interrogation struct {
	Model      council.Provider
	Claim      string
	Role       string
	Transcript string
	Rounds     int
}

func (s *State) OpenInterrogation(model council.Provider, claim, role string) *Interrogation {
	if role == "" {
		role = "Expert"
	}
	s.interro = &Interrogation{Model: model, Claim: claim, Role: role, Transcript: claim}
	return s.interro
}

func (s *State) Interrogation() *Interrogation { return s.interro }

func (s *State) CloseInterrogation() { s.interro = nil }

// Request builds the next challenge from the running transcript.
func (i *Interrogation) Request(question, projectContext string) council.InterrogateRequest {
	return council.InterrogateRequest{
		Model:            i.Model,
		Question:         question,
		PreviousResponse: i.Transcript,
		ProjectContext:   projectContext,
	}
}

// RecordFollowUp appends one answered question to the transcript.
func (i *Interrogation) RecordFollowUp(question, answer string) {
	i.Transcript += "\n\nUser Question: " + question + "\nYour Follow-up: " + answer
	i.Rounds++
}
