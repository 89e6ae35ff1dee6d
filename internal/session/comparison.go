package session

import (
	"regexp"
	"strings"
	"time"

	"github.com/jcccaz/TRIAI/internal/council"
)

// Comparison is the result of one ask. It is replaced wholesale by the next
// ask; interrogations amend single entries in place.
type Comparison struct {
	Question  string
	Results   map[council.Provider]council.ProviderResult
	Consensus string
	ID        council.ID
	Verdicts  map[council.Provider][]Verdict
	// FromHistory marks a comparison rebuilt from a stored history row.
	FromHistory bool
	// Stale is set once an interrogation changed a score after the
	// consensus was produced.
	Stale bool
}

type Verdict struct {
	Question string
	Result   council.InterrogateResult
	At       time.Time
}

func newComparison(question string, resp *council.AskResponse) *Comparison {
	c := &Comparison{
		Question: question,
		Results:  map[council.Provider]council.ProviderResult{},
		Verdicts: map[council.Provider][]Verdict{},
	}
	if resp == nil {
		return c
	}
	for p, r := range resp.Results {
		c.Results[p] = r
	}
	c.Consensus = resp.Consensus
	c.ID = resp.ComparisonID
	return c
}

// Providers lists the providers with a result, in roster order.
func (c *Comparison) Providers() []council.Provider {
	var out []council.Provider
	for _, p := range council.Providers() {
		if _, ok := c.Results[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Credibility returns the truth score of every provider with a result.
func (c *Comparison) Credibility() map[council.Provider]int {
	out := make(map[council.Provider]int, len(c.Results))
	for p, r := range c.Results {
		out[p] = r.Enforcement.Credibility()
	}
	return out
}

// ConsensusCompromised reports whether any score fell under the trust line.
func (c *Comparison) ConsensusCompromised() bool {
	if c == nil {
		return false
	}
	for _, score := range c.Credibility() {
		if score < council.CompromisedBelow {
			return true
		}
	}
	return false
}

// ApplyInterrogation amends one provider's entry with the verdict: the new
// score when present, any new violations and the verdict itself.
func (c *Comparison) ApplyInterrogation(p council.Provider, question string, res council.InterrogateResult, at time.Time) {
	r, ok := c.Results[p]
	if !ok {
		return
	}
	enf := council.Enforcement{}
	if r.Enforcement != nil {
		enf = *r.Enforcement
		enf.Violations = append([]string(nil), r.Enforcement.Violations...)
	}
	if res.NewCredibility != nil {
		score := *res.NewCredibility
		enf.CurrentCredibility = &score
		c.Stale = true
	}
	for _, v := range res.Violations {
		if !contains(enf.Violations, v) {
			enf.Violations = append(enf.Violations, v)
		}
	}
	r.Enforcement = &enf
	c.Results[p] = r
	c.Verdicts[p] = append(c.Verdicts[p], Verdict{Question: question, Result: res, At: at})
}

// ResynthesisRequest rebuilds the consensus payload from the successful
// answers and their current scores.
func (c *Comparison) ResynthesisRequest(councilMode bool) council.ResynthesizeRequest {
	req := council.ResynthesizeRequest{
		Question:    c.Question,
		Responses:   map[council.Provider]string{},
		Credibility: map[council.Provider]int{},
		CouncilMode: councilMode,
	}
	for p, r := range c.Results {
		if !r.Success {
			continue
		}
		req.Responses[p] = r.Response
		req.Credibility[p] = r.Enforcement.Credibility()
	}
	return req
}

// SetConsensus installs a recomputed consensus.
func (c *Comparison) SetConsensus(text string) {
	c.Consensus = text
	c.Stale = false
}

// InterrogateRequest challenges one provider's answer in this comparison.
func (c *Comparison) InterrogateRequest(p council.Provider, question, selected string) (council.InterrogateRequest, bool) {
	r, ok := c.Results[p]
	if !ok {
		return council.InterrogateRequest{}, false
	}
	return council.InterrogateRequest{
		Model:            p,
		Question:         question,
		PreviousResponse: r.Response,
		SelectedText:     selected,
	}, true
}

type SandbagLevel int

const (
	SandbagNone SandbagLevel = iota
	SandbagImbalance
	SandbagGeneric
)

func (l SandbagLevel) String() string {
	switch l {
	case SandbagImbalance:
		return "imbalance"
	case SandbagGeneric:
		return "generic"
	default:
		return "none"
	}
}

// Sandbag flags answers whose reasoning outweighs the delivered response.
// Only successful answers with both a thought trace and a response count.
func Sandbag(r council.ProviderResult) SandbagLevel {
	if !r.Success || r.Thought == "" || r.Response == "" {
		return SandbagNone
	}
	thought, resp := len(r.Thought), len(r.Response)
	if r.ExecutionBias == "narrative" || resp < 200 || thought > 3*resp {
		return SandbagGeneric
	}
	if float64(thought) > 1.6*float64(resp) {
		return SandbagImbalance
	}
	return SandbagNone
}

// BiasLabel renders the execution bias badge text.
func BiasLabel(bias string) string {
	switch bias {
	case "action-forward":
		return "🟢 Action-Forward"
	case "advisory":
		return "🟡 Advisory"
	case "narrative":
		return "🔴 Narrative / Caution"
	default:
		return ""
	}
}

var citationRe = regexp.MustCompile(`\[\d+\]|http`)

// LoadHistoryItem rebuilds a comparison from a stored history row. Rows for
// providers outside the roster are skipped.
func (s *State) LoadHistoryItem(item council.HistoryItem) *Comparison {
	c := &Comparison{
		Question:    item.Question,
		Results:     map[council.Provider]council.ProviderResult{},
		Verdicts:    map[council.Provider][]Verdict{},
		ID:          item.ID,
		FromHistory: true,
	}
	for _, row := range item.Responses {
		p, ok := council.ParseProvider(row.AIProvider)
		if !ok {
			continue
		}
		c.Results[p] = council.ProviderResult{
			Model:        row.ModelName,
			Time:         row.ResponseTime,
			Success:      row.Success,
			Response:     row.ResponseText,
			HasCitations: citationRe.MatchString(row.ResponseText),
		}
	}
	s.Question = item.Question
	s.querying = false
	s.comparison = c
	return c
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}
