package council

import (
	"encoding/json"
	"strconv"
)

// ID is an opaque server identifier. The backend emits either numbers or
// strings; both decode to the same textual form and numbers re-encode as
// numbers.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Enforcement is the server's adherence report for one answer.
type Enforcement struct {
	Status             string   `json:"status,omitempty"`
	CurrentCredibility *float64 `json:"current_credibility,omitempty"`
	Violations         []string `json:"violations,omitempty"`
	Warnings           []string `json:"warnings,omitempty"`
}

// Credibility returns the truth score, defaulting to DefaultCredibility.
func (e *Enforcement) Credibility() int {
	if e == nil || e.CurrentCredibility == nil {
		return DefaultCredibility
	}
	return int(*e.CurrentCredibility + 0.5)
}

func (e *Enforcement) Passed() bool {
	return e != nil && e.Status == "PASSED"
}

type ProviderResult struct {
	Model         string       `json:"model"`
	Time          float64      `json:"time"`
	Cost          float64      `json:"cost"`
	Success       bool         `json:"success"`
	Response      string       `json:"response"`
	Thought       string       `json:"thought,omitempty"`
	HasCitations  bool         `json:"has_citations"`
	ExecutionBias string       `json:"execution_bias,omitempty"`
	Role          string       `json:"role,omitempty"`
	Enforcement   *Enforcement `json:"enforcement,omitempty"`
}

// Attachment is a file sent with a multipart ask.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type AskRequest struct {
	Question        string                      `json:"question" validate:"required"`
	UseVault        bool                        `json:"use_vault"`
	PodcastMode     bool                        `json:"podcast_mode"`
	CouncilMode     bool                        `json:"council_mode"`
	HardMode        bool                        `json:"hard_mode"`
	ActiveModels    []Provider                  `json:"active_models" validate:"required,min=1,dive,oneof=openai anthropic google perplexity"`
	ForcedVisualize bool                        `json:"forced_visualize"`
	ProjectName     string                      `json:"project_name,omitempty"`
	CouncilRoles    map[Provider]RoleAssignment `json:"council_roles,omitempty"`
	Files           []Attachment                `json:"-"`
}

type AskResponse struct {
	Results      map[Provider]ProviderResult `json:"results"`
	Consensus    string                      `json:"consensus"`
	ComparisonID ID                          `json:"comparison_id"`
}

type InterrogateRequest struct {
	Model            Provider `json:"model" validate:"required"`
	Question         string   `json:"question" validate:"required"`
	PreviousResponse string   `json:"previous_response"`
	SelectedText     string   `json:"selected_text,omitempty"`
	ProjectContext   string   `json:"project_context,omitempty"`
}

type InterrogateResult struct {
	Success           bool     `json:"success"`
	Response          string   `json:"response"`
	Defense           string   `json:"defense"`
	Outcome           string   `json:"outcome"`
	Classification    string   `json:"classification"`
	NewCredibility    *float64 `json:"new_credibility,omitempty"`
	CredibilityChange float64  `json:"credibility_change"`
	Violations        []string `json:"violations"`
}

// Testimony is the defense text, falling back to the plain response.
func (r InterrogateResult) Testimony() string {
	if r.Defense != "" {
		return r.Defense
	}
	return r.Response
}

func (r InterrogateResult) Defended() bool { return r.Outcome == "DEFENDED" }

type VisualizeRequest struct {
	ComparisonID  ID       `json:"comparison_id" validate:"required"`
	Provider      Provider `json:"provider" validate:"required,oneof=openai anthropic google perplexity"`
	SelectedText  string   `json:"selected_text,omitempty"`
	VisualProfile string   `json:"visual_profile,omitempty"`
}

type VisualizeResult struct {
	ChartURL string `json:"chart_url"`
}

type ResynthesizeRequest struct {
	Question    string              `json:"question" validate:"required"`
	Responses   map[Provider]string `json:"responses" validate:"required,min=1"`
	Credibility map[Provider]int    `json:"credibility"`
	CouncilMode bool                `json:"council_mode"`
}

type ResynthesizeResult struct {
	Success   bool   `json:"success"`
	Consensus string `json:"consensus"`
}

type RoleRecommendation struct {
	GPTRole        string  `json:"gpt_role"`
	ClaudeRole     string  `json:"claude_role"`
	GeminiRole     string  `json:"gemini_role"`
	PerplexityRole string  `json:"perplexity_role"`
	AvgRating      float64 `json:"avg_rating"`
}

// Roles maps the recommendation onto provider seats.
func (r RoleRecommendation) Roles() map[Provider]string {
	return map[Provider]string{
		OpenAI:     r.GPTRole,
		Anthropic:  r.ClaudeRole,
		Google:     r.GeminiRole,
		Perplexity: r.PerplexityRole,
	}
}

type RecommendRolesResult struct {
	Exists         bool               `json:"exists"`
	Category       string             `json:"category"`
	Recommendation RoleRecommendation `json:"recommendation"`
}

type RunWorkflowRequest struct {
	Question   string `json:"question" validate:"required"`
	WorkflowID string `json:"workflow_id" validate:"required"`
	HardMode   bool   `json:"hard_mode"`
}

type StepData struct {
	Response    string       `json:"response"`
	Success     bool         `json:"success"`
	Enforcement *Enforcement `json:"enforcement,omitempty"`
}

type StepResult struct {
	Step  int      `json:"step"`
	Key   string   `json:"key"`
	Role  string   `json:"role"`
	Model string   `json:"model"`
	Data  StepData `json:"data"`
}

type WorkflowStatus struct {
	Status  string       `json:"status"`
	Results []StepResult `json:"results"`
	Error   string       `json:"error,omitempty"`
}

type WorkflowStep struct {
	ID          int    `json:"id"`
	Key         string `json:"key"`
	Role        string `json:"role"`
	Model       string `json:"model"`
	Instruction string `json:"instruction"`
}

type WorkflowTemplate struct {
	ID    string         `json:"-"`
	Name  string         `json:"name"`
	Steps []WorkflowStep `json:"steps"`
}

// Step finds a template step by id.
func (t WorkflowTemplate) Step(id int) (WorkflowStep, bool) {
	for _, s := range t.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return WorkflowStep{}, false
}

type HistoryResponse struct {
	AIProvider   string  `json:"ai_provider"`
	ModelName    string  `json:"model_name"`
	ResponseText string  `json:"response_text"`
	ResponseTime float64 `json:"response_time"`
	Success      bool    `json:"success"`
}

type HistoryItem struct {
	ID        ID                `json:"id"`
	Question  string            `json:"question"`
	Timestamp string            `json:"timestamp"`
	Responses []HistoryResponse `json:"responses"`
}

type Feedback struct {
	ComparisonID      ID     `json:"comparison_id" validate:"required"`
	Rating            int    `json:"rating" validate:"min=1,max=4"`
	FeedbackText      string `json:"feedback_text"`
	TooGeneric        bool   `json:"too_generic"`
	Hallucinated      bool   `json:"hallucinated"`
	MandateFail       bool   `json:"mandate_fail"`
	CushioningPresent bool   `json:"cushioning_present"`
	VisualMismatch    bool   `json:"visual_mismatch"`
	MissingDetails    bool   `json:"missing_details"`
	WrongRoles        bool   `json:"wrong_roles"`
	DidntAnswer       bool   `json:"didnt_answer"`
	GPTRole           string `json:"gpt_role,omitempty"`
	ClaudeRole        string `json:"claude_role,omitempty"`
	GeminiRole        string `json:"gemini_role,omitempty"`
	PerplexityRole    string `json:"perplexity_role,omitempty"`
	QueryText         string `json:"query_text"`
}

type ResponseRating struct {
	ComparisonID ID       `json:"comparison_id" validate:"required"`
	AIProvider   Provider `json:"ai_provider" validate:"required,oneof=openai anthropic google perplexity"`
	Rating       int      `json:"rating" validate:"oneof=-1 1"`
}

type ObsidianNote struct {
	Filename string `json:"filename" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

type successResult struct {
	Success     bool   `json:"success"`
	ProjectName string `json:"project_name,omitempty"`
	Path        string `json:"path,omitempty"`
}
