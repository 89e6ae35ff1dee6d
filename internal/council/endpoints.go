package council

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Ask submits the question to the active providers. Requests with files
// are sent as multipart form data.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out AskResponse
	if len(req.Files) == 0 {
		if err := c.postJSON(ctx, "/api/ask", req, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
	body, contentType, err := askMultipart(req)
	if err != nil {
		return nil, err
	}
	if err := c.do(ctx, http.MethodPost, "/api/ask", body, contentType, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func askMultipart(req AskRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	models, err := json.Marshal(req.ActiveModels)
	if err != nil {
		return nil, "", err
	}
	fields := [][2]string{
		{"question", req.Question},
		{"use_vault", strconv.FormatBool(req.UseVault)},
		{"podcast_mode", strconv.FormatBool(req.PodcastMode)},
		{"council_mode", strconv.FormatBool(req.CouncilMode)},
		{"hard_mode", strconv.FormatBool(req.HardMode)},
		{"active_models", string(models)},
	}
	if req.ProjectName != "" {
		fields = append(fields, [2]string{"project_name", req.ProjectName})
	}
	if len(req.CouncilRoles) > 0 {
		roles, err := json.Marshal(req.CouncilRoles)
		if err != nil {
			return nil, "", err
		}
		fields = append(fields, [2]string{"council_roles", string(roles)})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	for _, a := range req.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, a.Name))
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(a.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Interrogate challenges one provider's answer. A refusal (success false)
// is returned as an application APIError alongside the decoded result.
func (c *Client) Interrogate(ctx context.Context, req InterrogateRequest) (*InterrogateResult, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out InterrogateResult
	if err := c.postJSON(ctx, "/interrogate", req, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return &out, &APIError{Status: http.StatusOK, Message: "interrogation refused: " + nonEmpty(out.Response, "Unknown Reason"), Application: true}
	}
	return &out, nil
}

func (c *Client) Visualize(ctx context.Context, req VisualizeRequest) (string, error) {
	if req.VisualProfile == "" {
		req.VisualProfile = "realistic"
	}
	if err := c.check(req); err != nil {
		return "", err
	}
	var out VisualizeResult
	if err := c.postJSON(ctx, "/visualize", req, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.ChartURL) == "" {
		return "", &APIError{Status: http.StatusOK, Message: "no chart returned", Application: true}
	}
	return out.ChartURL, nil
}

func (c *Client) Resynthesize(ctx context.Context, req ResynthesizeRequest) (string, error) {
	if err := c.check(req); err != nil {
		return "", err
	}
	var out ResynthesizeResult
	if err := c.postJSON(ctx, "/api/resynthesize", req, &out); err != nil {
		return "", err
	}
	if !out.Success {
		return "", &APIError{Status: http.StatusOK, Message: "resynthesis failed", Application: true}
	}
	return out.Consensus, nil
}

type recommendRolesRequest struct {
	Question string `json:"question" validate:"min=10"`
}

// RecommendRoles asks for a role assignment. Questions shorter than ten
// characters are rejected locally.
func (c *Client) RecommendRoles(ctx context.Context, question string) (*RecommendRolesResult, error) {
	req := recommendRolesRequest{Question: strings.TrimSpace(question)}
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out RecommendRolesResult
	if err := c.postJSON(ctx, "/api/recommend_roles", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type runWorkflowResult struct {
	JobID ID `json:"job_id"`
}

func (c *Client) RunWorkflow(ctx context.Context, req RunWorkflowRequest) (ID, error) {
	if err := c.check(req); err != nil {
		return "", err
	}
	var out runWorkflowResult
	if err := c.postJSON(ctx, "/api/workflow/run", req, &out); err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", errors.New("workflow start returned no job id")
	}
	return out.JobID, nil
}

func (c *Client) WorkflowStatus(ctx context.Context, jobID ID) (*WorkflowStatus, error) {
	if jobID == "" {
		return nil, &ValidationError{Fields: []string{"JobID failed required"}, err: errors.New("empty job id")}
	}
	var out WorkflowStatus
	if err := c.do(ctx, http.MethodGet, "/api/workflow/status/"+url.PathEscape(jobID.String()), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Workflows returns the template listing keyed by workflow id. The listing
// is cached; InvalidateWorkflows forces the next call to refetch.
func (c *Client) Workflows(ctx context.Context) (map[string]WorkflowTemplate, error) {
	if m, ok := c.templates.get(); ok {
		return m, nil
	}
	var raw map[string]WorkflowTemplate
	if err := c.do(ctx, http.MethodGet, "/api/workflows", nil, "", &raw); err != nil {
		return nil, err
	}
	out := make(map[string]WorkflowTemplate, len(raw))
	for id, t := range raw {
		t.ID = id
		out[id] = t
	}
	c.templates.set(out)
	return out, nil
}

func (c *Client) Workflow(ctx context.Context, id string) (WorkflowTemplate, error) {
	all, err := c.Workflows(ctx)
	if err != nil {
		return WorkflowTemplate{}, err
	}
	t, ok := all[id]
	if !ok {
		return WorkflowTemplate{}, fmt.Errorf("unknown workflow %q", id)
	}
	return t, nil
}

func (c *Client) InvalidateWorkflows() { c.templates.invalidate() }

// SortedWorkflows orders templates by name, then id.
func SortedWorkflows(m map[string]WorkflowTemplate) []WorkflowTemplate {
	out := make([]WorkflowTemplate, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (c *Client) History(ctx context.Context, limit int) ([]HistoryItem, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []HistoryItem
	if err := c.do(ctx, http.MethodGet, "/api/history?limit="+strconv.Itoa(limit), nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteHistory(ctx context.Context, id ID) error {
	if id == "" {
		return &ValidationError{Fields: []string{"ID failed required"}, err: errors.New("empty history id")}
	}
	var out successResult
	if err := c.do(ctx, http.MethodDelete, "/api/history/"+url.PathEscape(id.String()), nil, "", &out); err != nil {
		return err
	}
	if !out.Success {
		return &APIError{Status: http.StatusOK, Message: "delete failed", Application: true}
	}
	return nil
}

func (c *Client) Projects(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

type createProjectRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateProject returns the name as stored by the server.
func (c *Client) CreateProject(ctx context.Context, name string) (string, error) {
	req := createProjectRequest{Name: strings.TrimSpace(name)}
	if err := c.check(req); err != nil {
		return "", err
	}
	var out successResult
	if err := c.postJSON(ctx, "/api/projects", req, &out); err != nil {
		return "", err
	}
	if !out.Success {
		return "", &APIError{Status: http.StatusOK, Message: "project not created", Application: true}
	}
	return nonEmpty(out.ProjectName, req.Name), nil
}

func (c *Client) DeleteProject(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Fields: []string{"Name failed required"}, err: errors.New("empty project name")}
	}
	return c.do(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(name), nil, "", nil)
}

func (c *Client) SubmitFeedback(ctx context.Context, fb Feedback) error {
	if err := c.check(fb); err != nil {
		return err
	}
	return c.postJSON(ctx, "/api/feedback", fb, nil)
}

func (c *Client) SubmitResponseRating(ctx context.Context, r ResponseRating) error {
	if err := c.check(r); err != nil {
		return err
	}
	return c.postJSON(ctx, "/api/feedback/response", r, nil)
}

// SaveToObsidian stores a note in the server-side vault and returns the
// path reported by the server, if any.
func (c *Client) SaveToObsidian(ctx context.Context, note ObsidianNote) (string, error) {
	if err := c.check(note); err != nil {
		return "", err
	}
	var out successResult
	if err := c.postJSON(ctx, "/api/save_to_obsidian", note, &out); err != nil {
		return "", err
	}
	if !out.Success {
		return "", &APIError{Status: http.StatusOK, Message: "obsidian save failed", Application: true}
	}
	return out.Path, nil
}

func nonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
