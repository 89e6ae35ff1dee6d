// Package council is the HTTP client for the council backend. Request and
// response shapes are a fixed contract; this package only validates,
// transports and decodes them.
package council

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/jcccaz/TRIAI/internal/logging"
)

const (
	defaultBaseURL   = "http://127.0.0.1:5000"
	defaultTimeout   = 180 * time.Second
	maxResponseBytes = 32 << 20
	errorSnippetSize = 4096
)

type Options struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond limits outgoing calls. Zero means unlimited.
	RequestsPerSecond float64
	// WorkflowCacheTTL bounds how long the template listing is reused.
	WorkflowCacheTTL time.Duration
	HTTPClient       *http.Client
	Logger           *logging.Logger
}

type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	validate  *validator.Validate
	templates *templateCache
	log       *logging.Logger
}

func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		}
	}
	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = max(1, int(opts.RequestsPerSecond))
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Client{
		baseURL:   base,
		http:      hc,
		limiter:   rate.NewLimiter(limit, burst),
		validate:  validator.New(),
		templates: newTemplateCache(opts.WorkflowCacheTTL),
		log:       log,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) check(req any) error {
	if err := c.validate.Struct(req); err != nil {
		return newValidationError(err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(b), "application/json", out)
}

// do issues one request and decodes a JSON body into out. A body carrying
// a non-empty "error" field is an APIError even on 200.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "TriAI-Terminal/1.0")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("council", "request failed", map[string]any{"method": method, "path": path, "error": err.Error()})
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	c.log.Debug("council", "request done", map[string]any{
		"method":     method,
		"path":       path,
		"status":     resp.StatusCode,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	var envelope struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(raw, &envelope)
	msg := strings.TrimSpace(envelope.Error)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := raw
		if len(snippet) > errorSnippetSize {
			snippet = snippet[:errorSnippetSize]
		}
		return &APIError{
			Status:       resp.StatusCode,
			Message:      msg,
			BodySnippet:  strings.TrimSpace(string(snippet)),
			RetryAfterMs: retryAfterMs(resp),
			Application:  msg != "",
		}
	}
	if msg != "" {
		return &APIError{Status: resp.StatusCode, Message: msg, Application: true}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}
