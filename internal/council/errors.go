package council

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// APIError is returned for non-2xx responses and for 2xx responses whose
// body carries an error field. Application is set when the server supplied
// a message, which marks the failure as a decision rather than a fault.
type APIError struct {
	Status       int
	Message      string
	BodySnippet  string
	RetryAfterMs int64
	Application  bool
}

func (e *APIError) Error() string {
	if e == nil {
		return "council error"
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("council http %d: %s", e.Status, e.BodySnippet)
}

// ValidationError reports a request rejected before any network I/O.
type ValidationError struct {
	Fields []string
	err    error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid request: " + e.err.Error()
	}
	return "invalid request: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error { return e.err }

func newValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{err: err}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return &ValidationError{Fields: fields, err: err}
}

// IsApplication reports whether err is a server-side refusal carrying its
// own message.
func IsApplication(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Application
}

func retryAfterMs(resp *http.Response) int64 {
	if resp == nil {
		return 0
	}
	ra := strings.TrimSpace(resp.Header.Get("retry-after"))
	if ra == "" {
		return 0
	}
	if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
		return int64(secs) * 1000
	}
	if ts, err := http.ParseTime(ra); err == nil {
		ms := time.Until(ts).Milliseconds()
		if ms < 0 {
			ms = 0
		}
		return ms
	}
	return 0
}
