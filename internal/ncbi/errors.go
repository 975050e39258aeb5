package ncbi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Jeffail/gabs"
)

var (
	// ErrUpstreamLookup indicates the Variation Services call did not succeed.
	ErrUpstreamLookup = errors.New("ncbi: upstream lookup failed")

	// ErrMalformedResponse indicates the response did not have the expected shape.
	ErrMalformedResponse = errors.New("ncbi: malformed response")
)

// UpstreamError describes a failed HTTP call to the Variation Services API.
// StatusCode is zero when no response was received.
type UpstreamError struct {
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("ncbi: GET %s: HTTP %d: %s", e.URL, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("ncbi: GET %s: HTTP %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("ncbi: GET %s: %v", e.URL, e.Err)
	}
}

// Unwrap exposes both ErrUpstreamLookup and the underlying transport error.
func (e *UpstreamError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUpstreamLookup, e.Err}
	}
	return []error{ErrUpstreamLookup}
}

// Retryable reports whether repeating the call may succeed: transport
// failures, timeouts, 408, 429 and 5xx responses.
func (e *UpstreamError) Retryable() bool {
	if e.StatusCode == 0 {
		return !errors.Is(e.Err, context.Canceled)
	}
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

// errorMessage extracts the API's error.message from a response body,
// falling back to the (truncated) raw body.
func errorMessage(body []byte) string {
	if parsed, err := gabs.ParseJSON(body); err == nil {
		if msg, ok := parsed.Path("error.message").Data().(string); ok {
			return msg
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
