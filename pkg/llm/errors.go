package llm

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of an error response body is kept.
const maxErrorBody = 4 << 10

// HTTPError is returned when the backend answers with a non-success status.
// Its message embeds the status code, status text and the response body so
// text-based classification keeps working on wrapped errors.
type HTTPError struct {
	Provider   string
	Streaming  bool
	StatusCode int
	StatusText string
	Body       string
}

func (e *HTTPError) Error() string {
	kind := "error"
	if e.Streaming {
		kind = "streaming error"
	}
	return fmt.Sprintf("%s %s: %d %s\n%s", e.Provider, kind, e.StatusCode, e.StatusText, e.Body)
}

// NewHTTPError builds an HTTPError from resp and closes its body. Reading the
// body is best-effort.
func NewHTTPError(provider string, streaming bool, resp *http.Response) *HTTPError {
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPError{
		Provider:   provider,
		Streaming:  streaming,
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp),
		Body:       string(body),
	}
}

// statusText extracts the reason phrase from resp.Status ("503 Service Unavailable").
func statusText(resp *http.Response) string {
	code := fmt.Sprintf("%d", resp.StatusCode)
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
