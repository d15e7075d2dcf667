package types

// ErrorCode is the user-facing error taxonomy.
type ErrorCode string

const (
	CodeMissingKey ErrorCode = "MISSING_KEY" // CodeMissingKey indicates absent or rejected credentials.
	CodeRateLimit  ErrorCode = "RATE_LIMIT"  // CodeRateLimit indicates the backend throttled the request.
	CodeServer     ErrorCode = "SERVER"      // CodeServer indicates a 5xx backend failure.
	CodeTimeout    ErrorCode = "TIMEOUT"     // CodeTimeout indicates the request ran out of time.
	CodeNetwork    ErrorCode = "NETWORK"     // CodeNetwork is the catch-all for everything else.

	// CodeCanceled is reported when a request was superseded or stopped by
	// the host. The classifier never produces it.
	CodeCanceled ErrorCode = "CANCELED"
)

// Retryable reports whether a manual retry of the same question makes sense.
func (c ErrorCode) Retryable() bool {
	switch c {
	case CodeRateLimit, CodeServer, CodeTimeout, CodeNetwork:
		return true
	}
	return false
}

// AskResponse is the settled outcome of one AskRequest. Exactly one of OK or
// Error is set.
type AskResponse struct {
	OK       bool   `json:"ok,omitempty"`
	Text     string `json:"text,omitempty"`
	Streamed bool   `json:"streamed,omitempty"`

	Error string    `json:"error,omitempty"`
	Code  ErrorCode `json:"code,omitempty"`

	// Superseded is set when a newer request for the same tab replaced this one.
	Superseded bool `json:"superseded,omitempty"`

	// Turns holds the user and model turns the caller should append to its
	// history. Only set on success.
	Turns []Turn `json:"turns,omitempty"`
}

// NewSuccessResponse builds a successful response for question/answer.
func NewSuccessResponse(question, text string, streamed bool) AskResponse {
	return AskResponse{
		OK:       true,
		Text:     text,
		Streamed: streamed,
		Turns:    []Turn{NewUserTurn(question), NewModelTurn(text)},
	}
}

// NewErrorResponse builds an error response.
func NewErrorResponse(code ErrorCode, message string) AskResponse {
	return AskResponse{Error: message, Code: code}
}
