// Package apierror maps generation failures onto the user-facing error taxonomy.
package apierror

import (
	"context"
	"errors"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/entrhq/pagechat/pkg/llm"
	"github.com/entrhq/pagechat/pkg/types"
)

// User-facing messages.
const (
	MsgMissingKey = "Missing or invalid API key"
	MsgRateLimit  = "Rate limited. Please retry shortly."
	MsgServer     = "Server error. Please retry."
	MsgTimeout    = "Request timed out."
	MsgNetwork    = "Network error"
)

// ClassifiedError is a failure reduced to a code and a message fit for display.
type ClassifiedError struct {
	Code    types.ErrorCode
	Message string
}

func (e ClassifiedError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Retryable reports whether the user should be offered a manual retry.
func (e ClassifiedError) Retryable() bool {
	return e.Code.Retryable()
}

// failure is the view of an error the rules match against. status is set when
// the error carries a structured HTTP status and takes precedence over text.
type failure struct {
	err    error
	text   string
	status int
	body   string
}

func describe(err error) failure {
	f := failure{err: err, text: err.Error()}

	var httpErr *llm.HTTPError
	if errors.As(err, &httpErr) {
		f.status = httpErr.StatusCode
		f.body = httpErr.Body
		return f
	}

	// Transport errors quote the request URL, whose model name and credential
	// may contain digits. Match on the underlying cause only.
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		f.text = urlErr.Err.Error()
	}
	return f
}

// statusOrText matches the structured status when present, the text otherwise.
func statusOrText(status func(int) bool, pattern *regexp.Regexp) func(failure) bool {
	return func(f failure) bool {
		if f.status != 0 {
			return status(f.status)
		}
		return pattern.MatchString(f.text)
	}
}

var (
	authPattern    = regexp.MustCompile(`401|403`)
	ratePattern    = regexp.MustCompile(`429`)
	serverPattern  = regexp.MustCompile(`5\d\d`)
	timeoutPattern = regexp.MustCompile(`(?i)timeout`)
)

// rule is one row of the classification table.
type rule struct {
	Name  string
	Match func(failure) bool
	Code  types.ErrorCode
	// Message is shown to the user. Empty means the original error text.
	Message string
}

// rules is evaluated top to bottom; the first match wins.
var rules = []rule{
	{
		Name: "auth",
		Match: statusOrText(func(s int) bool {
			return s == 401 || s == 403
		}, authPattern),
		Code:    types.CodeMissingKey,
		Message: MsgMissingKey,
	},
	{
		Name: "invalid-key",
		Match: func(f failure) bool {
			return f.status == 400 && (strings.Contains(f.body, "API key not valid") || strings.Contains(f.body, "API_KEY_INVALID"))
		},
		Code:    types.CodeMissingKey,
		Message: MsgMissingKey,
	},
	{
		Name: "rate-limit",
		Match: statusOrText(func(s int) bool {
			return s == 429
		}, ratePattern),
		Code:    types.CodeRateLimit,
		Message: MsgRateLimit,
	},
	{
		Name: "server",
		Match: statusOrText(func(s int) bool {
			return s >= 500 && s <= 599
		}, serverPattern),
		Code:    types.CodeServer,
		Message: MsgServer,
	},
	{
		Name:    "timeout",
		Match:   isTimeout,
		Code:    types.CodeTimeout,
		Message: MsgTimeout,
	},
}

func isTimeout(f failure) bool {
	if errors.Is(f.err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(f.err, &netErr) && netErr.Timeout() {
		return true
	}
	return timeoutPattern.MatchString(f.text)
}

// Classify maps err onto the taxonomy. Unmatched errors are NETWORK errors
// carrying their own message. A nil error classifies as NETWORK with the
// generic message.
func Classify(err error) ClassifiedError {
	if err == nil {
		return ClassifiedError{Code: types.CodeNetwork, Message: MsgNetwork}
	}

	var classified ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	f := describe(err)
	for _, r := range rules {
		if r.Match(f) {
			msg := r.Message
			if msg == "" {
				msg = err.Error()
			}
			return ClassifiedError{Code: r.Code, Message: msg}
		}
	}

	msg := err.Error()
	if msg == "" {
		msg = MsgNetwork
	}
	return ClassifiedError{Code: types.CodeNetwork, Message: msg}
}

// IsRetryable reports whether an automatic retry may help: rate limiting and
// 5xx responses only.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	f := describe(err)
	if f.status != 0 {
		return f.status == 429 || (f.status >= 500 && f.status <= 599)
	}
	return ratePattern.MatchString(f.text) || serverPattern.MatchString(f.text)
}
