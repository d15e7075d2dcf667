// Package orchestrator runs one question at a time per tab: it composes
// page context, builds the prompt and calls the model backend with retries,
// cancellation and a streaming to batch fallback.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/entrhq/pagechat/pkg/apierror"
	"github.com/entrhq/pagechat/pkg/composer"
	"github.com/entrhq/pagechat/pkg/llm"
	"github.com/entrhq/pagechat/pkg/llm/tokenizer"
	"github.com/entrhq/pagechat/pkg/logging"
	"github.com/entrhq/pagechat/pkg/prompts"
	"github.com/entrhq/pagechat/pkg/retry"
	"github.com/entrhq/pagechat/pkg/types"
)

// Cancellation causes.
var (
	// ErrReplaced cancels a request when a newer one arrives for the same tab.
	ErrReplaced = errors.New("request replaced by a newer one")

	// ErrTimeout cancels a request when its timeout fires.
	ErrTimeout = errors.New("request timeout")

	// ErrCanceled cancels a request on behalf of the host.
	ErrCanceled = errors.New("request canceled")
)

// User-facing messages produced here rather than by the classifier.
const (
	MsgMissingKey = "Missing API key. Set it in the settings."
	MsgSuperseded = "Request superseded by a newer question."
	MsgCanceled   = "Request canceled."
)

// SettingsSource returns the current settings. It is read on every request.
type SettingsSource interface {
	Settings(ctx context.Context) (types.Settings, error)
}

// SettingsFunc adapts a function to SettingsSource.
type SettingsFunc func(ctx context.Context) (types.Settings, error)

// Settings calls f.
func (f SettingsFunc) Settings(ctx context.Context) (types.Settings, error) {
	return f(ctx)
}

// StaticSettings serves fixed settings.
func StaticSettings(s types.Settings) SettingsSource {
	return SettingsFunc(func(context.Context) (types.Settings, error) { return s, nil })
}

// SnapshotProvider returns the current snapshot of a tab.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, tabID string) (*types.PageSnapshot, error)
}

// Orchestrator owns the in-flight registry. One instance serves a whole host
// process; different tabs run concurrently, one tab runs one request at a time.
type Orchestrator struct {
	provider  llm.Provider
	factory   ProviderFactory
	settings  SettingsSource
	snapshots SnapshotProvider
	composer  atomic.Pointer[composer.Composer]
	tokenizer *tokenizer.Tokenizer
	logger    *logging.Logger

	timeout        time.Duration
	retries        int
	initialBackoff time.Duration

	registry *registry
}

// New creates an orchestrator. snapshots may be nil, in which case no page
// context is ever sent.
func New(provider llm.Provider, settings SettingsSource, snapshots SnapshotProvider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:       provider,
		settings:       settings,
		snapshots:      snapshots,
		logger:         logging.Discard("orchestrator"),
		timeout:        DefaultTimeout,
		retries:        retry.DefaultRetries,
		initialBackoff: retry.DefaultInitialDelay,
		registry:       newRegistry(),
	}
	o.composer.Store(composer.New())

	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetComposer swaps the composer used by subsequent requests.
func (o *Orchestrator) SetComposer(c *composer.Composer) {
	if c != nil {
		o.composer.Store(c)
	}
}

// InFlight reports whether tabID has a request in flight.
func (o *Orchestrator) InFlight(tabID string) bool {
	return o.registry.has(tabID)
}

// Len returns the number of requests in flight.
func (o *Orchestrator) Len() int {
	return o.registry.len()
}

// Cancel stops the request in flight for tabID. It reports whether there was
// one. Once Cancel returns no further delta of that request is delivered.
func (o *Orchestrator) Cancel(tabID string) bool {
	if o.registry.cancel(tabID, ErrCanceled) {
		o.logger.Infof("tab %s: canceled by host", tabID)
		return true
	}
	return false
}

// Shutdown cancels every request in flight.
func (o *Orchestrator) Shutdown() {
	o.registry.cancelAll(ErrCanceled)
}

// Ask answers one question and blocks until the request settles. onDelta,
// which may be nil, receives streamed text increments in order before Ask
// returns. onDelta must not call Cancel or Ask for the same tab.
//
// Ask never fails: every outcome is reported in the response.
func (o *Orchestrator) Ask(ctx context.Context, req types.AskRequest, onDelta func(types.StreamDelta)) types.AskResponse {
	settings, err := o.settings.Settings(ctx)
	if err != nil {
		o.logger.Errorf("tab %s: failed to read settings: %v", req.TabID, err)
		c := apierror.Classify(fmt.Errorf("failed to read settings: %w", err))
		return types.NewErrorResponse(c.Code, c.Message)
	}
	if settings.APIKey == "" {
		o.logger.Warnf("tab %s: no API key configured", req.TabID)
		return types.NewErrorResponse(types.CodeMissingKey, MsgMissingKey)
	}

	provider, err := o.selectProvider(settings)
	if err != nil {
		o.logger.Errorf("tab %s: %v", req.TabID, err)
		return types.NewErrorResponse(types.CodeNetwork, err.Error())
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	e := o.registry.register(req.TabID, cancel)
	defer o.registry.unregister(req.TabID, e)

	timer := time.AfterFunc(o.timeout, func() { e.stop(ErrTimeout) })
	defer timer.Stop()

	o.logger.Infof("tab %s: ask stream_id=%s provider=%s include_page=%t", req.TabID, req.StreamID, provider.Name(), req.IncludePage)

	llmReq := &llm.Request{
		APIKey:   settings.APIKey,
		Model:    settings.ModelOrDefault(),
		Contents: prompts.BuildContents(req.History, req.Question, o.pageContext(reqCtx, req)),
	}
	if o.tokenizer != nil {
		o.logger.Debugf("tab %s: prompt ~%d tokens", req.TabID, o.tokenizer.CountContentsTokens(llmReq.Contents))
	}

	var (
		text     string
		streamed bool
	)
	if settings.EnableStreaming && req.StreamingAllowed {
		text, streamed, err = o.streamWithFallback(reqCtx, provider, llmReq, e, req, onDelta)
	} else {
		text, err = retry.WithBackoff(reqCtx, func(ctx context.Context) (string, error) {
			return provider.Generate(ctx, llmReq)
		}, o.retryOptions(req.TabID, "generate"))
	}

	if stopped := e.close(); stopped || reqCtx.Err() != nil || err != nil {
		return o.failure(reqCtx, req.TabID, err)
	}

	o.logger.Infof("tab %s: settled ok streamed=%t chars=%d", req.TabID, streamed, len(text))
	return types.NewSuccessResponse(req.Question, text, streamed)
}

func (o *Orchestrator) selectProvider(settings types.Settings) (llm.Provider, error) {
	if o.factory != nil {
		p, err := o.factory(settings)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider: %w", err)
		}
		return p, nil
	}
	if o.provider == nil {
		return nil, fmt.Errorf("no provider configured")
	}
	return o.provider, nil
}

// pageContext composes the context block. Snapshot failures mean no context.
func (o *Orchestrator) pageContext(ctx context.Context, req types.AskRequest) string {
	if o.snapshots == nil {
		return ""
	}
	snap, err := o.snapshots.Snapshot(ctx, req.TabID)
	if err != nil {
		o.logger.Warnf("tab %s: snapshot unavailable: %v", req.TabID, err)
		return ""
	}
	return o.composer.Load().Compose(snap, req.IncludePage)
}

// streamWithFallback streams with retries and, when that fails, makes one
// batch attempt. Retries stop as soon as any delta reached the caller.
func (o *Orchestrator) streamWithFallback(ctx context.Context, provider llm.Provider, llmReq *llm.Request, e *entry, req types.AskRequest, onDelta func(types.StreamDelta)) (string, bool, error) {
	forwarded := false
	forward := func(text string) {
		e.deliver(func() {
			forwarded = true
			if onDelta != nil {
				onDelta(types.StreamDelta{StreamID: req.StreamID, Text: text})
			}
		})
	}

	text, err := retry.WithBackoff(ctx, func(ctx context.Context) (string, error) {
		chunks, err := provider.Stream(ctx, llmReq)
		if err != nil {
			return "", err
		}
		text, err := llm.DecodeDeltas(ctx, chunks, forward)
		if err == nil && ctx.Err() != nil {
			err = context.Cause(ctx)
		}
		if err != nil && forwarded {
			return text, retry.Permanent(err)
		}
		return text, err
	}, o.retryOptions(req.TabID, "stream"))
	if err == nil {
		return text, true, nil
	}

	if ctx.Err() != nil {
		return "", false, err
	}

	o.logger.Warnf("tab %s: stream failed, falling back to batch: %v", req.TabID, err)
	text, err = provider.Generate(ctx, llmReq)
	if err != nil {
		return "", false, err
	}
	return text, false, nil
}

func (o *Orchestrator) retryOptions(tabID, mode string) retry.Options {
	return retry.Options{
		Retries:      o.retries,
		InitialDelay: o.initialBackoff,
		IsRetryable:  apierror.IsRetryable,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			o.logger.Warnf("tab %s: %s attempt failed, retry %d in %s: %v", tabID, mode, attempt, delay, err)
		},
	}
}

// failure builds the error response. A cancellation cause takes precedence
// over the error the backend call returned.
func (o *Orchestrator) failure(ctx context.Context, tabID string, err error) types.AskResponse {
	cause := context.Cause(ctx)

	switch {
	case errors.Is(cause, ErrReplaced):
		o.logger.Infof("tab %s: superseded", tabID)
		resp := types.NewErrorResponse(types.CodeCanceled, MsgSuperseded)
		resp.Superseded = true
		return resp
	case errors.Is(cause, ErrCanceled), errors.Is(cause, context.Canceled):
		return types.NewErrorResponse(types.CodeCanceled, MsgCanceled)
	case errors.Is(cause, ErrTimeout):
		o.logger.Warnf("tab %s: timed out after %s", tabID, o.timeout)
		return types.NewErrorResponse(types.CodeTimeout, apierror.MsgTimeout)
	}

	target := err
	if cause != nil {
		target = cause
	}
	c := apierror.Classify(target)
	o.logger.Errorf("tab %s: settled with %s: %v", tabID, c.Code, err)
	return types.NewErrorResponse(c.Code, c.Message)
}
