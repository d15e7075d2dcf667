// Package gemini implements llm.Provider for the Google Generative Language API.
//
// Example usage:
//
//	provider := gemini.NewProvider(gemini.WithRateLimit(rate.Every(time.Second), 2))
//
//	text, err := provider.Generate(ctx, &llm.Request{
//	    APIKey:   apiKey,
//	    Model:    "gemini-2.5-flash-lite",
//	    Contents: contents,
//	})
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/entrhq/pagechat/pkg/llm"
	"github.com/entrhq/pagechat/pkg/llm/sse"
	"github.com/entrhq/pagechat/pkg/logging"
	"github.com/entrhq/pagechat/pkg/types"
)

const (
	// DefaultBaseURL is the public Generative Language API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// ProviderName prefixes error messages and log lines.
	ProviderName = "gemini"
)

// Provider talks to generateContent and streamGenerateContent.
type Provider struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *logging.Logger
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithBaseURL points the provider at a different host, e.g. a proxy or a test server.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		if baseURL != "" {
			p.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client. Timeouts belong on the request
// context, so the client should not set its own.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// WithRateLimit throttles outgoing requests client-side.
func WithRateLimit(limit rate.Limit, burst int) ProviderOption {
	return func(p *Provider) {
		p.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = l
	}
}

// NewProvider creates a Gemini provider.
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.Discard(ProviderName)
	}
	return p
}

// Name returns "gemini".
func (p *Provider) Name() string {
	return ProviderName
}

// BaseURL returns the configured endpoint host.
func (p *Provider) BaseURL() string {
	return p.baseURL
}

type generateRequest struct {
	Contents         []types.Content      `json:"contents"`
	GenerationConfig llm.GenerationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// text concatenates the parts of the first candidate.
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

// Generate issues one generateContent call.
func (p *Provider) Generate(ctx context.Context, req *llm.Request) (string, error) {
	resp, err := p.send(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode %s response: %w", ProviderName, err)
	}
	return out.text(), nil
}

// Stream issues one streamGenerateContent call with SSE framing.
func (p *Provider) Stream(ctx context.Context, req *llm.Request) (<-chan *llm.StreamChunk, error) {
	resp, err := p.send(ctx, req, true)
	if err != nil {
		return nil, err
	}

	chunks := make(chan *llm.StreamChunk, 10)
	go p.processStreamResponse(ctx, resp, chunks)
	return chunks, nil
}

// send builds and issues the HTTP request. Non-2xx responses become *llm.HTTPError.
func (p *Provider) send(ctx context.Context, req *llm.Request, streaming bool) (*http.Response, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	body, err := json.Marshal(generateRequest{
		Contents:         req.Contents,
		GenerationConfig: req.GenerationConfig(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(req, streaming), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if streaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", redactKey(err, req.APIKey))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := llm.NewHTTPError(ProviderName, streaming, resp)
		p.logger.Warnf("model=%s streaming=%t status=%d", req.ModelOrDefault(), streaming, httpErr.StatusCode)
		return nil, httpErr
	}
	return resp, nil
}

// endpoint returns the operation URL. The API key travels as a query credential.
func (p *Provider) endpoint(req *llm.Request, streaming bool) string {
	op := "generateContent"
	q := url.Values{}
	if streaming {
		op = "streamGenerateContent"
		q.Set("alt", "sse")
	}
	q.Set("key", req.APIKey)
	return fmt.Sprintf("%s/v1beta/models/%s:%s?%s", p.baseURL, url.PathEscape(req.ModelOrDefault()), op, q.Encode())
}

// processStreamResponse decodes SSE records into chunks until the body ends.
func (p *Provider) processStreamResponse(ctx context.Context, resp *http.Response, chunks chan<- *llm.StreamChunk) {
	defer close(chunks)
	defer resp.Body.Close()

	err := sse.ReadRecords(ctx, resp.Body, func(payload string) bool {
		var record generateResponse
		if json.Unmarshal([]byte(payload), &record) != nil {
			return true // keepalives and non-JSON records
		}
		text := record.text()
		if text == "" {
			return true
		}
		return llm.Send(ctx, chunks, &llm.StreamChunk{Content: text})
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		llm.Send(ctx, chunks, &llm.StreamChunk{Error: fmt.Errorf("stream read error: %w", err)})
		return
	}
	llm.Send(ctx, chunks, &llm.StreamChunk{Finished: true})
}

// redactKey strips the API key from transport errors, which quote the URL.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), url.QueryEscape(key)) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), url.QueryEscape(key), "REDACTED"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

var _ llm.Provider = (*Provider)(nil)
