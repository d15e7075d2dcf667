// Package openai provides an OpenAI-compatible llm.Provider.
//
// Example usage:
//
//	provider := openai.NewProvider(openai.WithBaseURL("http://localhost:8080/v1"))
//
//	stream, err := provider.Stream(ctx, &llm.Request{
//	    APIKey:   os.Getenv("OPENAI_API_KEY"),
//	    Model:    "gpt-4o-mini",
//	    Contents: contents,
//	})
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"golang.org/x/time/rate"

	"github.com/entrhq/pagechat/pkg/llm"
	"github.com/entrhq/pagechat/pkg/llm/sse"
	"github.com/entrhq/pagechat/pkg/logging"
	"github.com/entrhq/pagechat/pkg/types"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"

	// ProviderName prefixes error messages and log lines.
	ProviderName = "openai"
)

// Provider implements llm.Provider for OpenAI-compatible chat completion APIs.
type Provider struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *logging.Logger
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
// This enables using Azure OpenAI, local models, or other compatible services.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		if baseURL != "" {
			p.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client.
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

// NewProvider creates a new OpenAI-compatible provider.
//
// If no base URL is given via WithBaseURL, OPENAI_BASE_URL is consulted
// before falling back to DefaultBaseURL. The API key comes with each request.
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = strings.TrimRight(envBaseURL, "/")
		}
	}
	if p.logger == nil {
		p.logger = logging.Discard(ProviderName)
	}

	return p
}

// Name returns "openai".
func (p *Provider) Name() string {
	return ProviderName
}

// GetBaseURL returns the base URL being used.
func (p *Provider) GetBaseURL() string {
	return p.baseURL
}

// Generate sends a non-streaming chat completion request.
func (p *Provider) Generate(ctx context.Context, req *llm.Request) (string, error) {
	resp, err := p.send(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode %s response: %w", ProviderName, err)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}

// Stream sends a streaming chat completion request and decodes its SSE
// events into chunks. The stream ends at the [DONE] marker.
func (p *Provider) Stream(ctx context.Context, req *llm.Request) (<-chan *llm.StreamChunk, error) {
	resp, err := p.send(ctx, req, true)
	if err != nil {
		return nil, err
	}

	chunks := make(chan *llm.StreamChunk, 10)
	go p.processStreamResponse(ctx, resp, chunks)
	return chunks, nil
}

// send creates and sends the HTTP request
func (p *Provider) send(ctx context.Context, req *llm.Request, streaming bool) (*http.Response, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	cfg := req.GenerationConfig()
	reqBody := map[string]interface{}{
		"model":       req.ModelOrDefault(),
		"messages":    convertToOpenAIMessages(req.Contents),
		"stream":      streaming,
		"temperature": cfg.Temperature,
		"top_p":       cfg.TopP,
		"max_tokens":  cfg.MaxOutputTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	if streaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		httpErr := llm.NewHTTPError(ProviderName, streaming, resp)
		p.logger.Warnf("model=%s streaming=%t status=%d", req.ModelOrDefault(), streaming, httpErr.StatusCode)
		return nil, httpErr
	}

	return resp, nil
}

// processStreamResponse processes the SSE stream and sends chunks to the channel
func (p *Provider) processStreamResponse(ctx context.Context, resp *http.Response, chunks chan<- *llm.StreamChunk) {
	defer close(chunks)
	defer resp.Body.Close()

	done := false
	err := sse.ReadRecords(ctx, resp.Body, func(data string) bool {
		if data == "[DONE]" {
			done = true
			return false
		}
		return p.processSSEChunk(ctx, data, chunks)
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil && !done {
		llm.Send(ctx, chunks, &llm.StreamChunk{Error: fmt.Errorf("stream read error: %w", err)})
		return
	}
	llm.Send(ctx, chunks, &llm.StreamChunk{Finished: true})
}

// processSSEChunk processes a single SSE data chunk
func (p *Provider) processSSEChunk(ctx context.Context, data string, chunks chan<- *llm.StreamChunk) bool {
	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}

	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return true // Skip malformed chunks silently
	}

	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
		return true
	}

	return llm.Send(ctx, chunks, &llm.StreamChunk{Content: chunk.Choices[0].Delta.Content})
}

// convertToOpenAIMessages converts endpoint contents to OpenAI's ChatCompletionMessageParamUnion format.
func convertToOpenAIMessages(contents []types.Content) []openai.ChatCompletionMessageParamUnion {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(contents))

	for _, c := range contents {
		switch c.Role {
		case types.RoleModel:
			openaiMessages = append(openaiMessages, openai.AssistantMessage(c.Text()))
		default:
			openaiMessages = append(openaiMessages, openai.UserMessage(c.Text()))
		}
	}

	return openaiMessages
}

var _ llm.Provider = (*Provider)(nil)
