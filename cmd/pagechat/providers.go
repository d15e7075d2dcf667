package main

import (
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/entrhq/pagechat/pkg/llm"
	"github.com/entrhq/pagechat/pkg/llm/gemini"
	"github.com/entrhq/pagechat/pkg/llm/openai"
	"github.com/entrhq/pagechat/pkg/logging"
	"github.com/entrhq/pagechat/pkg/orchestrator"
	"github.com/entrhq/pagechat/pkg/types"
)

// providerCache builds one backend per provider/base URL pair so a config
// reload that switches backends takes effect on the next question.
type providerCache struct {
	mu        sync.Mutex
	providers map[string]llm.Provider
	rps       float64
	logger    *logging.Logger
}

func newProviderCache(rps float64, logger *logging.Logger) *providerCache {
	return &providerCache{
		providers: make(map[string]llm.Provider),
		rps:       rps,
		logger:    logger,
	}
}

func (c *providerCache) factory() orchestrator.ProviderFactory {
	return c.get
}

func (c *providerCache) get(settings types.Settings) (llm.Provider, error) {
	name := settings.Provider
	if name == "" {
		name = types.ProviderGemini
	}
	key := name + "|" + settings.BaseURL

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.providers[key]; ok {
		return p, nil
	}

	var p llm.Provider
	switch name {
	case types.ProviderGemini:
		opts := []gemini.ProviderOption{
			gemini.WithBaseURL(settings.BaseURL),
			gemini.WithLogger(c.logger.With(gemini.ProviderName)),
		}
		if c.rps > 0 {
			opts = append(opts, gemini.WithRateLimit(rate.Limit(c.rps), 1))
		}
		p = gemini.NewProvider(opts...)
	case types.ProviderOpenAI:
		opts := []openai.ProviderOption{
			openai.WithBaseURL(settings.BaseURL),
			openai.WithLogger(c.logger.With(openai.ProviderName)),
		}
		if c.rps > 0 {
			opts = append(opts, openai.WithRateLimit(rate.Limit(c.rps), 1))
		}
		p = openai.NewProvider(opts...)
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}

	c.providers[key] = p
	return p, nil
}
