package orchestrator

import (
	"time"

	"github.com/entrhq/pagechat/pkg/composer"
	"github.com/entrhq/pagechat/pkg/llm"
	"github.com/entrhq/pagechat/pkg/llm/tokenizer"
	"github.com/entrhq/pagechat/pkg/logging"
	"github.com/entrhq/pagechat/pkg/types"
)

// DefaultTimeout bounds one request including retries and fallback.
const DefaultTimeout = 20 * time.Second

// ProviderFactory selects a backend for the settings of one request.
type ProviderFactory func(types.Settings) (llm.Provider, error)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout sets the per-request timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetries sets the automatic retry budget per attempt mode.
func WithRetries(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.retries = n
		}
	}
}

// WithInitialBackoff sets the first retry delay.
func WithInitialBackoff(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.initialBackoff = d
		}
	}
}

// WithComposer sets the context composer.
func WithComposer(c *composer.Composer) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.composer.Store(c)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTokenizer enables prompt size logging.
func WithTokenizer(t *tokenizer.Tokenizer) Option {
	return func(o *Orchestrator) {
		o.tokenizer = t
	}
}

// WithProviderFactory picks the backend per request from the settings.
// The provider passed to New is used when the factory is nil.
func WithProviderFactory(f ProviderFactory) Option {
	return func(o *Orchestrator) {
		o.factory = f
	}
}
