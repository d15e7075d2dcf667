package config

import (
	"context"
	"os"

	"github.com/entrhq/pagechat/pkg/types"
)

// Environment variables consulted by Resolve.
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvModel        = "PAGECHAT_MODEL"
)

// Overrides are values from command-line flags. Empty fields defer to the
// environment and then the config file.
type Overrides struct {
	APIKey    string
	Model     string
	Provider  string
	BaseURL   string
	Streaming *bool
}

// Resolve applies configuration precedence:
// flags > environment variables > config file > defaults.
// Model defaults are left to the request path.
func Resolve(file types.Settings, o Overrides) types.Settings {
	s := file

	if o.Provider != "" {
		s.Provider = o.Provider
	}
	if o.BaseURL != "" {
		s.BaseURL = o.BaseURL
	}

	switch {
	case o.APIKey != "":
		s.APIKey = o.APIKey
	case s.Provider == types.ProviderOpenAI && os.Getenv(EnvOpenAIAPIKey) != "":
		s.APIKey = os.Getenv(EnvOpenAIAPIKey)
	case s.Provider != types.ProviderOpenAI && os.Getenv(EnvGeminiAPIKey) != "":
		s.APIKey = os.Getenv(EnvGeminiAPIKey)
	}

	switch {
	case o.Model != "":
		s.Model = o.Model
	case os.Getenv(EnvModel) != "":
		s.Model = os.Getenv(EnvModel)
	}

	if o.Streaming != nil {
		s.EnableStreaming = *o.Streaming
	}
	return s
}

// Source serves settings to the orchestrator. Each call reads the current
// section values, so a reloaded file applies to the next request.
type Source struct {
	manager   *Manager
	overrides Overrides
}

// Source returns a settings source over m with the given overrides.
func (m *Manager) Source(o Overrides) *Source {
	return &Source{manager: m, overrides: o}
}

// Settings returns the resolved settings.
func (s *Source) Settings(ctx context.Context) (types.Settings, error) {
	if err := ctx.Err(); err != nil {
		return types.Settings{}, err
	}
	return Resolve(s.manager.fileSettings(), s.overrides), nil
}

// fileSettings reads the settings section without observing a reload
// half-way through.
func (m *Manager) fileSettings() types.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if section, ok := m.sections[SectionIDSettings].(*SettingsSection); ok {
		return section.Settings()
	}
	return types.Settings{}
}

// Settings resolves settings without flag overrides.
func (m *Manager) Settings(ctx context.Context) (types.Settings, error) {
	return m.Source(Overrides{}).Settings(ctx)
}
