package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/pagechat/pkg/types"
)

const (
	// SectionIDSettings is the identifier for the generation settings section
	SectionIDSettings = "settings"

	// DefaultTimeoutMS bounds one request, retries and fallback included.
	DefaultTimeoutMS = 20000

	// DefaultRetries is the number of automatic retries per attempt mode.
	DefaultRetries = 2
)

// SettingsSection holds the generation backend settings.
type SettingsSection struct {
	APIKey          string
	Model           string
	EnableStreaming bool
	Provider        string
	BaseURL         string
	TimeoutMS       int
	Retries         int
	mu              sync.RWMutex
}

// NewSettingsSection creates a settings section with defaults.
func NewSettingsSection() *SettingsSection {
	s := &SettingsSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *SettingsSection) ID() string {
	return SectionIDSettings
}

// Title returns the section title.
func (s *SettingsSection) Title() string {
	return "Generation Settings"
}

// Description returns the section description.
func (s *SettingsSection) Description() string {
	return "API key, model, streaming and request limits for the generation backend."
}

// Data returns the current configuration data.
func (s *SettingsSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"api_key":          s.APIKey,
		"model":            s.Model,
		"enable_streaming": s.EnableStreaming,
		"provider":         s.Provider,
		"base_url":         s.BaseURL,
		"timeout_ms":       s.TimeoutMS,
		"retries":          s.Retries,
	}
}

// SetData updates the configuration from the provided data.
func (s *SettingsSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := data["api_key"].(string); ok {
		s.APIKey = v
	}
	if v, ok := data["model"].(string); ok {
		s.Model = v
	}
	if v, ok := data["enable_streaming"].(bool); ok {
		s.EnableStreaming = v
	}
	if v, ok := data["provider"].(string); ok {
		s.Provider = v
	}
	if v, ok := data["base_url"].(string); ok {
		s.BaseURL = v
	}
	if v, ok := data["timeout_ms"]; ok {
		n, err := toInt(v)
		if err != nil {
			return fmt.Errorf("timeout_ms: %w", err)
		}
		s.TimeoutMS = n
	}
	if v, ok := data["retries"]; ok {
		n, err := toInt(v)
		if err != nil {
			return fmt.Errorf("retries: %w", err)
		}
		s.Retries = n
	}
	return nil
}

// Validate validates the current configuration. A missing API key is not
// a configuration error; requests report it instead.
func (s *SettingsSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.Provider {
	case "", types.ProviderGemini, types.ProviderOpenAI:
	default:
		return fmt.Errorf("unknown provider %q", s.Provider)
	}
	if s.TimeoutMS < 0 {
		return fmt.Errorf("timeout_ms must not be negative")
	}
	if s.Retries < 0 || s.Retries > 10 {
		return fmt.Errorf("retries must be between 0 and 10")
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *SettingsSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.APIKey = ""
	s.Model = ""
	s.EnableStreaming = false
	s.Provider = ""
	s.BaseURL = ""
	s.TimeoutMS = DefaultTimeoutMS
	s.Retries = DefaultRetries
}

// Settings returns a snapshot of the values as types.Settings.
func (s *SettingsSection) Settings() types.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return types.Settings{
		APIKey:          s.APIKey,
		Model:           s.Model,
		EnableStreaming: s.EnableStreaming,
		Provider:        s.Provider,
		BaseURL:         s.BaseURL,
	}
}

// Timeout returns the request timeout.
func (s *SettingsSection) Timeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.TimeoutMS <= 0 {
		return DefaultTimeoutMS * time.Millisecond
	}
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// GetRetries returns the retry budget.
func (s *SettingsSection) GetRetries() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Retries
}

// SetAPIKey sets the API key.
func (s *SettingsSection) SetAPIKey(apiKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.APIKey = apiKey
}

// SetModel sets the model name.
func (s *SettingsSection) SetModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Model = model
}

// SetEnableStreaming toggles streaming.
func (s *SettingsSection) SetEnableStreaming(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EnableStreaming = enabled
}
