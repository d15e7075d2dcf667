package types

// DefaultModel is used when settings leave the model empty.
const DefaultModel = "gemini-2.5-flash-lite"

// Provider names accepted in Settings.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Settings is the read-only configuration consulted once per request.
type Settings struct {
	APIKey          string `json:"api_key"`
	Model           string `json:"model"`
	EnableStreaming bool   `json:"enable_streaming"`

	// Provider selects the generation backend. Empty means gemini.
	Provider string `json:"provider,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
}

// ModelOrDefault returns the configured model or DefaultModel.
func (s Settings) ModelOrDefault() string {
	if s.Model == "" {
		return DefaultModel
	}
	return s.Model
}
