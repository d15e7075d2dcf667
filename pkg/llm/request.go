package llm

import "github.com/entrhq/pagechat/pkg/types"

// GenerationConfig holds the sampling parameters sent with every request.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// DefaultGenerationConfig returns the fixed sampling parameters.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.7,
		TopP:            0.9,
		MaxOutputTokens: 2048,
	}
}

// Request is one generation call.
type Request struct {
	APIKey   string
	Model    string
	Contents []types.Content

	// Config overrides DefaultGenerationConfig when non-nil.
	Config *GenerationConfig
}

// GenerationConfig returns the effective sampling parameters.
func (r *Request) GenerationConfig() GenerationConfig {
	if r.Config != nil {
		return *r.Config
	}
	return DefaultGenerationConfig()
}

// ModelOrDefault returns the request model or types.DefaultModel.
func (r *Request) ModelOrDefault() string {
	if r.Model == "" {
		return types.DefaultModel
	}
	return r.Model
}
