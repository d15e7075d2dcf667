package config

import (
	"fmt"
	"sync"

	"github.com/entrhq/pagechat/pkg/composer"
)

// SectionIDContext is the identifier for the page context section
const SectionIDContext = "context"

// ContextSection controls how page content is composed into prompts.
type ContextSection struct {
	MaxChunkChars   int
	MaxChunks       int
	DenyURLPatterns []string
	mu              sync.RWMutex
}

// NewContextSection creates a context section with defaults.
func NewContextSection() *ContextSection {
	s := &ContextSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *ContextSection) ID() string {
	return SectionIDContext
}

// Title returns the section title.
func (s *ContextSection) Title() string {
	return "Page Context"
}

// Description returns the section description.
func (s *ContextSection) Description() string {
	return "Chunk limits for page text and URL patterns whose content is never sent."
}

// Data returns the current configuration data.
func (s *ContextSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"max_chunk_chars":   s.MaxChunkChars,
		"max_chunks":        s.MaxChunks,
		"deny_url_patterns": append([]string{}, s.DenyURLPatterns...),
	}
}

// SetData updates the configuration from the provided data.
func (s *ContextSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := data["max_chunk_chars"]; ok {
		n, err := toInt(v)
		if err != nil {
			return fmt.Errorf("max_chunk_chars: %w", err)
		}
		s.MaxChunkChars = n
	}
	if v, ok := data["max_chunks"]; ok {
		n, err := toInt(v)
		if err != nil {
			return fmt.Errorf("max_chunks: %w", err)
		}
		s.MaxChunks = n
	}
	if v, ok := data["deny_url_patterns"]; ok && v != nil {
		patterns, err := toStringSlice(v)
		if err != nil {
			return fmt.Errorf("deny_url_patterns: %w", err)
		}
		s.DenyURLPatterns = patterns
	}
	return nil
}

// Validate validates the current configuration.
func (s *ContextSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.MaxChunkChars <= 0 {
		return fmt.Errorf("max_chunk_chars must be positive")
	}
	if s.MaxChunks <= 0 {
		return fmt.Errorf("max_chunks must be positive")
	}
	_, err := composer.NewPolicy(s.DenyURLPatterns)
	return err
}

// Reset resets the section to default configuration.
func (s *ContextSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MaxChunkChars = composer.DefaultMaxChunkChars
	s.MaxChunks = composer.DefaultMaxChunks
	s.DenyURLPatterns = nil
}

// Composer builds a composer from the section values.
func (s *ContextSection) Composer() (*composer.Composer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policy, err := composer.NewPolicy(s.DenyURLPatterns)
	if err != nil {
		return nil, err
	}
	return composer.New(
		composer.WithChunking(s.MaxChunkChars, s.MaxChunks),
		composer.WithPolicy(policy),
	), nil
}
