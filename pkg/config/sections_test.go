package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pagechat/pkg/types"
)

func TestSettingsSectionDefaults(t *testing.T) {
	s := NewSettingsSection()
	assert.Equal(t, SectionIDSettings, s.ID())
	assert.Equal(t, DefaultTimeoutMS, s.TimeoutMS)
	assert.Equal(t, DefaultRetries, s.GetRetries())
	assert.Equal(t, 20*time.Second, s.Timeout())
	assert.False(t, s.EnableStreaming)
	assert.NoError(t, s.Validate())
}

func TestSettingsSectionSetData(t *testing.T) {
	s := NewSettingsSection()
	require.NoError(t, s.SetData(map[string]interface{}{
		"api_key":          "k",
		"model":            "gemini-2.5-pro",
		"enable_streaming": true,
		"provider":         "openai",
		"timeout_ms":       float64(5000),
		"retries":          int64(1),
		"unknown":          "ignored",
	}))

	assert.Equal(t, types.Settings{
		APIKey:          "k",
		Model:           "gemini-2.5-pro",
		EnableStreaming: true,
		Provider:        "openai",
	}, s.Settings())
	assert.Equal(t, 5*time.Second, s.Timeout())
	assert.Equal(t, 1, s.GetRetries())

	assert.Error(t, s.SetData(map[string]interface{}{"timeout_ms": "soon"}))
	assert.Error(t, s.SetData(map[string]interface{}{"retries": 1.5}))
}

func TestSettingsSectionValidate(t *testing.T) {
	s := NewSettingsSection()
	s.Provider = "other"
	assert.Error(t, s.Validate())

	s.Reset()
	s.Retries = 11
	assert.Error(t, s.Validate())

	s.Reset()
	s.TimeoutMS = -1
	assert.Error(t, s.Validate())
}

func TestSettingsSectionDataRoundTrip(t *testing.T) {
	s := NewSettingsSection()
	s.SetAPIKey("k")
	s.SetModel("m")
	s.SetEnableStreaming(true)

	other := NewSettingsSection()
	require.NoError(t, other.SetData(s.Data()))
	assert.Equal(t, s.Settings(), other.Settings())
}

func TestContextSection(t *testing.T) {
	s := NewContextSection()
	assert.NoError(t, s.Validate())

	require.NoError(t, s.SetData(map[string]interface{}{
		"max_chunk_chars":   100,
		"max_chunks":        2,
		"deny_url_patterns": []interface{}{"https://mail.example/*"},
	}))

	c, err := s.Composer()
	require.NoError(t, err)
	assert.Equal(t, 100, c.MaxChunkChars)
	assert.Equal(t, 2, c.MaxChunks)
	assert.False(t, c.Policy.AllowsPage("https://mail.example/inbox"))

	assert.Error(t, s.SetData(map[string]interface{}{"deny_url_patterns": []interface{}{1}}))

	s.DenyURLPatterns = []string{"[bad"}
	assert.Error(t, s.Validate())

	s.Reset()
	s.MaxChunks = 0
	assert.Error(t, s.Validate())
}
