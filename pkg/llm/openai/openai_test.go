package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pagechat/pkg/llm"
	"github.com/entrhq/pagechat/pkg/types"
)

func testRequest() *llm.Request {
	return &llm.Request{
		APIKey: "sk-test",
		Model:  "gpt-test",
		Contents: []types.Content{
			{Role: types.RoleUser, Parts: []types.Part{{Text: "hi"}}},
			{Role: types.RoleModel, Parts: []types.Part{{Text: "hello"}}},
			{Role: types.RoleUser, Parts: []types.Part{{Text: "again"}}},
		},
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body.Model)
		assert.False(t, body.Stream)
		require.Len(t, body.Messages, 3)
		assert.Equal(t, "assistant", body.Messages[1].Role)
		assert.Equal(t, "hello", body.Messages[1].Content)

		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"answer"}}]}`)
	}))
	defer srv.Close()

	text, err := NewProvider(WithBaseURL(srv.URL)).Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "answer", text)
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": OPENROUTER PROCESSING\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ignored\"}}]}\n\n")
	}))
	defer srv.Close()

	stream, err := NewProvider(WithBaseURL(srv.URL)).Stream(context.Background(), testRequest())
	require.NoError(t, err)

	text, err := llm.DecodeDeltas(context.Background(), stream, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
}

func TestStreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "bad key")
	}))
	defer srv.Close()

	_, err := NewProvider(WithBaseURL(srv.URL)).Stream(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "openai streaming error: 401 Unauthorized"))
}

func TestBaseURLFromEnvironment(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "http://localhost:9999/v1/")
	assert.Equal(t, "http://localhost:9999/v1", NewProvider().GetBaseURL())
	assert.Equal(t, "http://explicit/v1", NewProvider(WithBaseURL("http://explicit/v1")).GetBaseURL())
}

func TestConvertToOpenAIMessages(t *testing.T) {
	msgs := convertToOpenAIMessages(testRequest().Contents)
	require.Len(t, msgs, 3)
	assert.NotNil(t, msgs[0].OfUser)
	assert.NotNil(t, msgs[1].OfAssistant)
	assert.NotNil(t, msgs[2].OfUser)
}
