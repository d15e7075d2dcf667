package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pagechat/pkg/history"
	"github.com/entrhq/pagechat/pkg/llm/gemini"
	"github.com/entrhq/pagechat/pkg/llm/openai"
	"github.com/entrhq/pagechat/pkg/logging"
	"github.com/entrhq/pagechat/pkg/types"
)

type askFunc func(ctx context.Context, req types.AskRequest, onDelta func(types.StreamDelta)) types.AskResponse

func (f askFunc) Ask(ctx context.Context, req types.AskRequest, onDelta func(types.StreamDelta)) types.AskResponse {
	return f(ctx, req, onDelta)
}

func newTestSession(a asker) (*session, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return &session{
		orch:        a,
		history:     history.NewMemoryStore(),
		tabID:       "cli",
		includePage: true,
		out:         out,
		errOut:      errOut,
	}, out, errOut
}

func TestSessionAskStreams(t *testing.T) {
	var got types.AskRequest
	s, out, _ := newTestSession(askFunc(func(ctx context.Context, req types.AskRequest, onDelta func(types.StreamDelta)) types.AskResponse {
		got = req
		onDelta(types.StreamDelta{StreamID: req.StreamID, Text: "Hel"})
		onDelta(types.StreamDelta{StreamID: "stale", Text: "ignored"})
		onDelta(types.StreamDelta{StreamID: req.StreamID, Text: "lo"})
		return types.NewSuccessResponse(req.Question, "Hello", true)
	}))

	resp := s.ask(context.Background(), "hi")

	require.True(t, resp.OK)
	assert.Equal(t, "Hello\n", out.String())
	assert.Equal(t, "cli", got.TabID)
	assert.True(t, got.IncludePage)
	assert.True(t, got.StreamingAllowed)
	assert.Empty(t, got.History)

	turns, err := s.history.Load(context.Background(), "cli")
	require.NoError(t, err)
	assert.Equal(t, []types.Turn{types.NewUserTurn("hi"), types.NewModelTurn("Hello")}, turns)

	s.ask(context.Background(), "next")
	assert.Len(t, got.History, 2, "history is sent with the next question")
	assert.NotEqual(t, "cli-1", got.StreamID)
}

func TestSessionAskPrintsBatchText(t *testing.T) {
	s, out, _ := newTestSession(askFunc(func(ctx context.Context, req types.AskRequest, onDelta func(types.StreamDelta)) types.AskResponse {
		return types.NewSuccessResponse(req.Question, "full answer", false)
	}))

	s.ask(context.Background(), "hi")
	assert.Equal(t, "full answer\n", out.String())
}

func TestSessionAskSeparatesFallbackAnswer(t *testing.T) {
	s, out, _ := newTestSession(askFunc(func(ctx context.Context, req types.AskRequest, onDelta func(types.StreamDelta)) types.AskResponse {
		onDelta(types.StreamDelta{StreamID: req.StreamID, Text: "Hel"})
		return types.NewSuccessResponse(req.Question, "Hello there", false)
	}))

	s.ask(context.Background(), "hi")
	assert.Equal(t, "Hel\n"+streamInterrupted+"\nHello there\n", out.String())
}

func TestSessionAskReportsErrors(t *testing.T) {
	s, _, errOut := newTestSession(askFunc(func(ctx context.Context, req types.AskRequest, onDelta func(types.StreamDelta)) types.AskResponse {
		return types.NewErrorResponse(types.CodeRateLimit, "Rate limited. Please retry shortly.")
	}))

	resp := s.ask(context.Background(), "hi")

	assert.False(t, resp.OK)
	assert.Contains(t, errOut.String(), "Rate limited")
	assert.Contains(t, errOut.String(), "ask again to retry")

	turns, err := s.history.Load(context.Background(), "cli")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestProviderCache(t *testing.T) {
	cache := newProviderCache(2, logging.Discard("test"))

	p, err := cache.get(types.Settings{})
	require.NoError(t, err)
	assert.Equal(t, gemini.ProviderName, p.Name())

	again, err := cache.get(types.Settings{Provider: types.ProviderGemini})
	require.NoError(t, err)
	assert.Same(t, p, again)

	o, err := cache.get(types.Settings{Provider: types.ProviderOpenAI, BaseURL: "http://localhost:1234/v1"})
	require.NoError(t, err)
	assert.Equal(t, openai.ProviderName, o.Name())
	assert.Equal(t, "http://localhost:1234/v1", o.(*openai.Provider).GetBaseURL())

	_, err = cache.get(types.Settings{Provider: "other"})
	assert.Error(t, err)
}

func TestOverrides(t *testing.T) {
	o := overrides(&CLIConfig{APIKey: "k", Stream: true})
	assert.Equal(t, "k", o.APIKey)
	assert.Nil(t, o.Streaming, "unset flag defers to config")

	o = overrides(&CLIConfig{Stream: false, StreamSet: true})
	require.NotNil(t, o.Streaming)
	assert.False(t, *o.Streaming)
}
