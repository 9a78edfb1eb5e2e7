package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescanai/codescan/internal/models"
)

func TestAnthropicComplete(t *testing.T) {
	var gotReq anthropicRequest
	var gotHeaders http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"model": "claude-sonnet-4-20250514",
			"content": [
				{"type": "thinking", "text": "hmm"},
				{"type": "text", "text": "{\"score\": 80, \"issues\": []}"}
			],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 210, "output_tokens": 45}
		}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("test-key", "")
	c.BaseURL = srv.URL

	completion, err := c.Complete(context.Background(), "analyze this")
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotHeaders.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", gotHeaders.Get("anthropic-version"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))

	assert.Equal(t, DefaultAnthropicModel, gotReq.Model)
	assert.Equal(t, maxCompletionTokens, gotReq.MaxTokens)
	assert.Zero(t, gotReq.Temperature)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "analyze this", gotReq.Messages[0].Content)

	// First text block wins; non-text blocks are skipped.
	assert.Equal(t, `{"score": 80, "issues": []}`, completion.Text)
	assert.Equal(t, "claude-sonnet-4-20250514", completion.Model)
	assert.Equal(t, 210, completion.InputTokens)
	assert.Equal(t, 45, completion.OutputTokens)
}

func TestAnthropicCompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"type": "rate_limit_error"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("test-key", "claude-sonnet-4-20250514")
	c.BaseURL = srv.URL

	_, err := c.Complete(context.Background(), "x")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "anthropic", apiErr.Provider)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "rate_limit_error")
	assert.Equal(t, "anthropic API error (status 429)", apiErr.Error())
}

func TestAnthropicCompleteMissingKey(t *testing.T) {
	c := NewAnthropicClient("", "")

	_, err := c.Complete(context.Background(), "x")
	assert.ErrorIs(t, err, models.ErrNotConfigured)
}

func TestAnthropicCompleteNoTextBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model": "m", "content": [], "usage": {"input_tokens": 1, "output_tokens": 0}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("k", "m")
	c.BaseURL = srv.URL

	completion, err := c.Complete(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, completion.Text, "empty replies are the caller's problem, not a transport error")
}
