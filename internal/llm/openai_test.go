package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoreRequestFixture() ScoreRequest {
	return ScoreRequest{
		SystemPrompt: "system",
		UserPrompt:   "user",
		Model:        "gpt-4.1",
		Normalize:    defaultNormalizeParams(),
	}
}

func chatSuccessBody(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	require.NoError(t, err)
	return body
}

func TestOpenAICompatBackend_Score(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4.1", req.Model)
		require.Len(t, req.Messages, 2)

		_, _ = w.Write(chatSuccessBody(t,
			`{"nim": "A11202301", "student_name": "Budi", "score": 85, "evaluation": "Baik."}`))
	}))
	defer srv.Close()

	b := NewOpenAICompatBackend(OpenAICompatBackendOptions{
		Provider: ProviderOpenAI,
		APIKey:   "sk-test",
		BaseURL:  srv.URL,
		Client:   srv.Client(),
	})
	b.sleep = func(time.Duration) {}

	result := b.Score(context.Background(), scoreRequestFixture())

	require.False(t, result.Error)
	require.NotNil(t, result.Score)
	assert.Equal(t, 85, *result.Score)
	assert.Equal(t, int64(1), requests.Load())
}

func TestOpenAICompatBackend_JSONModeFallback(t *testing.T) {
	t.Parallel()

	// The provider rejects response_format=json_object; the backend must
	// retry in plain mode within the same attempt.
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.ResponseFormat != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": {"message": "Invalid parameter: response_format", "type": "invalid_request_error"}}`))
			return
		}
		_, _ = w.Write(chatSuccessBody(t,
			`{"nim": "A11202301", "student_name": "Budi", "score": 90, "evaluation": "Baik."}`))
	}))
	defer srv.Close()

	b := NewOpenAICompatBackend(OpenAICompatBackendOptions{
		Provider:   ProviderNvidia,
		APIKey:     "nv-test",
		BaseURL:    srv.URL,
		Client:     srv.Client(),
		MaxRetries: 1,
	})
	b.sleep = func(time.Duration) {}

	result := b.Score(context.Background(), scoreRequestFixture())

	require.False(t, result.Error)
	require.NotNil(t, result.Score)
	assert.Equal(t, 90, *result.Score)
	assert.Equal(t, int64(2), requests.Load())
}

func TestOpenAICompatBackend_MissingKeyFailsImmediately(t *testing.T) {
	t.Parallel()

	b := NewOpenAICompatBackend(OpenAICompatBackendOptions{
		Provider: ProviderDeepseek,
	})
	b.sleep = func(time.Duration) {}

	result := b.Score(context.Background(), scoreRequestFixture())

	assert.True(t, result.Error)
	assert.Equal(t, "API key deepseek belum dikonfigurasi", result.Evaluation)
}

func TestOpenAICompatBackend_ExhaustionReturnsErrorResult(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "backend exploded", "type": "server_error"}}`))
	}))
	defer srv.Close()

	var slept []time.Duration
	b := NewOpenAICompatBackend(OpenAICompatBackendOptions{
		Provider:   ProviderOpenAI,
		APIKey:     "sk-test",
		BaseURL:    srv.URL,
		Client:     srv.Client(),
		MaxRetries: 3,
	})
	b.sleep = func(d time.Duration) { slept = append(slept, d) }

	result := b.Score(context.Background(), scoreRequestFixture())

	assert.True(t, result.Error)
	assert.Contains(t, result.Evaluation, "Gagal menilai setelah 3 percobaan (openai)")
	assert.Contains(t, result.Evaluation, "backend exploded")
	assert.Equal(t, int64(3), requests.Load())
	// Exponential backoff between attempts: 2^1, 2^2 seconds.
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, slept)
}
