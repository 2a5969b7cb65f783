package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Olivia98106/semi-code/internal/resilience"
)

func TestCreateChatCompletion(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ChatResponse{
			ID:    "chatcmpl-1",
			Model: "gpt-4o-mini",
			Choices: []ChatChoice{{
				Message:      ChatMessage{Role: "assistant", Content: `{"result": "survey"}`},
				FinishReason: "stop",
			}},
			Usage: Usage{PromptTokens: 500, CompletionTokens: 12, TotalTokens: 512},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.CreateChatCompletion(context.Background(), ChatRequest{
		Model: "gpt-4o-mini",
		Messages: []ChatMessage{
			{Role: "system", Content: "you are a social scientist"},
			{Role: "user", Content: "what method does the paper use?"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, `{"result": "survey"}`, resp.Text())
	assert.Equal(t, 512, resp.Usage.TotalTokens)
}

func TestCreateChatCompletion_RateLimitIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.CreateChatCompletion(context.Background(), ChatRequest{Model: "gpt-4o-mini"})

	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Contains(t, err.Error(), "429")
}

func TestCreateChatCompletion_BadRequestIsPermanent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"unknown model"}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.CreateChatCompletion(context.Background(), ChatRequest{Model: "nope"})

	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestText_EmptyChoices(t *testing.T) {
	t.Parallel()

	resp := &ChatResponse{}
	assert.Equal(t, "", resp.Text())
}
