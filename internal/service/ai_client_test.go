package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gameforge/internal/config"
	"gameforge/internal/service"

	"github.com/ollama/ollama/api"
	openaigo "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openAIConfig(baseURL string) config.AIConfig {
	return config.AIConfig{
		ClientType: "openai",
		BaseURL:    baseURL,
		Model:      "mistral-small-latest",
		Timeout:    5 * time.Second,
		APIKey:     liveKey,
	}
}

func TestOpenAIClient_GenerateText(t *testing.T) {
	var received openaigo.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer "+liveKey, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{
			"id": "cmpl-1",
			"object": "chat.completion",
			"model": "mistral-small-latest",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Les Secrets de Nexus"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 40, "completion_tokens": 6, "total_tokens": 46}
		}`)
	}))
	defer server.Close()

	client, err := service.NewAIClient(openAIConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	temperature, maxTokens := 0.8, 50
	text, usage, err := client.GenerateText(context.Background(), "user-1", "système", "titre ?",
		service.GenerationParams{Temperature: &temperature, MaxTokens: &maxTokens})
	require.NoError(t, err)

	assert.Equal(t, "Les Secrets de Nexus", text)
	assert.Equal(t, 46, usage.TotalTokens)
	assert.Greater(t, usage.EstimatedCostUSD, 0.0)

	assert.Equal(t, "mistral-small-latest", received.Model)
	assert.Equal(t, 50, received.MaxTokens)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, openaigo.ChatMessageRoleSystem, received.Messages[0].Role)
	assert.Equal(t, "titre ?", received.Messages[1].Content)
}

func TestOpenAIClient_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = fmt.Fprint(w, `{"error": {"message": "Requests rate limit exceeded", "type": "rate_limited"}}`)
	}))
	defer server.Close()

	client, err := service.NewAIClient(openAIConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	_, _, err = client.GenerateText(context.Background(), "", "système", "titre ?", service.GenerationParams{})
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrAIGenerationFailed)
	assert.ErrorIs(t, err, service.ErrRateLimited)
	assert.True(t, service.IsRateLimited(err))
}

func TestOpenAIClient_ServerErrorIsNotRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := service.NewAIClient(openAIConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	_, _, err = client.GenerateText(context.Background(), "", "système", "titre ?", service.GenerationParams{})
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrAIGenerationFailed)
	assert.False(t, service.IsRateLimited(err))
}

func TestOpenAIClient_EmptySystemPrompt(t *testing.T) {
	client, err := service.NewAIClient(openAIConfig("http://127.0.0.1:1"), zap.NewNop())
	require.NoError(t, err)

	_, _, err = client.GenerateText(context.Background(), "", "  ", "x", service.GenerationParams{})
	assert.ErrorIs(t, err, service.ErrAIGenerationFailed)
}

func TestOllamaClient_ZeroTimeoutMeansNoDeadline(t *testing.T) {
	var received api.ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintln(w, `{"model":"llama3","message":{"role":"assistant","content":"La Légende de Nexus"},"done":true,"prompt_eval_count":12,"eval_count":5}`)
	}))
	defer server.Close()

	cfg := openAIConfig(server.URL + "/v1")
	cfg.ClientType = "ollama"
	cfg.Model = "llama3"
	cfg.Timeout = 0
	client, err := service.NewAIClient(cfg, zap.NewNop())
	require.NoError(t, err)

	text, _, err := client.GenerateText(context.Background(), "user-1", "système", "titre ?", service.GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "La Légende de Nexus", text)
	assert.Equal(t, "llama3", received.Model)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, "titre ?", received.Messages[1].Content)
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, service.IsRateLimited(&openaigo.APIError{HTTPStatusCode: http.StatusTooManyRequests}))
	assert.True(t, service.IsRateLimited(&openaigo.RequestError{HTTPStatusCode: http.StatusTooManyRequests, Err: errors.New("slow down")}))
	assert.True(t, service.IsRateLimited(fmt.Errorf("wrapped: %w", api.StatusError{StatusCode: http.StatusTooManyRequests})))
	assert.True(t, service.IsRateLimited(errors.New("Service tier CAPACITY EXCEEDED")))

	assert.False(t, service.IsRateLimited(nil))
	assert.False(t, service.IsRateLimited(&openaigo.APIError{HTTPStatusCode: http.StatusInternalServerError}))
	assert.False(t, service.IsRateLimited(errors.New("dial tcp: connection refused")))
}

func TestNewAIClient(t *testing.T) {
	for _, kind := range []string{"openai", "ollama", "anthropic"} {
		cfg := openAIConfig("http://localhost:11434/v1")
		cfg.ClientType = kind
		client, err := service.NewAIClient(cfg, zap.NewNop())
		require.NoError(t, err, kind)
		assert.NotNil(t, client, kind)
	}

	cfg := openAIConfig("")
	cfg.ClientType = "gpt-kiosk"
	_, err := service.NewAIClient(cfg, zap.NewNop())
	assert.Error(t, err)
}
