package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revixhub/news-ai-filter/internal/config"
)

func TestOpenAIClientComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload struct {
			Model       string  `json:"model"`
			MaxTokens   int     `json:"max_tokens"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "gpt-4o-mini", payload.Model)
		assert.Equal(t, 200, payload.MaxTokens)
		assert.InDelta(t, 0.3, payload.Temperature, 0.001)
		require.Len(t, payload.Messages, 1)
		assert.Equal(t, "user", payload.Messages[0].Role)
		assert.Equal(t, "rate this", payload.Messages[0].Content)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "Score: 80"}},
			},
		})
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "gpt-4o-mini", "test-key", server.Client())
	reply, err := client.Complete(context.Background(), "rate this", 200, 0.3)

	require.NoError(t, err)
	assert.Equal(t, "Score: 80", reply)
}

func TestOpenAIClientErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "rate limit"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "gpt-4o-mini", "test-key", server.Client())
	_, err := client.Complete(context.Background(), "prompt", 100, 0.3)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAIClientEmptyChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "gpt-4o-mini", "test-key", server.Client())
	_, err := client.Complete(context.Background(), "prompt", 100, 0.3)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestOpenAIClientMisconfigured(t *testing.T) {
	t.Parallel()

	client := NewOpenAIClient("https://example.com", "gpt-4o-mini", "", nil)
	_, err := client.Complete(context.Background(), "prompt", 100, 0.3)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "misconfigured")
}

func TestAnthropicClientComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"text": "Category: Other"}},
		})
	}))
	defer server.Close()

	client := NewAnthropicClient(server.URL, "claude-3-5-haiku-latest", "test-key", server.Client())
	reply, err := client.Complete(context.Background(), "categorize", 50, 0.1)

	require.NoError(t, err)
	assert.Equal(t, "Category: Other", reply)
}

func TestAnthropicClientErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewAnthropicClient(server.URL, "claude-3-5-haiku-latest", "test-key", server.Client())
	_, err := client.Complete(context.Background(), "prompt", 50, 0.1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNewProviderSelection(t *testing.T) {
	t.Parallel()

	openai, err := NewProvider(config.AnalyzerConfig{
		Provider:  config.ProviderOpenAI,
		Model:     "gpt-4o-mini",
		OpenAIKey: "key",
	})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, openai)

	anthropic, err := NewProvider(config.AnalyzerConfig{
		Provider:     config.ProviderAnthropic,
		Model:        "claude-3-5-haiku-latest",
		AnthropicKey: "key",
	})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, anthropic)

	_, err = NewProvider(config.AnalyzerConfig{Provider: "mistral"})
	require.Error(t, err)
}
