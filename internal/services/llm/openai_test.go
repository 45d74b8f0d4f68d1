package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vigil/internal/services/retry"
)

func TestOpenAIRunner_Run(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, 1000, req.MaxTokens)
		assert.Equal(t, "json_object", req.ResponseFormat["type"])
		assert.Empty(t, req.ReasoningEffort)

		w.Write([]byte(`{"choices":[{"message":{"content":"{\"shortlist\":[]}"}}]}`))
	}))
	defer server.Close()

	runner := NewOpenAIRunner(server.URL+"/v1", 5*time.Second, nil)
	assert.True(t, runner.KeyOptional())

	resp, err := runner.Run(context.Background(), StageCall{
		Stage:   StageShortlist,
		Request: StageRequest{SystemPrompt: "sys", UserPrompt: "user", ExpectJSON: true},
		Config:  StageModelConfig{Provider: ProviderOpenAI, Model: "gpt-4o-mini", MaxOutputTokens: 1000, Temperature: 0.2},
		APIKey:  "sk-test",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"shortlist":[]}`, resp.RawText)
}

func TestOpenAIRunner_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	runner := NewOpenAIRunner(server.URL, time.Second, nil)
	_, err := runner.Run(context.Background(), StageCall{Config: StageModelConfig{MaxOutputTokens: 10}})

	assert.Equal(t, retry.KindRateLimited, retry.Classify(err))
	assert.Equal(t, 3*time.Second, retry.RetryAfterHint(err))
}

func TestOpenAIRunner_WebSearchUsesResponsesAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req responsesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-5.2", req.Model)
		assert.Equal(t, "sys", req.Instructions)
		assert.Equal(t, "research ACME", req.Input)
		assert.Equal(t, []responsesTool{{Type: "web_search"}}, req.Tools)
		require.NotNil(t, req.Reasoning)
		assert.Equal(t, "high", req.Reasoning.Effort)
		assert.Nil(t, req.Temperature)

		w.Write([]byte(`{"model":"gpt-5.2","output":[
			{"type":"web_search_call","id":"ws_1","status":"completed"},
			{"type":"message","content":[{"type":"output_text","text":"ACME beat estimates.","annotations":[
				{"type":"url_citation","url":"https://wire.example/acme","title":"ACME Q3"},
				{"type":"url_citation","url":"https://wire.example/acme","title":"ACME Q3"}
			]}]}
		]}`))
	}))
	defer server.Close()

	runner := NewOpenAIRunner(server.URL, 5*time.Second, nil)
	assert.False(t, runner.SupportsWebSearch())

	resp, err := runner.Run(context.Background(), StageCall{
		Stage:   StageDeepDive,
		Request: StageRequest{SystemPrompt: "sys", UserPrompt: "research ACME"},
		Config:  StageModelConfig{Provider: ProviderOpenAI, Model: "gpt-5.2", Tools: ToolsWebSearch, ReasoningDepth: DepthHigh, MaxOutputTokens: 2000},
		APIKey:  "sk-test",
	})
	require.NoError(t, err)
	assert.Equal(t, "ACME beat estimates.", resp.RawText)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "https://wire.example/acme", resp.Sources[0].URL)
	assert.Equal(t, "ACME Q3", resp.Sources[0].Title)
}

func TestOpenAIRunner_SupportsWebSearch(t *testing.T) {
	assert.True(t, NewOpenAIRunner("", time.Second, nil).SupportsWebSearch())
	assert.True(t, NewOpenAIRunner("https://api.openai.com/v1", time.Second, nil).SupportsWebSearch())
	assert.False(t, NewOpenAIRunner("http://localhost:8080/v1", time.Second, nil).SupportsWebSearch())
}

func TestReasoningEffort(t *testing.T) {
	assert.Equal(t, "", reasoningEffort(DepthHigh, "gpt-4o-mini"))
	assert.Equal(t, "high", reasoningEffort(DepthHigh, "gpt-5.2"))
	assert.Equal(t, "minimal", reasoningEffort(DepthMinimal, "o4-mini"))
	assert.Equal(t, "medium", reasoningEffort(DepthMedium, "o3"))
}

func TestThinkingLevel(t *testing.T) {
	assert.Equal(t, "", string(thinkingLevel(DepthHigh, "gemini-2.5-flash")))
	assert.NotEmpty(t, string(thinkingLevel(DepthHigh, "gemini-3-pro-preview")))
}
