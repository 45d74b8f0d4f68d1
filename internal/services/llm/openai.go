package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/httpclient"
	"github.com/ternarybob/vigil/internal/models"
)

// DefaultOpenAIBaseURL is the hosted OpenAI endpoint.
const DefaultOpenAIBaseURL = "https://api.openai.com"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model           string         `json:"model"`
	Messages        []chatMessage  `json:"messages"`
	Temperature     float64        `json:"temperature"`
	MaxTokens       int            `json:"max_tokens,omitempty"`
	ReasoningEffort string         `json:"reasoning_effort,omitempty"`
	ResponseFormat  map[string]any `json:"response_format,omitempty"`
	Stream          bool           `json:"stream"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type responsesTool struct {
	Type string `json:"type"`
}

type responsesReasoning struct {
	Effort string `json:"effort"`
}

type responsesRequest struct {
	Model           string              `json:"model"`
	Instructions    string              `json:"instructions,omitempty"`
	Input           string              `json:"input"`
	Tools           []responsesTool     `json:"tools"`
	Temperature     *float64            `json:"temperature,omitempty"`
	MaxOutputTokens int                 `json:"max_output_tokens,omitempty"`
	Reasoning       *responsesReasoning `json:"reasoning,omitempty"`
}

type responsesResponse struct {
	Model  string `json:"model"`
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type        string `json:"type"`
			Text        string `json:"text"`
			Annotations []struct {
				Type  string `json:"type"`
				URL   string `json:"url"`
				Title string `json:"title"`
			} `json:"annotations"`
		} `json:"content"`
	} `json:"output"`
}

// OpenAIRunner runs stages on any OpenAI-compatible chat completions
// endpoint (OpenAI, OpenRouter, Groq, a local llama-server ...). Web search
// goes through the Responses API and is only offered by hosted OpenAI.
type OpenAIRunner struct {
	baseURL string
	http    *httpclient.Client
	logger  arbor.ILogger
}

// NewOpenAIRunner creates a runner; an empty baseURL targets OpenAI.
func NewOpenAIRunner(baseURL string, timeout time.Duration, logger arbor.ILogger) *OpenAIRunner {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	baseURL = strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/v1")

	return &OpenAIRunner{
		baseURL: baseURL,
		http: httpclient.New(string(ProviderOpenAI), baseURL,
			httpclient.WithLogger(logger),
			httpclient.WithTimeout(timeout),
			httpclient.WithRateLimit(10),
		),
		logger: logger,
	}
}

// KeyOptional allows unauthenticated self-hosted endpoints.
func (r *OpenAIRunner) KeyOptional() bool {
	return r.baseURL != DefaultOpenAIBaseURL
}

// SupportsWebSearch reports whether the endpoint offers the web_search tool.
func (r *OpenAIRunner) SupportsWebSearch() bool {
	return r.baseURL == DefaultOpenAIBaseURL
}

// Run posts a system+user chat completion, or a Responses API request with
// web_search when the call's tools ask for it.
func (r *OpenAIRunner) Run(ctx context.Context, call StageCall) (*StageResponse, error) {
	model := call.Config.Model
	if model == "" {
		model = DefaultModel(ProviderOpenAI)
	}
	if call.Config.Tools == ToolsWebSearch {
		return r.runWithWebSearch(ctx, call, model)
	}

	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: call.Request.SystemPrompt},
			{Role: "user", Content: call.Request.UserPrompt},
		},
		Temperature:     call.Config.Temperature,
		MaxTokens:       call.Config.MaxOutputTokens,
		ReasoningEffort: reasoningEffort(call.Config.ReasoningDepth, model),
	}
	if call.Request.ExpectJSON {
		req.ResponseFormat = map[string]any{"type": "json_object"}
	}

	var resp chatResponse
	if err := r.http.PostJSON(ctx, "/v1/chat/completions", authHeaders(call.APIKey), req, &resp); err != nil {
		return nil, err
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	r.logger.Debug().
		Str("stage", string(call.Stage)).
		Str("model", model).
		Int("response_length", len(text)).
		Msg("OpenAI-compatible stage completed")

	return &StageResponse{
		RawText:       text,
		ProviderDebug: fmt.Sprintf("model=%s, api=openai-compatible, base=%s", model, r.baseURL),
	}, nil
}

func (r *OpenAIRunner) runWithWebSearch(ctx context.Context, call StageCall, model string) (*StageResponse, error) {
	req := responsesRequest{
		Model:           model,
		Instructions:    call.Request.SystemPrompt,
		Input:           call.Request.UserPrompt,
		Tools:           []responsesTool{{Type: "web_search"}},
		MaxOutputTokens: call.Config.MaxOutputTokens,
	}
	if effort := reasoningEffort(call.Config.ReasoningDepth, model); effort != "" {
		req.Reasoning = &responsesReasoning{Effort: effort}
	} else {
		temp := call.Config.Temperature
		req.Temperature = &temp
	}

	var resp responsesResponse
	if err := r.http.PostJSON(ctx, "/v1/responses", authHeaders(call.APIKey), req, &resp); err != nil {
		return nil, err
	}

	var text strings.Builder
	var sources []models.WebSource
	seen := make(map[string]bool)
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type != "output_text" {
				continue
			}
			text.WriteString(part.Text)
			for _, a := range part.Annotations {
				if a.Type != "url_citation" || a.URL == "" || seen[a.URL] {
					continue
				}
				seen[a.URL] = true
				sources = append(sources, models.WebSource{Title: a.Title, URL: a.URL})
			}
		}
	}

	r.logger.Debug().
		Str("stage", string(call.Stage)).
		Str("model", model).
		Int("response_length", text.Len()).
		Int("sources", len(sources)).
		Msg("OpenAI web search stage completed")

	return &StageResponse{
		RawText:       text.String(),
		Sources:       sources,
		ProviderDebug: fmt.Sprintf("model=%s, api=responses, tools=web_search", model),
	}, nil
}

func authHeaders(apiKey string) map[string]string {
	headers := map[string]string{}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}
	return headers
}

// reasoningEffort is only sent to reasoning model families.
func reasoningEffort(depth ReasoningDepth, model string) string {
	lower := strings.ToLower(model)
	if !strings.HasPrefix(lower, "o") && !strings.HasPrefix(lower, "gpt-5") {
		return ""
	}
	switch depth {
	case DepthNone, DepthMinimal:
		return "minimal"
	case DepthLow:
		return "low"
	case DepthHigh, DepthExtra:
		return "high"
	default:
		return "medium"
	}
}
