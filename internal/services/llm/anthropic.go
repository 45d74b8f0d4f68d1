package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/retry"
)

// AnthropicRunner runs stages on the Claude Messages API, with the server-side
// web search tool when the call's tools allow it.
type AnthropicRunner struct {
	baseURL string
	logger  arbor.ILogger
}

// NewAnthropicRunner creates a runner; baseURL may be empty.
func NewAnthropicRunner(baseURL string, logger arbor.ILogger) *AnthropicRunner {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &AnthropicRunner{baseURL: baseURL, logger: logger}
}

// Run sends the system and user prompt as a single-turn message.
func (r *AnthropicRunner) Run(ctx context.Context, call StageCall) (*StageResponse, error) {
	// retry.Policy owns retries; the SDK's own would sleep outside it.
	opts := []option.RequestOption{option.WithAPIKey(call.APIKey), option.WithMaxRetries(0)}
	if r.baseURL != "" {
		opts = append(opts, option.WithBaseURL(r.baseURL))
	}
	client := anthropic.NewClient(opts...)

	model := call.Config.Model
	if model == "" {
		model = DefaultModel(ProviderAnthropic)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(call.Config.MaxOutputTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(call.Request.UserPrompt)),
		},
		Temperature: anthropic.Float(call.Config.Temperature),
	}
	if call.Request.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: call.Request.SystemPrompt},
		}
	}

	if call.Config.Tools == ToolsWebSearch {
		params.Tools = []anthropic.ToolUnionParam{
			{OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{MaxUses: anthropic.Int(5)}},
		}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAnthropicError(err)
	}

	var text strings.Builder
	var sources []models.WebSource
	seen := make(map[string]bool)
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		text.WriteString(block.Text)
		for _, c := range block.Citations {
			if c.Type != "web_search_result_location" || c.URL == "" || seen[c.URL] {
				continue
			}
			seen[c.URL] = true
			sources = append(sources, models.WebSource{Title: c.Title, URL: c.URL, Snippet: c.CitedText})
		}
	}

	r.logger.Debug().
		Str("stage", string(call.Stage)).
		Str("model", model).
		Int("response_length", text.Len()).
		Int("sources", len(sources)).
		Msg("Claude stage completed")

	return &StageResponse{
		RawText:       text.String(),
		Sources:       sources,
		ProviderDebug: fmt.Sprintf("model=%s, depth=%s, tools=%s", model, call.Config.ReasoningDepth, call.Config.Tools),
	}, nil
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		if retry.IsQuotaExhaustedMessage(err.Error()) {
			return &retry.AuthError{Provider: string(ProviderAnthropic), Message: err.Error()}
		}
		if retry.IsRateLimitMessage(err.Error()) {
			return &retry.RateLimitError{Provider: string(ProviderAnthropic), RetryAfter: retry.RetryAfterHint(err), Message: err.Error()}
		}
		return err
	}

	switch {
	case apiErr.StatusCode == 429:
		rl := &retry.RateLimitError{Provider: string(ProviderAnthropic), Message: err.Error()}
		if apiErr.Response != nil {
			rl.RetryAfter = retry.ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"), time.Now())
		}
		return rl
	case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
		return &retry.AuthError{Provider: string(ProviderAnthropic), StatusCode: apiErr.StatusCode, Message: err.Error()}
	case apiErr.StatusCode >= 500:
		return &retry.TransientError{Provider: string(ProviderAnthropic), Err: err}
	default:
		// the SDK message embeds the request URL, which must not reach message matching
		return fmt.Errorf("anthropic request failed (status %d): %s", apiErr.StatusCode, apiErr.RawJSON())
	}
}
