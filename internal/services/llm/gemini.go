package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/retry"
)

// GeminiRunner runs stages on the Gemini API, with GoogleSearch grounding
// when the call's tools allow it.
type GeminiRunner struct {
	logger arbor.ILogger
}

// NewGeminiRunner creates a Gemini runner.
func NewGeminiRunner(logger arbor.ILogger) *GeminiRunner {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &GeminiRunner{logger: logger}
}

// Run generates a single-turn completion and collects grounding sources.
func (r *GeminiRunner) Run(ctx context.Context, call StageCall) (*StageResponse, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  call.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := call.Config.Model
	if model == "" {
		model = DefaultModel(ProviderGemini)
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(call.Config.Temperature)),
		MaxOutputTokens: int32(call.Config.MaxOutputTokens),
	}
	if call.Request.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(call.Request.SystemPrompt, genai.RoleUser)
	}

	level := thinkingLevel(call.Config.ReasoningDepth, model)
	if level != "" {
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingLevel: level}
	}

	switch {
	case call.Config.Tools == ToolsGoogleSearch:
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	case call.Request.ExpectJSON:
		// structured output cannot be combined with tools
		config.ResponseMIMEType = "application/json"
	}

	resp, err := client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(call.Request.UserPrompt, genai.RoleUser)},
		config,
	)
	if err != nil {
		return nil, classifyGeminiError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return &StageResponse{ProviderDebug: fmt.Sprintf("model=%s, candidates=0", model)}, nil
	}

	var sources []models.WebSource
	if gm := resp.Candidates[0].GroundingMetadata; gm != nil {
		for _, chunk := range gm.GroundingChunks {
			if chunk != nil && chunk.Web != nil {
				sources = append(sources, models.WebSource{Title: chunk.Web.Title, URL: chunk.Web.URI})
			}
		}
	}

	text := resp.Text()
	r.logger.Debug().
		Str("stage", string(call.Stage)).
		Str("model", model).
		Int("response_length", len(text)).
		Int("sources", len(sources)).
		Msg("Gemini stage completed")

	return &StageResponse{
		RawText:       text,
		Sources:       sources,
		ProviderDebug: fmt.Sprintf("model=%s, depth=%s, level=%s, tools=%s", model, call.Config.ReasoningDepth, level, call.Config.Tools),
	}, nil
}

// thinkingLevel maps depth onto a Gemini 3 thinking level. Older models take
// no level.
func thinkingLevel(depth ReasoningDepth, model string) genai.ThinkingLevel {
	lower := strings.ToLower(model)
	if !strings.HasPrefix(lower, "gemini-3") {
		return ""
	}
	flash := strings.Contains(lower, "flash")

	switch depth {
	case DepthNone, DepthMinimal:
		if flash {
			return genai.ThinkingLevelMinimal
		}
		return genai.ThinkingLevelLow
	case DepthLow:
		return genai.ThinkingLevelLow
	case DepthMedium:
		if flash {
			return genai.ThinkingLevelMedium
		}
		return genai.ThinkingLevelHigh
	case DepthHigh, DepthExtra:
		return genai.ThinkingLevelHigh
	default:
		return ""
	}
}

func classifyGeminiError(err error) error {
	msg := err.Error()
	switch {
	case retry.IsQuotaExhaustedMessage(msg):
		return &retry.AuthError{Provider: string(ProviderGemini), StatusCode: 429, Message: msg}
	case retry.IsRateLimitMessage(msg):
		return &retry.RateLimitError{Provider: string(ProviderGemini), RetryAfter: retry.RetryAfterHint(err), Message: msg}
	case strings.Contains(msg, "API key not valid") || strings.Contains(msg, "PERMISSION_DENIED"):
		return &retry.AuthError{Provider: string(ProviderGemini), StatusCode: 403, Message: msg}
	case strings.Contains(msg, "UNAVAILABLE") || strings.Contains(msg, "INTERNAL") || strings.Contains(msg, "503"):
		return &retry.TransientError{Provider: string(ProviderGemini), Err: err}
	default:
		return err
	}
}
