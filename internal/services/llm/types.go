// Package llm routes each analysis stage to an independently configured
// LLM provider, model and tool set.
package llm

import (
	"context"
	"time"

	"github.com/ternarybob/vigil/internal/models"
)

// Stage identifies an LLM-gated pipeline step.
type Stage string

const (
	StageShortlist                 Stage = "SHORTLIST"
	StageDecisionUpdate            Stage = "DECISION_UPDATE"
	StageFundamentalsNewsSynthesis Stage = "FUNDAMENTALS_NEWS_SYNTHESIS"
	StageDeepDive                  Stage = "DEEP_DIVE"
	StageRssVerify                 Stage = "RSS_VERIFY"
)

// Stages lists every stage in pipeline order.
func Stages() []Stage {
	return []Stage{StageShortlist, StageDecisionUpdate, StageFundamentalsNewsSynthesis, StageDeepDive, StageRssVerify}
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, known := range Stages() {
		if s == known {
			return true
		}
	}
	return false
}

// Provider names a runner implementation.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
)

// KeyName returns the credential name resolved through common.ResolveAPIKey.
func (p Provider) KeyName() string {
	return string(p) + "_api_key"
}

// WebSearchTool returns the provider's own identifier for a generic web
// search request, or ToolsNone when the provider has none.
func (p Provider) WebSearchTool() ToolsMode {
	switch p {
	case ProviderGemini:
		return ToolsGoogleSearch
	case ProviderAnthropic, ProviderOpenAI:
		return ToolsWebSearch
	default:
		return ToolsNone
	}
}

// ToolsMode selects the tools exposed to the model.
type ToolsMode string

const (
	ToolsNone         ToolsMode = "NONE"
	ToolsWebSearch    ToolsMode = "WEB_SEARCH"
	ToolsGoogleSearch ToolsMode = "GOOGLE_SEARCH"
)

// ReasoningDepth is a provider-neutral thinking budget.
type ReasoningDepth string

const (
	DepthNone    ReasoningDepth = "NONE"
	DepthMinimal ReasoningDepth = "MINIMAL"
	DepthLow     ReasoningDepth = "LOW"
	DepthMedium  ReasoningDepth = "MEDIUM"
	DepthHigh    ReasoningDepth = "HIGH"
	DepthExtra   ReasoningDepth = "EXTRA"
)

// StageModelConfig is the resolved routing for one stage.
type StageModelConfig struct {
	Provider        Provider       `json:"provider" validate:"required,oneof=anthropic gemini openai"`
	Model           string         `json:"model"`
	Tools           ToolsMode      `json:"tools" validate:"omitempty,oneof=NONE WEB_SEARCH GOOGLE_SEARCH"`
	Temperature     float64        `json:"temperature" validate:"gte=0,lte=2"`
	MaxOutputTokens int            `json:"max_output_tokens" validate:"gte=1"`
	TimeoutMs       int64          `json:"timeout_ms" validate:"gte=1000"`
	ReasoningDepth  ReasoningDepth `json:"reasoning_depth" validate:"omitempty,oneof=NONE MINIMAL LOW MEDIUM HIGH EXTRA"`
}

// Timeout returns the stage deadline.
func (c StageModelConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// StageRequest is what a stage asks of the router.
type StageRequest struct {
	SystemPrompt string
	UserPrompt   string
	// ExpectJSON asks the runner to extract a JSON object from the reply.
	ExpectJSON bool
}

// StageCall is the fully resolved invocation handed to a runner.
type StageCall struct {
	Stage   Stage
	Request StageRequest
	Config  StageModelConfig
	APIKey  string
}

// StageResponse is a runner's reply.
type StageResponse struct {
	RawText       string             `json:"raw_text"`
	ParsedJSON    string             `json:"parsed_json,omitempty"`
	Sources       []models.WebSource `json:"sources,omitempty"`
	ProviderDebug string             `json:"provider_debug,omitempty"`
}

// StageRunner executes a stage call against one provider.
type StageRunner interface {
	Run(ctx context.Context, call StageCall) (*StageResponse, error)
}

// StageRunnerFunc adapts a function to StageRunner.
type StageRunnerFunc func(ctx context.Context, call StageCall) (*StageResponse, error)

// Run calls f.
func (f StageRunnerFunc) Run(ctx context.Context, call StageCall) (*StageResponse, error) {
	return f(ctx, call)
}
