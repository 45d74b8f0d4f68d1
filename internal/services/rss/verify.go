package rss

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/services/llm"
)

const verifySnippet = 2000

// VerifyResult is the model's verdict on a candidate feed URL.
type VerifyResult struct {
	Valid       bool   `json:"is_valid"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// RawFetcher returns the start of a document without side effects.
type RawFetcher interface {
	FetchRaw(ctx context.Context, url string) (string, error)
}

// StageRouter dispatches one LLM stage.
type StageRouter interface {
	Run(ctx context.Context, stage llm.Stage, req llm.StageRequest) (*llm.StageResponse, error)
}

// Verifier checks that a user-supplied URL is a financial news feed.
type Verifier struct {
	fetcher RawFetcher
	router  StageRouter
	logger  arbor.ILogger
}

// NewVerifier creates the RSS_VERIFY stage.
func NewVerifier(fetcher RawFetcher, router StageRouter, logger arbor.ILogger) *Verifier {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Verifier{fetcher: fetcher, router: router, logger: logger}
}

// Verify fetches url and asks the model whether it is a valid feed.
// Failures return an invalid result, never an error.
func (v *Verifier) Verify(ctx context.Context, url string) VerifyResult {
	raw, err := v.fetcher.FetchRaw(ctx, url)
	if err != nil || raw == "" {
		v.logger.Warn().Str("url", url).Err(err).Msg("Feed verification fetch failed")
		return VerifyResult{Title: "Unknown", Description: "Could not fetch URL."}
	}
	if len(raw) > verifySnippet {
		raw = raw[:verifySnippet]
	}

	prompt := fmt.Sprintf(`Analyze the following text snippet from a URL.
Determine if it appears to be a valid RSS or Atom feed containing news, market analysis, or financial content.

Output schema:
{"is_valid": true, "title": "feed title or Unknown", "description": "short description, or why it is invalid"}

Snippet:
%s`, raw)

	resp, err := v.router.Run(ctx, llm.StageRssVerify, llm.StageRequest{
		SystemPrompt: "You are a technical validator.",
		UserPrompt:   prompt,
		ExpectJSON:   true,
	})
	result := llm.Decode[VerifyResult](resp, err, nil)
	switch result.Status {
	case llm.StatusSuccess:
		return result.Value
	case llm.StatusEmpty:
		return VerifyResult{Title: "Unknown", Description: "Failed to parse validation."}
	default:
		return VerifyResult{Title: "Error", Description: fmt.Sprintf("Verification process failed: %v", result.Err)}
	}
}
