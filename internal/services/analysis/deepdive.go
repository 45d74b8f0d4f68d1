package analysis

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/llm"
)

const noActionableNews = "No actionable recent news found for this ticker within the last 72 hours that would significantly alter the current thesis."

// DeepDive runs the web-grounded per-symbol research stage on demand.
type DeepDive struct {
	router StageRouter
	logger arbor.ILogger
}

// NewDeepDive creates the DEEP_DIVE stage.
func NewDeepDive(router StageRouter, logger arbor.ILogger) *DeepDive {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &DeepDive{router: router, logger: logger}
}

// FallbackBrief is the brief shown when the stage yields nothing.
func FallbackBrief(symbol string) models.DeepDiveBrief {
	return models.DeepDiveBrief{Symbol: symbol, Summary: noActionableNews}
}

// Run researches setup. Grounding citations returned by the provider come
// first in Sources, followed by any the model listed itself, unique by URL.
func (d *DeepDive) Run(ctx context.Context, setup models.TradeSetup, headlines []models.RssHeadline) llm.StageResult[models.DeepDiveBrief] {
	resp, err := d.router.Run(ctx, llm.StageDeepDive, llm.StageRequest{
		SystemPrompt: SystemAnalyst,
		UserPrompt:   deepDivePrompt(setup.Symbol, setup.Intent, Snapshot(setup), headlines),
		ExpectJSON:   true,
	})
	result := llm.Decode(resp, err, func(b models.DeepDiveBrief) bool { return b.Summary == "" })
	if result.Status != llm.StatusSuccess {
		d.logger.Warn().Str("symbol", setup.Symbol).Str("status", result.Status.String()).Err(result.Err).Msg("Deep dive produced no brief")
		return result
	}

	brief := result.Value
	brief.Symbol = setup.Symbol
	brief.Sources = mergeSources(resp.Sources, brief.Sources)
	return llm.Success(brief)
}

func mergeSources(lists ...[]models.WebSource) []models.WebSource {
	var out []models.WebSource
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, src := range list {
			if src.URL == "" || seen[src.URL] {
				continue
			}
			seen[src.URL] = true
			out = append(out, src)
		}
	}
	return out
}
