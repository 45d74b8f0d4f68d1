package analysis

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/llm"
)

// StageRouter dispatches one pipeline stage to its configured model.
type StageRouter interface {
	Run(ctx context.Context, stage llm.Stage, req llm.StageRequest) (*llm.StageResponse, error)
}

// ShortlistGate asks the model which tradeable symbols deserve enrichment.
type ShortlistGate struct {
	router StageRouter
	logger arbor.ILogger
}

// NewShortlistGate creates the SHORTLIST stage.
func NewShortlistGate(router StageRouter, logger arbor.ILogger) *ShortlistGate {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &ShortlistGate{router: router, logger: logger}
}

// Run returns the shortlist plan. Items marked avoid, items naming symbols
// outside symbols and repeats are removed, and the list is capped at maxShortlist.
func (g *ShortlistGate) Run(ctx context.Context, symbols []string, quotes map[string]models.Quote, intent models.TradingIntent, risk models.RiskTolerance, maxShortlist int) llm.StageResult[models.ShortlistPlan] {
	if len(symbols) == 0 {
		return llm.Empty[models.ShortlistPlan]()
	}

	g.logger.Info().Int("symbols", len(symbols)).Int("max_shortlist", maxShortlist).Msg("Requesting shortlist")

	resp, err := g.router.Run(ctx, llm.StageShortlist, llm.StageRequest{
		SystemPrompt: SystemAnalyst,
		UserPrompt:   shortlistPrompt(intent, risk, symbols, quotes, maxShortlist),
		ExpectJSON:   true,
	})
	result := llm.Decode[models.ShortlistPlan](resp, err, nil)
	if result.Status != llm.StatusSuccess {
		g.logger.Warn().Str("status", result.Status.String()).Err(result.Err).Msg("Shortlist stage produced no plan")
		return result
	}

	allowed := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		allowed[s] = true
	}

	plan := result.Value
	kept := make([]models.ShortlistItem, 0, len(plan.Shortlist))
	seen := make(map[string]bool, len(plan.Shortlist))
	for _, item := range plan.Shortlist {
		item.Symbol = models.NormalizeSymbol(item.Symbol)
		if item.Avoid || !allowed[item.Symbol] || seen[item.Symbol] {
			continue
		}
		seen[item.Symbol] = true
		kept = append(kept, item)
		if maxShortlist > 0 && len(kept) == maxShortlist {
			break
		}
	}
	plan.Shortlist = kept

	g.logger.Info().Int("shortlisted", len(kept)).Msg("Shortlist received")
	return llm.Success(plan)
}
