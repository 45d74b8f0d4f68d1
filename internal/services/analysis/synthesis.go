package analysis

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/llm"
)

// Synthesizer merges fundamentals and the news digest into a review list.
type Synthesizer struct {
	router StageRouter
	logger arbor.ILogger
}

// NewSynthesizer creates the FUNDAMENTALS_NEWS_SYNTHESIS stage.
func NewSynthesizer(router StageRouter, logger arbor.ILogger) *Synthesizer {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Synthesizer{router: router, logger: logger}
}

// Run returns the synthesis for setups. digest may be nil.
func (s *Synthesizer) Run(ctx context.Context, setups []models.TradeSetup, digest *models.RssDigest, intent models.TradingIntent, risk models.RiskTolerance) llm.StageResult[models.FundamentalsNewsSynthesis] {
	if len(setups) == 0 {
		return llm.Empty[models.FundamentalsNewsSynthesis]()
	}

	resp, err := s.router.Run(ctx, llm.StageFundamentalsNewsSynthesis, llm.StageRequest{
		SystemPrompt: SystemAnalyst,
		UserPrompt:   synthesisPrompt(intent, risk, setups, digest),
		ExpectJSON:   true,
	})
	result := llm.Decode(resp, err, func(f models.FundamentalsNewsSynthesis) bool { return f.IsEmpty() })
	if result.Status != llm.StatusSuccess {
		s.logger.Warn().Str("status", result.Status.String()).Err(result.Err).Msg("Synthesis omitted")
	}
	return result
}
