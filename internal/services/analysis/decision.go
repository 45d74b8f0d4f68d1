package analysis

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/llm"
)

// DecisionUpdater asks the model which ranked setups to keep.
type DecisionUpdater struct {
	router StageRouter
	logger arbor.ILogger
}

// NewDecisionUpdater creates the DECISION_UPDATE stage.
func NewDecisionUpdater(router StageRouter, logger arbor.ILogger) *DecisionUpdater {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &DecisionUpdater{router: router, logger: logger}
}

// Run returns the keep/drop decision. An update that names nothing is Empty.
func (u *DecisionUpdater) Run(ctx context.Context, setups []models.TradeSetup, intent models.TradingIntent, risk models.RiskTolerance, maxKeep int) llm.StageResult[models.DecisionUpdate] {
	if len(setups) == 0 {
		return llm.Empty[models.DecisionUpdate]()
	}

	resp, err := u.router.Run(ctx, llm.StageDecisionUpdate, llm.StageRequest{
		SystemPrompt: SystemAnalyst,
		UserPrompt:   decisionPrompt(intent, risk, setups, maxKeep),
		ExpectJSON:   true,
	})
	result := llm.Decode(resp, err, func(d models.DecisionUpdate) bool { return d.IsEmpty() })
	if result.Status != llm.StatusSuccess {
		u.logger.Warn().Str("status", result.Status.String()).Err(result.Err).Msg("Decision update produced no changes")
	}
	return result
}

// ApplyDecision filters setups by update and copies the model's annotations
// onto kept setups. Keep takes precedence over drop; an empty update changes nothing.
func ApplyDecision(setups []models.TradeSetup, update *models.DecisionUpdate) []models.TradeSetup {
	if update.IsEmpty() {
		return setups
	}

	keep := make(map[string]models.DecisionKeep, len(update.Keep))
	for _, k := range update.Keep {
		if sym := models.NormalizeSymbol(k.Symbol); sym != "" {
			keep[sym] = k
		}
	}
	drop := make(map[string]bool, len(update.Drop))
	for _, d := range update.Drop {
		if sym := models.NormalizeSymbol(d.Symbol); sym != "" {
			drop[sym] = true
		}
	}

	out := make([]models.TradeSetup, 0, len(setups))
	for _, s := range setups {
		sym := models.NormalizeSymbol(s.Symbol)
		if len(keep) > 0 {
			k, ok := keep[sym]
			if !ok {
				continue
			}
			s.DecisionBias = k.SetupBias
			s.MustReview = k.MustReview
			s.RssNeeded = k.RssNeeded || k.ExpandedRssNeeded
			s.ExpandedRssNeeded = k.ExpandedRssNeeded
			s.ExpandedRssReason = k.ExpandedRssReason
			if k.Confidence > 0 {
				s.DecisionConfidence = models.Float64Ptr(k.Confidence)
			}
		} else if drop[sym] {
			continue
		}
		out = append(out, s)
	}
	return out
}
