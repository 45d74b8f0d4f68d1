package analysis

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
)

// TradeabilityFilter drops symbols that cannot currently be traded.
type TradeabilityFilter struct {
	gateway interfaces.MarketDataService
	logger  arbor.ILogger
}

// NewTradeabilityFilter creates a filter over gateway quotes.
func NewTradeabilityFilter(gateway interfaces.MarketDataService, logger arbor.ILogger) *TradeabilityFilter {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &TradeabilityFilter{gateway: gateway, logger: logger}
}

// Execute keeps symbols with a quote priced at or above minPrice and with
// positive volume, in input order. Symbols are normalized and deduplicated
// first, and the result holds the normalized form. No quotes at all yields
// an empty list.
func (f *TradeabilityFilter) Execute(ctx context.Context, input []string, minPrice float64) ([]string, error) {
	symbols := make([]string, 0, len(input))
	seen := make(map[string]bool, len(input))
	for _, s := range input {
		s = models.NormalizeSymbol(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}
	if len(symbols) == 0 {
		return nil, nil
	}

	quotes := f.gateway.GetQuotes(ctx, symbols)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		f.logger.Warn().Int("symbols", len(symbols)).Msg("No quotes available, nothing is tradeable")
		return nil, nil
	}

	tradeable := make([]string, 0, len(symbols))
	for _, s := range symbols {
		q, ok := quotes[s]
		if !ok || q.Price < minPrice || q.Volume <= 0 {
			continue
		}
		tradeable = append(tradeable, s)
	}

	f.logger.Debug().
		Int("symbols", len(symbols)).
		Int("tradeable", len(tradeable)).
		Float64("min_price", minPrice).
		Msg("Tradeability filter applied")

	return tradeable, nil
}
