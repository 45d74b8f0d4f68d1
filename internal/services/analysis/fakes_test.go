package analysis

import (
	"context"
	"sync"

	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/llm"
)

// fakeGateway answers each data kind through an optional func field and
// counts calls per kind.
type fakeGateway struct {
	mu    sync.Mutex
	calls map[string][]string

	quotes    func(symbols []string) map[string]models.Quote
	intraday  func(symbol string) []models.IntradayBar
	daily     func(symbol string) []models.DailyBar
	profile   func(symbol string) *models.CompanyProfile
	metrics   func(symbol string) *models.FinancialMetrics
	sentiment func(symbol string) *models.SentimentData
	screen    func(criteria models.ScreenerCriteria) []string
	gainers   func(limit int) []string
	losers    func(limit int) []string
	active    func(limit int) []string
}

func (g *fakeGateway) record(kind, symbol string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = make(map[string][]string)
	}
	g.calls[kind] = append(g.calls[kind], symbol)
}

func (g *fakeGateway) called(kind string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls[kind]...)
}

func (g *fakeGateway) GetQuote(ctx context.Context, symbol string) *models.Quote {
	q, ok := g.GetQuotes(ctx, []string{symbol})[symbol]
	if !ok {
		return nil
	}
	return &q
}

func (g *fakeGateway) GetQuotes(_ context.Context, symbols []string) map[string]models.Quote {
	g.record("quotes", "")
	if g.quotes == nil {
		return map[string]models.Quote{}
	}
	return g.quotes(symbols)
}

func (g *fakeGateway) GetIntradayBars(_ context.Context, symbol string, _ int) []models.IntradayBar {
	g.record("intraday", symbol)
	if g.intraday == nil {
		return nil
	}
	return g.intraday(symbol)
}

func (g *fakeGateway) GetDailyBars(_ context.Context, symbol string, _ int) []models.DailyBar {
	g.record("daily", symbol)
	if g.daily == nil {
		return nil
	}
	return g.daily(symbol)
}

func (g *fakeGateway) GetProfile(_ context.Context, symbol string) *models.CompanyProfile {
	g.record("profile", symbol)
	if g.profile == nil {
		return nil
	}
	return g.profile(symbol)
}

func (g *fakeGateway) GetMetrics(_ context.Context, symbol string) *models.FinancialMetrics {
	g.record("metrics", symbol)
	if g.metrics == nil {
		return nil
	}
	return g.metrics(symbol)
}

func (g *fakeGateway) GetSentiment(_ context.Context, symbol string) *models.SentimentData {
	g.record("sentiment", symbol)
	if g.sentiment == nil {
		return nil
	}
	return g.sentiment(symbol)
}

func (g *fakeGateway) Screen(_ context.Context, criteria models.ScreenerCriteria) []string {
	g.record("screen", "")
	if g.screen == nil {
		return nil
	}
	return g.screen(criteria)
}

func (g *fakeGateway) TopGainers(_ context.Context, limit int) []string {
	if g.gainers == nil {
		return nil
	}
	return g.gainers(limit)
}

func (g *fakeGateway) TopLosers(_ context.Context, limit int) []string {
	if g.losers == nil {
		return nil
	}
	return g.losers(limit)
}

func (g *fakeGateway) MostActive(_ context.Context, limit int) []string {
	if g.active == nil {
		return nil
	}
	return g.active(limit)
}

func (g *fakeGateway) Search(context.Context, string, int) []models.SymbolMatch { return nil }

func (g *fakeGateway) ClearCaches() {}

// routerFunc adapts a function to StageRouter.
type routerFunc func(ctx context.Context, stage llm.Stage, req llm.StageRequest) (*llm.StageResponse, error)

func (f routerFunc) Run(ctx context.Context, stage llm.Stage, req llm.StageRequest) (*llm.StageResponse, error) {
	return f(ctx, stage, req)
}

// stageReplies returns canned JSON per stage and records the stages seen.
type stageReplies struct {
	mu      sync.Mutex
	replies map[llm.Stage]string
	errs    map[llm.Stage]error
	seen    []llm.Stage
	prompts map[llm.Stage]string
}

func (s *stageReplies) Run(_ context.Context, stage llm.Stage, req llm.StageRequest) (*llm.StageResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, stage)
	if s.prompts == nil {
		s.prompts = make(map[llm.Stage]string)
	}
	s.prompts[stage] = req.UserPrompt
	if err := s.errs[stage]; err != nil {
		return nil, err
	}
	raw, ok := s.replies[stage]
	if !ok {
		return &llm.StageResponse{}, nil
	}
	return &llm.StageResponse{RawText: raw}, nil
}

func quotesFrom(table map[string]models.Quote) func([]string) map[string]models.Quote {
	return func(symbols []string) map[string]models.Quote {
		out := make(map[string]models.Quote)
		for _, s := range symbols {
			if q, ok := table[s]; ok {
				out[s] = q
			}
		}
		return out
	}
}
