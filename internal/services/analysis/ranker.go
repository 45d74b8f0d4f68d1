package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ternarybob/vigil/internal/models"
)

const (
	maxScore        = 4.0
	minConfidence   = 0.1
	highProbability = 2.0
	stopFactor      = 0.98
	targetFactor    = 1.05
	earningsWindow  = 3
)

// RankInput is everything the ranker reads. Missing map entries mean unknown.
type RankInput struct {
	Symbols  []string
	Quotes   map[string]models.Quote
	Intraday map[string]models.IntradayStats
	EOD      map[string]models.EodStats
	Context  map[string]models.SymbolContext
	Intent   models.TradingIntent
	Now      time.Time
}

// RankSetups scores every symbol that has a quote and returns setups ordered
// by confidence, highest first. Equal confidences keep input order.
func RankSetups(in RankInput) []models.TradeSetup {
	setups := make([]models.TradeSetup, 0, len(in.Symbols))
	for _, symbol := range in.Symbols {
		quote, ok := in.Quotes[symbol]
		if !ok {
			continue
		}
		setups = append(setups, scoreSymbol(symbol, quote, in))
	}

	sort.SliceStable(setups, func(i, j int) bool {
		return setups[i].Confidence > setups[j].Confidence
	})
	return setups
}

func scoreSymbol(symbol string, quote models.Quote, in RankInput) models.TradeSetup {
	price := quote.Price
	score := 0.0
	reasons := make([]string, 0, 5)

	setup := models.TradeSetup{
		Symbol:       symbol,
		TriggerPrice: price,
		StopLoss:     price * stopFactor,
		TargetPrice:  price * targetFactor,
		ValidUntil:   in.Now.Add(in.Intent.ValidityWindow()),
		Intent:       in.Intent,
		Source:       models.SourcePredefined,
	}

	if stats, ok := in.Intraday[symbol]; ok {
		s := stats
		setup.Intraday = &s
		if stats.VWAP != nil && price > *stats.VWAP {
			score++
			reasons = append(reasons, fmt.Sprintf("Price above VWAP (%.2f)", *stats.VWAP))
		}
		if stats.RSI14 != nil {
			rsi := *stats.RSI14
			switch {
			case rsi < 30:
				score++
				reasons = append(reasons, fmt.Sprintf("RSI oversold (%.1f)", rsi))
			case rsi > 70:
				score -= 0.5
				reasons = append(reasons, fmt.Sprintf("RSI overbought (%.1f)", rsi))
			default:
				reasons = append(reasons, fmt.Sprintf("RSI neutral (%.1f)", rsi))
			}
		}
	}

	if eod, ok := in.EOD[symbol]; ok {
		e := eod
		setup.EOD = &e
		if eod.SMA200 != nil && price > *eod.SMA200 {
			score++
			reasons = append(reasons, fmt.Sprintf("Price above SMA-200 (%.2f)", *eod.SMA200))
		}
	}

	penalty := 0.0
	if sc, ok := in.Context[symbol]; ok {
		setup.Profile = sc.Profile
		setup.Metrics = sc.Metrics
		setup.Sentiment = sc.Sentiment

		if sc.Sentiment != nil && sc.Sentiment.Score > 0.2 {
			score++
			reasons = append(reasons, fmt.Sprintf("Positive sentiment (%s, %.2f)",
				models.SentimentLabel(sc.Sentiment.Score), sc.Sentiment.Score))
		}
		if sc.Metrics != nil && sc.Metrics.EarningsDate != nil {
			days := daysBetween(in.Now, *sc.Metrics.EarningsDate)
			if days >= 0 && days <= earningsWindow {
				penalty = earningsPenalty(in.Intent)
				reasons = append(reasons, fmt.Sprintf("Upcoming earnings in %d days (High Volatility Risk)", days))
			}
		}
	}

	setup.Confidence = math.Min(1.0, math.Max(minConfidence, score/maxScore-penalty))
	if score > highProbability {
		setup.SetupType = models.SetupHighProbability
	} else {
		setup.SetupType = models.SetupSpeculative
	}
	setup.Reasons = reasons
	return setup
}

func earningsPenalty(intent models.TradingIntent) float64 {
	switch intent {
	case models.IntentDayTrade:
		return 0.2
	case models.IntentLongTerm:
		return 0.4
	default:
		return 0.8
	}
}

// daysBetween counts calendar days from now to then in UTC.
func daysBetween(now, then time.Time) int {
	y1, m1, d1 := now.UTC().Date()
	y2, m2, d2 := then.UTC().Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
