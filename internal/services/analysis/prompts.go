package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/vigil/internal/models"
)

// SystemAnalyst is the system prompt shared by every stage.
const SystemAnalyst = "You are a senior trading analyst. Respond with JSON only."

func shortlistPrompt(intent models.TradingIntent, risk models.RiskTolerance, symbols []string, quotes map[string]models.Quote, maxShortlist int) string {
	var lines strings.Builder
	for _, s := range symbols {
		q, ok := quotes[s]
		if !ok {
			continue
		}
		fmt.Fprintf(&lines, "%s: Price=%.2f, Change=%s%%, Vol=%d\n", s, q.Price, optional(q.ChangePercent, "%.2f"), q.Volume)
	}

	return fmt.Sprintf(`Select the symbols most worth a closer look for a %s trader with %s risk tolerance.

Quotes:
%s
Select at most %d symbols. Ask only for the enrichment each symbol needs:
INTRADAY (VWAP/RSI/ATR), EOD (moving averages), FUNDAMENTALS, SENTIMENT.
Mark symbols to avoid with "avoid": true.

Output schema:
{
  "shortlist": [
    {
      "symbol": "TICKER",
      "priority": 1,
      "reasons": ["why this symbol"],
      "requested_enrichment": ["INTRADAY", "EOD", "FUNDAMENTALS", "SENTIMENT"],
      "avoid": false,
      "risk_flags": ["optional risk"]
    }
  ],
  "global_notes": ["market-wide observation"],
  "limits_applied": {"max_shortlist": %d}
}`, intent, risk, lines.String(), maxShortlist, maxShortlist)
}

func decisionPrompt(intent models.TradingIntent, risk models.RiskTolerance, setups []models.TradeSetup, maxKeep int) string {
	var lines strings.Builder
	for _, s := range setups {
		fmt.Fprintf(&lines, "%s | %s | confidence=%.2f | trigger=%.2f stop=%.2f target=%.2f | %s | %s | %s | %s\n",
			s.Symbol, s.SetupType, s.Confidence, s.TriggerPrice, s.StopLoss, s.TargetPrice,
			profileLine(s.Profile), metricsLine(s.Metrics), sentimentLine(s.Sentiment), strings.Join(s.Reasons, "; "))
	}

	return fmt.Sprintf(`Review these ranked %s setups for a trader with %s risk tolerance.
Keep at most %d setups; drop the rest with reasons.

Setups (symbol | type | confidence | levels | profile | metrics | sentiment | reasons):
%s
Set "rss_needed" when recent headlines could change the call, and
"expanded_rss_needed" with a short "expanded_rss_reason" when wider news coverage is required.

Output schema:
{
  "keep": [
    {
      "symbol": "TICKER",
      "confidence": 0.0,
      "setup_bias": "bullish|bearish|neutral",
      "must_review": false,
      "rss_needed": false,
      "expanded_rss_needed": false,
      "expanded_rss_reason": ""
    }
  ],
  "drop": [{"symbol": "TICKER", "reasons": ["why"]}],
  "limits_applied": {"max_keep": %d}
}`, intent, risk, maxKeep, lines.String(), maxKeep)
}

func synthesisPrompt(intent models.TradingIntent, risk models.RiskTolerance, setups []models.TradeSetup, digest *models.RssDigest) string {
	var blocks strings.Builder
	for _, s := range setups {
		fmt.Fprintf(&blocks, "Symbol: %s\nConfidence: %.2f\nSetup Type: %s\n", s.Symbol, s.Confidence, s.SetupType)
		if s.Profile != nil {
			fmt.Fprintf(&blocks, "Company: %s\nSector: %s\nIndustry: %s\n", s.Profile.Name, s.Profile.Sector, s.Profile.Industry)
		}
		fmt.Fprintf(&blocks, "Metrics: %s\nSentiment: %s\nReasons: %s\n\n",
			metricsLine(s.Metrics), sentimentLine(s.Sentiment), strings.Join(s.Reasons, "; "))
	}

	return fmt.Sprintf(`Combine fundamentals and recent news into a ranked review list for a %s trader with %s risk tolerance.

Setups:
%s
Recent headlines:
%s

Output schema:
{
  "ranked_review_list": [
    {
      "symbol": "TICKER",
      "what_to_review": ["item"],
      "risk_summary": ["risk"],
      "one_paragraph_brief": "brief"
    }
  ],
  "portfolio_guidance": {
    "position_count": 0,
    "risk_posture": "defensive|balanced|aggressive",
    "notes": ["note"]
  }
}`, intent, risk, blocks.String(), digestText(setups, digest))
}

func deepDivePrompt(symbol string, intent models.TradingIntent, snapshot string, headlines []models.RssHeadline) string {
	var news strings.Builder
	if len(headlines) == 0 {
		news.WriteString("No recent headlines found.")
	}
	for _, h := range headlines {
		fmt.Fprintf(&news, "- %s\n", h.Title)
	}

	return fmt.Sprintf(`Research %s for a %s trade using current web sources from the last 72 hours.

Snapshot:
%s

Headlines already seen:
%s

Cite every source you rely on.

Output schema:
{
  "summary": "what matters now",
  "catalysts": ["driver"],
  "risks": ["risk"],
  "sources": [{"title": "", "url": "", "snippet": ""}]
}`, symbol, intent, snapshot, news.String())
}

// Snapshot renders a setup as the plain-text context block used by DeepDive.
func Snapshot(s models.TradeSetup) string {
	return fmt.Sprintf("%s %s confidence=%.2f trigger=%.2f stop=%.2f target=%.2f\n%s\n%s\n%s\nReasons: %s",
		s.Symbol, s.SetupType, s.Confidence, s.TriggerPrice, s.StopLoss, s.TargetPrice,
		profileLine(s.Profile), metricsLine(s.Metrics), sentimentLine(s.Sentiment), strings.Join(s.Reasons, "; "))
}

func digestText(setups []models.TradeSetup, digest *models.RssDigest) string {
	var b strings.Builder
	for _, s := range setups {
		fmt.Fprintf(&b, "%s:\n", s.Symbol)
		var items []models.RssHeadline
		if digest != nil {
			items = digest.Tickers[s.Symbol]
		}
		if len(items) == 0 {
			b.WriteString("- No recent headlines.\n")
			continue
		}
		for _, h := range items {
			fmt.Fprintf(&b, "- %s (%s)\n", h.Title, h.PublishedAt.UTC().Format(time.RFC3339))
		}
	}
	return b.String()
}

func profileLine(p *models.CompanyProfile) string {
	if p == nil {
		return "profile=n/a"
	}
	return fmt.Sprintf("%s, %s/%s", p.Name, p.Sector, p.Industry)
}

func metricsLine(m *models.FinancialMetrics) string {
	if m.IsEmpty() {
		return "metrics=n/a"
	}
	parts := []string{
		"mcap=" + optional(m.MarketCap, "%.0f"),
		"pe=" + optional(m.PERatio, "%.2f"),
		"eps=" + optional(m.EPS, "%.2f"),
	}
	if m.EarningsDate != nil {
		parts = append(parts, "earnings="+m.EarningsDate.Format("2006-01-02"))
	}
	return strings.Join(parts, " ")
}

func sentimentLine(s *models.SentimentData) string {
	if s == nil {
		return "sentiment=n/a"
	}
	return fmt.Sprintf("sentiment=%s(%.2f)", s.Label, s.Score)
}

func optional(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}
