package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/llm"
	"github.com/ternarybob/vigil/internal/services/marketdata"
)

// formatAnalysis formats a pipeline result as markdown
func formatAnalysis(result *models.AnalysisResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Analysis %s (%s)\n\n", result.RunID, result.Intent))
	sb.WriteString(fmt.Sprintf("%d candidates, %d tradeable, %d setups\n\n",
		result.TotalCandidates, result.TradeableCount, result.SetupCount))

	if len(result.Setups) > 0 {
		sb.WriteString("| Symbol | Type | Confidence | Trigger | Stop | Target | Bias |\n")
		sb.WriteString("|---|---|---|---|---|---|---|\n")
		for _, s := range result.Setups {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %.2f | %.2f | %.2f | %s |\n",
				s.Symbol, s.SetupType, s.Confidence, s.TriggerPrice, s.StopLoss, s.TargetPrice, s.DecisionBias))
		}
		sb.WriteString("\n")
	}

	for _, note := range result.GlobalNotes {
		sb.WriteString(fmt.Sprintf("- %s\n", note))
	}

	if syn := result.FundamentalsNewsSynthesis; !syn.IsEmpty() {
		sb.WriteString("\n### Review\n\n")
		for i, item := range syn.RankedReviewList {
			sb.WriteString(fmt.Sprintf("%d. **%s**: %s\n", i+1, item.Symbol, item.OneParagraphBrief))
		}
		sb.WriteString(fmt.Sprintf("\nPositions: %d, posture: %s\n",
			syn.PortfolioGuidance.PositionCount, syn.PortfolioGuidance.RiskPosture))
	}
	return sb.String()
}

// formatQuotes formats quotes as a markdown table in request order
func formatQuotes(symbols []string, quotes map[string]models.Quote) string {
	var sb strings.Builder
	sb.WriteString("| Symbol | Price | Volume | As of |\n|---|---|---|---|\n")
	for _, sym := range symbols {
		q, ok := quotes[sym]
		if !ok {
			sb.WriteString(fmt.Sprintf("| %s | unavailable | | |\n", sym))
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %.2f | %d | %s |\n", sym, q.Price, q.Volume, q.Timestamp.Format(time.RFC3339)))
	}
	return sb.String()
}

// formatHealth formats provider status
func formatHealth(statuses []marketdata.ProviderStatus) string {
	if len(statuses) == 0 {
		return "No market data providers configured."
	}
	var sb strings.Builder
	sb.WriteString("| Provider | Blacklisted until | Breaker |\n|---|---|---|\n")
	for _, s := range statuses {
		until := "-"
		if s.BlacklistedUntil != nil {
			until = s.BlacklistedUntil.Format(time.RFC3339)
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", s.Name, until, s.Breaker))
	}
	return sb.String()
}

// formatAudit formats LLM audit entries, newest first
func formatAudit(entries []llm.AuditEntry) string {
	if len(entries) == 0 {
		return "No LLM calls recorded."
	}
	var sb strings.Builder
	sb.WriteString("| Time | Stage | Provider | Model | OK | ms |\n|---|---|---|---|---|---|\n")
	for _, e := range entries {
		ok := "yes"
		if !e.Success {
			ok = "no: " + e.Error
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %d |\n",
			e.Timestamp.Format(time.TimeOnly), e.Stage, e.Provider, e.Model, ok, e.DurationMs))
	}
	return sb.String()
}

// formatBrief formats a deep-dive brief
func formatBrief(b models.DeepDiveBrief) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n%s\n", b.Symbol, b.Summary))
	writeList(&sb, "Catalysts", b.Catalysts)
	writeList(&sb, "Risks", b.Risks)
	if len(b.Sources) > 0 {
		sb.WriteString("\n### Sources\n")
		for _, s := range b.Sources {
			sb.WriteString(fmt.Sprintf("- [%s](%s)\n", s.Title, s.URL))
		}
	}
	return sb.String()
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n### %s\n", title))
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("- %s\n", item))
	}
}
