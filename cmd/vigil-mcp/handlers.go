package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/app"
	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/analysis"
	"github.com/ternarybob/vigil/internal/services/llm"
	"github.com/ternarybob/vigil/internal/services/marketdata"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

// handleRunAnalysis implements the run_analysis tool
func handleRunAnalysis(application *app.App, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := application.DefaultRequest(ctx)
		if v := request.GetString("intent", ""); v != "" {
			req.Intent = models.TradingIntent(strings.ToUpper(v))
		}
		if v := request.GetString("risk", ""); v != "" {
			req.Risk = models.RiskTolerance(strings.ToUpper(v))
		}
		if v := request.GetString("asset_class", ""); v != "" {
			req.AssetClass = models.AssetClass(strings.ToUpper(v))
		}
		if v := request.GetString("discovery_mode", ""); v != "" {
			req.DiscoveryMode = models.DiscoveryMode(strings.ToUpper(v))
		}
		req.CustomTickers = append(req.CustomTickers, request.GetStringSlice("tickers", nil)...)
		req.Blocklist = append(req.Blocklist, request.GetStringSlice("blocklist", nil)...)

		result, err := application.Orchestrator.Execute(ctx, req, nil)
		if err != nil {
			if analysis.IsUserInputError(err) {
				return textResult(fmt.Sprintf("Error: %v", err)), nil
			}
			logger.Error().Err(err).Msg("Analysis run failed")
			return textResult(fmt.Sprintf("Analysis failed: %v", err)), nil
		}
		return textResult(formatAnalysis(result)), nil
	}
}

// handleGetQuote implements the get_quote tool
func handleGetQuote(gateway *marketdata.Gateway, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbols := request.GetStringSlice("symbols", nil)
		if len(symbols) == 0 {
			return textResult("Error: symbols parameter is required"), nil
		}
		for i := range symbols {
			symbols[i] = models.NormalizeSymbol(symbols[i])
		}

		quotes := gateway.GetQuotes(ctx, symbols)
		logger.Debug().Int("requested", len(symbols)).Int("priced", len(quotes)).Msg("Quote tool served")
		return textResult(formatQuotes(symbols, quotes)), nil
	}
}

// handleProviderHealth implements the provider_health tool
func handleProviderHealth(gateway *marketdata.Gateway) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(formatHealth(gateway.Status())), nil
	}
}

// handleLLMAudit implements the llm_audit tool
func handleLLMAudit(router *llm.Router) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 20)
		if router.Audit() == nil {
			return textResult("Audit log disabled"), nil
		}
		return textResult(formatAudit(router.Audit().Entries(limit))), nil
	}
}

// handleDeepDive implements the deep_dive tool
func handleDeepDive(application *app.App, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := request.RequireString("symbol")
		if err != nil || strings.TrimSpace(symbol) == "" {
			return textResult("Error: symbol parameter is required"), nil
		}

		ctx = llm.WithRequestKey(ctx, application.ResolveLLMKey(ctx))
		brief, status := application.ResearchSymbol(ctx, symbol)
		if status != llm.StatusSuccess {
			logger.Warn().Str("symbol", symbol).Str("status", status.String()).Msg("Deep dive fell back")
		}
		return textResult(formatBrief(brief)), nil
	}
}
