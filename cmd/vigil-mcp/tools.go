package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createRunAnalysisTool returns the run_analysis tool definition
func createRunAnalysisTool() mcp.Tool {
	return mcp.NewTool("run_analysis",
		mcp.WithDescription("Run the trade setup pipeline and return ranked setups with the LLM decision and news synthesis"),
		mcp.WithString("intent",
			mcp.Description("DAY_TRADE, SWING or LONG_TERM (default from config)"),
		),
		mcp.WithString("risk",
			mcp.Description("CONSERVATIVE, MODERATE or AGGRESSIVE (default from config)"),
		),
		mcp.WithString("asset_class",
			mcp.Description("EQUITY, FOREX, METALS or ALL"),
		),
		mcp.WithString("discovery_mode",
			mcp.Description("STATIC or SCREENER"),
		),
		mcp.WithArray("tickers",
			mcp.WithStringItems(),
			mcp.Description("Custom tickers to include"),
		),
		mcp.WithArray("blocklist",
			mcp.WithStringItems(),
			mcp.Description("Tickers to exclude"),
		),
	)
}

// createGetQuoteTool returns the get_quote tool definition
func createGetQuoteTool() mcp.Tool {
	return mcp.NewTool("get_quote",
		mcp.WithDescription("Fetch current quotes through the provider fallback chain"),
		mcp.WithArray("symbols",
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("Ticker symbols, e.g. AAPL, EURUSD"),
		),
	)
}

// createProviderHealthTool returns the provider_health tool definition
func createProviderHealthTool() mcp.Tool {
	return mcp.NewTool("provider_health",
		mcp.WithDescription("List market data providers with blacklist and circuit breaker state"),
	)
}

// createLLMAuditTool returns the llm_audit tool definition
func createLLMAuditTool() mcp.Tool {
	return mcp.NewTool("llm_audit",
		mcp.WithDescription("Recent LLM stage calls with provider, model, outcome and latency"),
		mcp.WithNumber("limit",
			mcp.Description("Max entries (default: 20)"),
		),
	)
}

// createDeepDiveTool returns the deep_dive tool definition
func createDeepDiveTool() mcp.Tool {
	return mcp.NewTool("deep_dive",
		mcp.WithDescription("Web-grounded research brief for one symbol"),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Ticker symbol"),
		),
	)
}
