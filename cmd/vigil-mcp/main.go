package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ternarybob/vigil/internal/app"
	"github.com/ternarybob/vigil/internal/common"
)

func main() {
	common.LoadDotEnv(".env")

	configPath := os.Getenv("VIGIL_CONFIG")
	if configPath == "" {
		if _, err := os.Stat("vigil.toml"); err == nil {
			configPath = "vigil.toml"
		}
	}

	config, err := common.LoadFromFile(nil, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdio carries the protocol, so logs go to file only
	config.Logging.Output = []string{"file"}
	logger := common.InitLogger(config)

	application, err := app.New(config, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	mcpServer := server.NewMCPServer(
		"vigil",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createRunAnalysisTool(), handleRunAnalysis(application, logger))
	mcpServer.AddTool(createGetQuoteTool(), handleGetQuote(application.Gateway, logger))
	mcpServer.AddTool(createProviderHealthTool(), handleProviderHealth(application.Gateway))
	mcpServer.AddTool(createLLMAuditTool(), handleLLMAudit(application.Router))
	mcpServer.AddTool(createDeepDiveTool(), handleDeepDive(application, logger))

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error().Err(err).Msg("MCP server failed")
		application.Close()
		os.Exit(1)
	}
}
