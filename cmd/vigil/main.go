package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/app"
	"github.com/ternarybob/vigil/internal/common"
)

var (
	// Command-line flags
	configFiles []string
	logLevel    string
	jsonOutput  bool

	// Global state, populated by PersistentPreRunE
	config      *common.Config
	logger      arbor.ILogger
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Market-data gateway and LLM-gated trade setup scanner",
	Long: `Vigil discovers candidate symbols, filters them for tradeability, ranks
setups from multi-provider market data and gates the result through
independently routed LLM stages.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
}

func main() {
	err := rootCmd.Execute()
	if application != nil {
		application.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup runs the startup sequence (REQUIRED ORDER):
// 1. Load .env files and config (defaults -> file1 -> file2 -> ... -> env)
// 2. Apply CLI overrides
// 3. Initialize logger
// 4. Build the application
func setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	common.LoadDotEnv(".env", ".env.local")

	if len(configFiles) == 0 {
		if _, err := os.Stat("vigil.toml"); err == nil {
			configFiles = append(configFiles, "vigil.toml")
		} else if _, err := os.Stat("deployments/local/vigil.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/vigil.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(nil, configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration %v: %w", configFiles, err)
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}

	logger = common.InitLogger(config)
	if cmd.Name() == "serve" {
		common.PrintBanner(config, logger)
	}

	application, err = app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return nil
}
