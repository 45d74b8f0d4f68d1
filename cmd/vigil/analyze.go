package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/vigil/internal/models"
	"github.com/ternarybob/vigil/internal/services/analysis"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the trade setup pipeline once",
	Long: `Runs discovery, tradeability filtering, the shortlist gate, enrichment,
ranking, the decision update and news synthesis, then prints the setups.

Examples:
  vigil analyze
  vigil analyze --intent DAY_TRADE --risk AGGRESSIVE --discovery SCREENER
  vigil analyze --tickers PLTR,SOFI --blocklist TSLA --json`,
	RunE: runAnalyze,
}

var (
	analyzeIntent       string
	analyzeRisk         string
	analyzeAsset        string
	analyzeDiscovery    string
	analyzeTickers      []string
	analyzeBlocklist    []string
	analyzeFeeds        []string
	analyzeMaxShortlist int
	analyzeMaxKeep      int
	analyzeKey          string
	analyzeTimeout      time.Duration
	analyzeAuditOut     string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeIntent, "intent", "", "Trading intent: DAY_TRADE, SWING, LONG_TERM")
	analyzeCmd.Flags().StringVar(&analyzeRisk, "risk", "", "Risk tolerance: CONSERVATIVE, MODERATE, AGGRESSIVE")
	analyzeCmd.Flags().StringVar(&analyzeAsset, "asset", "", "Asset class: EQUITY, FOREX, METALS, ALL")
	analyzeCmd.Flags().StringVar(&analyzeDiscovery, "discovery", "", "Discovery mode: STATIC, SCREENER")
	analyzeCmd.Flags().StringSliceVar(&analyzeTickers, "tickers", nil, "Custom tickers to include")
	analyzeCmd.Flags().StringSliceVar(&analyzeBlocklist, "blocklist", nil, "Tickers to exclude")
	analyzeCmd.Flags().StringSliceVar(&analyzeFeeds, "feeds", nil, "Extra RSS feed URLs")
	analyzeCmd.Flags().IntVar(&analyzeMaxShortlist, "max-shortlist", 0, "Shortlist cap (default from config)")
	analyzeCmd.Flags().IntVar(&analyzeMaxKeep, "max-keep", 0, "Decision keep cap (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeKey, "llm-key", "", "LLM API key for this run (default: resolved for the default provider)")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 10*time.Minute, "Run timeout")
	analyzeCmd.Flags().StringVar(&analyzeAuditOut, "audit-out", "", "Write the LLM stage audit log to this JSON file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()

	req := application.DefaultRequest(ctx)
	if analyzeIntent != "" {
		req.Intent = models.TradingIntent(strings.ToUpper(analyzeIntent))
	}
	if analyzeRisk != "" {
		req.Risk = models.RiskTolerance(strings.ToUpper(analyzeRisk))
	}
	if analyzeAsset != "" {
		req.AssetClass = models.AssetClass(strings.ToUpper(analyzeAsset))
	}
	if analyzeDiscovery != "" {
		req.DiscoveryMode = models.DiscoveryMode(strings.ToUpper(analyzeDiscovery))
	}
	if analyzeKey != "" {
		req.LLMKey = analyzeKey
	}
	if analyzeMaxShortlist > 0 {
		req.MaxShortlist = analyzeMaxShortlist
	}
	if analyzeMaxKeep > 0 {
		req.MaxDecisionKeep = analyzeMaxKeep
	}
	req.CustomTickers = append(req.CustomTickers, analyzeTickers...)
	req.Blocklist = append(req.Blocklist, analyzeBlocklist...)
	req.RssFeeds = analyzeFeeds

	if watch, err := application.StorageManager.WatchlistStorage().List(ctx); err == nil {
		for _, e := range watch {
			req.CustomTickers = append(req.CustomTickers, e.Symbol)
		}
	}

	progress := func(p models.Progress) {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", p.Stage, p.Message)
	}
	if jsonOutput {
		progress = nil
	}

	result, err := application.Orchestrator.Execute(ctx, req, progress)
	if analyzeAuditOut != "" {
		if auditErr := writeAudit(analyzeAuditOut); auditErr != nil {
			logger.Warn().Err(auditErr).Str("path", analyzeAuditOut).Msg("Failed to write audit log")
		}
	}
	if err != nil {
		if analysis.IsUserInputError(err) {
			return fmt.Errorf("invalid request: %w", err)
		}
		return err
	}

	if jsonOutput {
		return printJSON(result)
	}
	printResult(result)
	return nil
}

func printResult(result *models.AnalysisResult) {
	fmt.Printf("\nRun %s (%s): %d candidates, %d tradeable, %d setups\n\n",
		result.RunID, result.Intent, result.TotalCandidates, result.TradeableCount, result.SetupCount)

	if len(result.Setups) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tTYPE\tCONF\tTRIGGER\tSTOP\tTARGET\tBIAS\tVALID UNTIL")
		for _, s := range result.Setups {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t%s\n",
				s.Symbol, s.SetupType, s.Confidence, s.TriggerPrice, s.StopLoss, s.TargetPrice,
				s.DecisionBias, s.ValidUntil.Local().Format("Jan 2 15:04"))
		}
		w.Flush()
	}

	for _, note := range result.GlobalNotes {
		fmt.Printf("  - %s\n", note)
	}

	if syn := result.FundamentalsNewsSynthesis; !syn.IsEmpty() {
		fmt.Printf("\nReview (%d positions, %s posture)\n",
			syn.PortfolioGuidance.PositionCount, syn.PortfolioGuidance.RiskPosture)
		for _, item := range syn.RankedReviewList {
			fmt.Printf("  %s: %s\n", item.Symbol, item.OneParagraphBrief)
		}
	}
}

func writeAudit(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return application.Router.Audit().ExportToJSON(f)
}

func printJSON(v any) error {
	return jsonEncoder(os.Stdout).Encode(v)
}

func jsonEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc
}
