package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/vigil/internal/services/llm"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Show or change per-stage LLM routing",
	RunE: func(cmd *cobra.Command, args []string) error {
		table := application.Router.Table()
		overrides := table.Overrides()

		if jsonOutput {
			effective := make(map[llm.Stage]llm.StageModelConfig)
			for _, stage := range llm.Stages() {
				effective[stage] = table.ConfigFor(stage)
			}
			return printJSON(effective)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STAGE\tPROVIDER\tMODEL\tTOOLS\tTEMP\tTIMEOUT\tOVERRIDE")
		for _, stage := range llm.Stages() {
			cfg := table.ConfigFor(stage)
			_, overridden := overrides[stage]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\t%t\n",
				stage, cfg.Provider, cfg.Model, llm.EffectiveTools(stage, cfg), cfg.Temperature, cfg.Timeout(), overridden)
		}
		return w.Flush()
	},
}

var (
	routeProvider string
	routeModel    string
	routeTools    string
	routeTemp     float64
	routeTimeout  time.Duration
	routeDepth    string
)

var routesSetCmd = &cobra.Command{
	Use:   "set STAGE",
	Short: "Override the routing for one stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stage := llm.Stage(strings.ToUpper(args[0]))
		table := application.Router.Table()

		cfg := table.ConfigFor(stage)
		if cmd.Flags().Changed("provider") {
			cfg.Provider = llm.Provider(strings.ToLower(routeProvider))
			if !cmd.Flags().Changed("model") {
				cfg.Model = ""
			}
		}
		if cmd.Flags().Changed("model") {
			cfg.Model = routeModel
		}
		if cmd.Flags().Changed("tools") {
			cfg.Tools = llm.ToolsMode(strings.ToUpper(routeTools))
		}
		if cmd.Flags().Changed("temperature") {
			cfg.Temperature = routeTemp
		}
		if cmd.Flags().Changed("timeout") {
			cfg.TimeoutMs = routeTimeout.Milliseconds()
		}
		if cmd.Flags().Changed("reasoning") {
			cfg.ReasoningDepth = llm.ReasoningDepth(strings.ToUpper(routeDepth))
		}

		if err := table.Override(stage, cfg); err != nil {
			return err
		}
		if err := table.Save(context.Background()); err != nil {
			return err
		}
		fmt.Printf("%s -> %s/%s\n", stage, table.ConfigFor(stage).Provider, table.ConfigFor(stage).Model)
		return nil
	},
}

var routesResetCmd = &cobra.Command{
	Use:   "reset STAGE",
	Short: "Remove a stage override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := application.Router.Table()
		table.Reset(llm.Stage(strings.ToUpper(args[0])))
		return table.Save(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
	routesCmd.AddCommand(routesSetCmd, routesResetCmd)

	routesSetCmd.Flags().StringVar(&routeProvider, "provider", "", "anthropic, gemini or openai")
	routesSetCmd.Flags().StringVar(&routeModel, "model", "", "Model name (default: provider default)")
	routesSetCmd.Flags().StringVar(&routeTools, "tools", "", "NONE, WEB_SEARCH or GOOGLE_SEARCH")
	routesSetCmd.Flags().Float64Var(&routeTemp, "temperature", 0, "Sampling temperature")
	routesSetCmd.Flags().DurationVar(&routeTimeout, "timeout", 0, "Stage timeout")
	routesSetCmd.Flags().StringVar(&routeDepth, "reasoning", "", "NONE, MINIMAL, LOW, MEDIUM, HIGH or EXTRA")
}
