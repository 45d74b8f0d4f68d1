package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show provider blacklist and circuit breaker state",
	RunE: func(cmd *cobra.Command, args []string) error {
		statuses := application.Gateway.Status()
		if jsonOutput {
			return printJSON(statuses)
		}
		if len(statuses) == 0 {
			fmt.Println("No market data providers configured")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tSTATE\tBREAKER\tRETRY AT")
		for _, s := range statuses {
			state, retryAt := "available", "-"
			if s.Blacklisted {
				state = "blacklisted"
				retryAt = s.BlacklistedUntil.Local().Format(time.Kitchen)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, state, s.Breaker, retryAt)
		}
		return w.Flush()
	},
}

var healthClearCmd = &cobra.Command{
	Use:   "clear PROVIDER",
	Short: "Lift a provider's cool-down",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := strings.ToLower(strings.TrimSpace(args[0]))
		application.Health.Clear(provider)
		fmt.Printf("Cleared %s\n", provider)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.AddCommand(healthClearCmd)
}
