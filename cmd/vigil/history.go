package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect saved analysis runs",
}

var historyLimit int

var historyListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := application.StorageManager.HistoryStorage().List(context.Background(), historyLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(records)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tWHEN\tINTENT\tRISK\tDISCOVERY\tSETUPS")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
				r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"),
				r.Request.Intent, r.Request.Risk, r.Request.DiscoveryMode, r.Result.SetupCount)
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show one saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := application.StorageManager.HistoryStorage().Get(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("run %s: %w", args[0], err)
		}
		if jsonOutput {
			return printJSON(rec)
		}
		printResult(&rec.Result)
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all saved runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.StorageManager.HistoryStorage().Clear(context.Background()); err != nil {
			return err
		}
		fmt.Println("History cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyClearCmd)
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs (0 for all)")
}
