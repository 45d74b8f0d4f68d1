package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Manage pinned symbols included in every run",
}

var watchlistAddCmd = &cobra.Command{
	Use:   "add SYMBOL [NOTE...]",
	Short: "Pin a symbol",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		note := strings.Join(args[1:], " ")
		if err := application.StorageManager.WatchlistStorage().Add(context.Background(), args[0], note); err != nil {
			return err
		}
		fmt.Printf("Added %s\n", strings.ToUpper(strings.TrimSpace(args[0])))
		return nil
	},
}

var watchlistRemoveCmd = &cobra.Command{
	Use:     "remove SYMBOL",
	Aliases: []string{"rm"},
	Short:   "Unpin a symbol",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return application.StorageManager.WatchlistStorage().Remove(context.Background(), args[0])
	},
}

var watchlistListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List pinned symbols",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := application.StorageManager.WatchlistStorage().List(context.Background())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(entries)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tADDED\tNOTE")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Symbol, e.AddedAt.Local().Format("2006-01-02"), e.Note)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(watchlistCmd)
	watchlistCmd.AddCommand(watchlistAddCmd, watchlistRemoveCmd, watchlistListCmd)
}
