package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/vigil/internal/models"
)

var quoteCmd = &cobra.Command{
	Use:   "quote SYMBOL [SYMBOL...]",
	Short: "Fetch quotes through the provider fallback chain",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuote,
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search symbols by ticker or company name",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var searchLimit int

func init() {
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum matches")
}

func runQuote(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	symbols := make([]string, 0, len(args))
	for _, a := range args {
		symbols = append(symbols, models.NormalizeSymbol(a))
	}
	quotes := application.Gateway.GetQuotes(ctx, symbols)

	if jsonOutput {
		return printJSON(quotes)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tPRICE\tCHANGE\tVOLUME\tAS OF")
	for _, sym := range symbols {
		q, ok := quotes[sym]
		if !ok {
			fmt.Fprintf(w, "%s\t-\t-\t-\tunavailable\n", sym)
			continue
		}
		change := "-"
		if q.ChangePercent != nil {
			change = fmt.Sprintf("%+.2f%%", *q.ChangePercent)
		}
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%d\t%s\n", q.Symbol, q.Price, change, q.Volume, q.Timestamp.Local().Format(time.Kitchen))
	}
	return w.Flush()
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	matches := application.Gateway.Search(ctx, args[0], searchLimit)
	if jsonOutput {
		return printJSON(matches)
	}
	if len(matches) == 0 {
		fmt.Println("No matches")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tNAME\tEXCHANGE")
	for _, m := range matches {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Symbol, m.Name, m.Exchange)
	}
	return w.Flush()
}
