package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/vigil/internal/services/llm"
)

var deepDiveCmd = &cobra.Command{
	Use:   "deep-dive SYMBOL",
	Short: "Produce a web-grounded research brief for one symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeepDive,
}

var deepDiveKey string

func init() {
	rootCmd.AddCommand(deepDiveCmd)
	deepDiveCmd.Flags().StringVar(&deepDiveKey, "llm-key", "", "LLM API key for this call")
}

func runDeepDive(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	key := deepDiveKey
	if key == "" {
		key = application.ResolveLLMKey(ctx)
	}
	ctx = llm.WithRequestKey(ctx, key)

	brief, status := application.ResearchSymbol(ctx, args[0])
	if jsonOutput {
		return printJSON(brief)
	}

	if status != llm.StatusSuccess {
		fmt.Printf("(%s)\n", status)
	}
	fmt.Printf("%s\n\n%s\n", brief.Symbol, brief.Summary)
	printList("Catalysts", brief.Catalysts)
	printList("Risks", brief.Risks)
	if len(brief.Sources) > 0 {
		fmt.Println("\nSources")
		for _, s := range brief.Sources {
			fmt.Printf("  %s %s\n", s.Title, s.URL)
		}
	}
	return nil
}

func printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("\n%s\n  - %s\n", title, strings.Join(items, "\n  - "))
}
