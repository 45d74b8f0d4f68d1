package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/vigil/internal/services/llm"
)

var verifyFeedCmd = &cobra.Command{
	Use:   "verify-feed URL",
	Short: "Check that a URL serves a finance-relevant RSS/Atom feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		ctx = llm.WithRequestKey(ctx, application.ResolveLLMKey(ctx))

		res := application.Verifier.Verify(ctx, args[0])
		if jsonOutput {
			return printJSON(res)
		}
		verdict := "invalid"
		if res.Valid {
			verdict = "valid"
		}
		fmt.Printf("%s: %s\n  %s\n  %s\n", args[0], verdict, res.Title, res.Description)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyFeedCmd)
}
