// Package notify delivers alerts raised by scheduled analysis runs.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/vigil/internal/models"
)

// AlertMarkdown renders alert as a markdown report.
func AlertMarkdown(alert models.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", alert.Title)
	fmt.Fprintf(&b, "_Generated %s_\n\n", alert.CreatedAt.UTC().Format(time.RFC1123))
	if alert.Body != "" {
		b.WriteString(alert.Body)
		b.WriteString("\n\n")
	}

	s := alert.Setup
	if s == nil {
		return b.String()
	}

	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Symbol | %s |\n", s.Symbol)
	fmt.Fprintf(&b, "| Setup | %s |\n", s.SetupType)
	fmt.Fprintf(&b, "| Confidence | %.2f |\n", s.Confidence)
	fmt.Fprintf(&b, "| Trigger | %.2f |\n", s.TriggerPrice)
	fmt.Fprintf(&b, "| Stop | %.2f |\n", s.StopLoss)
	fmt.Fprintf(&b, "| Target | %.2f |\n", s.TargetPrice)
	fmt.Fprintf(&b, "| Valid until | %s |\n", s.ValidUntil.UTC().Format(time.RFC3339))
	if s.DecisionBias != "" {
		fmt.Fprintf(&b, "| Bias | %s |\n", s.DecisionBias)
	}

	if len(s.Reasons) > 0 {
		b.WriteString("\n## Reasons\n\n")
		for _, r := range s.Reasons {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	return b.String()
}
