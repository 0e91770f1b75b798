package pipeline

import (
	"fmt"
	"strings"
)

// RenderReport formats a run's funnel and spend for the terminal.
func RenderReport(result *RunResult) string {
	var b strings.Builder
	f := result.Funnel

	b.WriteString("Run summary\n")
	b.WriteString("===========\n")
	fmt.Fprintf(&b, "  Discovered:          %d\n", f.Discovered)
	fmt.Fprintf(&b, "  Duplicates:          %d\n", f.Duplicates)
	fmt.Fprintf(&b, "  Pre-filter rejected: %d\n", f.PreFilterRejected)
	fmt.Fprintf(&b, "  Enrichment failed:   %d\n", f.EnrichmentFailed)
	fmt.Fprintf(&b, "  Incomplete profile:  %d\n", f.IncompleteProfile)
	fmt.Fprintf(&b, "  Not qualified:       %d\n", f.NotQualified)
	fmt.Fprintf(&b, "  Provider failures:   %d\n", f.Failed)
	fmt.Fprintf(&b, "  Generated:           %d\n", f.Generated)
	fmt.Fprintf(&b, "  Validated:           %d\n", f.Validated)
	fmt.Fprintf(&b, "  Repaired:            %d\n", f.Repaired)
	fmt.Fprintf(&b, "  Manual review:       %d\n", f.ManualReview)
	fmt.Fprintf(&b, "  Upload rejected:     %d\n", f.UploadRejected)
	fmt.Fprintf(&b, "  Committed:           %d\n", f.Committed)

	if result.Partial {
		b.WriteString("\n  WARNING: run completed partially; see logs.\n")
	}

	c := result.Costs
	if c.TotalUSD > 0 {
		b.WriteString("\nSpend\n")
		b.WriteString("=====\n")
		fmt.Fprintf(&b, "  Claude:   $%.4f (%d calls)\n", c.ClaudeUSD, c.ClaudeCalls)
		fmt.Fprintf(&b, "  DeepSeek: $%.4f (%d calls)\n", c.DeepSeekUSD, c.DeepSeekCalls)
		fmt.Fprintf(&b, "  Apify:    $%.4f (%d runs)\n", c.ApifyUSD, c.ActorRuns)
		fmt.Fprintf(&b, "  Total:    $%.4f\n", c.TotalUSD)
		if f.Committed > 0 {
			fmt.Fprintf(&b, "  Per lead: $%.4f\n", c.TotalUSD/float64(f.Committed))
		}
	}

	return b.String()
}
