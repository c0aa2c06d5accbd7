package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Vesting Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if !r.Sale.IsZero() {
		sb.WriteString(fmt.Sprintf("Sale: `%s` | Investor: `%s`\n\n", r.Sale, r.Investor))
	}

	// Schedule
	sb.WriteString("## Schedule\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	if r.TGESet {
		sb.WriteString(fmt.Sprintf("| TGE | %d (%s) |\n", r.Schedule.TGE, formatUnix(r.Schedule.TGE)))
	} else {
		sb.WriteString("| TGE | not set |\n")
	}
	sb.WriteString(fmt.Sprintf("| Upfront | %d%% |\n", r.Schedule.UpfrontPercent))
	sb.WriteString(fmt.Sprintf("| Vesting Months | %d |\n", r.Schedule.VestingMonths))
	sb.WriteString(fmt.Sprintf("| Token Decimals | %d |\n", r.Schedule.TokenScale))
	sb.WriteString(fmt.Sprintf("| Formula | %s |\n", r.Schedule.Formula))
	sb.WriteString("\n")

	// Position
	sb.WriteString(fmt.Sprintf("## Position at %d (%s)\n\n", r.At, formatUnix(r.At)))
	sb.WriteString("| Metric | Units |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Purchased | %d |\n", r.Purchased))
	sb.WriteString(fmt.Sprintf("| Claimed | %d |\n", r.Claimed))
	sb.WriteString(fmt.Sprintf("| Claimable | %d |\n", r.Claimable))
	sb.WriteString(fmt.Sprintf("| Locked | %d |\n", r.Locked()))
	sb.WriteString("\n")

	switch {
	case !r.TGESet:
		sb.WriteString("Nothing unlocks until the TGE is set.\n\n")
	case r.NextUnlock > 0:
		sb.WriteString(fmt.Sprintf("Next unlock: %d (%s)\n\n", r.NextUnlock, formatUnix(r.NextUnlock)))
	default:
		sb.WriteString("No further unlocks.\n\n")
	}

	// Unlock table
	sb.WriteString("## Unlock Table\n\n")
	if len(r.Tranches) > 0 {
		sb.WriteString("| Month | Unlock At | Cumulative | Delta |\n")
		sb.WriteString("|-------|-----------|------------|-------|\n")
		for _, t := range r.Tranches {
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | %d |\n",
				t.Month, formatUnix(t.At), t.Cumulative, t.Delta))
		}
	} else {
		sb.WriteString("No unlock table available.\n")
	}
	sb.WriteString("\n")

	// Activity
	if len(r.Activity) > 0 {
		sb.WriteString("## Activity\n\n")
		sb.WriteString("| Seq | Kind | Units | Payment | Time |\n")
		sb.WriteString("|-----|------|-------|---------|------|\n")
		for _, a := range r.Activity {
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | %d | %s |\n",
				a.Sequence, a.Kind, a.Units, a.Payment, formatUnix(a.Timestamp)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatUnix(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
