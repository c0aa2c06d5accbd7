package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderCSV renders the unlock table as CSV string.
func RenderCSV(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("month,unlock_at,unlock_at_utc,cumulative,delta,claimable_now\n")

	// Rows
	for _, t := range r.Tranches {
		claimable := t.At <= r.At
		sb.WriteString(fmt.Sprintf("%d,%d,%s,%d,%d,%t\n",
			t.Month,
			t.At,
			time.Unix(t.At, 0).UTC().Format(time.RFC3339),
			t.Cumulative,
			t.Delta,
			claimable,
		))
	}

	return sb.String()
}
