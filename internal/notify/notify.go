package notify

import (
	"context"
	"fmt"
	"strings"

	"dementor/internal/model"
)

// Notifier delivers scan outcome notifications. Implementations must be safe
// to call after every run; delivery failures are logged, never fatal.
type Notifier interface {
	NotifyRun(ctx context.Context, run model.RunResult) error
}

// Summarize renders the one-line run summary used by all notifier backends.
func Summarize(run model.RunResult) string {
	bySeverity := map[model.Severity]int{}
	units := 0
	failed := 0
	for _, u := range run.Units {
		units++
		if u.Status == model.StatusFailed {
			failed++
		}
		for _, f := range u.Findings {
			bySeverity[f.Severity]++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Dependency scan finished: %d unit(s), %d finding(s)", units, run.TotalFindings())
	if failed > 0 {
		fmt.Fprintf(&sb, ", %d failed", failed)
	}
	order := []model.Severity{model.SeverityCritical, model.SeverityHigh, model.SeverityMedium, model.SeverityLow, model.SeverityUnknown}
	var parts []string
	for _, s := range order {
		if n := bySeverity[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(parts, ", "))
	}
	return sb.String()
}
