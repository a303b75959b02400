package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/beward-tools/bewardctl/internal/fleet"
)

// ReportTable renders one line per host of a fleet report followed by a
// summary line. summarize turns a successful result value into the status
// column; nil prints "ok".
func ReportTable(report *fleet.Report, summarize func(v any) string) string {
	hostWidth := lo.Max(lo.Map(report.Results, func(r fleet.Result, _ int) int { return len(r.Host) }))
	hostWidth = max(hostWidth, len("HOST"))

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("  %-*s  %-8s  %s", hostWidth, "HOST", "TIME", "STATUS")))
	b.WriteByte('\n')

	for _, r := range report.Results {
		marker := lipgloss.NewStyle().Foreground(SuccessColor).Render(SuccessMarker)
		status := "ok"
		if r.Err != nil {
			marker = lipgloss.NewStyle().Foreground(ErrorColor).Render(FailureMarker)
			status = ErrorMessageStyle.Render(r.Err.Error())
		} else if summarize != nil {
			status = summarize(r.Value)
		}
		fmt.Fprintf(&b, "%s %-*s  %-8s  %s\n", marker, hostWidth, r.Host, r.Duration.Round(time.Millisecond), status)
	}

	summary := fmt.Sprintf("%d succeeded, %d failed in %s (run %s)",
		len(report.Succeeded()), len(report.Failed()), report.Duration.Round(time.Millisecond), report.RunID)
	if len(report.Failed()) > 0 {
		b.WriteString(WarningTitleStyle.Render(summary))
	} else {
		b.WriteString(SuccessTitleStyle.Render(summary))
	}
	return b.String()
}
