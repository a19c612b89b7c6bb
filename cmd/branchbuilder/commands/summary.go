package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"git.home.luguber.info/inful/branchbuilder/internal/report"
	"git.home.luguber.info/inful/branchbuilder/internal/runner"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8AB4F8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#34A853"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBC04"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EA4335"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9AA0A6"))
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5F6368")).
			Padding(0, 1)
)

// outcomeStyle picks the colour for an entry.
func outcomeStyle(e report.Entry) lipgloss.Style {
	switch {
	case e.Skipped:
		return mutedStyle
	case e.Outcome == runner.OutcomeSuccess:
		return successStyle
	case e.Outcome == runner.OutcomeBuildFailure:
		return failureStyle
	default:
		return errorStyle
	}
}

func outcomeLabel(e report.Entry) string {
	if e.Skipped {
		if e.SkipReason != "" {
			return "skipped (" + strings.ReplaceAll(e.SkipReason, "_", " ") + ")"
		}
		return "skipped"
	}
	return report.Label(e.Outcome)
}

// PrintSummary writes a human readable run summary to w.
func PrintSummary(w io.Writer, rep *report.RunReport) {
	_, _ = fmt.Fprintln(w, RenderSummary(rep))
}

// RenderSummary formats the entries and totals of rep.
func RenderSummary(rep *report.RunReport) string {
	entries := rep.Entries()
	width := 0
	for _, e := range entries {
		width = max(width, len(e.Branch.Key()))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Run "+rep.RunID()) + "\n")
	for _, e := range entries {
		line := fmt.Sprintf("%-*s  %s", width, e.Branch.Key(), outcomeStyle(e).Render(outcomeLabel(e)))
		if e.Skipped {
			b.WriteString(line + "\n")
			continue
		}
		line += mutedStyle.Render(fmt.Sprintf("  exit=%d  %s", e.ExitCode, e.Duration.Round(1e6)))
		if !e.Published {
			line += mutedStyle.Render("  (status not published)")
		}
		b.WriteString(line + "\n")
	}

	s := rep.Summary()
	b.WriteString(fmt.Sprintf("\n%s  %s  %s  %s",
		successStyle.Render(fmt.Sprintf("%d success", s.Success)),
		failureStyle.Render(fmt.Sprintf("%d failed", s.BuildFailure)),
		errorStyle.Render(fmt.Sprintf("%d error", s.InternalError)),
		mutedStyle.Render(fmt.Sprintf("%d skipped", s.Skipped))))
	return boxStyle.Render(b.String())
}
