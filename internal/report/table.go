package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"mcs-portfolio/internal/portfolio"
)

var (
	colorPass = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	colorWarn = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	colorFail = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	colorMute = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

// probabilityStyle colours a probability cell: pass at or above threshold,
// warn above half of it, fail otherwise.
func probabilityStyle(p, threshold float64) lipgloss.Style {
	switch {
	case p >= threshold:
		return cellStyle.Foreground(colorPass)
	case p >= threshold/2:
		return cellStyle.Foreground(colorWarn)
	default:
		return cellStyle.Foreground(colorFail)
	}
}

// RenderTable renders the summary as terminal tables: one row per team,
// then one row per feature.
func RenderTable(s Summary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %.2f%%\n\n", titleStyle.Render("All features by due date:"), s.OverallProbability)

	teams := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorMute)).
		Headers("Team", "WIP", "Features", "Backlog", "Avg Probability", "Throughput (mean/P85)", "Stable").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 4 {
				return probabilityStyle(s.Teams[row].AverageProbability, s.Threshold)
			}
			return cellStyle
		})
	for _, t := range s.Teams {
		stable := "yes"
		if t.Throughput.Days == 0 {
			stable = "no history"
		} else if !t.Throughput.Stable() {
			stable = fmt.Sprintf("%d signals", len(t.Throughput.XmR.Signals))
		}
		teams.Row(
			t.Name,
			fmt.Sprintf("%d", t.WIPLimit),
			fmt.Sprintf("%d", t.Features),
			formatSize(t.Backlog),
			fmt.Sprintf("%.2f%%", t.AverageProbability),
			fmt.Sprintf("%.2f / %g", t.Throughput.Mean, t.Throughput.P85),
			stable,
		)
	}
	sb.WriteString(teams.String())
	sb.WriteString("\n\n")

	features := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorMute)).
		Headers("Team", "#", "Feature", "Size", "Depends On", "Probability", "Expected (P85)", "P50", "P95").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 5 {
				return probabilityStyle(s.Features[row].Probability, s.Threshold)
			}
			return cellStyle
		})
	for _, f := range s.Features {
		dep := f.DependsOn
		if dep == "" {
			dep = "-"
		}
		features.Row(
			f.Team,
			fmt.Sprintf("%d", f.Priority),
			f.Name,
			formatSize(f.Size),
			dep,
			fmt.Sprintf("%.2f%%", f.Probability),
			f.ExpectedDate,
			f.P50Date,
			f.P95Date,
		)
	}
	sb.WriteString(features.String())
	sb.WriteString("\n")

	if len(s.HighProbability) == 0 {
		fmt.Fprintf(&sb, "\nNo feature reaches %.0f%% by the due date.\n", s.Threshold)
	}
	if len(s.Unstable) > 0 {
		fmt.Fprintf(&sb, "\nUnstable throughput history: %s\n", strings.Join(s.Unstable, ", "))
	}
	return sb.String()
}

func formatSize(v float64) string {
	return fmt.Sprintf("%g", v)
}

// notCompleted reports whether a date cell holds the never-completed sentinel.
func notCompleted(date string) bool {
	return date == "" || date == portfolio.NotCompleted
}
