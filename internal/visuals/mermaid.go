package visuals

import (
	"fmt"
	"math"
	"strings"

	"mcs-portfolio/internal/portfolio"
	"mcs-portfolio/internal/stats"
)

// maxPoints keeps xychart-beta readable; Mermaid starts overlapping labels
// around 60 points.
const maxPoints = 60

var labelEscaper = strings.NewReplacer(`"`, "'", ":", " ", ";", " ", "#", "")

func label(s string) string {
	return strings.TrimSpace(labelEscaper.Replace(s))
}

// GenerateThroughputXmRChart creates a Mermaid xychart-beta of a team's daily
// throughput history with its average and upper natural process limit.
func GenerateThroughputXmRChart(teamName string, history []float64, xmr stats.XmRResult) string {
	if len(history) == 0 {
		return ""
	}

	step := 1
	if len(history) > maxPoints {
		step = int(math.Ceil(float64(len(history)) / maxPoints))
	}

	var labels, values, averages, unpls []string
	maxY := xmr.UNPL * 1.2
	for i, v := range history {
		if v > maxY {
			maxY = v * 1.1
		}
		if i%step != 0 && i != len(history)-1 {
			continue
		}
		labels = append(labels, fmt.Sprintf("%d", i+1))
		values = append(values, fmt.Sprintf("%.1f", v))
		averages = append(averages, fmt.Sprintf("%.1f", xmr.Average))
		unpls = append(unpls, fmt.Sprintf("%.1f", xmr.UNPL))
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	fmt.Fprintf(&sb, "    title \"%s Daily Throughput (XmR)\"\n", label(teamName))
	fmt.Fprintf(&sb, "    x-axis [%s]\n", strings.Join(labels, ", "))
	fmt.Fprintf(&sb, "    y-axis \"Items per Day\" 0 --> %d\n", int(math.Max(1, math.Ceil(maxY))))
	fmt.Fprintf(&sb, "    bar [%s]\n", strings.Join(values, ", "))
	fmt.Fprintf(&sb, "    line [%s]\n", strings.Join(averages, ", "))
	fmt.Fprintf(&sb, "    line [%s]\n", strings.Join(unpls, ", "))
	sb.WriteString("```")
	return sb.String()
}

// GenerateProbabilityChart creates a Mermaid bar chart of the completion
// probability of every feature, in team then priority order.
func GenerateProbabilityChart(teams []portfolio.Team) string {
	var labels, values []string
	for _, t := range teams {
		for _, f := range t.Features {
			if f.Forecast == nil {
				continue
			}
			labels = append(labels, fmt.Sprintf("\"%s\"", label(f.Name)))
			values = append(values, fmt.Sprintf("%.1f", f.Forecast.Probability))
		}
	}
	if len(values) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Completion Probability by Due Date\"\n")
	fmt.Fprintf(&sb, "    x-axis [%s]\n", strings.Join(labels, ", "))
	sb.WriteString("    y-axis \"Probability (%)\" 0 --> 100\n")
	fmt.Fprintf(&sb, "    bar [%s]\n", strings.Join(values, ", "))
	sb.WriteString("```")
	return sb.String()
}

// GenerateCompletionGantt creates a Mermaid gantt chart with one bar per
// feature running from startDate to its expected completion date. Features
// that never completed are left out; features below threshold are marked crit.
func GenerateCompletionGantt(teams []portfolio.Team, startDate string, threshold float64) string {
	var sb strings.Builder
	tasks := 0
	for _, t := range teams {
		var section strings.Builder
		for _, f := range t.Features {
			if !f.Forecast.HasExpectedDate() {
				continue
			}
			tag := ""
			if f.Forecast.Probability < threshold {
				tag = "crit, "
			}
			fmt.Fprintf(&section, "    %s (%.0f%%) :%s%s, %s\n",
				label(f.Name), f.Forecast.Probability, tag, startDate, f.Forecast.ExpectedDate)
			tasks++
		}
		if section.Len() > 0 {
			fmt.Fprintf(&sb, "    section %s\n", label(t.Name))
			sb.WriteString(section.String())
		}
	}
	if tasks == 0 {
		return ""
	}

	var out strings.Builder
	out.WriteString("```mermaid\n")
	out.WriteString("gantt\n")
	out.WriteString("    title Expected Completion (P85)\n")
	out.WriteString("    dateFormat YYYY-MM-DD\n")
	out.WriteString(sb.String())
	out.WriteString("```")
	return out.String()
}
