package report

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"mcs-portfolio/internal/simulation"
	"mcs-portfolio/internal/visuals"
)

var (
	markdownOnce sync.Once
	markdownConv goldmark.Markdown
)

func converter() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownConv = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownConv
}

var mermaidBlock = regexp.MustCompile(`(?s)<pre><code class="language-mermaid">(.*?)</code></pre>`)

func cellText(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Markdown renders the forecast as a Markdown document. Mermaid charts are
// embedded when withCharts is set.
func Markdown(res *simulation.Result, s Summary, withCharts bool) string {
	var sb strings.Builder

	sb.WriteString("# Portfolio Forecast\n\n")
	fmt.Fprintf(&sb, "- Start date: %s\n", res.StartDate)
	fmt.Fprintf(&sb, "- Due date: %s (%d simulated days)\n", res.DueDate, res.Days)
	fmt.Fprintf(&sb, "- Trials: %d (seed %d)\n", res.Trials, res.Seed)
	fmt.Fprintf(&sb, "- Probability that every feature is done: %.2f%%\n\n", s.OverallProbability)

	if len(res.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&sb, "- %s\n", w)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Teams\n\n")
	sb.WriteString("| Team | WIP | Features | Backlog | Avg Probability | Throughput mean | Throughput P85 | Fat tail |\n")
	sb.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, t := range s.Teams {
		fmt.Fprintf(&sb, "| %s | %d | %d | %g | %.2f%% | %.2f | %g | %.2f |\n",
			cellText(t.Name), t.WIPLimit, t.Features, t.Backlog, t.AverageProbability,
			t.Throughput.Mean, t.Throughput.P85, t.Throughput.FatTail)
	}
	sb.WriteString("\n")

	sb.WriteString("## Features\n\n")
	sb.WriteString("| Team | # | Feature | Size | Depends On | Probability | Expected (P85) | P50 | P95 |\n")
	sb.WriteString("|---|---:|---|---:|---|---:|---|---|---|\n")
	for _, f := range s.Features {
		expected := f.ExpectedDate
		if !notCompleted(expected) && f.Probability >= s.Threshold {
			expected = "**" + expected + "**"
		}
		fmt.Fprintf(&sb, "| %s | %d | %s | %g | %s | %.2f%% | %s | %s | %s |\n",
			cellText(f.Team), f.Priority, cellText(f.Name), f.Size, cellText(f.DependsOn),
			f.Probability, expected, f.P50Date, f.P95Date)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "## Likely by the due date (>= %.0f%%)\n\n", s.Threshold)
	if len(s.HighProbability) == 0 {
		sb.WriteString("_None._\n\n")
	}
	for _, f := range s.HighProbability {
		fmt.Fprintf(&sb, "1. %s / %s: %s (%.2f%%)\n", f.Team, f.Name, f.ExpectedDate, f.Probability)
	}
	if len(s.HighProbability) > 0 {
		sb.WriteString("\n")
	}

	if len(s.Unstable) > 0 {
		fmt.Fprintf(&sb, "> Throughput history shows special-cause signals for: %s. Forecasts for these teams are less reliable.\n\n",
			strings.Join(s.Unstable, ", "))
	}

	if withCharts {
		sb.WriteString("## Charts\n\n")
		if chart := visuals.GenerateCompletionGantt(res.Teams, res.StartDate, s.Threshold); chart != "" {
			sb.WriteString(chart + "\n\n")
		}
		if chart := visuals.GenerateProbabilityChart(res.Teams); chart != "" {
			sb.WriteString(chart + "\n\n")
		}
		for i, t := range res.Teams {
			if i >= len(s.Teams) {
				break
			}
			if chart := visuals.GenerateThroughputXmRChart(t.Name, t.PastThroughput, s.Teams[i].Throughput.XmR); chart != "" {
				sb.WriteString(chart + "\n\n")
			}
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// HTML converts a Markdown report into a standalone HTML page. Mermaid code
// blocks are turned into diagrams rendered by the browser.
func HTML(title, markdown string) ([]byte, error) {
	var body bytes.Buffer
	if err := converter().Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	rendered := mermaidBlock.ReplaceAll(body.Bytes(), []byte(`<pre class="mermaid">$1</pre>`))

	style, script := pageAssets()
	var out bytes.Buffer
	fmt.Fprintf(&out, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n", html.EscapeString(title))
	fmt.Fprintf(&out, "<style>%s</style>\n</head>\n<body>\n", style)
	out.Write(rendered)
	fmt.Fprintf(&out, "<script type=\"module\">%s</script>\n</body>\n</html>\n", script)
	return out.Bytes(), nil
}
