package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mcs-portfolio/internal/config"
	"mcs-portfolio/internal/csvio"
	"mcs-portfolio/internal/portfolio"
	"mcs-portfolio/internal/report"
	"mcs-portfolio/internal/simulation"
)

type forecastOptions struct {
	due       string
	trials    int
	seed      int64
	workers   int
	threshold float64
	export    string
	save      string
	report    string
	charts    bool
	open      bool
	watch     bool
	now       func() time.Time
}

var forecastFlags forecastOptions

var forecastCmd = &cobra.Command{
	Use:   "forecast <portfolio-file>",
	Short: "Forecast completion dates for every feature of a portfolio file",
	Long: `Runs the Monte-Carlo simulation over a portfolio (.csv, .json, .yaml or .toml)
and prints, per feature, the probability of completing by the due date and the
P50/P85/P95 completion dates.

The due date accepts YYYY-MM-DD, offsets like +6w or 3m, and phrases like
"next friday" or "in 6 weeks". It defaults to the due date stored in the document.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if err := checkForecastOptions(path, forecastFlags); err != nil {
			return err
		}
		if forecastFlags.watch {
			return watchFile(cmd.Context(), path, cmd.ErrOrStderr(), func() error {
				return runForecast(cmd.Context(), cmd.OutOrStdout(), cfg, path, forecastFlags)
			})
		}
		return runForecast(cmd.Context(), cmd.OutOrStdout(), cfg, path, forecastFlags)
	},
}

// checkForecastOptions rejects flag combinations that cannot work.
func checkForecastOptions(path string, opts forecastOptions) error {
	if opts.threshold < 0 || opts.threshold > 100 {
		return fmt.Errorf("--threshold must be between 0 and 100, got %v", opts.threshold)
	}
	if opts.watch && opts.save != "" && samePath(path, opts.save) {
		return errors.New("--save cannot overwrite the watched file; every save would trigger another run")
	}
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

func runForecast(ctx context.Context, out io.Writer, cfg *config.AppConfig, path string, opts forecastOptions) error {
	if err := checkForecastOptions(path, opts); err != nil {
		return err
	}
	p, err := csvio.LoadFile(path)
	if err != nil {
		return err
	}

	due := opts.due
	if due == "" {
		due = p.DueDate
	}
	if due == "" {
		return errors.New("no due date: pass --due or set due_date in the portfolio file")
	}
	threshold := cfg.Threshold
	if opts.threshold > 0 {
		threshold = opts.threshold
	}

	engine := simulation.NewEngine(simulation.Options{
		Trials:  firstPositive(opts.trials, cfg.Trials),
		Workers: firstPositive(opts.workers, cfg.Workers),
		Seed:    firstNonZero(opts.seed, cfg.Seed),
		Now:     opts.now,
	})
	res, err := engine.Forecast(ctx, p.Teams, due)
	if err != nil {
		return err
	}
	summary := report.Summarize(res.Teams, threshold)

	fmt.Fprintln(out, report.RenderTable(summary))
	fmt.Fprintf(out, "\nDue %s (%d days, %d trials, seed %d): %.2f%% chance every feature is done.\n",
		res.DueDate, res.Days, res.Trials, res.Seed, summary.OverallProbability)
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}

	if opts.export != "" {
		if err := report.WriteFile(opts.export, func(w io.Writer) error {
			return csvio.ExportResults(w, res.Teams, threshold)
		}); err != nil {
			return fmt.Errorf("failed to export results: %w", err)
		}
		log.Info().Str("path", opts.export).Msg("Exported results")
	}

	if opts.save != "" {
		format, err := portfolio.FormatFromPath(opts.save)
		if err != nil {
			return err
		}
		doc := &portfolio.Portfolio{DueDate: res.DueDate, Teams: res.Teams}
		if err := report.WriteFile(opts.save, func(w io.Writer) error {
			return csvio.Encode(w, format, doc)
		}); err != nil {
			return fmt.Errorf("failed to save portfolio: %w", err)
		}
		log.Info().Str("path", opts.save).Msg("Saved annotated portfolio")
	}

	if opts.report != "" {
		reportPath, err := writeReport(cfg, opts.report, res, summary, opts.charts || cfg.EnableMermaidCharts)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Report written to %s\n", reportPath)
		if opts.open {
			if err := browser.OpenFile(reportPath); err != nil {
				log.Warn().Err(err).Str("path", reportPath).Msg("Failed to open report")
			}
		}
	}
	return nil
}

// writeReport renders the report in the format its extension names. A bare
// file name lands in the configured report directory.
func writeReport(cfg *config.AppConfig, path string, res *simulation.Result, summary report.Summary, charts bool) (string, error) {
	kind, err := report.KindFromPath(path)
	if err != nil {
		return "", err
	}
	if filepath.Dir(path) == "." && !filepath.IsAbs(path) && cfg.ReportDir != "" {
		path = filepath.Join(cfg.ReportDir, path)
	}

	md := report.Markdown(res, summary, charts)
	err = report.WriteFile(path, func(w io.Writer) error {
		if kind == report.KindMarkdown {
			_, err := io.WriteString(w, md)
			return err
		}
		page, err := report.HTML("Portfolio Forecast "+res.DueDate, md)
		if err != nil {
			return err
		}
		_, err = w.Write(page)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

func firstPositive(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

func firstNonZero(a, b int64) int64 {
	if a != 0 {
		return a
	}
	return b
}

func init() {
	f := forecastCmd.Flags()
	f.StringVarP(&forecastFlags.due, "due", "d", "", "due date (YYYY-MM-DD, +6w, \"in 6 weeks\")")
	f.IntVarP(&forecastFlags.trials, "trials", "n", 0, "number of trials (default from config)")
	f.Int64Var(&forecastFlags.seed, "seed", 0, "random seed for a reproducible run")
	f.IntVar(&forecastFlags.workers, "workers", 0, "parallel workers (default GOMAXPROCS)")
	f.Float64Var(&forecastFlags.threshold, "threshold", 0, "probability percentage that counts as likely (default from config)")
	f.StringVar(&forecastFlags.export, "export", "", "write the results CSV to this path")
	f.StringVar(&forecastFlags.save, "save", "", "write the annotated portfolio to this path (.csv, .json, .yaml, .toml)")
	f.StringVar(&forecastFlags.report, "report", "", "write a report (.md or .html)")
	f.BoolVar(&forecastFlags.charts, "charts", false, "embed Mermaid charts in the report")
	f.BoolVar(&forecastFlags.open, "open", false, "open the report in a browser")
	f.BoolVarP(&forecastFlags.watch, "watch", "w", false, "re-run whenever the portfolio file changes")
	rootCmd.AddCommand(forecastCmd)
}
