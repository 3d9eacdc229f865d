package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcs-portfolio/internal/config"
	"mcs-portfolio/internal/csvio"
	"mcs-portfolio/internal/portfolio"
)

func fixedNow() time.Time {
	return time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
}

func writeTemplate(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "plan.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvio.Template()), 0o644))
	return path
}

func TestRunForecast_WritesEveryArtifact(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir)
	cfg := &config.AppConfig{Trials: 300, Threshold: 85, ReportDir: dir}

	var out bytes.Buffer
	err := runForecast(context.Background(), &out, cfg, path, forecastOptions{
		due:    "2025-03-01",
		seed:   3,
		export: filepath.Join(dir, "results.csv"),
		save:   filepath.Join(dir, "annotated.yaml"),
		report: "forecast.html",
		charts: true,
		now:    fixedNow,
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Due 2025-03-01 (60 days, 300 trials, seed 3)")
	assert.Contains(t, text, "chance every feature is done")
	assert.Contains(t, text, "Feature 3")
	assert.Contains(t, text, filepath.Join(dir, "forecast.html"))

	results, err := os.ReadFile(filepath.Join(dir, "results.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(results), strings.Join(csvio.ResultHeaders, ",")))

	saved, err := csvio.LoadFile(filepath.Join(dir, "annotated.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", saved.DueDate)
	require.NotNil(t, saved.Teams[1].Features[1].Forecast)
	assert.True(t, saved.Teams[1].Features[1].IsBlocked)

	page, err := os.ReadFile(filepath.Join(dir, "forecast.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), `<pre class="mermaid">`)
}

func TestRunForecast_DueDateFromDocument(t *testing.T) {
	dir := t.TempDir()
	teams, err := csvio.Import(strings.NewReader(csvio.Template()))
	require.NoError(t, err)
	path := filepath.Join(dir, "plan.json")
	var buf bytes.Buffer
	require.NoError(t, portfolio.Encode(&buf, portfolio.FormatJSON, &portfolio.Portfolio{DueDate: "+4w", Teams: teams}))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	var out bytes.Buffer
	cfg := &config.AppConfig{Trials: 50, Threshold: 85}
	require.NoError(t, runForecast(context.Background(), &out, cfg, path, forecastOptions{now: fixedNow}))
	assert.Contains(t, out.String(), "Due 2025-01-29")
}

func TestRunForecast_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir)
	cfg := &config.AppConfig{Trials: 10, Threshold: 85}

	err := runForecast(context.Background(), &bytes.Buffer{}, cfg, path, forecastOptions{now: fixedNow})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no due date")

	err = runForecast(context.Background(), &bytes.Buffer{}, cfg, path, forecastOptions{due: "2025-03-01", report: "out.pdf", now: fixedNow})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report extension")

	err = runForecast(context.Background(), &bytes.Buffer{}, cfg, filepath.Join(dir, "missing.csv"), forecastOptions{due: "2025-03-01"})
	require.Error(t, err)

	for _, threshold := range []float64{-1, 100.5} {
		err = runForecast(context.Background(), &bytes.Buffer{}, cfg, path, forecastOptions{due: "2025-03-01", threshold: threshold, now: fixedNow})
		require.Error(t, err, "threshold %v", threshold)
		assert.Contains(t, err.Error(), "--threshold")
	}
}

func TestCheckForecastOptions_WatchAndSaveSameFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.csv")

	err := checkForecastOptions(path, forecastOptions{watch: true, save: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watched file")

	rel, err := filepath.Rel(mustGetwd(t), path)
	require.NoError(t, err)
	assert.Error(t, checkForecastOptions(path, forecastOptions{watch: true, save: rel}))

	assert.NoError(t, checkForecastOptions(path, forecastOptions{save: path}))
	assert.NoError(t, checkForecastOptions(path, forecastOptions{watch: true, save: filepath.Join(dir, "out.csv")}))
	assert.NoError(t, checkForecastOptions(path, forecastOptions{threshold: 100}))
}

func mustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	return wd
}

func TestEditPortfolio(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir)
	featureFlags.dryRun = false

	var out bytes.Buffer
	err := editPortfolio(&out, path, func(p *portfolio.Portfolio) error {
		team, err := teamByName(p.Teams, "Team Alpha")
		if err != nil {
			return err
		}
		p.Teams, err = portfolio.AddFeature(p.Teams, team.ID, portfolio.Feature{ID: "9", Name: "Feature 9", Size: 4})
		return err
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Updated "+path)

	p, err := csvio.LoadFile(path)
	require.NoError(t, err)
	alpha := p.Teams[0].Features
	require.Len(t, alpha, 2)
	assert.Equal(t, "9", alpha[1].ID)
	assert.Equal(t, 2, alpha[1].Priority)
	assert.Equal(t, p.Teams[1].Features[1].DependsOn, &portfolio.FeatureKey{TeamID: p.Teams[0].ID, FeatureID: "1"})
}

func TestEditPortfolio_RefusedEditLeavesFileAlone(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir)
	featureFlags.dryRun = false

	err := editPortfolio(&bytes.Buffer{}, path, func(p *portfolio.Portfolio) error {
		alpha, beta := p.Teams[0], p.Teams[1]
		var err error
		p.Teams, err = portfolio.SetDependency(p.Teams, alpha.ID, "1", &portfolio.FeatureKey{TeamID: beta.ID, FeatureID: "3"})
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, portfolio.ErrCyclicDependency))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, csvio.Template(), string(data))
}

func TestEditPortfolio_DryRunPrints(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir)
	featureFlags.dryRun = true
	t.Cleanup(func() { featureFlags.dryRun = false })

	var out bytes.Buffer
	err := editPortfolio(&out, path, func(p *portfolio.Portfolio) error {
		var err error
		p.Teams, err = portfolio.RemoveFeature(p.Teams, p.Teams[1].ID, "2")
		return err
	})
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "Feature 2")
	assert.Contains(t, out.String(), "Feature 3")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Feature 2")
}

func TestTeamByName(t *testing.T) {
	teams := []portfolio.Team{{ID: "a", Name: "Alpha"}}
	team, err := teamByName(teams, "Alpha")
	require.NoError(t, err)
	assert.Equal(t, "a", team.ID)

	_, err = teamByName(teams, "")
	assert.Error(t, err)
	_, err = teamByName(teams, "Beta")
	assert.True(t, errors.Is(err, portfolio.ErrTeamNotFound))
}

func TestWatchFile_RerunsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runs := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, &bytes.Buffer{}, func() error {
			runs <- struct{}{}
			return nil
		})
	}()

	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("initial run did not happen")
	}

	require.NoError(t, os.WriteFile(path, []byte(csvio.Template()+"\n"), 0o644))
	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("change did not trigger a run")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
