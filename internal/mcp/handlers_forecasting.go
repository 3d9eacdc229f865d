package mcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"mcs-portfolio/internal/csvio"
	"mcs-portfolio/internal/portfolio"
	"mcs-portfolio/internal/report"
	"mcs-portfolio/internal/simulation"
)

// ForecastResponse is the payload of forecast_portfolio.
type ForecastResponse struct {
	Forecast *simulation.Result `json:"forecast"`
	Summary  report.Summary     `json:"summary"`
	Report   string             `json:"report,omitempty"` // Markdown with Mermaid charts
}

func (s *Server) handleForecastPortfolio(ctx context.Context, in ForecastInput) (*sdk.CallToolResult, error) {
	p, err := s.loadPortfolio(in.CSV, in.Path, in.Teams)
	if err != nil {
		return nil, err
	}
	threshold, err := s.threshold(in.Threshold)
	if err != nil {
		return nil, err
	}
	res, err := s.forecast(ctx, p, in.DueDate, in.Trials, in.Seed)
	if err != nil {
		return nil, err
	}

	resp := ForecastResponse{
		Forecast: res,
		Summary:  report.Summarize(res.Teams, threshold),
	}
	if in.Charts || s.cfg.EnableMermaidCharts {
		resp.Report = report.Markdown(res, resp.Summary, true)
	}
	return s.jsonResult(resp), nil
}

func (s *Server) handleExportResultsCSV(ctx context.Context, in ExportInput) (*sdk.CallToolResult, error) {
	p, err := s.loadPortfolio(in.CSV, in.Path, in.Teams)
	if err != nil {
		return nil, err
	}
	threshold, err := s.threshold(in.Threshold)
	if err != nil {
		return nil, err
	}
	res, err := s.forecast(ctx, p, in.DueDate, in.Trials, in.Seed)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := csvio.ExportResults(&buf, res.Teams, threshold); err != nil {
		return nil, fmt.Errorf("failed to export results: %w", err)
	}
	return s.textResult(buf.String()), nil
}

// forecast runs the engine with per-call overrides on top of the configuration.
func (s *Server) forecast(ctx context.Context, p *portfolio.Portfolio, dueDate string, trials int, seed int64) (*simulation.Result, error) {
	if dueDate == "" {
		dueDate = p.DueDate
	}
	if dueDate == "" {
		return nil, errors.New("due_date is required when the portfolio does not carry one")
	}
	if trials <= 0 {
		trials = s.cfg.Trials
	}
	if seed == 0 {
		seed = s.cfg.Seed
	}

	engine := simulation.NewEngine(simulation.Options{
		Trials:  trials,
		Workers: s.cfg.Workers,
		Seed:    seed,
		Now:     s.now,
	})
	return engine.Forecast(ctx, p.Teams, dueDate)
}

func (s *Server) threshold(requested float64) (float64, error) {
	if requested == 0 {
		return s.cfg.Threshold, nil
	}
	if requested < 0 || requested > 100 {
		return 0, fmt.Errorf("threshold must be between 0 and 100, got %v", requested)
	}
	return requested, nil
}
