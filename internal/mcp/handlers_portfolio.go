package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"mcs-portfolio/internal/csvio"
	"mcs-portfolio/internal/portfolio"
	"mcs-portfolio/internal/stats"
)

// TeamThroughput is the stability assessment of one team's history.
type TeamThroughput struct {
	Team    string                  `json:"team"`
	Stable  bool                    `json:"stable"`
	Summary stats.ThroughputSummary `json:"summary"`
}

// ImportResponse is the payload of import_csv.
type ImportResponse struct {
	Teams      []portfolio.Team  `json:"teams"`
	Features   int               `json:"features"`
	Issues     []portfolio.Issue `json:"issues,omitempty"`
	Throughput []TeamThroughput  `json:"throughput"`
}

// CycleCheckResponse is the payload of check_dependency_cycle.
type CycleCheckResponse struct {
	Feature         portfolio.FeatureKey `json:"feature"`
	DependsOn       portfolio.FeatureKey `json:"depends_on"`
	WouldCycle      bool                 `json:"would_create_cycle"`
	TargetExists    bool                 `json:"target_exists"`
	ExistingFeature bool                 `json:"existing_feature"`
	Message         string               `json:"message"`
}

func (s *Server) handleImportCSV(_ context.Context, in ImportInput) (*sdk.CallToolResult, error) {
	p, err := s.loadPortfolio(in.CSV, in.Path, nil)
	if err != nil {
		return nil, err
	}
	if err := portfolio.Validate(p.Teams); err != nil {
		return nil, err
	}

	resp := ImportResponse{
		Teams:    p.Teams,
		Features: portfolio.FeatureCount(p.Teams),
		Issues:   portfolio.Inspect(p.Teams),
	}
	for _, t := range p.Teams {
		sum := stats.SummarizeThroughput(t.PastThroughput)
		resp.Throughput = append(resp.Throughput, TeamThroughput{
			Team:    t.Name,
			Stable:  sum.Stable(),
			Summary: sum,
		})
	}
	return s.jsonResult(resp), nil
}

func (s *Server) handleCheckDependencyCycle(_ context.Context, in CycleCheckInput) (*sdk.CallToolResult, error) {
	p, err := s.loadPortfolio(in.CSV, in.Path, in.Teams)
	if err != nil {
		return nil, err
	}
	ti := portfolio.FindTeamByName(p.Teams, in.Team)
	if ti < 0 {
		return nil, fmt.Errorf("%w: %s", portfolio.ErrTeamNotFound, in.Team)
	}
	depTeamName := in.DependsOnTeam
	if depTeamName == "" {
		depTeamName = in.Team
	}
	depTeamID := csvio.TeamID(depTeamName)
	if di := portfolio.FindTeamByName(p.Teams, depTeamName); di >= 0 {
		depTeamID = p.Teams[di].ID
	}

	team := p.Teams[ti]
	candidate := portfolio.Feature{ID: in.Feature, TeamID: team.ID}
	existing := false
	for _, f := range team.Features {
		if f.ID == in.Feature {
			candidate, existing = f, true
			break
		}
	}

	g := portfolio.NewGraph(p.Teams)
	resp := CycleCheckResponse{
		Feature:         candidate.Key(),
		DependsOn:       portfolio.FeatureKey{TeamID: depTeamID, FeatureID: in.DependsOnFeature},
		WouldCycle:      portfolio.WouldCreateCycle(p.Teams, candidate, in.DependsOnFeature, depTeamID),
		ExistingFeature: existing,
	}
	resp.TargetExists = g.Has(resp.DependsOn)

	switch {
	case resp.WouldCycle:
		resp.Message = fmt.Sprintf("%s / %s depending on %s / %s would create a dependency cycle", in.Team, in.Feature, depTeamName, in.DependsOnFeature)
	case !resp.TargetExists:
		resp.Message = fmt.Sprintf("%s / %s does not exist; a feature depending on it would never start", depTeamName, in.DependsOnFeature)
	default:
		resp.Message = "dependency can be added"
	}
	return s.jsonResult(resp), nil
}

func (s *Server) handleGetCSVTemplate(_ context.Context, _ TemplateInput) (*sdk.CallToolResult, error) {
	return s.textResult(csvio.Template()), nil
}
