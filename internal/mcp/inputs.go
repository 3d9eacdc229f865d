package mcp

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"mcs-portfolio/internal/csvio"
	"mcs-portfolio/internal/portfolio"
)

// FeatureInput is a feature as a client describes it inline.
type FeatureInput struct {
	ID               string  `json:"id" jsonschema:"feature identity, unique within its team"`
	Name             string  `json:"name,omitempty" jsonschema:"display name, defaults to the id"`
	Size             float64 `json:"size" jsonschema:"remaining effort in the unit of the team's throughput"`
	DependsOnTeam    string  `json:"depends_on_team,omitempty" jsonschema:"name of the team owning the prerequisite, defaults to this team"`
	DependsOnFeature string  `json:"depends_on_feature,omitempty" jsonschema:"id of the feature that must complete before this one can start"`
}

// TeamInput is a team as a client describes it inline. Features are listed
// in priority order.
type TeamInput struct {
	Name           string         `json:"name" jsonschema:"team name, unique in the portfolio"`
	WIPLimit       int            `json:"wip_limit" jsonschema:"maximum number of features in progress at once"`
	PastThroughput []float64      `json:"past_throughput,omitempty" jsonschema:"historical daily throughput samples; empty means 1 per day"`
	Features       []FeatureInput `json:"features" jsonschema:"backlog, highest priority first"`
}

// ForecastInput is the argument of forecast_portfolio.
type ForecastInput struct {
	CSV       string      `json:"csv,omitempty" jsonschema:"portfolio CSV content, as produced by get_csv_template"`
	Path      string      `json:"path,omitempty" jsonschema:"portfolio file (.csv, .json, .yaml or .toml), relative paths resolve against the data path"`
	Teams     []TeamInput `json:"teams,omitempty" jsonschema:"inline portfolio"`
	DueDate   string      `json:"due_date,omitempty" jsonschema:"YYYY-MM-DD, an offset like +6w, or a phrase like 'in 6 weeks'; defaults to the document's due date"`
	Trials    int         `json:"trials,omitempty" jsonschema:"number of Monte-Carlo trials, defaults to the configured value"`
	Seed      int64       `json:"seed,omitempty" jsonschema:"random seed for a reproducible run; 0 picks one"`
	Threshold float64     `json:"threshold,omitempty" jsonschema:"probability percentage a feature needs to count as likely"`
	Charts    bool        `json:"charts,omitempty" jsonschema:"include a Markdown report with Mermaid charts"`
}

// ExportInput is the argument of export_results_csv.
type ExportInput struct {
	CSV       string      `json:"csv,omitempty" jsonschema:"portfolio CSV content"`
	Path      string      `json:"path,omitempty" jsonschema:"portfolio file, relative paths resolve against the data path"`
	Teams     []TeamInput `json:"teams,omitempty" jsonschema:"inline portfolio"`
	DueDate   string      `json:"due_date,omitempty" jsonschema:"due date, same forms as forecast_portfolio"`
	Trials    int         `json:"trials,omitempty" jsonschema:"number of Monte-Carlo trials"`
	Seed      int64       `json:"seed,omitempty" jsonschema:"random seed; 0 picks one"`
	Threshold float64     `json:"threshold,omitempty" jsonschema:"minimum probability percentage for a feature to be exported"`
}

// CycleCheckInput is the argument of check_dependency_cycle.
type CycleCheckInput struct {
	CSV              string      `json:"csv,omitempty" jsonschema:"portfolio CSV content"`
	Path             string      `json:"path,omitempty" jsonschema:"portfolio file, relative paths resolve against the data path"`
	Teams            []TeamInput `json:"teams,omitempty" jsonschema:"inline portfolio"`
	Team             string      `json:"team" jsonschema:"name of the team owning the feature being edited"`
	Feature          string      `json:"feature" jsonschema:"id of the feature being edited, may be a new one"`
	DependsOnTeam    string      `json:"depends_on_team,omitempty" jsonschema:"team owning the proposed prerequisite, defaults to team"`
	DependsOnFeature string      `json:"depends_on_feature" jsonschema:"id of the proposed prerequisite"`
}

// ImportInput is the argument of import_csv.
type ImportInput struct {
	CSV  string `json:"csv,omitempty" jsonschema:"portfolio CSV content"`
	Path string `json:"path,omitempty" jsonschema:"portfolio file, relative paths resolve against the data path"`
}

// TemplateInput is the (empty) argument of get_csv_template.
type TemplateInput struct{}

var errNoSource = errors.New("provide exactly one of csv, path or teams")

// loadPortfolio resolves the one portfolio source a tool call names.
func (s *Server) loadPortfolio(csvText, path string, teams []TeamInput) (*portfolio.Portfolio, error) {
	given := 0
	for _, set := range []bool{csvText != "", path != "", len(teams) > 0} {
		if set {
			given++
		}
	}
	if given != 1 {
		return nil, errNoSource
	}

	switch {
	case csvText != "":
		return csvio.Decode(strings.NewReader(csvText), portfolio.FormatCSV)
	case path != "":
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.cfg.DataPath, path)
		}
		p, err := csvio.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		return p, nil
	default:
		return &portfolio.Portfolio{Teams: teamsFromInput(teams)}, nil
	}
}

// teamsFromInput converts inline teams. IDs are derived from names the same
// way the CSV importer derives them, so dependencies refer to teams by name.
func teamsFromInput(in []TeamInput) []portfolio.Team {
	teams := make([]portfolio.Team, 0, len(in))
	for _, ti := range in {
		t := portfolio.Team{
			ID:             csvio.TeamID(ti.Name),
			Name:           ti.Name,
			WIPLimit:       ti.WIPLimit,
			PastThroughput: slices.Clone(ti.PastThroughput),
			Features:       make([]portfolio.Feature, 0, len(ti.Features)),
		}
		for _, fi := range ti.Features {
			f := portfolio.Feature{
				ID:     fi.ID,
				Name:   fi.Name,
				Size:   fi.Size,
				TeamID: t.ID,
			}
			if f.Name == "" {
				f.Name = f.ID
			}
			if fi.DependsOnFeature != "" {
				depTeam := t.ID
				if fi.DependsOnTeam != "" {
					depTeam = csvio.TeamID(fi.DependsOnTeam)
				}
				f.DependsOn = &portfolio.FeatureKey{TeamID: depTeam, FeatureID: fi.DependsOnFeature}
				f.IsBlocked = true
			}
			t.Features = append(t.Features, f)
		}
		portfolio.Renumber(t.Features)
		teams = append(teams, t)
	}
	return teams
}
