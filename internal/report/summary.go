// Package report turns an annotated portfolio into the views a planner reads:
// a terminal table, a Markdown/HTML document and CSV-ready rows.
package report

import (
	"slices"
	"strings"

	"mcs-portfolio/internal/portfolio"
	"mcs-portfolio/internal/stats"
)

// FeatureRow is one forecast feature with its owning team's name.
type FeatureRow struct {
	Team         string  `json:"team"`
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Size         float64 `json:"size"`
	Priority     int     `json:"priority"`
	DependsOn    string  `json:"depends_on,omitempty"`
	Probability  float64 `json:"probability"`
	ExpectedDate string  `json:"expected_date"`
	P50Date      string  `json:"p50_date"`
	P95Date      string  `json:"p95_date"`
}

// TeamSummary aggregates the forecasts of one team.
type TeamSummary struct {
	Name               string                  `json:"name"`
	WIPLimit           int                     `json:"wip_limit"`
	Features           int                     `json:"features"`
	Backlog            float64                 `json:"backlog_size"`
	AverageProbability float64                 `json:"average_probability"`
	Throughput         stats.ThroughputSummary `json:"throughput"`
}

// Summary is the portfolio-level view of a forecast.
type Summary struct {
	Threshold          float64       `json:"threshold"`
	OverallProbability float64       `json:"overall_probability"` // every feature done by the due date
	Teams              []TeamSummary `json:"teams"`
	Features           []FeatureRow  `json:"features"`
	HighProbability    []FeatureRow  `json:"high_probability"` // >= Threshold, by expected date
	Unstable           []string      `json:"unstable_teams,omitempty"`
}

// Summarize builds the Summary of an annotated portfolio. The overall
// probability treats features as independent and multiplies their
// individual probabilities.
func Summarize(teams []portfolio.Team, threshold float64) Summary {
	s := Summary{Threshold: threshold, OverallProbability: 100}
	if portfolio.FeatureCount(teams) == 0 {
		s.OverallProbability = 0
	}

	for _, t := range teams {
		ts := TeamSummary{
			Name:       t.Name,
			WIPLimit:   t.WIPLimit,
			Features:   len(t.Features),
			Throughput: stats.SummarizeThroughput(t.PastThroughput),
		}
		if ts.Throughput.Days > 0 && !ts.Throughput.Stable() {
			s.Unstable = append(s.Unstable, t.Name)
		}

		features := slices.Clone(t.Features)
		portfolio.SortByPriority(features)
		sum := 0.0
		for _, f := range features {
			row := FeatureRow{
				Team:         t.Name,
				ID:           f.ID,
				Name:         f.Name,
				Size:         f.Size,
				Priority:     f.Priority,
				ExpectedDate: portfolio.NotCompleted,
				P50Date:      portfolio.NotCompleted,
				P95Date:      portfolio.NotCompleted,
			}
			if f.DependsOn != nil {
				row.DependsOn = dependencyLabel(teams, *f.DependsOn)
			}
			if f.Forecast != nil {
				row.Probability = f.Forecast.Probability
				row.ExpectedDate = f.Forecast.ExpectedDate
				row.P50Date = f.Forecast.P50Date
				row.P95Date = f.Forecast.P95Date
			}
			ts.Backlog += f.Size
			sum += row.Probability
			s.OverallProbability *= row.Probability / 100
			s.Features = append(s.Features, row)
			if row.Probability >= threshold && row.ExpectedDate != portfolio.NotCompleted {
				s.HighProbability = append(s.HighProbability, row)
			}
		}
		if len(features) > 0 {
			ts.AverageProbability = sum / float64(len(features))
		}
		s.Teams = append(s.Teams, ts)
	}

	slices.SortStableFunc(s.HighProbability, func(a, b FeatureRow) int {
		return strings.Compare(a.ExpectedDate, b.ExpectedDate)
	})
	return s
}

func dependencyLabel(teams []portfolio.Team, key portfolio.FeatureKey) string {
	ti := portfolio.FindTeam(teams, key.TeamID)
	if ti < 0 {
		return key.String() + " (missing)"
	}
	for _, f := range teams[ti].Features {
		if f.ID == key.FeatureID {
			return teams[ti].Name + " / " + f.Name
		}
	}
	return teams[ti].Name + " / " + key.FeatureID + " (missing)"
}
