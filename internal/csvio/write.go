package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"mcs-portfolio/internal/portfolio"
)

// DefaultThreshold is the minimum completion probability (percent) a feature
// needs to appear in a results export.
const DefaultThreshold = 85.0

// ResultHeaders are the columns of ExportResults.
var ResultHeaders = []string{colTeam, "Feature", colSize, "Priority", colProbability, colExpected}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WritePortfolio writes teams in the format Import reads. When any feature
// carries a forecast, probability and expected date columns are appended;
// Import ignores them.
func WritePortfolio(w io.Writer, teams []portfolio.Team) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TeamHeaders); err != nil {
		return err
	}
	for _, t := range teams {
		history := make([]string, len(t.PastThroughput))
		for i, v := range t.PastThroughput {
			history[i] = formatNumber(v)
		}
		if err := cw.Write([]string{t.Name, strconv.Itoa(t.WIPLimit), strings.Join(history, ",")}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	withForecast := false
	for _, t := range teams {
		for _, f := range t.Features {
			if f.Forecast != nil {
				withForecast = true
			}
		}
	}

	header := append(slices.Clone(FeatureHeaders), colDepTeam, colDepFeature)
	if withForecast {
		header = append(header, colProbability, colExpected)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, t := range teams {
		features := slices.Clone(t.Features)
		portfolio.SortByPriority(features)
		for _, f := range features {
			row := []string{f.ID, t.Name, f.Name, formatNumber(f.Size), "", ""}
			if f.DependsOn != nil {
				if i := portfolio.FindTeam(teams, f.DependsOn.TeamID); i >= 0 {
					row[4] = teams[i].Name
				} else {
					row[4] = f.DependsOn.TeamID
					log.Warn().
						Str("feature", f.Key().String()).
						Str("team_id", f.DependsOn.TeamID).
						Msg("Dependency points at an unknown team; writing its raw ID")
				}
				row[5] = f.DependsOn.FeatureID
			}
			if withForecast {
				prob, expected := "", ""
				if f.Forecast != nil {
					prob = fmt.Sprintf("%.2f%%", f.Forecast.Probability)
					expected = f.Forecast.ExpectedDate
				}
				row = append(row, prob, expected)
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

type resultRow struct {
	team     string
	feature  portfolio.Feature
	expected string
}

// ExportResults writes every feature whose completion probability is at
// least threshold, ordered by expected completion date.
func ExportResults(w io.Writer, teams []portfolio.Team, threshold float64) error {
	var rows []resultRow
	for _, t := range teams {
		for _, f := range t.Features {
			if !f.Forecast.HasExpectedDate() || f.Forecast.Probability < threshold {
				continue
			}
			rows = append(rows, resultRow{team: t.Name, feature: f, expected: f.Forecast.ExpectedDate})
		}
	}
	// ISO dates order lexicographically.
	slices.SortStableFunc(rows, func(a, b resultRow) int {
		return strings.Compare(a.expected, b.expected)
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(ResultHeaders); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			r.team,
			r.feature.Name,
			formatNumber(r.feature.Size),
			strconv.Itoa(r.feature.Priority),
			fmt.Sprintf("%.2f%%", r.feature.Forecast.Probability),
			dayMonthYear(r.expected),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// dayMonthYear turns YYYY-MM-DD into DD/MM/YYYY.
func dayMonthYear(iso string) string {
	parts := strings.Split(iso, "-")
	if len(parts) != 3 {
		return iso
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}

// Template returns a small example document.
func Template() string {
	return strings.Join(TeamHeaders, ",") + `
Team Alpha,3,"2,3,1,2,3"
Team Beta,4,"3,4,2,3,3"

` + strings.Join(FeatureHeaders, ",") + "," + colDepTeam + "," + colDepFeature + `
1,Team Alpha,Feature 1,5,,
2,Team Beta,Feature 2,8,,
3,Team Beta,Feature 3,3,Team Alpha,1
`
}
