// Package csvio reads and writes the two-section portfolio CSV: a team block,
// a blank line, then a feature block whose header row starts with "Feature ID".
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mcs-portfolio/internal/portfolio"
)

const (
	colTeamName       = "Team Name"
	colWIPLimit       = "WIP Limit"
	colPastThroughput = "Past Throughput"

	colFeatureID   = "Feature ID"
	colTeam        = "Team"
	colName        = "Name"
	colSize        = "Size"
	colDepTeam     = "Depends On Team"
	colDepFeature  = "Depends On Feature"
	colProbability = "Completion Probability"
	colExpected    = "Expected Completion"
)

var (
	TeamHeaders    = []string{colTeamName, colWIPLimit, colPastThroughput}
	FeatureHeaders = []string{colFeatureID, colTeam, colName, colSize}
)

// ErrInvalidCSV is wrapped by every import failure.
var ErrInvalidCSV = errors.New("invalid portfolio CSV")

// ImportError carries the user-facing reason an import was rejected.
type ImportError struct {
	Message string
}

func (e *ImportError) Error() string { return e.Message }
func (e *ImportError) Unwrap() error { return ErrInvalidCSV }

func importErrorf(format string, args ...any) error {
	return &ImportError{Message: fmt.Sprintf(format, args...)}
}

// teamNamespace scopes the name-based team identities.
var teamNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("mcs-portfolio/team"))

// TeamID returns the stable identity derived from a team name, so the same
// file always imports to the same IDs.
func TeamID(name string) string {
	return uuid.NewSHA1(teamNamespace, []byte(name)).String()
}

// depTeamID resolves a "Depends On Team" cell. A team that no longer exists
// is written as its raw ID, which is kept as is when read back.
func depTeamID(teams []portfolio.Team, cell string) string {
	if portfolio.FindTeamByName(teams, cell) < 0 && uuid.Validate(cell) == nil {
		return cell
	}
	return TeamID(cell)
}

type section struct {
	header []string
	rows   [][]string
}

func (s section) index() map[string]int {
	idx := make(map[string]int, len(s.header))
	for i, h := range s.header {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func missing(idx map[string]int, required []string) []string {
	var out []string
	for _, h := range required {
		if _, ok := idx[h]; !ok {
			out = append(out, h)
		}
	}
	return out
}

func cell(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Import parses a portfolio CSV. Feature priority follows row order within
// each team; team IDs come from TeamID.
func Import(r io.Reader) ([]portfolio.Team, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	records = slices.DeleteFunc(records, func(rec []string) bool {
		return len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "")
	})
	if len(records) == 0 {
		return nil, importErrorf("CSV file is empty")
	}

	split := slices.IndexFunc(records, func(rec []string) bool {
		return strings.TrimSpace(rec[0]) == colFeatureID
	})
	if split == -1 {
		return nil, importErrorf("CSV file is missing feature data")
	}
	if split == 0 {
		return nil, importErrorf("CSV file is missing team data")
	}
	teamSec := section{header: records[0], rows: records[1:split]}
	featSec := section{header: records[split], rows: records[split+1:]}
	if len(teamSec.rows) == 0 {
		return nil, importErrorf("CSV file is missing team data")
	}
	if len(featSec.rows) == 0 {
		return nil, importErrorf("CSV file is missing feature data")
	}

	teamIdx, featIdx := teamSec.index(), featSec.index()
	if m := missing(teamIdx, TeamHeaders); len(m) > 0 {
		return nil, importErrorf("Missing team headers: %s", strings.Join(m, ", "))
	}
	if m := missing(featIdx, FeatureHeaders); len(m) > 0 {
		return nil, importErrorf("Missing feature headers: %s", strings.Join(m, ", "))
	}

	teams := make([]portfolio.Team, 0, len(teamSec.rows))
	for _, row := range teamSec.rows {
		name := cell(row, teamIdx, colTeamName)
		history, err := parseThroughput(cell(row, teamIdx, colPastThroughput))
		if err != nil {
			return nil, importErrorf("Invalid Past Throughput for team %s", name)
		}
		wip, err := strconv.Atoi(cell(row, teamIdx, colWIPLimit))
		if err != nil {
			return nil, importErrorf("Invalid WIP Limit for team %s", name)
		}
		teams = append(teams, portfolio.Team{
			ID:             TeamID(name),
			Name:           name,
			WIPLimit:       wip,
			PastThroughput: history,
		})
	}

	for _, row := range featSec.rows {
		name := cell(row, featIdx, colName)
		size, err := strconv.ParseFloat(cell(row, featIdx, colSize), 64)
		if err != nil {
			return nil, importErrorf("Invalid Size for feature %s", name)
		}
		ti := portfolio.FindTeamByName(teams, cell(row, featIdx, colTeam))
		if ti < 0 {
			return nil, importErrorf("Team not found for feature %s", name)
		}
		t := &teams[ti]
		f := portfolio.Feature{
			ID:       cell(row, featIdx, colFeatureID),
			Name:     name,
			Size:     size,
			Priority: len(t.Features) + 1,
			TeamID:   t.ID,
		}
		if depFeature := cell(row, featIdx, colDepFeature); depFeature != "" {
			depTeam := t.ID
			if n := cell(row, featIdx, colDepTeam); n != "" {
				depTeam = depTeamID(teams, n)
			}
			f.DependsOn = &portfolio.FeatureKey{TeamID: depTeam, FeatureID: depFeature}
			f.IsBlocked = true
		}
		t.Features = append(t.Features, f)
	}

	log.Debug().
		Int("teams", len(teams)).
		Int("features", len(featSec.rows)).
		Msg("Imported portfolio CSV")
	return teams, nil
}

func parseThroughput(s string) ([]float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
