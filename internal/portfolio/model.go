package portfolio

// NotCompleted marks a feature that did not complete in any trial.
const NotCompleted = "N/A"

// FeatureKey is the global identity of a feature across the whole portfolio.
type FeatureKey struct {
	TeamID    string `json:"team_id" yaml:"team_id" toml:"team_id" jsonschema:"identity of the team owning the feature"`
	FeatureID string `json:"feature_id" yaml:"feature_id" toml:"feature_id" jsonschema:"identity of the feature within its team"`
}

func (k FeatureKey) String() string {
	return k.TeamID + "/" + k.FeatureID
}

// Forecast holds the aggregated simulation statistics for a single feature.
type Forecast struct {
	Probability  float64 `json:"probability" yaml:"probability" toml:"probability"`       // 0-100
	Completions  int     `json:"completions" yaml:"completions" toml:"completions"`       // trials in which it completed
	ExpectedDate string  `json:"expected_date" yaml:"expected_date" toml:"expected_date"` // P85, YYYY-MM-DD or NotCompleted
	P50Date      string  `json:"p50_date" yaml:"p50_date" toml:"p50_date"`
	P95Date      string  `json:"p95_date" yaml:"p95_date" toml:"p95_date"`
}

// HasExpectedDate reports whether the feature completed in at least one trial.
func (f *Forecast) HasExpectedDate() bool {
	return f != nil && f.ExpectedDate != "" && f.ExpectedDate != NotCompleted
}

// Feature is an indivisible unit of remaining work owned by a team.
type Feature struct {
	ID        string      `json:"id" yaml:"id" toml:"id" jsonschema:"unique feature identity within its team"`
	Name      string      `json:"name" yaml:"name" toml:"name"`
	Size      float64     `json:"size" yaml:"size" toml:"size" jsonschema:"remaining effort, same unit as throughput"`
	Priority  int         `json:"priority" yaml:"priority" toml:"priority" jsonschema:"1-based priority within the team"`
	TeamID    string      `json:"team_id" yaml:"team_id" toml:"team_id"`
	DependsOn *FeatureKey `json:"depends_on,omitempty" yaml:"depends_on,omitempty" toml:"depends_on,omitempty" jsonschema:"optional feature that must complete first"`
	IsBlocked bool        `json:"is_blocked" yaml:"is_blocked" toml:"is_blocked"`
	Forecast  *Forecast   `json:"forecast,omitempty" yaml:"forecast,omitempty" toml:"forecast,omitempty"`
}

// Key returns the global identity of the feature.
func (f Feature) Key() FeatureKey {
	return FeatureKey{TeamID: f.TeamID, FeatureID: f.ID}
}

// Team owns a prioritized backlog, a WIP limit and its throughput history.
type Team struct {
	ID             string    `json:"id" yaml:"id" toml:"id"`
	Name           string    `json:"name" yaml:"name" toml:"name"`
	WIPLimit       int       `json:"wip_limit" yaml:"wip_limit" toml:"wip_limit" jsonschema:"maximum features in progress at once"`
	PastThroughput []float64 `json:"past_throughput" yaml:"past_throughput" toml:"past_throughput" jsonschema:"historical daily throughput samples"`
	Features       []Feature `json:"features" yaml:"features" toml:"features"`
}

// Portfolio is the on-disk document: teams plus an optional due date.
type Portfolio struct {
	DueDate string `json:"due_date,omitempty" yaml:"due_date,omitempty" toml:"due_date,omitempty"`
	Teams   []Team `json:"teams" yaml:"teams" toml:"teams"`
}

// Clone returns a deep copy of the teams so callers can annotate without touching the input.
func Clone(teams []Team) []Team {
	out := make([]Team, len(teams))
	for i, t := range teams {
		nt := t
		nt.PastThroughput = append([]float64(nil), t.PastThroughput...)
		nt.Features = make([]Feature, len(t.Features))
		for j, f := range t.Features {
			nf := f
			if f.DependsOn != nil {
				dep := *f.DependsOn
				nf.DependsOn = &dep
			}
			if f.Forecast != nil {
				fc := *f.Forecast
				nf.Forecast = &fc
			}
			nt.Features[j] = nf
		}
		out[i] = nt
	}
	return out
}

// FindTeam returns the index of the team with the given ID, or -1.
func FindTeam(teams []Team, teamID string) int {
	for i := range teams {
		if teams[i].ID == teamID {
			return i
		}
	}
	return -1
}

// FindTeamByName returns the index of the team with the given name, or -1.
func FindTeamByName(teams []Team, name string) int {
	for i := range teams {
		if teams[i].Name == name {
			return i
		}
	}
	return -1
}

// FeatureCount returns the number of features across all teams.
func FeatureCount(teams []Team) int {
	n := 0
	for _, t := range teams {
		n += len(t.Features)
	}
	return n
}
