package portfolio

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDependency_RejectsCycleAtEveryEntryPoint(t *testing.T) {
	teams := []Team{
		{ID: "t1", Name: "Alpha", WIPLimit: 1, Features: []Feature{
			{ID: "A", Size: 1, Priority: 1, TeamID: "t1"},
			{ID: "B", Size: 1, Priority: 2, TeamID: "t1"},
			{ID: "C", Size: 1, Priority: 3, TeamID: "t1"},
		}},
	}

	// Build A -> B -> C, then try to close with C -> A.
	teams, err := SetDependency(teams, "t1", "A", dep("t1", "B"))
	require.NoError(t, err)
	teams, err = SetDependency(teams, "t1", "B", dep("t1", "C"))
	require.NoError(t, err)

	_, err = SetDependency(teams, "t1", "C", dep("t1", "A"))
	assert.True(t, errors.Is(err, ErrCyclicDependency))

	// Same edge attempted through a feature edit.
	c := teams[0].Features[2]
	c.DependsOn = dep("t1", "A")
	_, err = UpdateFeature(teams, "t1", c)
	assert.True(t, errors.Is(err, ErrCyclicDependency))
}

func TestSetDependency_UnknownTargetAndClear(t *testing.T) {
	teams := chainTeams()

	_, err := SetDependency(teams, "t3", "C", dep("t1", "nope"))
	assert.True(t, errors.Is(err, ErrUnknownDependency))

	_, err = SetDependency(teams, "t3", "missing", nil)
	assert.True(t, errors.Is(err, ErrFeatureNotFound))

	cleared, err := SetDependency(teams, "t1", "A", nil)
	require.NoError(t, err)
	assert.Nil(t, cleared[0].Features[0].DependsOn)
	assert.NotNil(t, teams[0].Features[0].DependsOn, "input must be untouched")
}

func TestUpdateFeature_UnknownDependencyTarget(t *testing.T) {
	teams := chainTeams()

	c := teams[2].Features[0]
	c.DependsOn = dep("t1", "nope")
	_, err := UpdateFeature(teams, "t3", c)
	assert.True(t, errors.Is(err, ErrUnknownDependency))

	// An edge that already dangles does not block unrelated edits.
	teams[2].Features = append(teams[2].Features, Feature{ID: "D", Name: "D", Size: 1, Priority: 2, TeamID: "t3", DependsOn: dep("t9", "gone")})
	d := teams[2].Features[1]
	d.Name = "renamed"
	out, err := UpdateFeature(teams, "t3", d)
	require.NoError(t, err)
	assert.Equal(t, "renamed", out[2].Features[1].Name)
}

func TestEdits_KeepBlockedFlagAndDropStaleForecast(t *testing.T) {
	teams := chainTeams()
	for ti := range teams {
		for fi := range teams[ti].Features {
			f := &teams[ti].Features[fi]
			f.IsBlocked = f.DependsOn != nil
			f.Forecast = &Forecast{Probability: 100, ExpectedDate: "2025-01-04"}
		}
	}

	cleared, err := SetDependency(teams, "t1", "A", nil)
	require.NoError(t, err)
	assert.False(t, cleared[0].Features[0].IsBlocked)
	assert.Nil(t, cleared[0].Features[0].Forecast)
	assert.NotNil(t, cleared[1].Features[0].Forecast, "untouched features keep their forecast")

	linked, err := SetDependency(teams, "t3", "C", dep("t1", "A2"))
	assert.True(t, errors.Is(err, ErrUnknownDependency))
	assert.Nil(t, linked)

	teams, err = AddFeature(teams, "t1", Feature{ID: "A2", Name: "A2", Size: 1})
	require.NoError(t, err)
	linked, err = SetDependency(teams, "t1", "A2", dep("t3", "C"))
	require.NoError(t, err)
	assert.True(t, linked[0].Features[1].IsBlocked)

	b := teams[1].Features[0]
	b.Size = 7
	resized, err := UpdateFeature(teams, "t2", b)
	require.NoError(t, err)
	assert.Nil(t, resized[1].Features[0].Forecast)
	assert.True(t, resized[1].Features[0].IsBlocked)
}

func TestPriorityMaintenance(t *testing.T) {
	teams := []Team{{ID: "t1", Name: "Alpha", WIPLimit: 1}}

	var err error
	for _, id := range []string{"f1", "f2", "f3"} {
		teams, err = AddFeature(teams, "t1", Feature{ID: id, Name: id, Size: 2})
		require.NoError(t, err)
	}
	assert.Equal(t, []int{1, 2, 3}, priorities(teams[0].Features))

	// Move f3 to the top.
	f3 := teams[0].Features[2]
	f3.Priority = 0
	teams, err = UpdateFeature(teams, "t1", f3)
	require.NoError(t, err)
	assert.Equal(t, []string{"f3", "f1", "f2"}, ids(teams[0].Features))
	assert.Equal(t, []int{1, 2, 3}, priorities(teams[0].Features))

	// And f3 down to the bottom again, past a priority beyond the backlog.
	f3 = teams[0].Features[0]
	f3.Priority = 9
	teams, err = UpdateFeature(teams, "t1", f3)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2", "f3"}, ids(teams[0].Features))

	f2 := teams[0].Features[1]
	f2.Priority = 1
	teams, err = UpdateFeature(teams, "t1", f2)
	require.NoError(t, err)
	assert.Equal(t, []string{"f2", "f1", "f3"}, ids(teams[0].Features))
	assert.Equal(t, []int{1, 2, 3}, priorities(teams[0].Features))

	f2 = teams[0].Features[0]
	f2.Priority = 2
	teams, err = UpdateFeature(teams, "t1", f2)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2", "f3"}, ids(teams[0].Features))

	f3 = teams[0].Features[2]
	f3.Priority = 1
	teams, err = UpdateFeature(teams, "t1", f3)
	require.NoError(t, err)

	teams, err = RemoveFeature(teams, "t1", "f1")
	require.NoError(t, err)
	assert.Equal(t, []string{"f3", "f2"}, ids(teams[0].Features))
	assert.Equal(t, []int{1, 2}, priorities(teams[0].Features))

	_, err = AddFeature(teams, "t1", Feature{ID: "f2", Size: 1})
	assert.True(t, errors.Is(err, ErrInvalidPortfolio))
	_, err = AddFeature(teams, "nope", Feature{ID: "f9", Size: 1})
	assert.True(t, errors.Is(err, ErrTeamNotFound))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(teams []Team)
		wantErr string
	}{
		{"Valid", func(teams []Team) {}, ""},
		{"ZeroWIP", func(teams []Team) { teams[0].WIPLimit = 0 }, "WIP limit for team Alpha"},
		{"NegativeThroughput", func(teams []Team) { teams[1].PastThroughput = []float64{-1} }, "team Beta"},
		{"ZeroSize", func(teams []Team) { teams[2].Features[0].Size = 0 }, "feature C"},
		{"DuplicateTeam", func(teams []Team) { teams[1].ID = "t1" }, "duplicate team id"},
		{"DuplicateFeature", func(teams []Team) {
			teams[0].Features = append(teams[0].Features, Feature{ID: "A", Name: "A2", Size: 1, TeamID: "t1"})
		}, "duplicate feature id"},
		{"WrongOwner", func(teams []Team) { teams[0].Features[0].TeamID = "t2" }, "owned by"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			teams := chainTeams()
			tt.mutate(teams)
			err := Validate(teams)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPortfolio))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCodec_RoundTripStructuredFormats(t *testing.T) {
	p := &Portfolio{DueDate: "2030-01-31", Teams: chainTeams()}

	for _, format := range []Format{FormatJSON, FormatYAML, FormatTOML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, format, p))

			got, err := Decode(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, p.DueDate, got.DueDate)
			assert.Equal(t, p.Teams, got.Teams)
		})
	}
}

func TestDecode_NormalizesImplicitFields(t *testing.T) {
	doc := `
teams:
  - id: t1
    name: Alpha
    wip_limit: 2
    past_throughput: [1, 2, 3]
    features:
      - id: first
        size: 5
      - id: second
        size: 3
        depends_on:
          feature_id: first
`
	p, err := Decode(bytes.NewBufferString(doc), FormatYAML)
	require.NoError(t, err)

	features := p.Teams[0].Features
	assert.Equal(t, []int{1, 2}, priorities(features))
	assert.Equal(t, "t1", features[0].TeamID)
	assert.Equal(t, &FeatureKey{TeamID: "t1", FeatureID: "first"}, features[1].DependsOn)
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("plan.YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = FormatFromPath("plan.xlsx")
	assert.Error(t, err)
}

func priorities(features []Feature) []int {
	out := make([]int, len(features))
	for i, f := range features {
		out[i] = f.Priority
	}
	return out
}

func ids(features []Feature) []string {
	out := make([]string, len(features))
	for i, f := range features {
		out[i] = f.ID
	}
	return out
}
