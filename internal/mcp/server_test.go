package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcs-portfolio/internal/config"
	"mcs-portfolio/internal/csvio"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		DataPath:  t.TempDir(),
		Trials:    200,
		Workers:   2,
		Seed:      7,
		Threshold: 85,
	}
}

// connect wires a server and a client over in-memory transports.
func connect(t *testing.T, cfg *config.AppConfig) *sdk.ClientSession {
	t.Helper()
	s := NewServer(cfg, "test")
	s.now = func() time.Time { return time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC) }

	ctx := context.Background()
	serverTransport, clientTransport := sdk.NewInMemoryTransports()
	ss, err := s.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *sdk.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &sdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdk.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text, res.IsError
}

func scenarioTeams() []map[string]any {
	return []map[string]any{{
		"name":            "Alpha",
		"wip_limit":       2,
		"past_throughput": []float64{2},
		"features": []map[string]any{
			{"id": "a", "size": 6},
			{"id": "b", "size": 6},
			{"id": "c", "size": 6},
		},
	}}
}

func TestListTools(t *testing.T) {
	cs := connect(t, testConfig(t))
	res, err := cs.ListTools(context.Background(), &sdk.ListToolsParams{})
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.NotNil(t, tool.InputSchema, tool.Name)
	}
	assert.ElementsMatch(t, []string{toolForecast, toolCycleCheck, toolImport, toolExport, toolTemplate}, names)
}

func TestForecastPortfolio_InlineTeams(t *testing.T) {
	cs := connect(t, testConfig(t))
	text, isErr := callTool(t, cs, toolForecast, map[string]any{
		"teams":    scenarioTeams(),
		"due_date": "2025-01-31",
		"trials":   50,
	})
	require.False(t, isErr, text)

	var resp ForecastResponse
	require.NoError(t, json.Unmarshal([]byte(text), &resp))
	require.NotNil(t, resp.Forecast)
	assert.Equal(t, "2025-01-01", resp.Forecast.StartDate)
	assert.Equal(t, 50, resp.Forecast.Trials)
	assert.Equal(t, int64(7), resp.Forecast.Seed)

	features := resp.Forecast.Teams[0].Features
	require.Len(t, features, 3)
	for i, want := range []string{"2025-01-04", "2025-01-07", "2025-01-10"} {
		require.NotNil(t, features[i].Forecast)
		assert.Equal(t, want, features[i].Forecast.ExpectedDate, features[i].ID)
		assert.Equal(t, 100.0, features[i].Forecast.Probability)
	}
	assert.Equal(t, 100.0, resp.Summary.OverallProbability)
	assert.Len(t, resp.Summary.HighProbability, 3)
	assert.Empty(t, resp.Report)
}

func TestForecastPortfolio_CSVWithCharts(t *testing.T) {
	cs := connect(t, testConfig(t))
	text, isErr := callTool(t, cs, toolForecast, map[string]any{
		"csv":      csvio.Template(),
		"due_date": "+8w",
		"charts":   true,
	})
	require.False(t, isErr, text)

	var resp ForecastResponse
	require.NoError(t, json.Unmarshal([]byte(text), &resp))
	assert.Equal(t, "2025-02-26", resp.Forecast.DueDate)
	assert.Contains(t, resp.Report, "# Portfolio Forecast")
	assert.Contains(t, resp.Report, "```mermaid")

	beta := resp.Forecast.Teams[1]
	assert.True(t, beta.Features[1].IsBlocked)
	assert.False(t, beta.Features[0].IsBlocked)
}

func TestForecastPortfolio_PathRelativeToDataPath(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DataPath, "plan.csv"), []byte(csvio.Template()), 0o644))

	cs := connect(t, cfg)
	text, isErr := callTool(t, cs, toolForecast, map[string]any{"path": "plan.csv", "due_date": "2025-03-01"})
	require.False(t, isErr, text)
	assert.Contains(t, text, `"Team Alpha"`)
}

func TestForecastPortfolio_Errors(t *testing.T) {
	cs := connect(t, testConfig(t))
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"no source", map[string]any{"due_date": "2025-03-01"}, errNoSource.Error()},
		{"two sources", map[string]any{"csv": csvio.Template(), "teams": scenarioTeams(), "due_date": "2025-03-01"}, errNoSource.Error()},
		{"no due date", map[string]any{"teams": scenarioTeams()}, "due_date is required"},
		{"past due date", map[string]any{"teams": scenarioTeams(), "due_date": "2024-12-01"}, "due date must be after today"},
		{"bad threshold", map[string]any{"teams": scenarioTeams(), "due_date": "2025-03-01", "threshold": 150}, "threshold must be between 0 and 100"},
		{"bad csv", map[string]any{"csv": "Team Name,WIP Limit,Past Throughput\nA,1,1\n", "due_date": "2025-03-01"}, "CSV file is missing feature data"},
		{"missing file", map[string]any{"path": "nope.csv", "due_date": "2025-03-01"}, "failed to load"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := callTool(t, cs, toolForecast, tt.args)
			assert.True(t, isErr)
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestExportResultsCSV(t *testing.T) {
	cs := connect(t, testConfig(t))
	text, isErr := callTool(t, cs, toolExport, map[string]any{
		"teams":    scenarioTeams(),
		"due_date": "2025-01-31",
		"trials":   20,
	})
	require.False(t, isErr, text)

	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Join(csvio.ResultHeaders, ","), lines[0])
	assert.Equal(t, "Alpha,a,6,1,100.00%,04/01/2025", lines[1])
	assert.Equal(t, "Alpha,c,6,3,100.00%,10/01/2025", lines[3])
}

func TestImportCSV(t *testing.T) {
	cs := connect(t, testConfig(t))
	text, isErr := callTool(t, cs, toolImport, map[string]any{"csv": csvio.Template()})
	require.False(t, isErr, text)

	var resp ImportResponse
	require.NoError(t, json.Unmarshal([]byte(text), &resp))
	assert.Len(t, resp.Teams, 2)
	assert.Equal(t, 3, resp.Features)
	assert.Empty(t, resp.Issues)
	require.Len(t, resp.Throughput, 2)
	assert.Equal(t, "Team Alpha", resp.Throughput[0].Team)
	assert.Equal(t, 5, resp.Throughput[0].Summary.Days)
}

func TestImportCSV_ReportsDanglingDependency(t *testing.T) {
	cs := connect(t, testConfig(t))
	doc := strings.Replace(csvio.Template(), "Team Alpha,1\n", "Team Alpha,9\n", 1)
	text, isErr := callTool(t, cs, toolImport, map[string]any{"csv": doc})
	require.False(t, isErr, text)

	var resp ImportResponse
	require.NoError(t, json.Unmarshal([]byte(text), &resp))
	require.Len(t, resp.Issues, 1)
	assert.Equal(t, "missing_target", resp.Issues[0].Kind)
}

func TestCheckDependencyCycle(t *testing.T) {
	cs := connect(t, testConfig(t))
	check := func(args map[string]any) CycleCheckResponse {
		t.Helper()
		args["csv"] = csvio.Template()
		text, isErr := callTool(t, cs, toolCycleCheck, args)
		require.False(t, isErr, text)
		var resp CycleCheckResponse
		require.NoError(t, json.Unmarshal([]byte(text), &resp))
		return resp
	}

	// Team Beta / 3 already depends on Team Alpha / 1.
	closing := check(map[string]any{"team": "Team Alpha", "feature": "1", "depends_on_team": "Team Beta", "depends_on_feature": "3"})
	assert.True(t, closing.WouldCycle)
	assert.True(t, closing.ExistingFeature)

	fine := check(map[string]any{"team": "Team Alpha", "feature": "1", "depends_on_team": "Team Beta", "depends_on_feature": "2"})
	assert.False(t, fine.WouldCycle)
	assert.True(t, fine.TargetExists)
	assert.Equal(t, "dependency can be added", fine.Message)

	self := check(map[string]any{"team": "Team Beta", "feature": "2", "depends_on_feature": "2"})
	assert.True(t, self.WouldCycle)

	dangling := check(map[string]any{"team": "Team Beta", "feature": "new", "depends_on_feature": "missing"})
	assert.False(t, dangling.WouldCycle)
	assert.False(t, dangling.TargetExists)
	assert.False(t, dangling.ExistingFeature)

	text, isErr := callTool(t, cs, toolCycleCheck, map[string]any{
		"csv": csvio.Template(), "team": "Nobody", "feature": "1", "depends_on_feature": "2",
	})
	assert.True(t, isErr)
	assert.Contains(t, text, "team not found")
}

func TestGetCSVTemplate(t *testing.T) {
	cs := connect(t, testConfig(t))
	text, isErr := callTool(t, cs, toolTemplate, map[string]any{})
	require.False(t, isErr)
	assert.Equal(t, csvio.Template(), text)
}

func TestTeamsFromInput(t *testing.T) {
	teams := teamsFromInput([]TeamInput{
		{Name: "Alpha", WIPLimit: 1, Features: []FeatureInput{{ID: "x", Size: 3}, {ID: "y", Name: "Why", Size: 2, DependsOnFeature: "x"}}},
		{Name: "Beta", WIPLimit: 2, Features: []FeatureInput{{ID: "z", Size: 1, DependsOnTeam: "Alpha", DependsOnFeature: "y"}}},
	})
	require.Len(t, teams, 2)

	alpha, beta := teams[0], teams[1]
	assert.Equal(t, csvio.TeamID("Alpha"), alpha.ID)
	assert.Equal(t, "x", alpha.Features[0].Name)
	assert.Equal(t, []int{1, 2}, []int{alpha.Features[0].Priority, alpha.Features[1].Priority})
	require.NotNil(t, alpha.Features[1].DependsOn)
	assert.Equal(t, alpha.ID, alpha.Features[1].DependsOn.TeamID)
	assert.True(t, alpha.Features[1].IsBlocked)
	assert.Equal(t, alpha.ID, beta.Features[0].DependsOn.TeamID)
	assert.Equal(t, beta.ID, beta.Features[0].TeamID)
}
