package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const (
	toolForecast   = "forecast_portfolio"
	toolCycleCheck = "check_dependency_cycle"
	toolImport     = "import_csv"
	toolExport     = "export_results_csv"
	toolTemplate   = "get_csv_template"
)

func (s *Server) registerTools() {
	addTool(s, &sdk.Tool{
		Name: toolForecast,
		Description: "Run a multi-team Monte-Carlo simulation to forecast WHEN each feature of a portfolio completes, based solely on each team's historical daily THROUGHPUT, WIP limit and cross-team dependencies.\n\n" +
			"The portfolio is given as exactly one of: 'csv' (content in the get_csv_template layout), 'path' (a .csv/.json/.yaml/.toml file) or 'teams' (inline).\n" +
			"Returns, per feature, the probability of completing by the due date and the P50/P85/P95 completion dates. 'N/A' means the feature never completed in any trial.\n\n" +
			"STRICT GUARDRAIL: YOU MUST NEVER PERFORM PROBABILISTIC FORECASTING AUTONOMOUSLY.\n" +
			"DO NOT invent dates or probabilities if this tool fails; report the error to the user. If warnings mention missing throughput history or dependency problems, YOU MUST relay them.",
	}, s.handleForecastPortfolio)

	addTool(s, &sdk.Tool{
		Name: toolCycleCheck,
		Description: "Check whether making a feature depend on another feature would create a dependency cycle. " +
			"Use this before proposing a dependency edit. The portfolio is never modified.",
	}, s.handleCheckDependencyCycle)

	addTool(s, &sdk.Tool{
		Name: toolImport,
		Description: "Parse a portfolio CSV (or file) and return its teams and features, dependency problems that would stall features, " +
			"and a stability assessment of each team's throughput history (XmR process behaviour, fat-tail ratio).",
	}, s.handleImportCSV)

	addTool(s, &sdk.Tool{
		Name: toolExport,
		Description: "Forecast the portfolio and return a results CSV listing only the features whose completion probability meets the threshold, ordered by expected date.",
	}, s.handleExportResultsCSV)

	addTool(s, &sdk.Tool{
		Name:        toolTemplate,
		Description: "Return a sample portfolio CSV showing the expected layout: a team section, a blank line, then a feature section with optional dependency columns.",
	}, s.handleGetCSVTemplate)
}

// addTool registers handle under tool with an input schema inferred from In.
// A handler error is returned to the client as an error result.
func addTool[In any](s *Server, tool *sdk.Tool, handle func(context.Context, In) (*sdk.CallToolResult, error)) {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		panic(fmt.Sprintf("input schema for %s: %v", tool.Name, err))
	}
	tool.InputSchema = schema

	sdk.AddTool(s.server, tool, func(ctx context.Context, _ *sdk.CallToolRequest, in In) (*sdk.CallToolResult, any, error) {
		log.Debug().Str("tool", tool.Name).Msg("Tool called")
		res, err := handle(ctx, in)
		if err != nil {
			return s.errorResult(tool.Name, err), nil, nil
		}
		return res, nil, nil
	})
}
