// Package mcp exposes the portfolio forecaster as Model Context Protocol tools
// served over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"mcs-portfolio/internal/config"
)

// ServerName is reported to clients during initialization.
const ServerName = "mcs-portfolio"

// Server holds the state for the MCP server.
type Server struct {
	cfg    *config.AppConfig
	server *sdk.Server
	now    func() time.Time
}

// NewServer creates a new MCP server with every tool registered.
func NewServer(cfg *config.AppConfig, version string) *Server {
	s := &Server{
		cfg: cfg,
		server: sdk.NewServer(&sdk.Implementation{
			Name:    ServerName,
			Version: version,
		}, nil),
		now: time.Now,
	}
	s.registerTools()
	return s
}

// Serve runs the server over stdio until the client disconnects or ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("data_path", s.cfg.DataPath).Msg("MCP server listening on stdio")
	return s.server.Run(ctx, &sdk.StdioTransport{})
}

func (s *Server) formatResult(data any) string {
	out, _ := json.MarshalIndent(data, "", "  ")
	return string(out)
}

func (s *Server) jsonResult(data any) *sdk.CallToolResult {
	return s.textResult(s.formatResult(data))
}

func (s *Server) textResult(text string) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: text}},
	}
}

// errorResult reports a tool failure as tool output, not as a protocol error.
func (s *Server) errorResult(tool string, err error) *sdk.CallToolResult {
	log.Warn().Err(err).Str("tool", tool).Msg("Tool call failed")
	return &sdk.CallToolResult{
		IsError: true,
		Content: []sdk.Content{&sdk.TextContent{Text: err.Error()}},
	}
}
