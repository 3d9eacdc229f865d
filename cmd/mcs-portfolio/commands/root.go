package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mcs-portfolio/internal/config"
	"mcs-portfolio/internal/logging"
	"mcs-portfolio/internal/mcp"
	"mcs-portfolio/internal/telemetry"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "mcs-portfolio",
	Short: "MCS-Portfolio forecasts multi-team feature delivery with Monte-Carlo simulation",
	Long: `Forecasts when each feature of a multi-team portfolio will complete, using
each team's historical daily throughput, WIP limit and cross-team dependencies.

Without a subcommand it runs as an MCP server on stdio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(verbose); err != nil {
			log.Warn().Err(err).Msg("File logging disabled")
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if err := telemetry.Init(cmd.Context(), telemetry.Options{
			Enabled:     cfg.OtelEnabled,
			Stdout:      cfg.OtelStdout,
			ServiceName: "mcs-portfolio",
			Version:     Version,
		}); err != nil {
			log.Warn().Err(err).Msg("Telemetry disabled")
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("dataPath", cfg.DataPath).
			Msg("MCS-Portfolio starting")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		telemetry.Shutdown(context.WithoutCancel(cmd.Context()))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		server := mcp.NewServer(cfg, Version)
		return server.Serve(cmd.Context())
	},
}

// Execute runs the root command until it returns or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.Version = Version
}
