package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/firstglance/pkg/config"
	"github.com/Sumatoshi-tech/firstglance/pkg/mcp"
	"github.com/Sumatoshi-tech/firstglance/pkg/observability"
	"github.com/Sumatoshi-tech/firstglance/pkg/version"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var (
		debug      bool
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes one tool that AI agents can discover and invoke:
  - firstglance_rank: rank the files of a Git repository by co-change centrality

Tool arguments override the settings loaded from the config file and the
FIRSTGLANCE_* environment variables.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			providers, err := initMCPObservability(cfg, debug)
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			pipeline, err := observability.NewPipelineMetrics(providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:   providers.Logger,
				Metrics:  red,
				Pipeline: pipeline,
				Tracer:   providers.Tracer,
				Config:   cfg,
			})

			providers.Logger.Info("mcp server started", "tools", srv.ListToolNames())

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default .firstglance.yaml in . or $HOME)")

	return cmd
}

func initMCPObservability(cfg *config.Config, debug bool) (observability.Providers, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return observability.Providers{}, err
	}

	obsCfg := observability.DefaultConfig().WithEnv()
	obsCfg.ServiceVersion = version.Get().Version
	obsCfg.Mode = observability.ModeMCP
	obsCfg.LogJSON = true
	obsCfg.LogLevel = level
	obsCfg.MetricsFile = cfg.Metrics.File

	if debug {
		obsCfg.LogLevel = slog.LevelDebug
	}

	return observability.Init(obsCfg)
}
