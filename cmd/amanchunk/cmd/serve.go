package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanchunk/internal/config"
	amerrors "github.com/Aman-CERP/amanchunk/internal/errors"
	"github.com/Aman-CERP/amanchunk/internal/logging"
	"github.com/Aman-CERP/amanchunk/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var (
		transport string
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start a Model Context Protocol server exposing the chunk_semantic,
chunk_code, chunk_recursive and list_languages tools.

stdout carries the JSON-RPC stream exclusively; logs go to
~/.amanchunk/logs/amanchunk.log (or $AMANCHUNK_LOG_DIR).`,
		Example: `  # Register with an MCP client
  amanchunk serve

  # Verbose server logs
  amanchunk serve --log-level debug`,
		Annotations: map[string]string{annotationOwnsLogging: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("transport") {
				cfg.Server.Transport = transport
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Server.LogLevel = logLevel
			}
			if debugMode {
				cfg.Server.LogLevel = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return amerrors.ValidationError(err.Error(), err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport: stdio")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	return cmd
}

// runServe runs the MCP server until ctx is done or the client disconnects.
// Nothing is written to stdout before the server owns it.
func runServe(ctx context.Context, cfg *config.Config) error {
	logger, cleanup, err := logging.SetupMCPMode(cfg.Server.LogLevel)
	if err != nil {
		return amerrors.InternalError("failed to setup logging", err)
	}
	defer cleanup()

	srv, err := mcp.NewServer(cfg, logger)
	if err != nil {
		logger.Error("failed to create MCP server", amerrors.LogAttrs(err)...)
		return err
	}

	if err := srv.Serve(ctx, cfg.Server.Transport); err != nil {
		logger.Error("MCP server failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}
