// Package cmd provides the CLI commands for amanchunk.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/amanchunk/internal/errors"
	"github.com/Aman-CERP/amanchunk/internal/logging"
	"github.com/Aman-CERP/amanchunk/internal/profiling"
	"github.com/Aman-CERP/amanchunk/pkg/version"
)

// annotationOwnsLogging marks commands that install their own logger
// (the MCP server must never log to stderr).
const annotationOwnsLogging = "amanchunk/owns-logging"

// Profiling flags
var (
	profileOpts    profiling.Options
	profileSession *profiling.Session
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
	previousLogger *slog.Logger
)

// NewRootCmd creates the root command for amanchunk CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amanchunk",
		Short: "Split text and source code into retrieval-sized chunks",
		Long: `amanchunk splits prose and source code into chunks sized for
embedding and retrieval.

Three strategies are available:
  semantic   groups whole sentences, never splitting one unless it is oversized
  code       follows declarations (imports, functions, classes) per language
  recursive  descends paragraph, line, sentence, word and character separators

Run 'amanchunk serve' to expose the same strategies as MCP tools.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("amanchunk version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.amanchunk/logs/")

	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newChunkCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newLanguagesCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging starts profiling and debug logging if flags are set.
func startProfilingAndLogging(cmd *cobra.Command, _ []string) error {
	if profileOpts.Enabled() {
		session, err := profiling.Start(profileOpts)
		if err != nil {
			return err
		}
		profileSession = session
	}

	if !debugMode || cmd.Annotations[annotationOwnsLogging] == "true" {
		return nil
	}

	cfg := logging.DebugConfig()
	cfg.Stderr = cmd.ErrOrStderr()
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	previousLogger = slog.Default()
	slog.SetDefault(logger)
	slog.Debug("debug logging enabled",
		slog.String("log_file", cfg.FilePath),
		slog.String("command", cmd.Name()),
		slog.String("version", version.Version))

	return nil
}

// stopProfilingAndLogging writes requested profiles, flushes the debug log
// and restores the previous logger.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var profileErr error
	if profileSession != nil {
		profileErr = profileSession.Stop()
		profileSession = nil
	}

	if loggingCleanup != nil {
		slog.Debug("debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	if previousLogger != nil {
		slog.SetDefault(previousLogger)
		previousLogger = nil
	}
	return profileErr
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		// PersistentPostRunE is skipped when RunE fails.
		_ = stopProfilingAndLogging(cmd, nil)
		fmt.Fprint(cmd.ErrOrStderr(), formatError(err))
	}
	return err
}

func formatError(err error) string {
	if _, ok := amerrors.As(err); ok {
		return amerrors.FormatForCLI(err)
	}
	return fmt.Sprintf("Error: %v\n  Hint: run 'amanchunk --help' for usage\n", err)
}
