package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/amanchunk/internal/errors"
	"github.com/Aman-CERP/amanchunk/internal/logging"
	"github.com/Aman-CERP/amanchunk/internal/output"
)

type logsOptions struct {
	follow  bool
	lines   int
	level   string
	filter  string
	noColor bool
	file    string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View amanchunk logs",
		Long: `Show the JSON log written by 'amanchunk serve' and --debug runs as
readable lines. By default the last 50 lines are shown; -f keeps printing
new entries until interrupted.`,
		Example: `  amanchunk logs                # Last 50 lines
  amanchunk logs -n 200 --level warn
  amanchunk logs -f --filter chunk_failed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level to show (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only show lines matching this regular expression")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.file, "file", "", "Log file to read (default: the amanchunk log file)")

	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	path := opts.file
	if path == "" {
		path = logging.DefaultLogPath()
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return amerrors.IOError(fmt.Sprintf("log file not found: %s", path), err).
				WithDetail("file", path).
				WithSuggestion("logs are written by 'amanchunk serve' and by commands run with --debug")
		}
		return statError(path, err)
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		var err error
		if pattern, err = regexp.Compile(opts.filter); err != nil {
			return amerrors.ValidationError(fmt.Sprintf("invalid filter pattern: %v", err), err)
		}
	}

	color := false
	if !opts.noColor {
		color, _ = output.UseColor(output.ColorAuto, cmd.OutOrStdout())
	}
	viewer, err := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: !color,
	}, cmd.OutOrStdout())
	if err != nil {
		return amerrors.ValidationError(err.Error(), err)
	}

	status := output.New(cmd.ErrOrStderr())
	status.Statusf("📄", "Log file: %s", path)

	if !opts.follow {
		entries, err := viewer.Tail(path, opts.lines)
		if err != nil {
			return amerrors.New(amerrors.ErrCodeFilePermission, err.Error(), err).WithDetail("file", path)
		}
		viewer.Print(entries)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	status.Status("", "Following... (Ctrl+C to stop)")
	entries := make(chan logging.LogEntry, 100)
	errCh := make(chan error, 1)
	go func() {
		errCh <- viewer.Follow(ctx, path, entries)
	}()

	for {
		select {
		case entry := <-entries:
			viewer.Print([]logging.LogEntry{entry})
		case err := <-errCh:
			if err != nil {
				return amerrors.New(amerrors.ErrCodeFilePermission, err.Error(), err).WithDetail("file", path)
			}
			return nil
		}
	}
}
