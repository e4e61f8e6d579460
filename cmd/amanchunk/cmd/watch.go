package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanchunk/internal/batch"
	amerrors "github.com/Aman-CERP/amanchunk/internal/errors"
	"github.com/Aman-CERP/amanchunk/internal/output"
	"github.com/Aman-CERP/amanchunk/internal/scanner"
	"github.com/Aman-CERP/amanchunk/internal/watcher"
)

// Watch record events.
const (
	eventChunked = "chunked"
	eventRemoved = "removed"
)

// watchRecord is one line of watch output: a document tagged with why it
// was written.
type watchRecord struct {
	Event string `json:"event"`
	output.Document
}

func newWatchCmd() *cobra.Command {
	var (
		f        chunkFlags
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Chunk a directory and re-chunk files as they change",
		Long: `Chunk every selected file under dir (default: the current directory),
then keep watching it. Each created or modified file is chunked again and
written as one JSON line with "event": "chunked"; deleted files produce a
line with "event": "removed" and no chunks.

Files are selected the same way 'amanchunk chunk' walks directories.
Press Ctrl+C to stop.`,
		Example: `  # Stream Go source chunks as files change
  amanchunk watch -s code --include '*.go' ./internal`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runWatch(cmd, dir, f, debounce)
		},
	}

	addChunkFlags(cmd, &f)
	cmd.Flags().DurationVar(&debounce, "debounce", watcher.DefaultOptions().DebounceWindow, "Quiet time before changed files are chunked")

	return cmd
}

func runWatch(cmd *cobra.Command, dir string, f chunkFlags, debounce time.Duration) error {
	setup, err := prepareChunking(cmd, f)
	if err != nil {
		return err
	}
	if debounce <= 0 {
		return amerrors.ValidationError("--debounce must be positive", nil)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return statError(dir, err)
	}
	if !info.IsDir() {
		return amerrors.ValidationError(fmt.Sprintf("not a directory: %s", dir), nil).
			WithSuggestion("use 'amanchunk chunk' for single files")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := scanner.New()
	if err != nil {
		return amerrors.InternalError("failed to create scanner", err)
	}

	// Watches go in before the initial scan so no change is missed.
	w, err := watcher.New(dir, watcher.Options{
		DebounceWindow: debounce,
		Filter: func(rel string, isDir bool) bool {
			return sc.Selects(dir, rel, isDir, setup.scan)
		},
		Logger: slog.Default(),
	})
	if err != nil {
		return amerrors.New(amerrors.ErrCodeFilePermission, err.Error(), err).
			WithDetail("file", dir)
	}
	defer func() { _ = w.Close() }()

	inputs, err := readInputs(ctx, cmd.InOrStdin(), []string{dir}, setup.scan)
	if err != nil {
		return err
	}

	errOut := output.New(cmd.ErrOrStderr())
	enc := json.NewEncoder(cmd.OutOrStdout())

	docs, _, err := setup.run(ctx, inputs, errOut)
	if err != nil {
		return err
	}
	if err := writeRecords(enc, eventChunked, docs); err != nil {
		return amerrors.InternalError("failed to write output", err)
	}

	slog.Debug("watch_ready",
		slog.String("root", dir),
		slog.Int("files", len(docs)),
		slog.Int("dirs", w.Dirs()))
	errOut.Statusf("👀", "watching %s (%d files)", dir, len(docs))

	err = w.Run(ctx, func(events []watcher.FileEvent) {
		if err := handleWatchBatch(ctx, setup, sc, events, enc, errOut); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("watch_batch_failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return amerrors.InternalError("watch stopped", err)
	}
	return nil
}

// handleWatchBatch re-chunks created and modified files and reports
// deleted ones. A .gitignore change drops cached ignore rules so the next
// events see the new rules.
func handleWatchBatch(ctx context.Context, setup *chunkSetup, sc *scanner.Scanner, events []watcher.FileEvent, enc *json.Encoder, errOut *output.Writer) error {
	var (
		inputs  []batch.Input
		removed []output.Document
	)
	for _, ev := range events {
		switch ev.Operation {
		case watcher.OpGitignoreChange:
			sc.Purge()
			slog.Debug("watch_gitignore_changed", slog.String("path", ev.Path))
		case watcher.OpDelete:
			if !ev.IsDir {
				removed = append(removed, output.NewDocument(ev.Path, setup.strategy, "", nil))
			}
		case watcher.OpCreate, watcher.OpModify:
			text, ok := readChanged(ev.Path, setup.scan, errOut)
			if ok {
				inputs = append(inputs, batch.Input{Name: ev.Path, Text: text})
			}
		}
	}

	if len(inputs) > 0 {
		docs, _, err := setup.run(ctx, inputs, errOut)
		if err != nil {
			return err
		}
		if err := writeRecords(enc, eventChunked, docs); err != nil {
			return err
		}
	}
	return writeRecords(enc, eventRemoved, removed)
}

// readChanged reads a changed file, skipping files a scan would skip.
func readChanged(path string, scan scanner.Options, errOut *output.Writer) (string, bool) {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			errOut.Errorf("%s: %v", path, err)
		}
		return "", false
	}
	if !info.Mode().IsRegular() || info.Size() > scan.MaxFileSize || scanner.IsBinary(path) {
		slog.Debug("watch_skipped", slog.String("path", path), slog.Int64("size", info.Size()))
		return "", false
	}
	text, err := readFile(path, info)
	if err != nil {
		errOut.Errorf("%s: %v", path, err)
		return "", false
	}
	return text, true
}

func writeRecords(enc *json.Encoder, event string, docs []output.Document) error {
	for _, doc := range docs {
		if err := enc.Encode(watchRecord{Event: event, Document: doc}); err != nil {
			return err
		}
	}
	return nil
}
