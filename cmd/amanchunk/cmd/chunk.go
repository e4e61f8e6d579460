package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanchunk/internal/batch"
	"github.com/Aman-CERP/amanchunk/internal/config"
	amerrors "github.com/Aman-CERP/amanchunk/internal/errors"
	"github.com/Aman-CERP/amanchunk/internal/output"
	"github.com/Aman-CERP/amanchunk/internal/profiling"
	"github.com/Aman-CERP/amanchunk/internal/scanner"
	"github.com/Aman-CERP/amanchunk/internal/tokenizer"
	"github.com/Aman-CERP/amanchunk/pkg/chunk"
)

// stdinName is the source name reported for text read from stdin.
const stdinName = "<stdin>"

// maxInputBytes bounds a single input file (8MB).
const maxInputBytes = 8 * 1024 * 1024

type chunkFlags struct {
	strategy string
	size     int
	overlap  int
	maxDepth int
	language string
	measure  string
	format   string
	workers  int
	noColor  bool

	include     []string
	noGitignore bool
}

func newChunkCmd() *cobra.Command {
	var f chunkFlags

	cmd := &cobra.Command{
		Use:   "chunk [files...]",
		Short: "Split files or stdin into chunks",
		Long: `Split one or more files into chunks. With no files, or with "-",
text is read from stdin. Directories are walked recursively, honoring
.gitignore and skipping dependency directories, secrets and binaries.

Defaults come from the configuration (see 'amanchunk config show'); flags
override them only when given. For the code strategy the language is
detected from each file extension unless --language is set.`,
		Example: `  # Chunk a document into ~1000 character pieces
  amanchunk chunk -s semantic --size 1000 README.md

  # Chunk every Go source under ./internal as JSON lines using 8 workers
  amanchunk chunk -s code -f jsonl -w 8 --include '*.go' ./internal

  # Chunk piped text with overlap
  cat notes.txt | amanchunk chunk -s recursive --size 500 --overlap 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChunk(cmd, args, f)
		},
	}

	addChunkFlags(cmd, &f)
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: text, json, jsonl")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "Disable colored output")

	return cmd
}

// addChunkFlags registers the chunking flags shared by chunk and watch.
func addChunkFlags(cmd *cobra.Command, f *chunkFlags) {
	cmd.Flags().StringVarP(&f.strategy, "strategy", "s", "", "Chunking strategy: semantic, code, recursive")
	cmd.Flags().IntVar(&f.size, "size", 0, "Maximum chunk size in the selected measure")
	cmd.Flags().IntVar(&f.overlap, "overlap", 0, "Characters repeated from the previous chunk (recursive only)")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 0, "Maximum separator depth")
	cmd.Flags().StringVarP(&f.language, "language", "l", "", "Language for the code strategy (default: detected from extension)")
	cmd.Flags().StringVar(&f.measure, "measure", "", "Size measure: chars or tokens")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "Files chunked concurrently")
	cmd.Flags().StringSliceVar(&f.include, "include", nil, "Only chunk directory entries matching these patterns (e.g. '*.go')")
	cmd.Flags().BoolVar(&f.noGitignore, "no-gitignore", false, "Do not apply .gitignore files when walking directories")
}

// chunkSetup is the configuration resolved from config files and flags,
// shared by the chunk and watch commands.
type chunkSetup struct {
	cfg      *config.Config
	strategy chunk.Strategy
	language string
	runner   *batch.Runner
	scan     scanner.Options
}

func prepareChunking(cmd *cobra.Command, f chunkFlags) (*chunkSetup, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	applyChunkFlags(cmd, cfg, f)

	strategy, err := chunk.ParseStrategy(cfg.Chunking.Strategy)
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeUnknownStrategy, err.Error(), err).
			WithSuggestion("use --strategy semantic, code or recursive")
	}
	if strategy != chunk.StrategyRecursive {
		if cmd.Flags().Changed("overlap") && f.overlap != 0 {
			output.New(cmd.ErrOrStderr()).Warning(
				fmt.Sprintf("--overlap is ignored by the %s strategy (recursive only)", strategy))
		}
		noOverlap := 0
		cfg.Chunking.Overlap = &noOverlap
	}
	if _, err := tokenizer.ParseMeasure(cfg.Chunking.Measure); err != nil {
		return nil, amerrors.New(amerrors.ErrCodeUnknownMeasure, err.Error(), err).
			WithSuggestion("use --measure chars or tokens")
	}
	if err := cfg.Validate(); err != nil {
		return nil, amerrors.ValidationError(err.Error(), err)
	}
	if f.language != "" {
		if _, ok := chunk.LookupLanguage(f.language); !ok {
			return nil, amerrors.ValidationError(fmt.Sprintf("unknown language %q", f.language), nil).
				WithSuggestion("run 'amanchunk languages' to list supported languages")
		}
	}

	opts, err := cfg.ChunkOptions()
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeTokenizer, err.Error(), err).
			WithSuggestion("use --measure chars, or check network access for the tokenizer data")
	}

	runner := batch.NewRunner(strategy, opts...)
	runner.Workers = cfg.Performance.Workers
	runner.Logger = slog.Default()

	scan := scanner.DefaultOptions()
	scan.Include = f.include
	scan.RespectGitignore = !f.noGitignore

	return &chunkSetup{
		cfg:      cfg,
		strategy: strategy,
		language: f.language,
		runner:   runner,
		scan:     scan,
	}, nil
}

// run chunks inputs, reporting failed inputs on errOut. Documents keep the
// input order; failed inputs are left out.
func (s *chunkSetup) run(ctx context.Context, inputs []batch.Input, errOut *output.Writer) ([]output.Document, []batch.Result, error) {
	if s.strategy == chunk.StrategyCode {
		for i := range inputs {
			inputs[i].Language = resolveLanguage(s.cfg, inputs[i].Name, s.language)
		}
	}

	slog.Debug("chunk_started",
		slog.String("strategy", string(s.strategy)),
		slog.Int("inputs", len(inputs)),
		slog.Int("chunk_size", s.cfg.Chunking.ChunkSize),
		slog.String("measure", s.cfg.Chunking.Measure))

	start := time.Now()
	results, err := s.runner.Run(ctx, inputs)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, nil, amerrors.New(amerrors.ErrCodeChunkingFailed, "chunking interrupted", err)
		}
		return nil, nil, amerrors.Wrap(amerrors.ErrCodeChunkingFailed, err)
	}

	docs := make([]output.Document, 0, len(results))
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			errOut.Errorf("%s: %v", res.Name, res.Err)
			continue
		}
		docs = append(docs, output.NewDocument(res.Name, s.strategy, res.Language, res.Chunks))
	}

	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		slog.Debug("chunk_completed",
			slog.String("strategy", string(s.strategy)),
			slog.Int("inputs", len(inputs)),
			slog.Int("chunks", batch.Total(results)),
			slog.Int("failed", failed),
			slog.Duration("duration", time.Since(start)),
			slog.String("heap_in_use", profiling.FormatBytes(profiling.HeapInUse())))
	}
	return docs, results, nil
}

func runChunk(cmd *cobra.Command, args []string, f chunkFlags) error {
	setup, err := prepareChunking(cmd, f)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(setup.cfg.Output.Format)
	if err != nil {
		return amerrors.ValidationError(err.Error(), err)
	}
	colorMode := setup.cfg.Output.Color
	if f.noColor {
		colorMode = output.ColorNever
	}
	color, err := output.UseColor(colorMode, cmd.OutOrStdout())
	if err != nil {
		return amerrors.ValidationError(err.Error(), err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inputs, err := readInputs(ctx, cmd.InOrStdin(), args, setup.scan)
	if err != nil {
		return err
	}

	docs, results, err := setup.run(ctx, inputs, output.New(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	failed := len(results) - len(docs)

	out := output.NewWithColor(cmd.OutOrStdout(), color)
	if err := out.Documents(format, docs); err != nil {
		return amerrors.InternalError("failed to write output", err)
	}
	if format == output.FormatText {
		out.Newline()
		out.Summary(docs, failed)
	}

	if failed > 0 {
		return amerrors.FromChunking(batch.FirstError(results))
	}
	return nil
}

// loadConfig loads the merged configuration for the current project.
func loadConfig() (*config.Config, error) {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		return nil, amerrors.ConfigError("failed to locate project root", err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, amerrors.ConfigError(err.Error(), err).
			WithSuggestion("check .amanchunk.yaml, the user config and AMANCHUNK_* variables")
	}
	return cfg, nil
}

// applyChunkFlags overrides configuration with the flags the user set.
func applyChunkFlags(cmd *cobra.Command, cfg *config.Config, f chunkFlags) {
	flags := cmd.Flags()
	if flags.Changed("strategy") {
		cfg.Chunking.Strategy = f.strategy
	}
	if flags.Changed("size") {
		cfg.Chunking.ChunkSize = f.size
	}
	if flags.Changed("overlap") {
		overlap := f.overlap
		cfg.Chunking.Overlap = &overlap
	}
	if flags.Changed("max-depth") {
		cfg.Chunking.MaxDepth = f.maxDepth
	}
	if flags.Changed("measure") {
		cfg.Chunking.Measure = f.measure
	}
	if flags.Changed("format") {
		cfg.Output.Format = f.format
	}
	if flags.Changed("workers") {
		cfg.Performance.Workers = f.workers
	}
}

// readInputs reads each path, or stdin for "-" or when no paths are given.
// Directories expand to the files a scan selects.
func readInputs(ctx context.Context, stdin io.Reader, paths []string, scan scanner.Options) ([]batch.Input, error) {
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	var sc *scanner.Scanner
	inputs := make([]batch.Input, 0, len(paths))
	for _, path := range paths {
		if path == "-" {
			text, err := readStdin(stdin)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, batch.Input{Name: stdinName, Text: text})
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, statError(path, err)
		}
		if !info.IsDir() {
			text, err := readFile(path, info)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, batch.Input{Name: path, Text: text})
			continue
		}

		if sc == nil {
			if sc, err = scanner.New(); err != nil {
				return nil, amerrors.InternalError("failed to create scanner", err)
			}
		}
		files, err := sc.Scan(ctx, path, scan)
		if err != nil {
			return nil, amerrors.New(amerrors.ErrCodeFilePermission, err.Error(), err).
				WithDetail("file", path)
		}
		for _, file := range files {
			text, err := readFile(file.Path, nil)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, batch.Input{Name: file.Path, Text: text})
		}
	}
	return inputs, nil
}

func readStdin(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && output.IsTTY(f) {
		return "", amerrors.New(amerrors.ErrCodeEmptyInput, "no input: stdin is a terminal", nil).
			WithSuggestion("pass file paths or pipe text into amanchunk chunk")
	}
	data, err := io.ReadAll(io.LimitReader(stdin, maxInputBytes+1))
	if err != nil {
		return "", amerrors.New(amerrors.ErrCodeStdinRead, "failed to read stdin", err)
	}
	if len(data) > maxInputBytes {
		return "", amerrors.New(amerrors.ErrCodeFileTooLarge, "stdin exceeds 8MB", nil).
			WithDetail("file", stdinName)
	}
	return string(data), nil
}

// readFile reads a regular file, stat-ing it when info is nil.
func readFile(path string, info fs.FileInfo) (string, error) {
	if info == nil {
		var err error
		if info, err = os.Stat(path); err != nil {
			return "", statError(path, err)
		}
	}
	if info.Size() > maxInputBytes {
		return "", amerrors.New(amerrors.ErrCodeFileTooLarge, fmt.Sprintf("file exceeds 8MB: %s", path), nil).
			WithDetail("file", path).
			WithDetail("size", fmt.Sprintf("%d", info.Size()))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", amerrors.New(amerrors.ErrCodeFilePermission, err.Error(), err).
			WithDetail("file", path)
	}
	return string(data), nil
}

func statError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return amerrors.IOError(fmt.Sprintf("file not found: %s", path), err).
			WithDetail("file", path)
	}
	return amerrors.New(amerrors.ErrCodeFilePermission, err.Error(), err).
		WithDetail("file", path)
}

// resolveLanguage picks the flag value, else detects from the file name.
// Stdin without a flag uses the generic rules.
func resolveLanguage(cfg *config.Config, name, flag string) string {
	if flag != "" {
		if lc, ok := chunk.LookupLanguage(flag); ok {
			return lc.Name
		}
	}
	if name == stdinName || strings.TrimSpace(name) == "" {
		return chunk.GenericLanguage
	}
	return cfg.DetectLanguage(name)
}
