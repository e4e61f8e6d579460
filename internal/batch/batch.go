// Package batch chunks many independent inputs concurrently with a bounded
// worker pool. Results keep input order; one input failing does not stop
// the others.
package batch

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/amanchunk/pkg/chunk"
)

// Input is one text to chunk.
type Input struct {
	// Name identifies the input in results and logs (usually a file path).
	Name string
	Text string
	// Language overrides the code splitter language for this input.
	Language string
}

// Result is the outcome for one Input, at the same index.
type Result struct {
	Name     string
	Language string
	Chunks   []chunk.Chunk
	Err      error
	Duration time.Duration
}

// Runner applies one strategy to a batch of inputs.
type Runner struct {
	Strategy chunk.Strategy
	Options  []chunk.Option
	// Workers bounds concurrency. Zero or negative means runtime.NumCPU().
	Workers int
	Logger  *slog.Logger
}

// NewRunner returns a runner with the default worker count.
func NewRunner(strategy chunk.Strategy, opts ...chunk.Option) *Runner {
	return &Runner{
		Strategy: strategy,
		Options:  opts,
		Workers:  runtime.NumCPU(),
	}
}

// Run chunks every input. The returned error is non-nil only when ctx is
// cancelled; per-input failures are reported in Result.Err. Inputs not
// started before cancellation carry ctx.Err().
func (r *Runner) Run(ctx context.Context, inputs []Input) ([]Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]Result, len(inputs))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, in := range inputs {
		results[i] = Result{Name: in.Name, Language: in.Language}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i] = r.chunkOne(in, logger)
			return nil
		})
	}

	// Workers never return errors, so Wait only synchronizes.
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	logger.Debug("batch_completed",
		slog.String("strategy", string(r.Strategy)),
		slog.Int("inputs", len(inputs)),
		slog.Int("failed", failed),
		slog.Int("workers", workers),
		slog.Duration("duration", time.Since(start)))

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (r *Runner) chunkOne(in Input, logger *slog.Logger) Result {
	opts := r.Options
	if in.Language != "" {
		opts = append(append([]chunk.Option(nil), r.Options...), chunk.WithLanguage(in.Language))
	}

	start := time.Now()
	chunks, err := chunk.Split(r.Strategy, in.Text, opts...)
	res := Result{
		Name:     in.Name,
		Language: in.Language,
		Chunks:   chunks,
		Err:      err,
		Duration: time.Since(start),
	}

	if err != nil {
		logger.Warn("chunk_failed",
			slog.String("input", in.Name),
			slog.String("error", err.Error()))
	} else {
		logger.Debug("chunk_completed",
			slog.String("input", in.Name),
			slog.String("strategy", string(r.Strategy)),
			slog.Int("bytes", len(in.Text)),
			slog.Int("chunks", len(chunks)),
			slog.Duration("duration", res.Duration))
	}
	return res
}

// Total returns the number of chunks across all successful results.
func Total(results []Result) int {
	n := 0
	for _, res := range results {
		n += len(res.Chunks)
	}
	return n
}

// FirstError returns the first per-input error in input order.
func FirstError(results []Result) error {
	for _, res := range results {
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}
