package chunk

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidOptions is wrapped by every option validation error
var ErrInvalidOptions = errors.New("invalid chunk options")

// LengthFunc measures the size of a piece of text
type LengthFunc func(string) int

// RuneCount is the default LengthFunc
func RuneCount(s string) int {
	return utf8.RuneCountInString(s)
}

// Options configures the splitters
type Options struct {
	ChunkSize  int         // Target maximum chunk size (default: DefaultChunkSize)
	Overlap    int         // Characters repeated from the previous chunk, recursive only
	MaxDepth   int         // Separator levels the recursive splitter may descend (default: DefaultMaxDepth)
	Language   string      // Language hint for the code splitter
	Length     LengthFunc  // Size measure (default: RuneCount)
	Separators []Separator // Recursive and Semantic separator hierarchy (default: DefaultSeparators)
}

// Option mutates Options
type Option func(*Options)

// WithChunkSize sets the target chunk size
func WithChunkSize(n int) Option {
	return func(o *Options) { o.ChunkSize = n }
}

// WithOverlap sets the overlap carried into each following chunk
func WithOverlap(n int) Option {
	return func(o *Options) { o.Overlap = n }
}

// WithMaxDepth sets how many separator levels may be descended
func WithMaxDepth(n int) Option {
	return func(o *Options) { o.MaxDepth = n }
}

// WithLanguage sets the code splitter language hint
func WithLanguage(lang string) Option {
	return func(o *Options) { o.Language = lang }
}

// WithLengthFunc replaces the size measure. A nil func keeps RuneCount.
func WithLengthFunc(f LengthFunc) Option {
	return func(o *Options) { o.Length = f }
}

// WithSeparators replaces the separator hierarchy used by Recursive and by
// Semantic for oversized sentences. Code always splits oversized units with
// CodeSeparators.
func WithSeparators(seps ...Separator) Option {
	return func(o *Options) { o.Separators = seps }
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		ChunkSize:  DefaultChunkSize,
		Overlap:    DefaultOverlap,
		MaxDepth:   DefaultMaxDepth,
		Length:     RuneCount,
		Separators: DefaultSeparators,
	}
}

// NewOptions applies opts over the defaults, validates the result and clamps
// the overlap into [0, ChunkSize-1].
func NewOptions(opts ...Option) (Options, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Length == nil {
		o.Length = RuneCount
	}
	if len(o.Separators) == 0 {
		o.Separators = DefaultSeparators
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	o.Overlap = clampOverlap(o.Overlap, o.ChunkSize)
	return o, nil
}

// Validate rejects settings the splitters cannot work with
func (o Options) Validate() error {
	if o.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidOptions, o.ChunkSize)
	}
	if o.MaxDepth < 1 {
		return fmt.Errorf("%w: max depth must be at least 1, got %d", ErrInvalidOptions, o.MaxDepth)
	}
	return nil
}

func (o Options) measure(s string) int {
	return o.Length(s)
}

func clampOverlap(overlap, size int) int {
	if overlap < 0 {
		return 0
	}
	if overlap >= size {
		return size - 1
	}
	return overlap
}
