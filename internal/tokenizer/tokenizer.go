// Package tokenizer measures text in BPE tokens so chunk sizes can be
// expressed in model tokens instead of characters.
package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/Aman-CERP/amanchunk/pkg/chunk"
)

// DefaultEncoding is the encoding used by current OpenAI embedding models.
const DefaultEncoding = "cl100k_base"

// Measure names the unit chunk sizes are expressed in.
type Measure string

const (
	MeasureChars  Measure = "chars"
	MeasureTokens Measure = "tokens"
)

// ParseMeasure accepts "chars" or "tokens" (case-insensitive). Empty means chars.
func ParseMeasure(name string) (Measure, error) {
	switch Measure(strings.ToLower(strings.TrimSpace(name))) {
	case "", MeasureChars:
		return MeasureChars, nil
	case MeasureTokens:
		return MeasureTokens, nil
	default:
		return "", fmt.Errorf("unknown measure %q (want chars or tokens)", name)
	}
}

// Counter counts tokens with a tiktoken encoding. It is safe for
// concurrent use.
type Counter struct {
	name     string
	encoding *tiktoken.Tiktoken
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*Counter{}
)

// New loads the named encoding. Loaded encodings are cached per process
// because the first load fetches and parses the BPE ranks.
func New(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if c, ok := cache[encoding]; ok {
		return c, nil
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", encoding, err)
	}
	c := &Counter{name: encoding, encoding: enc}
	cache[encoding] = c
	return c, nil
}

// Name returns the encoding name.
func (c *Counter) Name() string {
	return c.name
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// LengthFunc adapts the counter for chunk.WithLengthFunc.
func (c *Counter) LengthFunc() chunk.LengthFunc {
	return c.Count
}

// LengthFuncFor resolves a measure to a length function. Characters need
// no tokenizer; tokens load the named encoding.
func LengthFuncFor(m Measure, encoding string) (chunk.LengthFunc, error) {
	switch m {
	case "", MeasureChars:
		return chunk.RuneCount, nil
	case MeasureTokens:
		c, err := New(encoding)
		if err != nil {
			return nil, err
		}
		return c.LengthFunc(), nil
	default:
		return nil, fmt.Errorf("unknown measure %q", m)
	}
}
