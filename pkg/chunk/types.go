// Package chunk splits text and source code into bounded-size chunks for
// embedding and retrieval.
//
// Three strategies are provided. Recursive descends a separator hierarchy
// (paragraph, line, sentence, word, character) and re-merges small pieces.
// Semantic groups whole sentences. Code keeps imports and top-level
// declarations intact using per-language structural patterns. Semantic and
// Code fall back to the recursive splitter for units that are still too large.
//
// All functions are pure: no I/O, no shared mutable state, safe for
// concurrent use.
package chunk

import (
	"fmt"
	"strings"
)

// Size defaults. Sizes are measured in characters (runes) unless a
// LengthFunc is supplied.
const (
	DefaultChunkSize = 1500
	DefaultOverlap   = 0
	DefaultMaxDepth  = 5
)

// Kind describes what a chunk contains
type Kind string

const (
	KindText     Kind = "text"     // recursive splitter output
	KindProse    Kind = "prose"    // grouped sentences
	KindImports  Kind = "imports"  // import / include block
	KindPreamble Kind = "preamble" // package clause, shebang, frontmatter
	KindFunction Kind = "function"
	KindClass    Kind = "class"
	KindType     Kind = "type"
	KindVariable Kind = "variable"
	KindSection  Kind = "section" // markdown heading section
	KindBlock    Kind = "block"   // blank-line separated block
	KindLoose    Kind = "loose"   // statements outside any declaration
	KindMixed    Kind = "mixed"   // several structural units packed together
)

// Chunk is a retrievable unit of content.
//
// Content[Overlap:] is the part of the chunk that belongs to it alone; the
// first Overlap bytes repeat the tail of the previous chunk. Start and End are
// byte offsets of that non-overlap part in the original input. For chunks
// built from non-contiguous units (loose statements) they span the region the
// units were gathered from.
type Chunk struct {
	ID       int      `json:"chunk_id"`
	Content  string   `json:"content"`
	Kind     Kind     `json:"kind"`
	Language string   `json:"language,omitempty"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Overlap  int      `json:"overlap,omitempty"`
	Symbols  []string `json:"symbols,omitempty"`
}

// Body returns the content without the overlap prefix
func (c Chunk) Body() string {
	return c.Content[c.Overlap:]
}

// Strategy selects a splitting strategy
type Strategy string

const (
	StrategySemantic  Strategy = "semantic"
	StrategyCode      Strategy = "code"
	StrategyRecursive Strategy = "recursive"
)

// Strategies returns all strategies in display order
func Strategies() []Strategy {
	return []Strategy{StrategySemantic, StrategyCode, StrategyRecursive}
}

// ParseStrategy resolves a strategy name, case-insensitively
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	switch s {
	case StrategySemantic, StrategyCode, StrategyRecursive:
		return s, nil
	}
	return "", fmt.Errorf("unknown strategy %q (want semantic, code or recursive)", name)
}

// Split dispatches to the splitter for the given strategy
func Split(strategy Strategy, text string, opts ...Option) ([]Chunk, error) {
	switch strategy {
	case StrategySemantic:
		return Semantic(text, opts...)
	case StrategyCode:
		return Code(text, opts...)
	case StrategyRecursive:
		return Recursive(text, opts...)
	}
	return nil, fmt.Errorf("unknown strategy %q", strategy)
}

// renumber assigns contiguous IDs starting at zero
func renumber(chunks []Chunk) []Chunk {
	for i := range chunks {
		chunks[i].ID = i
	}
	return chunks
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
