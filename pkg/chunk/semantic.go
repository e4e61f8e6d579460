package chunk

import (
	"regexp"
	"strings"
	"unicode"
)

// sentenceBoundary ends a sentence-like unit: terminal punctuation (with any
// closing quotes or brackets) followed by whitespace, or a paragraph break.
var sentenceBoundary = regexp.MustCompile(`[.!?]+["')\]]*\s+|\n[ \t]*\n\s*`)

// Semantic groups whole sentences into chunks no larger than the chunk size.
// A sentence that alone exceeds the size is split with the recursive splitter,
// using the configured separators, and its pieces are spliced in place. Chunk content is trimmed.
func Semantic(text string, opts ...Option) ([]Chunk, error) {
	o, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}
	if isBlank(text) {
		return nil, nil
	}

	var (
		chunks []Chunk
		buf    = span{-1, -1}
	)
	flush := func() {
		if buf.start < 0 {
			return
		}
		if c, ok := trimmedChunk(text, buf, KindProse); ok {
			chunks = append(chunks, c)
		}
		buf = span{-1, -1}
	}

	sub := o
	sub.Overlap = 0

	for _, u := range sentenceUnits(text) {
		unit := text[u.start:u.end]
		if isBlank(unit) {
			continue
		}
		if o.measure(strings.TrimSpace(unit)) > o.ChunkSize {
			flush()
			for _, piece := range recursive(unit, sub) {
				if c, ok := trimmedChunk(text, span{u.start + piece.Start, u.start + piece.End}, KindText); ok {
					chunks = append(chunks, c)
				}
			}
			continue
		}
		if buf.start < 0 {
			buf = u
			continue
		}
		if o.measure(strings.TrimSpace(text[buf.start:u.end])) <= o.ChunkSize {
			buf.end = u.end
			continue
		}
		flush()
		buf = u
	}
	flush()

	return renumber(chunks), nil
}

// sentenceUnits cuts text into contiguous sentence-like spans
func sentenceUnits(text string) []span {
	var units []span
	start := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		if loc[1] <= start {
			continue
		}
		units = append(units, span{start, loc[1]})
		start = loc[1]
	}
	if start < len(text) {
		units = append(units, span{start, len(text)})
	}
	return units
}

// trimmedChunk builds a chunk from sp with surrounding whitespace removed
func trimmedChunk(text string, sp span, kind Kind) (Chunk, bool) {
	s := text[sp.start:sp.end]
	lead := len(s) - len(strings.TrimLeftFunc(s, unicode.IsSpace))
	s = strings.TrimSpace(s)
	if s == "" {
		return Chunk{}, false
	}
	start := sp.start + lead
	return Chunk{Content: s, Kind: kind, Start: start, End: start + len(s)}, true
}
