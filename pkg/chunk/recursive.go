package chunk

import (
	"regexp"
	"unicode/utf8"
)

// Separator is one level of the recursive splitting hierarchy. Text is cut
// right after every match of Pattern, so pieces always tile the input and the
// separator stays with the piece it ends. A nil Pattern cuts between runes.
type Separator struct {
	Name    string
	Pattern *regexp.Regexp
}

var (
	SeparatorParagraph = Separator{Name: "paragraph", Pattern: regexp.MustCompile(`\n(?:[ \t]*\n)+`)}
	SeparatorLine      = Separator{Name: "line", Pattern: regexp.MustCompile(`\n`)}
	SeparatorSentence  = Separator{Name: "sentence", Pattern: regexp.MustCompile(`[.!?]+["')\]]*\s+`)}
	SeparatorWord      = Separator{Name: "word", Pattern: regexp.MustCompile(`\s+`)}
	SeparatorCharacter = Separator{Name: "character"}
)

// DefaultSeparators is the hierarchy used for prose, coarsest first
var DefaultSeparators = []Separator{
	SeparatorParagraph,
	SeparatorLine,
	SeparatorSentence,
	SeparatorWord,
	SeparatorCharacter,
}

// CodeSeparators is used for oversized code units. It has no sentence level,
// so punctuation inside comments and strings never drives a cut.
var CodeSeparators = []Separator{
	SeparatorParagraph,
	SeparatorLine,
	SeparatorWord,
	SeparatorCharacter,
}

// cuts returns the cut offsets inside s, excluding 0 and len(s)
func (sep Separator) cuts(s string) []int {
	var out []int
	if sep.Pattern == nil {
		for i := range s {
			if i > 0 {
				out = append(out, i)
			}
		}
		return out
	}
	for _, loc := range sep.Pattern.FindAllStringIndex(s, -1) {
		end := loc[1]
		if end <= 0 || end >= len(s) {
			continue
		}
		if n := len(out); n > 0 && out[n-1] >= end {
			continue
		}
		out = append(out, end)
	}
	return out
}

// Recursive splits text by descending the separator hierarchy until every
// piece fits the chunk size, re-merging adjacent small pieces.
//
// MaxDepth 1 returns the whole input as a single chunk. Pieces still too large
// at MaxDepth are emitted whole. Overlap characters from the end of each chunk
// are prepended to the next one.
func Recursive(text string, opts ...Option) ([]Chunk, error) {
	o, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}
	return recursive(text, o), nil
}

type span struct {
	start, end int
}

// workItem is a span waiting to be emitted or split further
type workItem struct {
	span
	depth int
	tier  int
}

func recursive(text string, o Options) []Chunk {
	if isBlank(text) {
		return nil
	}
	if o.MaxDepth == 1 || o.measure(text) <= o.ChunkSize {
		return []Chunk{{ID: 0, Content: text, Kind: KindText, Start: 0, End: len(text)}}
	}

	spans := splitSpans(text, o)
	chunks := make([]Chunk, 0, len(spans))
	for i, sp := range spans {
		c := Chunk{
			Content: text[sp.start:sp.end],
			Kind:    KindText,
			Start:   sp.start,
			End:     sp.end,
		}
		if i > 0 && o.Overlap > 0 {
			prev := spans[i-1]
			tail := tailRunes(text[prev.start:prev.end], o.Overlap)
			c.Content = tail + c.Content
			c.Overlap = len(tail)
		}
		chunks = append(chunks, c)
	}
	return renumber(chunks)
}

// splitSpans runs the depth-bounded worklist. Merging happens only among
// siblings of one split, so a deeper limit can only subdivide what a
// shallower one emitted.
func splitSpans(text string, o Options) []span {
	// Below the root, leave room for the overlap prefix.
	budget := o.ChunkSize - o.Overlap

	var out []span
	stack := []workItem{{span: span{0, len(text)}, depth: 1}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		seg := text[it.start:it.end]
		if o.measure(seg) <= budget || it.depth >= o.MaxDepth {
			if !isBlank(seg) {
				out = append(out, it.span)
			}
			continue
		}

		cuts, tier := cutPoints(seg, o.Separators, it.tier)
		if len(cuts) == 0 {
			if !isBlank(seg) {
				out = append(out, it.span)
			}
			continue
		}

		groups := mergePieces(text, it.start, it.end, cuts, budget, o)
		for k := len(groups) - 1; k >= 0; k-- {
			stack = append(stack, workItem{span: groups[k], depth: it.depth + 1, tier: tier + 1})
		}
	}
	return out
}

// cutPoints finds the coarsest separator, from tier onward, that cuts seg.
// Separators that do not occur are skipped without consuming depth.
func cutPoints(seg string, seps []Separator, tier int) ([]int, int) {
	for t := tier; t < len(seps); t++ {
		if cuts := seps[t].cuts(seg); len(cuts) > 0 {
			return cuts, t
		}
	}
	return nil, len(seps)
}

// mergePieces greedily joins consecutive pieces while they fit the budget.
// A piece that alone exceeds the budget ends up in a group of its own.
func mergePieces(text string, start, end int, cuts []int, budget int, o Options) []span {
	bounds := make([]int, 0, len(cuts)+1)
	for _, c := range cuts {
		bounds = append(bounds, start+c)
	}
	bounds = append(bounds, end)

	var groups []span
	groupStart := start
	for i := 0; i < len(bounds); {
		last := furthestFit(text, groupStart, bounds, i, budget, o)
		groups = append(groups, span{groupStart, bounds[last]})
		groupStart = bounds[last]
		i = last + 1
	}
	return groups
}

// furthestFit returns the largest j >= i for which text[from:bounds[j]] fits
// the budget, or i when not even that piece fits. The measure must not shrink
// as text grows; the search gallops and then bisects, so a group costs a
// logarithmic number of measure calls however many pieces it holds.
func furthestFit(text string, from int, bounds []int, i, budget int, o Options) int {
	fits := func(j int) bool {
		return o.measure(text[from:bounds[j]]) <= budget
	}

	lo, hi := i, len(bounds)
	for step := 1; lo+step < len(bounds); step *= 2 {
		if !fits(lo + step) {
			hi = lo + step
			break
		}
		lo += step
	}
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// tailRunes returns the last n runes of s
func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := len(s)
	for count := 0; i > 0 && count < n; count++ {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}
