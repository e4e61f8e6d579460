package chunk

import (
	"strings"
)

// unitSeparator joins structural units packed into one chunk
const unitSeparator = "\n\n"

// unit is a structural region of source code: the import block, one
// top-level declaration, a generic block, or the gathered loose statements
type unit struct {
	kind       Kind
	name       string
	content    string
	start, end int
	contiguous bool
}

// Code splits source code along structural boundaries. Imports are grouped
// into a leading unit, each top-level declaration (with its doc comments and
// decorators) becomes a unit, and everything else is gathered into a trailing
// loose unit. Units are packed greedily up to the chunk size; a unit that is
// too large on its own is split with the recursive splitter using
// CodeSeparators. Input with no recognisable structure is split recursively
// as a whole.
//
// Unknown or empty language hints use the generic configuration.
func Code(text string, opts ...Option) ([]Chunk, error) {
	o, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}
	if isBlank(text) {
		return nil, nil
	}

	cfg := defaultRegistry.Resolve(o.Language)

	sub := o
	sub.Overlap = 0
	sub.Separators = CodeSeparators

	units := partition(text, cfg)
	if len(units) == 0 {
		chunks := recursive(text, sub)
		for i := range chunks {
			chunks[i].Language = cfg.Name
		}
		return chunks, nil
	}

	return renumber(packUnits(units, cfg.Name, o, sub)), nil
}

// partitioner splits scanned lines into structural units
type partitioner struct {
	text  string
	cfg   *LanguageConfig
	lines []sourceLine
}

// partition returns the structural units of text, or nil when nothing
// structural was recognised
func partition(text string, cfg *LanguageConfig) []unit {
	p := &partitioner{text: text, cfg: cfg, lines: scanLines(text, cfg)}
	n := len(p.lines)
	claimed := make([]bool, n)

	leadEnd, codeEnd, leadKind := p.leadingBlock()
	scanFrom := 0
	if codeEnd > 0 {
		scanFrom = codeEnd
	} else {
		leadEnd = 0
	}

	var decls []unit
	floor := scanFrom
	for i := scanFrom; i < n; {
		rule, name, ok := p.declAt(i)
		if !ok {
			i++
			continue
		}
		first := p.attachStart(i, floor)
		last := p.blockEnd(i, p.styleFor(i))
		if len(decls) == 0 && first < leadEnd {
			leadEnd = first
		}
		decls = append(decls, p.contiguousUnit(first, last, rule.Kind, name))
		for j := first; j <= last; j++ {
			claimed[j] = true
		}
		floor = last + 1
		i = last + 1
	}

	var units []unit
	if codeEnd > 0 {
		for j := 0; j < leadEnd; j++ {
			claimed[j] = true
		}
		if u, ok := p.trimmedUnit(0, leadEnd-1, leadKind); ok {
			units = append(units, u)
		}
	}
	units = append(units, decls...)

	if len(decls) == 0 && p.cfg.Name == GenericLanguage {
		if blocks := p.blocks(claimed); len(blocks) >= 2 {
			return append(units, blocks...)
		}
	}
	if len(units) == 0 {
		return nil
	}
	if loose, ok := p.looseUnit(claimed); ok {
		units = append(units, loose)
	}
	return units
}

// leadingBlock finds the region of imports, preamble, comments and blank
// lines at the top of the file. It returns the end of that region, the index
// after its last import or preamble line (0 when there is none) and the
// region's kind.
func (p *partitioner) leadingBlock() (end, codeEnd int, kind Kind) {
	lines := p.lines
	kind = KindPreamble
	i := 0

	if p.cfg.Frontmatter && len(lines) > 0 && strings.TrimSpace(lines[0].text) == "---" {
		for j := 1; j < len(lines); j++ {
			if t := strings.TrimSpace(lines[j].text); t == "---" || t == "..." {
				i = j + 1
				codeEnd = i
				break
			}
		}
	}

scan:
	for i < len(lines) {
		l := lines[i]
		trimmed := strings.TrimSpace(l.text)
		switch {
		case l.blank() || l.inComment:
			i++
		case l.inString:
			i++
			codeEnd = i
		case matchAny(p.cfg.Imports, l.text):
			kind = KindImports
			i = p.statementEnd(i) + 1
			codeEnd = i
		case matchAny(p.cfg.Preamble, l.text):
			i = p.statementEnd(i) + 1
			codeEnd = i
		case p.isDecl(i):
			break scan
		case hasPrefixAny(trimmed, p.cfg.LineComments) || blockCommentAt(trimmed, p.cfg) >= 0:
			i++
		default:
			break scan
		}
	}
	return i, codeEnd, kind
}

// statementEnd follows open brackets and multi-line strings from line i
func (p *partitioner) statementEnd(i int) int {
	base := p.lines[i].depth
	j := i
	for j+1 < len(p.lines) && (p.lines[j].depthEnd > base || p.lines[j+1].inside()) {
		j++
	}
	return j
}

func (p *partitioner) isDecl(i int) bool {
	_, _, ok := p.declAt(i)
	return ok
}

// declAt reports whether line i starts a top-level declaration
func (p *partitioner) declAt(i int) (DeclRule, string, bool) {
	l := p.lines[i]
	if l.blank() || l.inside() || l.indented() {
		return DeclRule{}, "", false
	}
	if p.cfg.Block == BlockIndent && l.depth > 0 {
		return DeclRule{}, "", false
	}
	if matchAny(p.cfg.Imports, l.text) {
		return DeclRule{}, "", false
	}
	return p.cfg.matchDecl(l.text)
}

func (p *partitioner) styleFor(i int) BlockStyle {
	if p.cfg.Block != BlockAuto {
		return p.cfg.Block
	}
	if strings.HasSuffix(p.lines[i].tail, ":") {
		return BlockIndent
	}
	return BlockBraces
}

// attachStart walks up from declaration line i over doc comments,
// decorators and attributes directly above it, never below floor
func (p *partitioner) attachStart(i, floor int) int {
	j := i
	for j-1 >= floor {
		l := p.lines[j-1]
		if l.blank() {
			break
		}
		trimmed := strings.TrimSpace(l.text)
		if l.inComment || hasPrefixAny(trimmed, p.cfg.Attach) || l.depth > p.lines[i].depth {
			j--
			continue
		}
		break
	}
	return j
}

// blockEnd returns the last line of the declaration starting at line i
func (p *partitioner) blockEnd(i int, style BlockStyle) int {
	lines := p.lines
	last := i

	switch style {
	case BlockIndent:
		for j := i + 1; j < len(lines); j++ {
			l := lines[j]
			if l.blank() {
				continue
			}
			if l.inside() || l.depth > 0 || l.indented() {
				last = j
				continue
			}
			break
		}
		return last

	case BlockSection:
		for j := i + 1; j < len(lines); j++ {
			if p.isDecl(j) {
				break
			}
			if !lines[j].blank() {
				last = j
			}
		}
		return last
	}

	base := lines[i].depth
	sawCurly := false
	for j := i; j < len(lines); j++ {
		l := lines[j]
		if j > i && l.blank() && !l.inside() {
			continue
		}
		last = j
		if l.curly {
			sawCurly = true
		}
		if l.depthEnd > base {
			continue
		}
		if j+1 < len(lines) && lines[j+1].inside() {
			continue
		}
		if sawCurly || strings.HasSuffix(l.tail, ";") || !p.continues(j) {
			return j
		}
	}
	return last
}

var continuationLeaders = []string{"{", ".", "|", "&", "?", ":", "where", "throws", "->", "extends", "implements", "+"}

// continues reports whether the statement on line j carries on below it
func (p *partitioner) continues(j int) bool {
	if t := p.lines[j].tail; t != "" {
		if strings.HasSuffix(t, "=>") || strings.ContainsAny(t[len(t)-1:], ",([=+-*/&|\\:.?") {
			return true
		}
	}
	for k := j + 1; k < len(p.lines); k++ {
		next := p.lines[k]
		if next.blank() {
			continue
		}
		trimmed := strings.TrimSpace(next.text)
		if strings.HasPrefix(trimmed, "{") {
			return true
		}
		return next.indented() && hasPrefixAny(trimmed, continuationLeaders)
	}
	return false
}

// blocks splits unclaimed lines into blank-line separated blocks
func (p *partitioner) blocks(claimed []bool) []unit {
	var (
		out   []unit
		first = -1
	)
	closeBlock := func(last int) {
		if first >= 0 {
			out = append(out, p.contiguousUnit(first, last, KindBlock, ""))
			first = -1
		}
	}
	for j, l := range p.lines {
		if claimed[j] || l.blank() {
			closeBlock(j - 1)
			continue
		}
		if first < 0 {
			first = j
		}
	}
	closeBlock(len(p.lines) - 1)
	return out
}

// looseUnit gathers every unclaimed run of lines into one unit
func (p *partitioner) looseUnit(claimed []bool) (unit, bool) {
	var (
		runs  []span
		first = -1
	)
	closeRun := func(last int) {
		if first < 0 {
			return
		}
		for last > first && p.lines[last].blank() {
			last--
		}
		runs = append(runs, span{p.lines[first].start, p.lines[last].end})
		first = -1
	}
	for j, l := range p.lines {
		if claimed[j] {
			closeRun(j - 1)
			continue
		}
		if first < 0 {
			if l.blank() {
				continue
			}
			first = j
		}
	}
	closeRun(len(p.lines) - 1)
	if len(runs) == 0 {
		return unit{}, false
	}

	parts := make([]string, len(runs))
	for k, r := range runs {
		parts[k] = p.text[r.start:r.end]
	}
	return unit{
		kind:       KindLoose,
		content:    strings.Join(parts, "\n"),
		start:      runs[0].start,
		end:        runs[len(runs)-1].end,
		contiguous: len(runs) == 1,
	}, true
}

// trimmedUnit builds a unit over lines first..last without blank edge lines
func (p *partitioner) trimmedUnit(first, last int, kind Kind) (unit, bool) {
	for first <= last && p.lines[first].blank() {
		first++
	}
	for last >= first && p.lines[last].blank() {
		last--
	}
	if first > last {
		return unit{}, false
	}
	return p.contiguousUnit(first, last, kind, ""), true
}

func (p *partitioner) contiguousUnit(first, last int, kind Kind, name string) unit {
	start, end := p.lines[first].start, p.lines[last].end
	return unit{
		kind:       kind,
		name:       name,
		content:    p.text[start:end],
		start:      start,
		end:        end,
		contiguous: true,
	}
}

// packUnits fills chunks greedily with whole units
func packUnits(units []unit, language string, o, sub Options) []Chunk {
	var (
		chunks []Chunk
		cur    []unit
		joined string
	)
	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, joinUnits(cur, joined, language))
		}
		cur, joined = nil, ""
	}

	for _, u := range units {
		if o.measure(u.content) > o.ChunkSize {
			flush()
			chunks = append(chunks, splitUnit(u, language, sub)...)
			continue
		}
		if len(cur) > 0 && o.measure(joined+unitSeparator+u.content) > o.ChunkSize {
			flush()
		}
		if len(cur) > 0 {
			joined += unitSeparator
		}
		joined += u.content
		cur = append(cur, u)
	}
	flush()
	return chunks
}

// splitUnit breaks one oversized unit with the recursive splitter
func splitUnit(u unit, language string, sub Options) []Chunk {
	pieces := recursive(u.content, sub)
	for i := range pieces {
		pieces[i].Kind = u.kind
		pieces[i].Language = language
		if u.name != "" {
			pieces[i].Symbols = []string{u.name}
		}
		if u.contiguous {
			pieces[i].Start += u.start
			pieces[i].End += u.start
		} else {
			pieces[i].Start, pieces[i].End = u.start, u.end
		}
	}
	return pieces
}

func joinUnits(units []unit, content, language string) Chunk {
	c := Chunk{
		Content:  content,
		Kind:     units[0].kind,
		Language: language,
		Start:    units[0].start,
		End:      units[len(units)-1].end,
	}
	for _, u := range units {
		if u.kind != c.Kind {
			c.Kind = KindMixed
		}
		if u.name != "" {
			c.Symbols = append(c.Symbols, u.name)
		}
	}
	return c
}
