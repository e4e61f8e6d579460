package chunk

import (
	"slices"
	"strings"
)

// sourceLine is one line of input plus the lexical state around it
type sourceLine struct {
	start, end int // byte offsets, end excludes the newline
	text       string

	inComment bool // line starts inside a block comment
	inString  bool // line starts inside a multi-line string
	depth     int  // bracket depth at line start
	depthEnd  int  // bracket depth at line end
	curly     bool // a '{' opens on this line outside strings and comments
	tail      string
}

func (l sourceLine) blank() bool {
	return strings.TrimSpace(l.text) == ""
}

func (l sourceLine) indented() bool {
	return l.text != "" && (l.text[0] == ' ' || l.text[0] == '\t')
}

func (l sourceLine) inside() bool {
	return l.inComment || l.inString
}

// scanLines splits text into lines and tracks comments, strings and bracket
// depth across them. It is a heuristic lexer, not a tokenizer: it only needs
// to keep brackets inside strings and comments from counting.
func scanLines(text string, cfg *LanguageConfig) []sourceLine {
	var (
		lines   []sourceLine
		depth   int
		comment = -1
		quote   string
	)

	offset := 0
	for offset <= len(text) {
		end := strings.IndexByte(text[offset:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += offset
		}
		s := text[offset:end]
		l := sourceLine{
			start:     offset,
			end:       end,
			text:      s,
			inComment: comment >= 0,
			inString:  quote != "",
			depth:     depth,
		}

		lastCode := -1
		for i := 0; i < len(s); {
			switch {
			case comment >= 0:
				closer := cfg.BlockComments[comment][1]
				if k := strings.Index(s[i:], closer); k >= 0 {
					i += k + len(closer)
					comment = -1
				} else {
					i = len(s)
				}
			case quote != "":
				if j, ok := quoteEnd(s, i, quote); ok {
					i = j
					quote = ""
					lastCode = j - 1
				} else {
					i = len(s)
				}
			default:
				rest := s[i:]
				if hasPrefixAny(rest, cfg.LineComments) {
					i = len(s)
					continue
				}
				if k := blockCommentAt(rest, cfg); k >= 0 {
					comment = k
					i += len(cfg.BlockComments[k][0])
					continue
				}
				if q := stringAt(rest, cfg); q != "" {
					quote = q
					i += len(q)
					continue
				}
				switch c := s[i]; c {
				case '(', '[', '{':
					depth++
					if c == '{' {
						l.curly = true
					}
				case ')', ']', '}':
					if depth > 0 {
						depth--
					}
				}
				if s[i] != ' ' && s[i] != '\t' && s[i] != '\r' {
					lastCode = i
				}
				i++
			}
		}
		if quote != "" && !slices.Contains(cfg.MultilineStrings, quote) {
			quote = ""
		}
		l.depthEnd = depth
		if lastCode >= 0 {
			from := lastCode - 1
			if from < 0 {
				from = 0
			}
			l.tail = s[from : lastCode+1]
		}

		lines = append(lines, l)
		if end == len(text) {
			break
		}
		offset = end + 1
	}
	return lines
}

func blockCommentAt(s string, cfg *LanguageConfig) int {
	for k, pair := range cfg.BlockComments {
		if strings.HasPrefix(s, pair[0]) {
			return k
		}
	}
	return -1
}

func stringAt(s string, cfg *LanguageConfig) string {
	for _, q := range cfg.Strings {
		if strings.HasPrefix(s, q) {
			return q
		}
	}
	return ""
}

// quoteEnd finds the offset just past the closing quote, honouring escapes
func quoteEnd(s string, i int, quote string) (int, bool) {
	for j := i; j < len(s); {
		if s[j] == '\\' {
			j += 2
			continue
		}
		if strings.HasPrefix(s[j:], quote) {
			return j + len(quote), true
		}
		j++
	}
	return 0, false
}
