package scanner

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Matcher matches slash-separated relative paths against gitignore-style
// patterns. It is immutable once built and safe for concurrent use.
type Matcher struct {
	rules []ignoreRule
}

type ignoreRule struct {
	re *regexp.Regexp
	// negate re-includes a path matched by an earlier rule (leading "!").
	negate bool
	// dirOnly rules (trailing "/") match directories and their contents.
	dirOnly bool
	// anchored rules (leading or inner "/") match from the pattern's directory.
	anchored bool
}

// ParseIgnore compiles gitignore content. Blank lines, comments and
// patterns that cannot be compiled are skipped.
func ParseIgnore(content string) *Matcher {
	m := &Matcher{}
	for _, line := range strings.Split(content, "\n") {
		if r, ok := parseRule(line); ok {
			m.rules = append(m.rules, r)
		}
	}
	return m
}

// LoadIgnoreFile parses the gitignore file at path.
func LoadIgnoreFile(path string) (*Matcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseIgnore(string(data)), nil
}

// Len returns the number of compiled rules.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}

// Match reports whether rel is ignored and whether any rule matched it.
// The last matching rule wins. A rule matching a parent directory matches
// everything below it.
func (m *Matcher) Match(rel string, isDir bool) (ignored, matched bool) {
	if m == nil {
		return false, false
	}
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" {
		return false, false
	}
	parts := strings.Split(rel, "/")
	for _, r := range m.rules {
		if r.matches(parts, isDir) {
			ignored, matched = !r.negate, true
		}
	}
	return ignored, matched
}

func (r ignoreRule) matches(parts []string, isDir bool) bool {
	for i := range parts {
		last := i == len(parts)-1
		if r.dirOnly && last && !isDir {
			continue
		}
		candidate := parts[i]
		if r.anchored {
			candidate = strings.Join(parts[:i+1], "/")
		}
		if r.re.MatchString(candidate) {
			return true
		}
	}
	return false
}

func parseRule(line string) (ignoreRule, bool) {
	line = strings.TrimSuffix(line, "\r")
	// Trailing spaces are dropped unless escaped with a backslash.
	trimmed := strings.TrimRight(line, " \t")
	if strings.HasSuffix(trimmed, `\`) && len(trimmed) < len(line) {
		trimmed += " "
	}
	line = strings.TrimLeft(trimmed, " \t")
	if line == "" || strings.HasPrefix(line, "#") {
		return ignoreRule{}, false
	}

	var r ignoreRule
	switch {
	case strings.HasPrefix(line, `\#`), strings.HasPrefix(line, `\!`):
		line = line[1:]
	case strings.HasPrefix(line, "!"):
		r.negate = true
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		r.anchored = true
		line = strings.TrimLeft(line, "/")
	} else if strings.Contains(line, "/") {
		r.anchored = true
	}
	if line == "" {
		return ignoreRule{}, false
	}

	re, err := regexp.Compile("^" + globToRegexp(line) + "$")
	if err != nil {
		return ignoreRule{}, false
	}
	r.re = re
	return r, true
}

// globToRegexp translates gitignore glob syntax: "*" and "?" stay within
// one path segment, "**/" spans directories and a trailing "**" matches
// everything.
func globToRegexp(glob string) string {
	var sb strings.Builder
	for i := 0; i < len(glob); i++ {
		c := glob[i]
		atSegmentStart := i == 0 || glob[i-1] == '/'
		switch {
		case c == '*' && atSegmentStart && strings.HasPrefix(glob[i:], "**/"):
			sb.WriteString("(?:.*/)?")
			i += 2
		case c == '*' && atSegmentStart && glob[i:] == "**":
			sb.WriteString(".*")
			i++
		case c == '*':
			sb.WriteString("[^/]*")
		case c == '?':
			sb.WriteString("[^/]")
		case c == '[':
			end := strings.IndexByte(glob[i+1:], ']')
			if end < 0 {
				sb.WriteString(`\[`)
				continue
			}
			class := glob[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			sb.WriteString("[" + class + "]")
			i += end + 1
		case c == '\\' && i+1 < len(glob):
			i++
			sb.WriteString(regexp.QuoteMeta(string(glob[i])))
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return sb.String()
}
