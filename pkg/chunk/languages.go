package chunk

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// GenericLanguage is used when a language hint is absent or unknown
const GenericLanguage = "generic"

// BlockStyle decides where a declaration's body ends
type BlockStyle int

const (
	// BlockBraces ends a declaration when its brackets balance again
	BlockBraces BlockStyle = iota
	// BlockIndent extends a declaration over the indented lines below it
	BlockIndent
	// BlockSection extends a declaration up to the next declaration
	BlockSection
	// BlockAuto picks BlockIndent for headers ending in ':' and BlockBraces otherwise
	BlockAuto
)

// DeclRule recognises the first line of a top-level declaration. An optional
// named group "name" captures the declared symbol.
type DeclRule struct {
	Pattern *regexp.Regexp
	Kind    Kind
}

// LanguageConfig holds the structural patterns for one language
type LanguageConfig struct {
	Name       string
	Aliases    []string
	Extensions []string

	// Lines belonging to the leading import block
	Imports []*regexp.Regexp

	// Lines allowed in the leading block without being imports (package
	// clause, shebang, module docstring)
	Preamble []*regexp.Regexp

	// Leading "---" fenced metadata block
	Frontmatter bool

	// Declaration starts, tried in order
	Declarations []DeclRule

	// Line prefixes that attach to the declaration directly below them
	// (doc comments, decorators, attributes)
	Attach []string

	LineComments  []string
	BlockComments [][2]string

	// String delimiters, longest first. Only MultilineStrings may span lines.
	Strings          []string
	MultilineStrings []string

	Block BlockStyle
}

func (c *LanguageConfig) matchDecl(line string) (DeclRule, string, bool) {
	for _, rule := range c.Declarations {
		m := rule.Pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := ""
		if idx := rule.Pattern.SubexpIndex("name"); idx > 0 && idx < len(m) {
			name = strings.TrimSpace(m[idx])
		}
		return rule, name, true
	}
	return DeclRule{}, "", false
}

func matchAny(patterns []*regexp.Regexp, line string) bool {
	for _, p := range patterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func hasPrefixAny(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// LanguageRegistry maps language names, aliases and file extensions to configs
type LanguageRegistry struct {
	configs   map[string]*LanguageConfig // keyed by language name
	aliases   map[string]string          // alias -> language name
	extToLang map[string]string          // extension -> language name
}

// NewLanguageRegistry creates a registry with the built-in languages
func NewLanguageRegistry() *LanguageRegistry {
	r := &LanguageRegistry{
		configs:   make(map[string]*LanguageConfig),
		aliases:   make(map[string]string),
		extToLang: make(map[string]string),
	}

	r.Register(pythonConfig())
	r.Register(javaScriptConfig())
	r.Register(typeScriptConfig())
	r.Register(goConfig())
	r.Register(javaConfig())
	r.Register(rustConfig())
	r.Register(cConfig())
	r.Register(cppConfig())
	r.Register(markdownConfig())
	r.Register(genericConfig())

	return r
}

// Register adds a language. A registry is not safe for Register calls
// concurrent with lookups.
func (r *LanguageRegistry) Register(config *LanguageConfig) {
	r.configs[config.Name] = config
	for _, alias := range config.Aliases {
		r.aliases[strings.ToLower(alias)] = config.Name
	}
	for _, ext := range config.Extensions {
		r.extToLang[strings.ToLower(ext)] = config.Name
	}
}

// Lookup resolves a language name or alias, case-insensitively
func (r *LanguageRegistry) Lookup(hint string) (*LanguageConfig, bool) {
	key := strings.ToLower(strings.TrimSpace(hint))
	key = strings.TrimPrefix(key, ".")
	if config, ok := r.configs[key]; ok {
		return config, true
	}
	if name, ok := r.aliases[key]; ok {
		return r.configs[name], true
	}
	if name, ok := r.extToLang["."+key]; ok {
		return r.configs[name], true
	}
	return nil, false
}

// Resolve returns the config for hint, or the generic config
func (r *LanguageRegistry) Resolve(hint string) *LanguageConfig {
	if config, ok := r.Lookup(hint); ok {
		return config
	}
	return r.configs[GenericLanguage]
}

// GetByExtension returns the language configuration for a file extension
func (r *LanguageRegistry) GetByExtension(ext string) (*LanguageConfig, bool) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	return r.configs[name], true
}

// Names returns registered language names, sorted
func (r *LanguageRegistry) Names() []string {
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SupportedExtensions returns all registered file extensions, sorted
func (r *LanguageRegistry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// defaultRegistry is the global language registry
var defaultRegistry = NewLanguageRegistry()

// DefaultRegistry returns the global language registry
func DefaultRegistry() *LanguageRegistry {
	return defaultRegistry
}

// Languages returns the built-in language names
func Languages() []string {
	return defaultRegistry.Names()
}

// LookupLanguage resolves a language name or alias in the default registry
func LookupLanguage(hint string) (*LanguageConfig, bool) {
	return defaultRegistry.Lookup(hint)
}

// DetectLanguage maps a file path to a language name by extension. Unknown
// extensions return GenericLanguage.
func DetectLanguage(path string) string {
	if config, ok := defaultRegistry.GetByExtension(filepath.Ext(path)); ok {
		return config.Name
	}
	return GenericLanguage
}

var (
	cStyleLineComments  = []string{"//"}
	cStyleBlockComments = [][2]string{{"/*", "*/"}}
)

func pythonConfig() *LanguageConfig {
	return &LanguageConfig{
		Name:       "python",
		Aliases:    []string{"py", "python3"},
		Extensions: []string{".py", ".pyi", ".pyw"},
		Imports: []*regexp.Regexp{
			regexp.MustCompile(`^import\s+\w`),
			regexp.MustCompile(`^from\s+\S+\s+import\b`),
		},
		Preamble: []*regexp.Regexp{
			regexp.MustCompile(`^#!`),
			regexp.MustCompile(`^[rRuUbBfF]*("""|''')`),
			regexp.MustCompile(`^__all__\s*=`),
		},
		Declarations: []DeclRule{
			{regexp.MustCompile(`^(?:async\s+)?def\s+(?P<name>\w+)`), KindFunction},
			{regexp.MustCompile(`^class\s+(?P<name>\w+)`), KindClass},
			{regexp.MustCompile(`^(?P<name>[A-Z][A-Z0-9_]*)\s*(?::[^=]+)?=[^=]`), KindVariable},
		},
		Attach:           []string{"#", "@"},
		LineComments:     []string{"#"},
		Strings:          []string{`"""`, `'''`, `"`, `'`},
		MultilineStrings: []string{`"""`, `'''`},
		Block:            BlockIndent,
	}
}

var jsDeclarations = []DeclRule{
	{regexp.MustCompile(`^(?:export\s+(?:default\s+)?)?(?:async\s+)?function\s*\*?\s*(?P<name>[\w$]+)`), KindFunction},
	{regexp.MustCompile(`^(?:export\s+(?:default\s+)?)?(?:abstract\s+)?class\s+(?P<name>[\w$]+)`), KindClass},
	{regexp.MustCompile(`^(?:export\s+)?(?:const|let|var)\s+(?P<name>[\w$]+)\s*(?::[^=]+)?=\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*(?::[^=]+)?=>|[\w$]+\s*=>)`), KindFunction},
	{regexp.MustCompile(`^(?:export\s+)?(?:const|let|var)\s+(?P<name>[\w$]+)`), KindVariable},
}

var jsImports = []*regexp.Regexp{
	regexp.MustCompile(`^import\b`),
	regexp.MustCompile(`^(?:const|let|var)\s+.*=\s*require\(`),
	regexp.MustCompile(`^export\s+(?:\*|\{[^}]*\})\s*from\s`),
}

var jsPreamble = []*regexp.Regexp{
	regexp.MustCompile(`^#!`),
	regexp.MustCompile(`^['"]use (?:strict|client|server)['"]`),
}

func javaScriptConfig() *LanguageConfig {
	return &LanguageConfig{
		Name:             "javascript",
		Aliases:          []string{"js", "jsx", "mjs", "cjs", "node"},
		Extensions:       []string{".js", ".jsx", ".mjs", ".cjs"},
		Imports:          jsImports,
		Preamble:         jsPreamble,
		Declarations:     jsDeclarations,
		Attach:           []string{"//", "/*", "@"},
		LineComments:     cStyleLineComments,
		BlockComments:    cStyleBlockComments,
		Strings:          []string{"`", `"`, `'`},
		MultilineStrings: []string{"`"},
		Block:            BlockBraces,
	}
}

func typeScriptConfig() *LanguageConfig {
	decls := []DeclRule{
		{regexp.MustCompile(`^(?:export\s+)?(?:declare\s+)?interface\s+(?P<name>\w+)`), KindType},
		{regexp.MustCompile(`^(?:export\s+)?(?:declare\s+)?type\s+(?P<name>\w+)`), KindType},
		{regexp.MustCompile(`^(?:export\s+)?(?:declare\s+)?(?:const\s+)?enum\s+(?P<name>\w+)`), KindType},
		{regexp.MustCompile(`^(?:export\s+)?(?:declare\s+)?(?:namespace|module)\s+(?P<name>[\w.]+)`), KindType},
		{regexp.MustCompile(`^(?:export\s+)?declare\s+function\s+(?P<name>[\w$]+)`), KindFunction},
	}
	decls = append(decls, jsDeclarations...)

	return &LanguageConfig{
		Name:             "typescript",
		Aliases:          []string{"ts", "tsx", "mts", "cts"},
		Extensions:       []string{".ts", ".tsx", ".mts", ".cts"},
		Imports:          jsImports,
		Preamble:         append([]*regexp.Regexp{regexp.MustCompile(`^///\s*<reference`)}, jsPreamble...),
		Declarations:     decls,
		Attach:           []string{"//", "/*", "@"},
		LineComments:     cStyleLineComments,
		BlockComments:    cStyleBlockComments,
		Strings:          []string{"`", `"`, `'`},
		MultilineStrings: []string{"`"},
		Block:            BlockBraces,
	}
}

func goConfig() *LanguageConfig {
	return &LanguageConfig{
		Name:       "go",
		Aliases:    []string{"golang"},
		Extensions: []string{".go"},
		Imports: []*regexp.Regexp{
			regexp.MustCompile(`^import\b`),
		},
		Preamble: []*regexp.Regexp{
			regexp.MustCompile(`^package\s+\w+`),
			regexp.MustCompile(`^//go:build\b`),
			regexp.MustCompile(`^// \+build\b`),
		},
		Declarations: []DeclRule{
			{regexp.MustCompile(`^func\s+(?:\([^)]*\)\s*)?(?P<name>\w+)`), KindFunction},
			{regexp.MustCompile(`^type\s+(?P<name>\w+)`), KindType},
			{regexp.MustCompile(`^type\s*\(`), KindType},
			{regexp.MustCompile(`^(?:var|const)\s+(?P<name>\w+)`), KindVariable},
			{regexp.MustCompile(`^(?:var|const)\s*\(`), KindVariable},
		},
		Attach:           []string{"//", "/*"},
		LineComments:     cStyleLineComments,
		BlockComments:    cStyleBlockComments,
		Strings:          []string{"`", `"`, `'`},
		MultilineStrings: []string{"`"},
		Block:            BlockBraces,
	}
}

func javaConfig() *LanguageConfig {
	return &LanguageConfig{
		Name:       "java",
		Extensions: []string{".java"},
		Imports: []*regexp.Regexp{
			regexp.MustCompile(`^import\s`),
		},
		Preamble: []*regexp.Regexp{
			regexp.MustCompile(`^package\s`),
		},
		Declarations: []DeclRule{
			{regexp.MustCompile(`^(?:(?:public|protected|private|abstract|final|static|sealed|non-sealed|strictfp)\s+)*(?:class|interface|enum|record|@interface)\s+(?P<name>\w+)`), KindClass},
		},
		Attach:        []string{"//", "/*", "@"},
		LineComments:  cStyleLineComments,
		BlockComments: cStyleBlockComments,
		Strings:       []string{`"""`, `"`, `'`},
		MultilineStrings: []string{
			`"""`,
		},
		Block: BlockBraces,
	}
}

func rustConfig() *LanguageConfig {
	const vis = `(?:pub(?:\([^)]*\))?\s+)?`
	return &LanguageConfig{
		Name:       "rust",
		Aliases:    []string{"rs"},
		Extensions: []string{".rs"},
		Imports: []*regexp.Regexp{
			regexp.MustCompile(`^` + vis + `use\s`),
			regexp.MustCompile(`^extern\s+crate\s`),
		},
		Preamble: []*regexp.Regexp{
			regexp.MustCompile(`^#!\[`),
		},
		Declarations: []DeclRule{
			{regexp.MustCompile(`^` + vis + `(?:const\s+)?(?:async\s+)?(?:unsafe\s+)?(?:extern\s+"[^"]*"\s+)?fn\s+(?P<name>\w+)`), KindFunction},
			{regexp.MustCompile(`^` + vis + `(?:struct|enum|union|trait|type)\s+(?P<name>\w+)`), KindType},
			{regexp.MustCompile(`^(?:unsafe\s+)?impl(?:<[^{]*?>)?\s+(?P<name>[^{]+?)\s*(?:\bwhere\b.*|\{.*)?$`), KindClass},
			{regexp.MustCompile(`^` + vis + `(?:const|static)\s+(?:mut\s+)?(?P<name>\w+)`), KindVariable},
			{regexp.MustCompile(`^` + vis + `mod\s+(?P<name>\w+)`), KindType},
			{regexp.MustCompile(`^macro_rules!\s*(?P<name>\w+)`), KindFunction},
		},
		Attach:        []string{"//", "/*", "#["},
		LineComments:  cStyleLineComments,
		BlockComments: cStyleBlockComments,
		// Single quotes are lifetimes as often as char literals.
		Strings: []string{`"`},
		Block:   BlockBraces,
	}
}

var (
	cImports = []*regexp.Regexp{
		regexp.MustCompile(`^#\s*include\b`),
	}
	cPreamble = []*regexp.Regexp{
		regexp.MustCompile(`^#\s*(?:pragma|define|ifndef|ifdef|if|endif|else|undef)\b`),
	}
	cDeclarations = []DeclRule{
		{regexp.MustCompile(`^typedef\s+.*?(?P<name>\w+)\s*;\s*$`), KindType},
		{regexp.MustCompile(`^typedef\b`), KindType},
		{regexp.MustCompile(`^(?:static\s+)?(?:struct|union|enum)\s+(?P<name>\w+)\s*(?:\{.*)?$`), KindType},
		{regexp.MustCompile(`^(?:[\w:*&<>,]+\s+)+\**(?P<name>[\w:~]+)\s*\([^;]*$`), KindFunction},
	}
)

func cConfig() *LanguageConfig {
	return &LanguageConfig{
		Name:          "c",
		Aliases:       []string{"h"},
		Extensions:    []string{".c", ".h"},
		Imports:       cImports,
		Preamble:      cPreamble,
		Declarations:  cDeclarations,
		Attach:        []string{"//", "/*"},
		LineComments:  cStyleLineComments,
		BlockComments: cStyleBlockComments,
		Strings:       []string{`"`, `'`},
		Block:         BlockBraces,
	}
}

func cppConfig() *LanguageConfig {
	decls := []DeclRule{
		{regexp.MustCompile(`^(?:template\s*<.*>\s*)?(?:class|struct)\s+(?P<name>\w+)\s*(?:[:{].*)?$`), KindClass},
		{regexp.MustCompile(`^namespace\s+(?P<name>[\w:]+)`), KindType},
	}
	decls = append(decls, cDeclarations...)

	return &LanguageConfig{
		Name:       "cpp",
		Aliases:    []string{"c++", "cxx", "cc", "hpp"},
		Extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx"},
		Imports: append([]*regexp.Regexp{
			regexp.MustCompile(`^using\s+namespace\s`),
			regexp.MustCompile(`^import\s`),
		}, cImports...),
		Preamble:      cPreamble,
		Declarations:  decls,
		Attach:        []string{"//", "/*", "template"},
		LineComments:  cStyleLineComments,
		BlockComments: cStyleBlockComments,
		Strings:       []string{`"`, `'`},
		Block:         BlockBraces,
	}
}

func markdownConfig() *LanguageConfig {
	return &LanguageConfig{
		Name:        "markdown",
		Aliases:     []string{"md", "mdx"},
		Extensions:  []string{".md", ".markdown", ".mdx"},
		Frontmatter: true,
		Declarations: []DeclRule{
			{regexp.MustCompile(`^#{1,6}\s+(?P<name>.+?)\s*#*\s*$`), KindSection},
		},
		// Fenced code blocks and HTML comments hide headings.
		BlockComments: [][2]string{{"```", "```"}, {"~~~", "~~~"}, {"<!--", "-->"}},
		Block:         BlockSection,
	}
}

func genericConfig() *LanguageConfig {
	return &LanguageConfig{
		Name: GenericLanguage,
		Imports: []*regexp.Regexp{
			regexp.MustCompile(`^import\s`),
			regexp.MustCompile(`^from\s+\S+\s+import\b`),
			regexp.MustCompile(`^#\s*include\b`),
			regexp.MustCompile(`^(?:require|use|using)\s`),
		},
		Preamble: []*regexp.Regexp{
			regexp.MustCompile(`^#!`),
			regexp.MustCompile(`^package\s+[\w.]+`),
		},
		Declarations: []DeclRule{
			{regexp.MustCompile(`^(?:export\s+)?(?:pub\s+)?(?:async\s+)?(?:def|function|func|fn|sub|proc|fun)\s+(?P<name>[\w$.]+)`), KindFunction},
			{regexp.MustCompile(`^(?:export\s+)?(?:abstract\s+)?(?:class|struct|interface|trait|module)\s+(?P<name>[\w$.]+)`), KindClass},
		},
		Attach:        []string{"//", "#", "/*", "@"},
		LineComments:  []string{"//", "#"},
		BlockComments: cStyleBlockComments,
		Strings:       []string{`"`, `'`},
		Block:         BlockAuto,
	}
}
