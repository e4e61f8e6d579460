package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupLanguage_NamesAndAliases(t *testing.T) {
	tests := []struct {
		hint string
		want string
	}{
		{"python", "python"},
		{"PY", "python"},
		{"js", "javascript"},
		{"jsx", "javascript"},
		{"mjs", "javascript"},
		{"tsx", "typescript"},
		{"golang", "go"},
		{".rs", "rust"},
		{"c++", "cpp"},
		{"h", "c"},
		{"md", "markdown"},
		{"java", "java"},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			config, ok := LookupLanguage(tt.hint)
			require.True(t, ok)
			assert.Equal(t, tt.want, config.Name)
		})
	}
}

func TestLookupLanguage_Unknown(t *testing.T) {
	_, ok := LookupLanguage("cobol")
	assert.False(t, ok)

	assert.Equal(t, GenericLanguage, DefaultRegistry().Resolve("cobol").Name)
	assert.Equal(t, GenericLanguage, DefaultRegistry().Resolve("").Name)
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "go", DetectLanguage("cmd/main.go"))
	assert.Equal(t, "markdown", DetectLanguage("README.MD"))
	assert.Equal(t, "typescript", DetectLanguage("app/page.tsx"))
	assert.Equal(t, "python", DetectLanguage("stubs.pyi"))
	assert.Equal(t, GenericLanguage, DetectLanguage("Makefile"))
	assert.Equal(t, GenericLanguage, DetectLanguage("data.unknown"))
}

func TestLanguages_ListsBuiltins(t *testing.T) {
	names := Languages()

	for _, want := range []string{"c", "cpp", "generic", "go", "java", "javascript", "markdown", "python", "rust", "typescript"} {
		assert.Contains(t, names, want)
	}
	assert.IsIncreasing(t, names)
}

func TestLanguageRegistry_Register(t *testing.T) {
	r := NewLanguageRegistry()
	r.Register(&LanguageConfig{
		Name:       "toy",
		Aliases:    []string{"ty"},
		Extensions: []string{".toy"},
		Block:      BlockIndent,
	})

	config, ok := r.Lookup("TY")
	require.True(t, ok)
	assert.Equal(t, "toy", config.Name)

	config, ok = r.GetByExtension("toy")
	require.True(t, ok)
	assert.Equal(t, "toy", config.Name)
	assert.Contains(t, r.SupportedExtensions(), ".toy")

	_, ok = DefaultRegistry().Lookup("toy")
	assert.False(t, ok, "registering on a new registry leaves the default untouched")
}

func TestMatchDecl_CapturesNames(t *testing.T) {
	tests := []struct {
		lang string
		line string
		kind Kind
		name string
	}{
		{"python", "async def fetch(url):", KindFunction, "fetch"},
		{"python", "MAX_SIZE: int = 10", KindVariable, "MAX_SIZE"},
		{"go", "func (s *Server) Run(ctx context.Context) error {", KindFunction, "Run"},
		{"go", "type Handler interface {", KindType, "Handler"},
		{"javascript", "export default async function main() {", KindFunction, "main"},
		{"javascript", "export const load = async (req) => {", KindFunction, "load"},
		{"typescript", "export declare enum Color {", KindType, "Color"},
		{"java", "public final class Service {", KindClass, "Service"},
		{"rust", "pub(crate) async fn serve() {", KindFunction, "serve"},
		{"c", "static int *alloc_buf(size_t n)", KindFunction, "alloc_buf"},
		{"cpp", "template <typename T> class Box {", KindClass, "Box"},
		{"markdown", "## Getting started ##", KindSection, "Getting started"},
	}

	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.name, func(t *testing.T) {
			config, ok := LookupLanguage(tt.lang)
			require.True(t, ok)

			rule, name, ok := config.matchDecl(tt.line)
			require.True(t, ok)
			assert.Equal(t, tt.kind, rule.Kind)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestMatchDecl_IgnoresNonDeclarations(t *testing.T) {
	python, _ := LookupLanguage("python")
	_, _, ok := python.matchDecl("x = 1")
	assert.False(t, ok)

	c, _ := LookupLanguage("c")
	_, _, ok = c.matchDecl("int helper(void);")
	assert.False(t, ok, "prototypes are not definitions")
}
