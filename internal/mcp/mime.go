package mcp

import "strings"

// languageMimeTypes maps registered language names to MIME types.
var languageMimeTypes = map[string]string{
	"go":         "text/x-go",
	"python":     "text/x-python",
	"javascript": "text/javascript",
	"typescript": "text/typescript",
	"java":       "text/x-java",
	"rust":       "text/x-rust",
	"c":          "text/x-c",
	"cpp":        "text/x-c++",
	"markdown":   "text/markdown",
}

// MimeTypeForLanguage returns the MIME type for a canonical language name.
// Returns "text/plain" for the generic configuration and unknown names.
func MimeTypeForLanguage(lang string) string {
	if mime, ok := languageMimeTypes[strings.ToLower(lang)]; ok {
		return mime
	}
	return "text/plain"
}
