package mcp

import "github.com/Aman-CERP/amanchunk/pkg/chunk"

// Tool names.
const (
	ToolChunkSemantic  = "chunk_semantic"
	ToolChunkCode      = "chunk_code"
	ToolChunkRecursive = "chunk_recursive"
	ToolListLanguages  = "list_languages"
)

// ChunkSemanticInput defines the input schema for the chunk_semantic tool.
type ChunkSemanticInput struct {
	Text      string `json:"text" jsonschema:"the text to split into sentence-aligned chunks"`
	ChunkSize int    `json:"chunk_size,omitempty" jsonschema:"target chunk size, default from configuration (1500)"`
}

// ChunkCodeInput defines the input schema for the chunk_code tool.
type ChunkCodeInput struct {
	Text      string `json:"text" jsonschema:"the source code to split along declarations"`
	Language  string `json:"language,omitempty" jsonschema:"language name or alias, e.g. python, js, go; unknown values use generic rules"`
	ChunkSize int    `json:"chunk_size,omitempty" jsonschema:"target chunk size, default from configuration (1500)"`
}

// ChunkRecursiveInput defines the input schema for the chunk_recursive tool.
type ChunkRecursiveInput struct {
	Text      string `json:"text" jsonschema:"the text to split with the separator hierarchy"`
	ChunkSize int    `json:"chunk_size,omitempty" jsonschema:"target chunk size, default from configuration (1500)"`
	Overlap   *int   `json:"overlap,omitempty" jsonschema:"characters repeated from the previous chunk, clamped below chunk_size"`
	MaxDepth  int    `json:"max_depth,omitempty" jsonschema:"maximum separator levels to descend, default 5"`
}

// ListLanguagesInput defines the input schema for the list_languages tool (no parameters).
type ListLanguagesInput struct{}

// ChunkOutput defines the output schema shared by the chunking tools.
type ChunkOutput struct {
	Chunks []chunk.Chunk `json:"chunks" jsonschema:"chunks in document order, chunk_id counts from 0"`
	Count  int           `json:"count" jsonschema:"number of chunks"`
}

// LanguageInfo describes one registered language.
type LanguageInfo struct {
	Name       string   `json:"name"`
	Aliases    []string `json:"aliases,omitempty"`
	Extensions []string `json:"extensions,omitempty"`
	MIMEType   string   `json:"mime_type"`
}

// ListLanguagesOutput defines the output schema for the list_languages tool.
type ListLanguagesOutput struct {
	Languages []LanguageInfo `json:"languages"`
	Count     int            `json:"count"`
}

func newChunkOutput(chunks []chunk.Chunk) ChunkOutput {
	if chunks == nil {
		chunks = []chunk.Chunk{}
	}
	return ChunkOutput{Chunks: chunks, Count: len(chunks)}
}
