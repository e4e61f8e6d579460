package mcp

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanchunk/internal/config"
	"github.com/Aman-CERP/amanchunk/pkg/version"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func TestNewServer_NilConfigUsesDefaults(t *testing.T) {
	s, err := NewServer(nil, nil)

	require.NoError(t, err)
	require.NotNil(t, s.MCPServer())
	assert.Equal(t, 1500, s.config.Chunking.ChunkSize)
}

func TestNewServer_InvalidMeasure_ReturnsError(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Chunking.Measure = "bytes"

	_, err := NewServer(cfg, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_502")
}

func TestServer_Info(t *testing.T) {
	s := newTestServer(t)

	name, ver := s.Info()

	assert.Equal(t, "amanchunk", name)
	assert.Equal(t, version.Version, ver)
}

func TestServer_ListTools_ReturnsAllFourTools(t *testing.T) {
	s := newTestServer(t)

	tools := s.ListTools()

	require.Len(t, tools, 4)
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
	assert.Equal(t, []string{"chunk_semantic", "chunk_code", "chunk_recursive", "list_languages"}, names)
}

func TestServer_ListTools_ReturnsCopy(t *testing.T) {
	s := newTestServer(t)

	tools := s.ListTools()
	tools[0].Name = "mutated"

	assert.Equal(t, ToolChunkSemantic, s.ListTools()[0].Name)
}

func TestServer_ConfigOptionsApplyToTools(t *testing.T) {
	// Given: a config with a small default size and depth 1
	cfg := config.NewConfig()
	cfg.Chunking.ChunkSize = 10
	cfg.Chunking.MaxDepth = 1
	s, err := NewServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	// When: chunking without explicit size or depth
	result, err := s.CallTool(context.Background(), ToolChunkRecursive, map[string]any{
		"text": "a fairly long piece of text",
	})

	// Then: depth 1 from config returns the text unsplit
	require.NoError(t, err)
	out := result.(ChunkOutput)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "a fairly long piece of text", out.Chunks[0].Content)
}

func TestServer_Serve_UnknownTransport(t *testing.T) {
	s := newTestServer(t)

	err := s.Serve(context.Background(), "sse")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}

func TestServer_LanguagesResource(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleLanguagesResource(context.Background(), nil)

	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, LanguagesResourceURI, res.Contents[0].URI)
	assert.Equal(t, "application/json", res.Contents[0].MIMEType)
	assert.Contains(t, res.Contents[0].Text, `"name": "python"`)
}

func TestGenerateRequestID(t *testing.T) {
	a := generateRequestID()
	b := generateRequestID()

	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
}
