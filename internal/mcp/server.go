package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/amanchunk/internal/config"
	amerrors "github.com/Aman-CERP/amanchunk/internal/errors"
	"github.com/Aman-CERP/amanchunk/pkg/chunk"
	"github.com/Aman-CERP/amanchunk/pkg/version"
)

// ServerName is reported to clients during initialization.
const ServerName = "amanchunk"

// MaxInputBytes bounds the text accepted by a single tool call (8MB).
const MaxInputBytes = 8 * 1024 * 1024

// Server is the MCP server for amanchunk.
// It holds no per-call state; concurrent tool calls are independent.
type Server struct {
	mcp    *mcp.Server
	config *config.Config
	base   []chunk.Option
	logger *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        ToolChunkSemantic,
		Description: "Split prose into chunks that never break a sentence. Sentences are grouped up to chunk_size; a single sentence longer than chunk_size is split on paragraphs, lines and words.",
	},
	{
		Name:        ToolChunkCode,
		Description: "Split source code along declarations (imports, functions, classes, types) so each chunk stays syntactically coherent. Oversized declarations are split on blank lines and lines, never mid-sentence.",
	},
	{
		Name:        ToolChunkRecursive,
		Description: "Split any text with the separator hierarchy paragraph, line, sentence, word, character, descending at most max_depth levels. Optional overlap repeats the tail of the previous chunk.",
	},
	{
		Name:        ToolListLanguages,
		Description: "List the languages chunk_code understands with their aliases and file extensions.",
	},
}

// NewServer creates a new MCP server. A nil cfg uses defaults. The base
// chunk options (measure, overlap, depth) come from cfg; tool arguments
// override them per call.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	base, err := cfg.ChunkOptions()
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeTokenizer, "failed to prepare chunk options", err).
			WithSuggestion("Set chunking.measure to chars or check network access for the tokenizer ranks.")
	}

	s := &Server{
		config: cfg,
		base:   base,
		logger: logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

// CallTool invokes a tool by name with JSON-style arguments, as a client
// would send them.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolChunkSemantic:
		var in ChunkSemanticInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.chunkSemantic(ctx, in)
	case ToolChunkCode:
		var in ChunkCodeInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.chunkCode(ctx, in)
	case ToolChunkRecursive:
		var in ChunkRecursiveInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.chunkRecursive(ctx, in)
	case ToolListLanguages:
		return s.listLanguages(), nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// decodeArgs converts a generic argument map into a typed tool input.
func decodeArgs(args map[string]any, into any) error {
	if args == nil {
		args = map[string]any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	if err := json.Unmarshal(data, into); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func (s *Server) chunkSemantic(ctx context.Context, in ChunkSemanticInput) (ChunkOutput, error) {
	opts := s.options(in.ChunkSize)
	return s.run(ctx, ToolChunkSemantic, chunk.StrategySemantic, in.Text, opts)
}

func (s *Server) chunkCode(ctx context.Context, in ChunkCodeInput) (ChunkOutput, error) {
	opts := append(s.options(in.ChunkSize), chunk.WithLanguage(in.Language))
	return s.run(ctx, ToolChunkCode, chunk.StrategyCode, in.Text, opts)
}

func (s *Server) chunkRecursive(ctx context.Context, in ChunkRecursiveInput) (ChunkOutput, error) {
	opts := s.options(in.ChunkSize)
	if in.Overlap != nil {
		opts = append(opts, chunk.WithOverlap(*in.Overlap))
	}
	if in.MaxDepth != 0 {
		opts = append(opts, chunk.WithMaxDepth(in.MaxDepth))
	}
	return s.run(ctx, ToolChunkRecursive, chunk.StrategyRecursive, in.Text, opts)
}

// options copies the configured base options and applies an explicit size.
// Zero means "use the configured size"; negative sizes reach the engine and
// are rejected there.
func (s *Server) options(size int) []chunk.Option {
	opts := make([]chunk.Option, len(s.base), len(s.base)+3)
	copy(opts, s.base)
	if size != 0 {
		opts = append(opts, chunk.WithChunkSize(size))
	}
	return opts
}

// run executes one chunking call with request-scoped logging.
func (s *Server) run(ctx context.Context, tool string, strategy chunk.Strategy, text string, opts []chunk.Option) (ChunkOutput, error) {
	if err := ctx.Err(); err != nil {
		return ChunkOutput{}, MapError(err)
	}
	if len(text) > MaxInputBytes {
		return ChunkOutput{}, MapError(fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(text), MaxInputBytes))
	}

	start := time.Now()
	requestID := generateRequestID()

	s.logger.Info("chunk_started",
		slog.String("request_id", requestID),
		slog.String("tool", tool),
		slog.Int("bytes", len(text)))

	chunks, err := chunk.Split(strategy, text, opts...)
	duration := time.Since(start)

	if err != nil {
		ae := amerrors.FromChunking(err)
		s.logger.Warn("chunk_failed",
			append([]any{slog.String("request_id", requestID), slog.String("tool", tool)}, amerrors.LogAttrs(ae)...)...)
		return ChunkOutput{}, MapError(ae)
	}

	s.logger.Info("chunk_completed",
		slog.String("request_id", requestID),
		slog.String("tool", tool),
		slog.Int("chunks", len(chunks)),
		slog.Duration("duration", duration))

	return newChunkOutput(chunks), nil
}

func (s *Server) listLanguages() ListLanguagesOutput {
	registry := chunk.DefaultRegistry()
	names := registry.Names()

	out := ListLanguagesOutput{Languages: make([]LanguageInfo, 0, len(names))}
	for _, name := range names {
		cfg, ok := registry.Lookup(name)
		if !ok {
			continue
		}
		out.Languages = append(out.Languages, LanguageInfo{
			Name:       cfg.Name,
			Aliases:    cfg.Aliases,
			Extensions: cfg.Extensions,
			MIMEType:   MimeTypeForLanguage(cfg.Name),
		})
	}
	out.Count = len(out.Languages)
	return out
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolChunkSemantic, Description: tools[0].Description}, s.mcpChunkSemanticHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolChunkCode, Description: tools[1].Description}, s.mcpChunkCodeHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolChunkRecursive, Description: tools[2].Description}, s.mcpChunkRecursiveHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolListLanguages, Description: tools[3].Description}, s.mcpListLanguagesHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", len(tools)))
}

// mcpChunkSemanticHandler is the MCP SDK handler for the chunk_semantic tool.
func (s *Server) mcpChunkSemanticHandler(ctx context.Context, _ *mcp.CallToolRequest, input ChunkSemanticInput) (
	*mcp.CallToolResult,
	ChunkOutput,
	error,
) {
	out, err := s.chunkSemantic(ctx, input)
	return nil, out, err
}

// mcpChunkCodeHandler is the MCP SDK handler for the chunk_code tool.
func (s *Server) mcpChunkCodeHandler(ctx context.Context, _ *mcp.CallToolRequest, input ChunkCodeInput) (
	*mcp.CallToolResult,
	ChunkOutput,
	error,
) {
	out, err := s.chunkCode(ctx, input)
	return nil, out, err
}

// mcpChunkRecursiveHandler is the MCP SDK handler for the chunk_recursive tool.
func (s *Server) mcpChunkRecursiveHandler(ctx context.Context, _ *mcp.CallToolRequest, input ChunkRecursiveInput) (
	*mcp.CallToolResult,
	ChunkOutput,
	error,
) {
	out, err := s.chunkRecursive(ctx, input)
	return nil, out, err
}

// mcpListLanguagesHandler is the MCP SDK handler for the list_languages tool.
func (s *Server) mcpListLanguagesHandler(_ context.Context, _ *mcp.CallToolRequest, _ ListLanguagesInput) (
	*mcp.CallToolResult,
	ListLanguagesOutput,
	error,
) {
	return nil, s.listLanguages(), nil
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server",
		slog.String("transport", transport),
		slog.String("version", version.Version))

	switch transport {
	case "stdio", "":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
