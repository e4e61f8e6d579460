package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/amanchunk/internal/errors"
	"github.com/Aman-CERP/amanchunk/pkg/chunk"
)

func TestMapError_NilError(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_Sentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeTimeout},
		{"too large", ErrInputTooLarge, ErrCodeInputTooLarge},
		{"tool not found", ErrToolNotFound, ErrCodeMethodNotFound},
		{"invalid params", ErrInvalidParams, ErrCodeInvalidParams},
		{"unknown", errors.New("boom"), ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a wrapped sentinel
			err := fmt.Errorf("while chunking: %w", tt.err)

			// When: mapping the error
			result := MapError(err)

			// Then: the sentinel decides the code
			require.NotNil(t, result)
			assert.Equal(t, tt.code, result.Code)
		})
	}
}

func TestMapError_UnknownError_HidesDetails(t *testing.T) {
	result := MapError(errors.New("secret internal path /home/x"))

	assert.Equal(t, "Internal server error.", result.Message)
}

func TestMapError_InvalidChunkOptions(t *testing.T) {
	// Given: the engine's validation error
	_, err := chunk.Recursive("text", chunk.WithChunkSize(0))
	require.Error(t, err)

	// When
	result := MapError(err)

	// Then: it is an invalid-params error carrying the hint
	assert.Equal(t, ErrCodeInvalidParams, result.Code)
	assert.Contains(t, result.Message, "chunk size must be positive")
}

func TestMapError_MCPErrorPassesThrough(t *testing.T) {
	orig := NewInvalidParamsError("text is required")

	result := MapError(fmt.Errorf("wrapped: %w", orig))

	assert.Same(t, orig, result)
}

func TestMCPError_Error(t *testing.T) {
	err := &MCPError{Code: -32602, Message: "bad"}

	assert.Equal(t, "MCP error -32602: bad", err.Error())
}

func TestNewMethodNotFoundError(t *testing.T) {
	err := NewMethodNotFoundError("search_code")

	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Contains(t, err.Message, "search_code")
}

func TestMapError_AmanError_Categories(t *testing.T) {
	tests := []struct {
		name string
		err  *amerrors.AmanError
		code int
	}{
		{"validation", amerrors.ValidationError("bad strategy", nil), ErrCodeInvalidParams},
		{"unknown strategy", amerrors.New(amerrors.ErrCodeUnknownStrategy, "nope", nil), ErrCodeInvalidParams},
		{"file too large", amerrors.New(amerrors.ErrCodeFileTooLarge, "big", nil), ErrCodeInputTooLarge},
		{"other io", amerrors.IOError("read failed", nil), ErrCodeInternalError},
		{"config", amerrors.ConfigError("bad config", nil), ErrCodeInternalError},
		{"internal", amerrors.InternalError("oops", nil), ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, MapError(tt.err).Code)
		})
	}
}

func TestMapError_AmanError_WithSuggestion(t *testing.T) {
	err := amerrors.ValidationError("chunk size must be positive", nil).
		WithSuggestion("Pass chunk_size > 0.")

	result := MapError(fmt.Errorf("outer: %w", err))

	assert.Equal(t, "chunk size must be positive Pass chunk_size > 0.", result.Message)
}
