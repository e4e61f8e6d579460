package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/amanchunk/internal/errors"
)

func TestServeCmd_OwnsLogging(t *testing.T) {
	serve, _, err := NewRootCmd().Find([]string{"serve"})

	require.NoError(t, err)
	assert.Equal(t, "true", serve.Annotations[annotationOwnsLogging])
}

func TestServeCmd_UnsupportedTransport(t *testing.T) {
	isolateEnv(t)

	// When: asking for a transport other than stdio
	stdout, stderr, err := executeCommand(t, "", "serve", "--transport", "http")

	// Then: it fails validation before touching stdout
	require.Error(t, err)
	assert.True(t, amerrors.IsValidation(err))
	assert.Contains(t, err.Error(), "server.transport")
	assert.Empty(t, stdout)
	assert.Empty(t, stderr)
}

func TestServeCmd_InvalidLogLevel(t *testing.T) {
	isolateEnv(t)

	_, _, err := executeCommand(t, "", "serve", "--log-level", "chatty")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.log_level")
}
