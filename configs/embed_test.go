package configs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanchunk/configs"
	"github.com/Aman-CERP/amanchunk/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		"AMANCHUNK_STRATEGY", "AMANCHUNK_CHUNK_SIZE", "AMANCHUNK_OVERLAP", "AMANCHUNK_MAX_DEPTH",
		"AMANCHUNK_MEASURE", "AMANCHUNK_WORKERS", "AMANCHUNK_LOG_LEVEL", "AMANCHUNK_FORMAT",
	} {
		t.Setenv(env, "")
	}
}

func TestTemplates_LoadToDefaults(t *testing.T) {
	// Given: both templates installed as user and project config
	clearEnv(t)
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	userPath := config.GetUserConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(userPath), 0o755))
	require.NoError(t, os.WriteFile(userPath, []byte(configs.UserConfigTemplate), 0o644))

	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, config.ProjectConfigYAML), []byte(configs.ProjectConfigTemplate), 0o644))

	// When: loading the configuration
	cfg, err := config.Load(project)

	// Then: nothing differs from the built-in defaults
	require.NoError(t, err)
	assert.Equal(t, config.NewConfig(), cfg)
}

func TestTemplates_AreCommented(t *testing.T) {
	assert.Contains(t, configs.ProjectConfigTemplate, "# semantic, code or recursive")
	assert.Contains(t, configs.UserConfigTemplate, "# MCP transport")
}
