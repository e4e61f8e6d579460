package logging

import (
	"log/slog"
)

// SetupMCPMode initializes logging for the MCP server and installs it as the
// default logger. It never writes to stdout or stderr: stdout belongs to the
// JSON-RPC stream and some clients treat stderr output as a failure.
func SetupMCPMode(level string) (*slog.Logger, func(), error) {
	cfg := Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	logger.Info("mcp logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", level))

	return logger, cleanup, nil
}
