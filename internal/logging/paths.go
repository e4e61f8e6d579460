package logging

import (
	"os"
	"path/filepath"
)

// LogDirEnv overrides the log directory.
const LogDirEnv = "AMANCHUNK_LOG_DIR"

// DefaultLogDir returns the log directory: $AMANCHUNK_LOG_DIR, else
// ~/.amanchunk/logs, else a directory under the system temp dir.
func DefaultLogDir() string {
	if dir := os.Getenv(LogDirEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".amanchunk", "logs")
	}
	return filepath.Join(home, ".amanchunk", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "amanchunk.log")
}
