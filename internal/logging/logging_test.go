package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestDefaultLogDir_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(LogDirEnv, dir)

	if got := DefaultLogDir(); got != dir {
		t.Errorf("DefaultLogDir() = %q, want %q", got, dir)
	}
	if got := DefaultLogPath(); got != filepath.Join(dir, "amanchunk.log") {
		t.Errorf("DefaultLogPath() = %q", got)
	}
}

func TestDefaultLogDir_Home(t *testing.T) {
	t.Setenv(LogDirEnv, "")

	dir := DefaultLogDir()
	if !strings.HasSuffix(dir, filepath.Join(".amanchunk", "logs")) {
		t.Errorf("DefaultLogDir() = %q, want suffix .amanchunk/logs", dir)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Level)
	}
	if cfg.FilePath != "" {
		t.Errorf("FilePath = %q, want no file logging by default", cfg.FilePath)
	}
	if !cfg.WriteToStderr {
		t.Error("WriteToStderr should be true")
	}
}

func TestDebugConfig(t *testing.T) {
	t.Setenv(LogDirEnv, t.TempDir())

	cfg := DebugConfig()
	if cfg.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Level)
	}
	if cfg.FilePath != DefaultLogPath() {
		t.Errorf("FilePath = %q, want %q", cfg.FilePath, DefaultLogPath())
	}
}

func TestSetup_StderrOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := Setup(Config{Level: "info", WriteToStderr: true, Stderr: &buf})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer cleanup()

	logger.Debug("hidden")
	logger.Info("chunk_completed", slog.Int("chunks", 3))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "chunk_completed" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["chunks"] != float64(3) {
		t.Errorf("chunks = %v", entry["chunks"])
	}
}

func TestSetup_FileAndStderr(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.log")
	var buf bytes.Buffer

	logger, cleanup, err := Setup(Config{Level: "debug", FilePath: path, WriteToStderr: true, Stderr: &buf})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	logger.Debug("written twice")
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written twice") {
		t.Errorf("file missing entry: %q", data)
	}
	if !strings.Contains(buf.String(), "written twice") {
		t.Errorf("stderr missing entry: %q", buf.String())
	}
}

func TestSetup_NoOutputs(t *testing.T) {
	logger, cleanup, err := Setup(Config{Level: "debug"})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer cleanup()
	logger.Info("goes nowhere")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSetupMCPMode_WritesOnlyToFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(LogDirEnv, dir)
	prev := slog.Default()
	defer slog.SetDefault(prev)

	logger, cleanup, err := SetupMCPMode("debug")
	if err != nil {
		t.Fatalf("SetupMCPMode() error = %v", err)
	}
	logger.Info("tool_called", slog.String("tool", "chunk_code"))
	cleanup()

	data, err := os.ReadFile(filepath.Join(dir, "amanchunk.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "mcp logging initialized") || !strings.Contains(string(data), "tool_called") {
		t.Errorf("unexpected log contents: %q", data)
	}
}

func TestRotatingWriter_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rot.log")
	w, err := NewRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	// Shrink the limit so a few writes force rotation.
	w.maxSize = 100
	defer w.Close()

	line := []byte(strings.Repeat("x", 60) + "\n")
	for i := 0; i < 5; i++ {
		if _, err := w.Write(line); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Errorf("expected %s.3 to be pruned", path)
	}
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "c.log"), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if _, err := w.Write([]byte("late")); err == nil {
		t.Error("Write() after Close() should fail")
	}
	if err := w.Sync(); err != nil {
		t.Errorf("Sync() after Close() = %v", err)
	}
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.log")
	w, err := NewRotatingWriter(path, 10, 2)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _ = fmt.Fprintf(w, "worker %d line %d\n", id, j)
			}
		}(i)
	}
	wg.Wait()
	_ = w.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "\n"); got != 200 {
		t.Errorf("got %d lines, want 200", got)
	}
}
