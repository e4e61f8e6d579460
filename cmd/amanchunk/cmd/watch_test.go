package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/amanchunk/internal/errors"
)

// syncBuffer lets a test read output while a command is still writing it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// records decodes the complete JSON lines written so far.
func (b *syncBuffer) records(t *testing.T) []watchRecord {
	t.Helper()
	var out []watchRecord
	sc := bufio.NewScanner(strings.NewReader(b.String()))
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var rec watchRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec), sc.Text())
		out = append(out, rec)
	}
	return out
}

func hasRecord(recs []watchRecord, event, source string) bool {
	for _, r := range recs {
		if r.Event == event && r.Source == source {
			return true
		}
	}
	return false
}

// startWatch runs the watch command until the test ends. It returns once
// the initial chunks are written and the watches are in place.
func startWatch(t *testing.T, args ...string) *syncBuffer {
	t.Helper()

	stdout := new(syncBuffer)
	stderr := new(syncBuffer)
	cmd := NewRootCmd()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"watch", "--debounce", "20ms"}, args...))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watch did not stop")
		}
	})

	require.Eventually(t, func() bool {
		return strings.Contains(stderr.String(), "watching")
	}, 5*time.Second, 10*time.Millisecond, stderr.String())
	return stdout
}

func TestWatchCmd_InitialAndChanges(t *testing.T) {
	dir := isolateEnv(t)
	src := filepath.Join(dir, "src")
	require.NoError(t, os.Mkdir(src, 0o755))
	writeFile(t, src, "a.md", "# Title\n\nFirst paragraph.")

	// Given: a running watch on src
	stdout := startWatch(t, "-s", "semantic", "--size", "100", "src")

	// Then: the existing file is chunked first
	first := filepath.Join("src", "a.md")
	require.Eventually(t, func() bool {
		return hasRecord(stdout.records(t), eventChunked, first)
	}, 5*time.Second, 20*time.Millisecond)

	// When: a file is created
	writeFile(t, src, "b.md", "Another document. It has two sentences.")

	// Then: it is chunked
	second := filepath.Join("src", "b.md")
	require.Eventually(t, func() bool {
		return hasRecord(stdout.records(t), eventChunked, second)
	}, 5*time.Second, 20*time.Millisecond)

	// When: the first file is removed
	require.NoError(t, os.Remove(filepath.Join(src, "a.md")))

	// Then: a removed record with no chunks follows
	require.Eventually(t, func() bool {
		return hasRecord(stdout.records(t), eventRemoved, first)
	}, 5*time.Second, 20*time.Millisecond)

	for _, rec := range stdout.records(t) {
		assert.Equal(t, "semantic", rec.Strategy)
		if rec.Event == eventRemoved {
			assert.Zero(t, rec.Count)
			assert.Empty(t, rec.Chunks)
		} else {
			assert.Equal(t, len(rec.Chunks), rec.Count)
		}
	}
}

func TestWatchCmd_SkipsUnselectedFiles(t *testing.T) {
	dir := isolateEnv(t)

	// Given: a watch restricted to Go files
	stdout := startWatch(t, "-s", "code", "--include", "*.go")

	// When: a markdown file and then a Go file appear
	writeFile(t, dir, "notes.md", "not selected")
	writeFile(t, dir, "main.go", "package main\n\nfunc main() {}\n")

	// Then: only the Go file is chunked, with its detected language
	require.Eventually(t, func() bool {
		return hasRecord(stdout.records(t), eventChunked, "main.go")
	}, 5*time.Second, 20*time.Millisecond)
	recs := stdout.records(t)
	assert.False(t, hasRecord(recs, eventChunked, "notes.md"))
	for _, rec := range recs {
		if rec.Source == "main.go" {
			assert.Equal(t, "go", rec.Language)
		}
	}
}

func TestWatchCmd_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"missing dir", []string{"watch", "nope"}, amerrors.ErrCodeFileNotFound},
		{"file instead of dir", []string{"watch", "f.txt"}, amerrors.ErrCodeInvalidInput},
		{"bad debounce", []string{"watch", "--debounce", "0s"}, amerrors.ErrCodeInvalidInput},
		{"unknown strategy", []string{"watch", "-s", "nope"}, amerrors.ErrCodeUnknownStrategy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolateEnv(t)
			writeFile(t, dir, "f.txt", "x")

			_, _, err := executeCommand(t, "", tt.args...)

			require.Error(t, err)
			assert.Equal(t, tt.code, amerrors.GetCode(err))
		})
	}
}
