package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startWatcher runs a watcher on dir and returns a channel of every event.
func startWatcher(t *testing.T, dir string, filter Filter) (*Watcher, <-chan FileEvent) {
	t.Helper()
	w, err := New(dir, Options{DebounceWindow: 20 * time.Millisecond, Filter: filter})
	require.NoError(t, err)

	events := make(chan FileEvent, 100)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(batch []FileEvent) {
			for _, ev := range batch {
				events <- ev
			}
		})
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	return w, events
}

// waitFor returns the first event for rel, failing after a timeout.
func waitFor(t *testing.T, events <-chan FileEvent, rel string) FileEvent {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.RelPath == rel {
				return ev
			}
		case <-deadline:
			t.Fatalf("timeout waiting for event on %s", rel)
			return FileEvent{}
		}
	}
}

func TestWatcher_ReportsCreateModifyDelete(t *testing.T) {
	// Given: a watched directory with one file
	dir := t.TempDir()
	existing := filepath.Join(dir, "old.txt")
	require.NoError(t, os.WriteFile(existing, []byte("v1"), 0o644))
	_, events := startWatcher(t, dir, nil)

	// When: a file is created
	created := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(created, []byte("hello"), 0o644))

	// Then: it is reported as created with both paths set
	ev := waitFor(t, events, "new.txt")
	assert.Equal(t, OpCreate, ev.Operation)
	assert.Equal(t, created, ev.Path)

	// When: the existing file is modified
	f, err := os.OpenFile(existing, os.O_WRONLY|os.O_APPEND, 0)
	require.NoError(t, err)
	_, err = f.WriteString(" v2")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Then: it is reported as modified
	assert.Equal(t, OpModify, waitFor(t, events, "old.txt").Operation)

	// When: it is removed
	require.NoError(t, os.Remove(existing))

	// Then: it is reported as deleted
	assert.Equal(t, OpDelete, waitFor(t, events, "old.txt").Operation)
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	// Given: a watched directory
	dir := t.TempDir()
	_, events := startWatcher(t, dir, nil)

	// When: a subdirectory appears and a file is written inside it
	sub := filepath.Join(dir, "pkg")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.go"), []byte("package pkg"), 0o644))

	// Then: the file is reported under its relative path
	ev := waitFor(t, events, "pkg/a.go")
	assert.NotEqual(t, OpDelete, ev.Operation)
}

func TestWatcher_FilterSkipsPaths(t *testing.T) {
	// Given: a filter that drops *.log and the skip directory
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "skip"), 0o755))
	filter := func(rel string, isDir bool) bool {
		if isDir {
			return rel != "skip"
		}
		return !strings.HasSuffix(rel, ".log")
	}
	w, events := startWatcher(t, dir, filter)
	assert.Equal(t, 1, w.Dirs())

	// When: filtered and unfiltered files change
	require.NoError(t, os.WriteFile(filepath.Join(dir, "debug.log"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip", "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644))

	// Then: only the selected file is reported
	waitFor(t, events, "keep.txt")
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %s %s", ev.Operation, ev.RelPath)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_GitignoreChange(t *testing.T) {
	// Given: a filter that would reject dotfiles
	dir := t.TempDir()
	_, events := startWatcher(t, dir, func(rel string, _ bool) bool {
		return !strings.HasPrefix(filepath.Base(rel), ".")
	})

	// When: a .gitignore is written
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.tmp\n"), 0o644))

	// Then: it is still reported, as a gitignore change
	assert.Equal(t, OpGitignoreChange, waitFor(t, events, ".gitignore").Operation)
}

func TestNew_Errors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := New(filepath.Join(dir, "missing"), DefaultOptions())
	assert.Error(t, err)

	_, err = New(file, DefaultOptions())
	assert.ErrorContains(t, err, "not a directory")
}

func TestWatcher_CloseWithoutRun(t *testing.T) {
	w, err := New(t.TempDir(), DefaultOptions())
	require.NoError(t, err)

	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
