package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files (slash-separated paths) under dir.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func relPaths(files []File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.RelPath)
	}
	return out
}

func newScanner(t *testing.T) *Scanner {
	t.Helper()
	s, err := New()
	require.NoError(t, err)
	return s
}

func TestScan_RespectsGitignore(t *testing.T) {
	// Given: a tree with root and nested .gitignore files
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		".gitignore":         "*.log\ntmp/\n",
		"main.go":            "package main\n",
		"debug.log":          "noise\n",
		"tmp/cache.txt":      "cache\n",
		"docs/guide.md":      "# Guide\n",
		"docs/.gitignore":    "draft.md\n!keep.log\n",
		"docs/draft.md":      "wip\n",
		"docs/keep.log":      "kept\n",
		"src/lib/helper.py":  "def helper():\n    pass\n",
		"src/lib/helper.pyc": "compiled\n",
	})

	// When: scanning with default options
	files, err := newScanner(t).Scan(context.Background(), dir, DefaultOptions())

	// Then: ignored paths are dropped and the rest come back in lexical order
	require.NoError(t, err)
	assert.Equal(t, []string{
		".gitignore",
		"docs/.gitignore",
		"docs/guide.md",
		"docs/keep.log",
		"main.go",
		"src/lib/helper.py",
		"src/lib/helper.pyc",
	}, relPaths(files))
}

func TestScan_WithoutGitignore(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		".gitignore": "*.log\n",
		"debug.log":  "noise\n",
	})

	opts := DefaultOptions()
	opts.RespectGitignore = false
	files, err := newScanner(t).Scan(context.Background(), dir, opts)

	require.NoError(t, err)
	assert.Contains(t, relPaths(files), "debug.log")
}

func TestScan_BuiltinExclusions(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"app.js":                  "export const a = 1\n",
		"app.min.js":              "var a=1\n",
		"node_modules/x/index.js": "module.exports = 1\n",
		".git/config":             "[core]\n",
		"vendor/lib/lib.go":       "package lib\n",
		".env":                    "SECRET=1\n",
		"certs/server.pem":        "-----BEGIN-----\n",
		"go.sum":                  "sum\n",
	})

	opts := DefaultOptions()
	opts.RespectGitignore = false
	files, err := newScanner(t).Scan(context.Background(), dir, opts)

	require.NoError(t, err)
	assert.Equal(t, []string{"app.js"}, relPaths(files))
}

func TestScan_IncludePatterns(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.go":          "package a\n",
		"b.py":          "x = 1\n",
		"docs/intro.md": "# Intro\n",
		"docs/a.go":     "package docs\n",
	})

	opts := DefaultOptions()
	opts.Include = []string{"*.go", "docs/*.md"}
	files, err := newScanner(t).Scan(context.Background(), dir, opts)

	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "docs/a.go", "docs/intro.md"}, relPaths(files))
}

func TestScan_SkipsBinaryAndLargeFiles(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"text.txt":  "hello\n",
		"image.bin": "PNG\x00\x01\x02",
		"big.txt":   strings.Repeat("a", 2048),
	})

	opts := DefaultOptions()
	opts.MaxFileSize = 1024
	files, err := newScanner(t).Scan(context.Background(), dir, opts)

	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "text.txt", files[0].RelPath)
	assert.Equal(t, filepath.Join(dir, "text.txt"), files[0].Path)
	assert.EqualValues(t, 6, files[0].Size)
}

func TestScan_RootErrors(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"file.txt": "x"})
	s := newScanner(t)

	_, err := s.Scan(context.Background(), filepath.Join(dir, "missing"), DefaultOptions())
	assert.Error(t, err)

	_, err = s.Scan(context.Background(), filepath.Join(dir, "file.txt"), DefaultOptions())
	assert.ErrorContains(t, err, "not a directory")
}

func TestScan_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "a", "b.txt": "b"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newScanner(t).Scan(ctx, dir, DefaultOptions())

	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_GitignoreCache(t *testing.T) {
	// Given: a scanner that has already read a .gitignore
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{".gitignore": "*.log\n", "a.log": "x", "a.txt": "y"})
	s := newScanner(t)
	_, err := s.Scan(context.Background(), dir, DefaultOptions())
	require.NoError(t, err)

	// When: the file changes on disk
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.txt\n"), 0o644))

	// Then: cached rules apply until purged
	files, err := s.Scan(context.Background(), dir, DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, relPaths(files), "a.txt")

	s.Purge()
	files, err = s.Scan(context.Background(), dir, DefaultOptions())
	require.NoError(t, err)
	assert.NotContains(t, relPaths(files), "a.txt")
	assert.Contains(t, relPaths(files), "a.log")
}

func TestScanner_Selects(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{".gitignore": "*.log\n"})
	s := newScanner(t)
	opts := DefaultOptions()
	opts.Include = []string{"*.go", "*.log"}

	tests := []struct {
		name  string
		rel   string
		isDir bool
		want  bool
	}{
		{"included file", "main.go", false, true},
		{"nested included file", "pkg/util.go", false, true},
		{"not included", "README.md", false, false},
		{"gitignored", "debug.log", false, false},
		{"builtin dir", "node_modules", true, false},
		{"file under builtin dir", "node_modules/x/index.go", false, false},
		{"plain dir ignores include", "pkg", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Selects(dir, tt.rel, tt.isDir, opts))
		})
	}
}

func TestIsBinary(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"text.txt": "hello", "bin.dat": "a\x00b"})

	assert.False(t, IsBinary(filepath.Join(dir, "text.txt")))
	assert.True(t, IsBinary(filepath.Join(dir, "bin.dat")))
	assert.False(t, IsBinary(filepath.Join(dir, "missing")))
}
