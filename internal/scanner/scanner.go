// Package scanner expands directory arguments into the files the chunk
// command reads. It honors nested .gitignore files and skips dependency
// directories, lock files, likely secrets and binaries.
package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxFileSize is the largest file returned by default (8MB).
const DefaultMaxFileSize = 8 * 1024 * 1024

// ignoreCacheSize bounds the number of parsed .gitignore files kept.
const ignoreCacheSize = 1000

// binarySniffLen is how much of a file is checked for NUL bytes.
const binarySniffLen = 8000

// builtinIgnore applies to every scan, gitignore or not.
var builtinIgnore = ParseIgnore(strings.Join([]string{
	// dependency, build and VCS directories
	".git/", ".hg/", ".svn/", "node_modules/", "vendor/", "__pycache__/",
	".venv/", "dist/", "build/",
	// cloud and SSH credentials
	".aws/", ".gcp/", ".azure/", ".ssh/",
	// generated and lock files
	"*.min.js", "*.min.css", "package-lock.json", "yarn.lock", "pnpm-lock.yaml", "go.sum",
	// secrets
	".env", ".env.*", "*.pem", "*.key", "*.p12", "*.pfx", ".netrc", ".npmrc", ".pypirc",
	"id_rsa", "id_dsa", "id_ecdsa", "id_ed25519",
}, "\n"))

// File is a file selected by a scan.
type File struct {
	// Path is the scan root joined with RelPath.
	Path string
	// RelPath is slash-separated and relative to the scan root.
	RelPath string
	Size    int64
}

// Options configures a scan.
type Options struct {
	// Include restricts results to paths matching any of these gitignore-style
	// patterns ("*.go", "docs/**/*.md"). Empty includes everything.
	Include []string
	// RespectGitignore applies .gitignore files found under the root.
	RespectGitignore bool
	// MaxFileSize skips larger files. Zero means DefaultMaxFileSize.
	MaxFileSize int64
}

// DefaultOptions honors .gitignore with the default size limit.
func DefaultOptions() Options {
	return Options{
		RespectGitignore: true,
		MaxFileSize:      DefaultMaxFileSize,
	}
}

// Scanner walks directories. Parsed .gitignore files are cached across
// scans, so one Scanner should serve a whole command.
type Scanner struct {
	ignoreCache *lru.Cache[string, *Matcher]
	logger      *slog.Logger
}

// New creates a Scanner.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *Matcher](ignoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitignore cache: %w", err)
	}
	return &Scanner{
		ignoreCache: cache,
		logger:      slog.Default(),
	}, nil
}

// Scan returns the selected regular files under root in lexical order.
// Symlinks are not followed.
func (s *Scanner) Scan(ctx context.Context, root string, opts Options) ([]File, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root is not a directory: %s", root)
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	var include *Matcher
	if len(opts.Include) > 0 {
		include = ParseIgnore(strings.Join(opts.Include, "\n"))
	}

	var files []File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			s.logger.Debug("scan_skipped", slog.String("path", path), slog.String("error", walkErr.Error()))
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if s.excluded(root, rel, true, opts) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if s.excluded(root, rel, false, opts) {
			return nil
		}
		if include != nil {
			if ok, _ := include.Match(rel, false); !ok {
				return nil
			}
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if fi.Size() > maxSize {
			s.logger.Debug("scan_skipped_large_file",
				slog.String("path", path),
				slog.Int64("size", fi.Size()))
			return nil
		}
		if IsBinary(path) {
			return nil
		}

		files = append(files, File{Path: path, RelPath: rel, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("scan_completed",
		slog.String("root", root),
		slog.Int("files", len(files)))
	return files, nil
}

// Selects reports whether rel, relative to root, passes the ignore and
// include rules Scan applies. Size and content checks are left to the caller.
func (s *Scanner) Selects(root, rel string, isDir bool, opts Options) bool {
	rel = filepath.ToSlash(rel)
	if s.excluded(root, rel, isDir, opts) {
		return false
	}
	if isDir || len(opts.Include) == 0 {
		return true
	}
	ok, _ := ParseIgnore(strings.Join(opts.Include, "\n")).Match(rel, false)
	return ok
}

// excluded applies the built-in rules, then every .gitignore from the root
// down to rel's parent; deeper files override shallower ones.
func (s *Scanner) excluded(root, rel string, isDir bool, opts Options) bool {
	if ignored, _ := builtinIgnore.Match(rel, isDir); ignored {
		return true
	}
	if !opts.RespectGitignore {
		return false
	}

	parts := strings.Split(rel, "/")
	ignored := false
	for i := range parts {
		dir := strings.Join(parts[:i], "/")
		m := s.gitignore(filepath.Join(root, filepath.FromSlash(dir)))
		if m == nil {
			continue
		}
		if ig, matched := m.Match(strings.Join(parts[i:], "/"), isDir); matched {
			ignored = ig
		}
	}
	return ignored
}

// gitignore returns the parsed .gitignore in dir, or nil when there is none.
func (s *Scanner) gitignore(dir string) *Matcher {
	if m, ok := s.ignoreCache.Get(dir); ok {
		return m
	}

	m, err := LoadIgnoreFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("gitignore_unreadable", slog.String("dir", dir), slog.String("error", err.Error()))
		}
		m = nil
	}
	s.ignoreCache.Add(dir, m)
	return m
}

// Purge forgets cached .gitignore files.
func (s *Scanner) Purge() {
	s.ignoreCache.Purge()
}

// IsBinary reports whether the start of the file contains a NUL byte.
func IsBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, binarySniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}
