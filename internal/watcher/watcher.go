// Package watcher reports file changes under a directory tree as debounced
// batches. It is built on fsnotify and watches every selected directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Operation is the kind of change reported for a path.
type Operation int

const (
	// OpCreate is a new file.
	OpCreate Operation = iota
	// OpModify is a write to an existing file.
	OpModify
	// OpDelete is a removed or renamed-away path.
	OpDelete
	// OpGitignoreChange is any change to a .gitignore file.
	OpGitignoreChange
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpGitignoreChange:
		return "GITIGNORE_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a change to one path.
type FileEvent struct {
	// Path is the watched root joined with RelPath.
	Path string
	// RelPath is slash-separated and relative to the root.
	RelPath   string
	Operation Operation
	// IsDir is set for deleted directories.
	IsDir     bool
	Timestamp time.Time
}

// Filter reports whether a root-relative path should be watched or reported.
type Filter func(rel string, isDir bool) bool

// Options configures a Watcher.
type Options struct {
	// DebounceWindow is the quiet time before a batch is emitted.
	DebounceWindow time.Duration
	// Filter selects paths. Nil selects everything.
	Filter Filter
	Logger *slog.Logger
}

// DefaultOptions uses a 200ms debounce window.
func DefaultOptions() Options {
	return Options{DebounceWindow: 200 * time.Millisecond}
}

// Watcher watches one directory tree.
type Watcher struct {
	root   string
	opts   Options
	fs     *fsnotify.Watcher
	deb    *Debouncer
	dirs   map[string]struct{}
	logger *slog.Logger
}

// New registers watches on root and every selected directory below it.
// Events that happen after New returns are reported by Run.
func New(root string, opts Options) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root is not a directory: %s", root)
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultOptions().DebounceWindow
	}
	if opts.Filter == nil {
		opts.Filter = func(string, bool) bool { return true }
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:   root,
		opts:   opts,
		fs:     fsw,
		deb:    NewDebouncer(opts.DebounceWindow),
		dirs:   make(map[string]struct{}),
		logger: logger,
	}
	if _, err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers batches to handle until ctx is done, then releases the
// watches. handle runs on the Run goroutine, one batch at a time.
func (w *Watcher) Run(ctx context.Context, handle func([]FileEvent)) error {
	defer func() { _ = w.Close() }()

	w.logger.Debug("watch_started",
		slog.String("root", w.root),
		slog.Int("dirs", len(w.dirs)))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("watch_overflow", slog.String("root", w.root))
				continue
			}
			w.logger.Warn("watch_error", slog.String("error", err.Error()))
		case batch, ok := <-w.deb.Output():
			if !ok {
				return nil
			}
			handle(batch)
		}
	}
}

// Close releases the watches. Run calls it on return; it is only needed when
// Run is never called. Safe to call more than once.
func (w *Watcher) Close() error {
	w.deb.Stop()
	return w.fs.Close()
}

// Dirs returns the number of watched directories. It must not be called
// while Run is handling directory events.
func (w *Watcher) Dirs() int {
	return len(w.dirs)
}

func (w *Watcher) handleFsnotifyEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || rel == "." {
		return
	}
	rel = filepath.ToSlash(rel)
	name := filepath.Join(w.root, filepath.FromSlash(rel))
	now := time.Now()

	if path.Base(rel) == ".gitignore" && !ev.Has(fsnotify.Chmod) {
		w.deb.Add(FileEvent{Path: name, RelPath: rel, Operation: OpGitignoreChange, Timestamp: now})
		return
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		_, isDir := w.dirs[name]
		if isDir {
			w.forgetDir(name)
		}
		if !isDir && !w.opts.Filter(rel, false) {
			return
		}
		w.deb.Add(FileEvent{Path: name, RelPath: rel, Operation: OpDelete, IsDir: isDir, Timestamp: now})

	case ev.Has(fsnotify.Create):
		info, err := os.Lstat(name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if !w.opts.Filter(rel, true) {
				return
			}
			files, err := w.addRecursive(name)
			if err != nil {
				w.logger.Warn("watch_add_failed", slog.String("path", name), slog.String("error", err.Error()))
			}
			for _, f := range files {
				w.deb.Add(FileEvent{Path: f, RelPath: w.rel(f), Operation: OpCreate, Timestamp: now})
			}
			return
		}
		if info.Mode().IsRegular() && w.opts.Filter(rel, false) {
			w.deb.Add(FileEvent{Path: name, RelPath: rel, Operation: OpCreate, Timestamp: now})
		}

	case ev.Has(fsnotify.Write):
		if w.opts.Filter(rel, false) {
			w.deb.Add(FileEvent{Path: name, RelPath: rel, Operation: OpModify, Timestamp: now})
		}
	}
}

// addRecursive watches dir and its selected subdirectories. It returns the
// selected regular files found on the way, which may predate the watch.
func (w *Watcher) addRecursive(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		rel := w.rel(p)
		if d.IsDir() {
			if rel != "." && !w.opts.Filter(rel, true) {
				return filepath.SkipDir
			}
			if err := w.fs.Add(p); err != nil {
				return fmt.Errorf("failed to watch %s: %w", p, err)
			}
			w.dirs[p] = struct{}{}
			return nil
		}
		if d.Type().IsRegular() && w.opts.Filter(rel, false) {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

// forgetDir drops bookkeeping for a removed directory and everything below.
// fsnotify removes the watches itself.
func (w *Watcher) forgetDir(dir string) {
	prefix := dir + string(filepath.Separator)
	for d := range w.dirs {
		if d == dir || len(d) > len(prefix) && d[:len(prefix)] == prefix {
			delete(w.dirs, d)
		}
	}
}

func (w *Watcher) rel(p string) string {
	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}
