// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a project when files under its directory change.
//
// Filesystem events are filtered through doublestar globs and coalesced over a
// debounce window, so an editor save or a checkpoint burst triggers a single
// rerun carrying every changed path.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Options.Debounce is unset.
const DefaultDebounce = 500 * time.Millisecond

var (
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watcher already running")
	// ErrInvalidPattern is wrapped by pattern validation errors.
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// alwaysIgnored covers the scratch directory, VCS metadata and the files
	// Python tooling rewrites on every import.
	alwaysIgnored = []string{
		".afml/**",
		"**/.git/**",
		"**/__pycache__/**",
		"**/*.pyc",
		"**/.venv/**",
		"**/.ipynb_checkpoints/**",
		"**/*.swp",
		"**/*~",
		"**/.DS_Store",
	}
)

type (
	// Options configures a Watcher.
	Options struct {
		// Dir is the watched root; empty means the working directory.
		Dir string
		// Patterns select the files that trigger a rerun. Empty matches all.
		Patterns []string
		// Ignore extends the built-in ignore list.
		Ignore   []string
		Debounce time.Duration
		// ClearScreen writes an ANSI clear sequence to Out before each rerun.
		ClearScreen bool
		Out         io.Writer
		// OnChange receives the changed paths relative to Dir, sorted.
		OnChange func(ctx context.Context, changed []string) error
	}

	// Watcher watches a directory tree. Run may be called once.
	Watcher struct {
		opts    Options
		root    string
		ignore  []string
		fsw     *fsnotify.Watcher
		started atomic.Bool

		mu      sync.Mutex
		pending map[string]struct{}
		timer   *time.Timer
		busy    atomic.Bool
	}
)

// Validate checks every glob pattern.
func (o Options) Validate() error {
	var errs []error
	for _, p := range slices.Concat(o.Patterns, o.Ignore) {
		if p == "" || !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidPattern, p))
		}
	}
	return errors.Join(errs...)
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string { return slices.Clone(alwaysIgnored) }

// New validates opts and registers every non-ignored directory under Dir.
func New(opts Options) (*Watcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving watch directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	w := &Watcher{
		opts:    opts,
		root:    root,
		ignore:  slices.Concat(alwaysIgnored, opts.Ignore),
		fsw:     fsw,
		pending: make(map[string]struct{}),
	}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run dispatches debounced callbacks until ctx is done. A callback that is
// still running when the next batch is due postpones that batch.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer w.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("file watcher event channel closed")
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("file watcher error channel closed")
			}
			if isFatal(err) {
				return fmt.Errorf("file watcher failed: %w", err)
			}
			slog.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	rel := w.relative(ev.Name)
	if w.ignored(rel) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				slog.Warn("cannot watch new directory", "path", rel, "error", err)
			}
		}
	}
	if !w.selected(rel) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[rel] = struct{}{}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.opts.Debounce, func() { w.flush(ctx) })
		return
	}
	w.timer.Reset(w.opts.Debounce)
}

func (w *Watcher) flush(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !w.busy.CompareAndSwap(false, true) {
		slog.Debug("rerun still in progress, postponing")
		w.mu.Lock()
		w.timer.Reset(w.opts.Debounce)
		w.mu.Unlock()
		return
	}
	defer w.busy.Store(false)

	w.mu.Lock()
	changed := slices.Sorted(maps.Keys(w.pending))
	clear(w.pending)
	w.mu.Unlock()
	if len(changed) == 0 || w.opts.OnChange == nil {
		return
	}

	if w.opts.ClearScreen {
		fmt.Fprint(w.opts.Out, "\033[2J\033[H")
	}
	if err := w.opts.OnChange(ctx, changed); err != nil {
		slog.Error("rerun failed", "error", err)
	}
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	if err := w.fsw.Close(); err != nil {
		slog.Warn("closing file watcher", "error", err)
	}
}

// addTree registers dir and its non-ignored subdirectories. Unreadable
// directories are skipped.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			slog.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel := w.relative(path); rel != "." && (w.ignored(rel) || w.ignored(rel+"/")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) relative(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) ignored(rel string) bool { return matchAny(w.ignore, rel) }

func (w *Watcher) selected(rel string) bool {
	return len(w.opts.Patterns) == 0 || matchAny(w.opts.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}
