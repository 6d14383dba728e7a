// Package watch maps filesystem changes under a project directory onto
// reactions, one single-slot queue per binding.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yaklabco/stipple/internal/fsops"
	"github.com/yaklabco/stipple/internal/logging"
	"github.com/yaklabco/stipple/internal/metrics"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 100 * time.Millisecond

// Binding ties glob patterns, relative to the watcher root, to a reaction.
type Binding struct {
	Name     string
	Patterns []string
	React    func(ctx context.Context) error
}

// Options configures a Watcher.
type Options struct {
	// Root is the directory patterns are relative to.
	Root string
	// Dirs are the directories below Root to watch recursively. Empty
	// means Root itself.
	Dirs     []string
	Debounce time.Duration
	Policy   Policy
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

type binding struct {
	Binding
	matcher fsops.Matcher
	slot    *Slot

	mu    sync.Mutex
	timer *time.Timer
}

// Watcher runs reactions for matching filesystem events.
type Watcher struct {
	opts     Options
	bindings []*binding
	exec     sync.Mutex
	recorder metrics.Recorder
	logger   *slog.Logger

	mu     sync.Mutex
	fs     *fsnotify.Watcher
	closed bool
}

// New compiles the bindings. Reactions of every binding share one
// executor lock, so no two of them overlap.
func New(opts Options, bindings ...Binding) (*Watcher, error) {
	if opts.Debounce < 0 {
		return nil, fmt.Errorf("negative debounce %s", opts.Debounce)
	}
	if opts.Policy == "" {
		opts.Policy = Coalesce
	}
	if _, err := ParsePolicy(string(opts.Policy)); err != nil {
		return nil, err
	}

	w := &Watcher{
		opts:     opts,
		recorder: metrics.OrNoop(opts.Recorder),
		logger:   opts.Logger,
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	for _, bnd := range bindings {
		m, err := fsops.CompileAll(bnd.Patterns...)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", bnd.Name, err)
		}
		b := &binding{Binding: bnd, matcher: m}
		b.slot = NewSlot(opts.Policy, &w.exec, w.reaction(b))
		w.bindings = append(w.bindings, b)
	}

	return w, nil
}

func (w *Watcher) reaction(b *binding) func(ctx context.Context) {
	return func(ctx context.Context) {
		if ctx.Err() != nil {
			return
		}
		if err := b.React(ctx); err != nil {
			w.logger.Error("reaction failed", logging.Binding, b.Name, logging.Error, err)
		}
	}
}

// Run watches until ctx is done, then waits for in-flight reactions.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	w.mu.Lock()
	w.fs = fsw
	w.mu.Unlock()

	dirs := w.opts.Dirs
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	for _, d := range dirs {
		if err := w.addRecursive(filepath.Join(w.opts.Root, d)); err != nil {
			_ = fsw.Close()
			return err
		}
	}

	w.logger.Debug("watching", logging.Dir, w.opts.Root, logging.Policy, string(w.opts.Policy))

	defer w.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logging.Error, err)
		}
	}
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	if w.fs != nil {
		_ = w.fs.Close()
	}
	w.mu.Unlock()

	for _, b := range w.bindings {
		b.mu.Lock()
		if b.timer != nil {
			b.timer.Stop()
		}
		b.mu.Unlock()
	}
	for _, b := range w.bindings {
		b.slot.Wait()
	}
}

func (w *Watcher) addRecursive(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && ShouldIgnore(path) {
			return fs.SkipDir
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.fs == nil || w.closed {
			return fs.SkipAll
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Warn("watch add failed", logging.Dir, path, logging.Error, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	return nil
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if ShouldIgnore(ev.Name) {
		return
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(ev.Name)
			return
		}
	}

	rel, err := filepath.Rel(w.opts.Root, ev.Name)
	if err != nil || !fsops.Within(w.opts.Root, ev.Name) {
		return
	}
	rel = filepath.ToSlash(rel)

	for _, b := range w.bindings {
		if b.matcher.Match(rel) {
			w.logger.Debug("change", logging.Path, rel, logging.Event, ev.Op.String(), logging.Binding, b.Name)
			w.schedule(ctx, b)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, b *binding) {
	debounce := w.opts.Debounce
	if debounce == 0 {
		w.fire(ctx, b)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(debounce, func() { w.fire(ctx, b) })
}

func (w *Watcher) fire(ctx context.Context, b *binding) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed || ctx.Err() != nil {
		return
	}

	outcome := b.slot.Trigger(ctx)
	w.recorder.IncWatchTrigger(b.Name, outcome.String())
	if outcome == Rejected {
		w.logger.Info("change dropped while reaction runs", logging.Binding, b.Name)
		return
	}
	w.logger.Debug("trigger", logging.Binding, b.Name, "outcome", outcome.String())
}

// Trigger schedules the named binding as if one of its files changed.
func (w *Watcher) Trigger(ctx context.Context, name string) error {
	for _, b := range w.bindings {
		if b.Name == name {
			w.schedule(ctx, b)
			return nil
		}
	}
	return fmt.Errorf("no binding named %q", name)
}
