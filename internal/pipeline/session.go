package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/yaklabco/stipple/internal/devserver"
	"github.com/yaklabco/stipple/internal/livereload"
	"github.com/yaklabco/stipple/internal/logging"
	"github.com/yaklabco/stipple/internal/watch"
)

// State is the lifecycle position of a Session.
type State int

const (
	Idle State = iota
	Watching
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Watching:
		return "watching"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrSessionUsed is returned when Run is called on a session that already ran.
var ErrSessionUsed = errors.New("session already started")

const shutdownTimeout = 5 * time.Second

// Session is one dev-server and watch run. It moves from Idle to Watching
// when Run starts serving and to Stopped when its context ends.
type Session struct {
	p *Pipeline

	mu      sync.Mutex
	state   State
	url     string
	hub     *livereload.Hub
	watcher *watch.Watcher
	ready   chan struct{}
}

// NewSession returns an Idle session.
func (p *Pipeline) NewSession() *Session {
	return &Session{p: p, ready: make(chan struct{})}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready is closed once the session is Watching.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// URL is the dev server address, empty until Watching.
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// ServeRoot is the directory the dev server serves.
func (s *Session) ServeRoot() string {
	return s.p.out("")
}

// Run serves and watches until ctx ends, then tears everything down.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return ErrSessionUsed
	}
	s.mu.Unlock()

	p := s.p
	logger := p.logger

	if err := os.MkdirAll(s.ServeRoot(), 0o755); err != nil {
		return fmt.Errorf("serve root: %w", err)
	}

	hub := livereload.NewHub(p.opts.Recorder, logger)
	if css, err := os.ReadFile(p.out(StylesheetPath)); err == nil {
		hub.SeedCSS(StylesheetURL(), css)
	}
	server := devserver.New(devserver.Options{
		Root:    s.ServeRoot(),
		Host:    p.opts.Server.Host,
		Port:    p.opts.Server.Port,
		CORS:    p.opts.Server.CORS,
		Hub:     hub,
		Metrics: p.opts.MetricsHandler,
		Logger:  logger,
	})

	watcher, err := watch.New(watch.Options{
		Root:     p.opts.ProjectDir,
		Dirs:     []string{SourceDir},
		Debounce: p.opts.Watch.Debounce,
		Policy:   p.opts.Watch.Policy,
		Recorder: p.opts.Recorder,
		Logger:   logger,
	}, s.bindings(hub)...)
	if err != nil {
		return err
	}

	if err := server.Start(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = Watching
	s.url = server.URL()
	s.hub = hub
	s.watcher = watcher
	s.mu.Unlock()

	defer func() {
		// Streams first, or Shutdown waits on them.
		hub.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("dev server shutdown", logging.Error, err)
		}

		s.mu.Lock()
		s.state = Stopped
		s.mu.Unlock()
		logger.Info("session stopped")
	}()

	if p.opts.Server.Open && p.opts.OpenBrowser != nil {
		if err := p.opts.OpenBrowser(ctx, server.URL()); err != nil {
			logger.Warn("could not open browser", logging.URL, server.URL(), logging.Error, err)
		}
	}

	watchErr := make(chan error, 1)
	go func() { watchErr <- watcher.Run(ctx) }()

	close(s.ready)
	logger.Info("watching", logging.Dir, SourceDir, logging.Layout, string(p.opts.Layout))

	return <-watchErr
}

// bindings maps source globs to reactions. Every reaction runs its task
// through the shared runner, so it is logged and counted like a CLI run.
func (s *Session) bindings(hub *livereload.Hub) []watch.Binding {
	p := s.p

	runTask := func(ctx context.Context, name string) error {
		t, err := p.registry.Lookup(name)
		if err != nil {
			return err
		}
		return p.runner.Run(ctx, t)
	}

	styles := watch.Binding{
		Name:     "styles",
		Patterns: []string{StyleGlob},
		React: func(ctx context.Context) error {
			if err := runTask(ctx, TaskCSS); err != nil {
				return err
			}
			// A stylesheet that never compiled has nothing to inject.
			if css, err := os.ReadFile(p.out(StylesheetPath)); err == nil {
				hub.InjectCSS(StylesheetURL(), css)
			}
			return nil
		},
	}

	icons := watch.Binding{
		Name:     "icons",
		Patterns: []string{IconGlob},
		React: func(ctx context.Context) error {
			if err := runTask(ctx, TaskSprite); err != nil {
				return err
			}
			hub.Reload()
			return nil
		},
	}

	pages := watch.Binding{
		Name:     "html",
		Patterns: []string{HTMLGlob},
		React: func(ctx context.Context) error {
			if p.opts.Layout == Build {
				if err := runTask(ctx, TaskHTML); err != nil {
					return err
				}
			}
			hub.Reload()
			return nil
		},
	}

	return []watch.Binding{styles, icons, pages}
}

// Trigger runs the named binding as if its files changed. It is a no-op
// outside Watching.
func (s *Session) Trigger(ctx context.Context, binding string) error {
	s.mu.Lock()
	w := s.watcher
	state := s.state
	s.mu.Unlock()
	if state != Watching || w == nil {
		return fmt.Errorf("trigger %s: session is %s", binding, state)
	}
	return w.Trigger(ctx, binding)
}

// Hub returns the live-reload hub, nil before Watching.
func (s *Session) Hub() *livereload.Hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hub
}
