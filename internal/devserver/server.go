// Package devserver serves the site output during a watch session.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/cors"

	"github.com/yaklabco/stipple/internal/livereload"
	"github.com/yaklabco/stipple/internal/logging"
)

// MetricsPath is where the Prometheus handler is mounted.
const MetricsPath = "/__stipple/metrics"

// Options configures a Server.
type Options struct {
	// Root is the directory served at "/".
	Root string
	Host string
	// Port 0 picks a free port.
	Port int
	CORS bool
	// Hub enables live reload when set.
	Hub *livereload.Hub
	// Metrics is mounted at MetricsPath when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server is a static file server with optional live reload.
type Server struct {
	opts   Options
	logger *slog.Logger
	srv    *http.Server
	ln     net.Listener
	done   chan error
}

// New returns an unstarted server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{opts: opts, logger: logger}
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	var files http.Handler = http.FileServer(http.Dir(s.opts.Root))
	if s.opts.Hub != nil {
		mux.Handle(livereload.EventsPath, s.opts.Hub)
		mux.Handle(livereload.ScriptPath, livereload.ScriptHandler())
		files = livereload.Inject(files)
	}
	if s.opts.Metrics != nil {
		mux.Handle(MetricsPath, s.opts.Metrics)
	}
	mux.Handle("/", noCache(files))

	var h http.Handler = mux
	if s.opts.CORS {
		h = cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
			AllowedHeaders: []string{"*"},
			MaxAge:         300,
		})(h)
	}
	return h
}

// noCache keeps browsers from serving stale assets between rebuilds.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// Start binds the listener and serves in the background. Bind errors are
// returned here rather than from a goroutine.
func (s *Server) Start(_ context.Context) error {
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.done = make(chan error, 1)

	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()

	s.logger.Info("serving", logging.Dir, s.opts.Root, logging.URL, s.URL())
	return nil
}

// URL is the address browsers should open. It is empty before Start.
func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}
	host := s.opts.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	_, port, _ := net.SplitHostPort(s.ln.Addr().String())
	return "http://" + net.JoinHostPort(host, port) + "/"
}

// Shutdown stops accepting connections and waits for the serve loop.
// Live-reload streams are closed by the hub, not here.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown dev server: %w", err)
	}
	return <-s.done
}
