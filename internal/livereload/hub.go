// Package livereload pushes stylesheet swaps and page reloads to browsers
// over Server-Sent Events.
package livereload

import (
	"bufio"
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/yaklabco/stipple/internal/fsops"
	"github.com/yaklabco/stipple/internal/logging"
	"github.com/yaklabco/stipple/internal/metrics"
)

// Endpoint paths served by the dev server.
const (
	EventsPath = "/__stipple/livereload"
	ScriptPath = "/__stipple/livereload.js"
)

// DefaultHeartbeat is how often idle connections receive a keep-alive comment.
const DefaultHeartbeat = 30 * time.Second

// Event kinds.
const (
	KindCSS    = "css"
	KindReload = "reload"
)

//go:embed client.js
var clientScript []byte

// Event is one message sent to connected browsers.
type Event struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
	Hash string `json:"hash,omitempty"`
}

type client struct {
	id   int
	ch   chan Event
	done chan struct{}
}

// Hub tracks connected browsers. It lives for one dev session.
type Hub struct {
	// Heartbeat overrides DefaultHeartbeat when set before serving.
	Heartbeat time.Duration

	recorder metrics.Recorder
	logger   *slog.Logger

	mu      sync.Mutex
	nextID  int
	clients map[int]*client
	closed  bool
	cssHash map[string]string
}

// NewHub returns an empty hub.
func NewHub(recorder metrics.Recorder, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		Heartbeat: DefaultHeartbeat,
		recorder:  metrics.OrNoop(recorder),
		logger:    logger,
		clients:   map[int]*client{},
		cssHash:   map[string]string{},
	}
}

// ServeHTTP is the event-stream endpoint.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	c := &client{ch: make(chan Event, 8), done: make(chan struct{})}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, "live reload shutting down", http.StatusServiceUnavailable)
		return
	}
	c.id = h.nextID
	h.nextID++
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()

	h.recorder.SetLiveReloadClients(n)
	h.logger.Debug("live reload client connected", logging.Client, c.id, logging.Count, n)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	bw := bufio.NewWriter(w)
	send := func(s string) bool {
		if _, err := bw.WriteString(s); err != nil {
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(": connected\n\n") {
		h.remove(c.id)
		return
	}

	interval := h.Heartbeat
	if interval <= 0 {
		interval = DefaultHeartbeat
	}
	hb := time.NewTicker(interval)
	defer hb.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.remove(c.id)
			return
		case <-c.done:
			return
		case <-hb.C:
			if !send(": ping\n\n") {
				h.remove(c.id)
				return
			}
		case ev := <-c.ch:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if !send("data: " + string(data) + "\n\n") {
				h.remove(c.id)
				return
			}
		}
	}
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(c.done)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.recorder.SetLiveReloadClients(n)
		h.logger.Debug("live reload client gone", logging.Client, id, logging.Count, n)
	}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// InjectCSS tells browsers to swap the stylesheet served at path. Nothing
// is sent when css hashes the same as the last injection for that path.
// It reports whether an event went out.
func (h *Hub) InjectCSS(path string, css []byte) bool {
	hash := fsops.HashString(css)

	h.mu.Lock()
	if h.closed || h.cssHash[path] == hash {
		h.mu.Unlock()
		return false
	}
	h.cssHash[path] = hash
	h.mu.Unlock()

	h.broadcast(Event{Type: KindCSS, Path: path, Hash: hash})
	return true
}

// SeedCSS records css as what browsers already have for path, so a later
// InjectCSS with the same content sends nothing.
func (h *Hub) SeedCSS(path string, css []byte) {
	hash := fsops.HashString(css)
	h.mu.Lock()
	h.cssHash[path] = hash
	h.mu.Unlock()
}

// Reload tells browsers to reload the page.
func (h *Hub) Reload() {
	h.broadcast(Event{Type: KindReload})
}

// broadcast drops clients whose buffers are full.
func (h *Hub) broadcast(ev Event) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	snapshot := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- ev:
		default:
			dropped++
			h.remove(c.id)
		}
	}

	h.recorder.IncLiveReloadEvent(ev.Type)
	h.logger.Debug("live reload broadcast", logging.Event, ev.Type, logging.Count, len(snapshot), "dropped", dropped)
}

// Shutdown disconnects every client. Later broadcasts are ignored.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*client{}
	h.mu.Unlock()

	for _, c := range clients {
		close(c.done)
	}
	h.recorder.SetLiveReloadClients(0)
}

// ScriptHandler serves the browser client.
func ScriptHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(clientScript)
	})
}
