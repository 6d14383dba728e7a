package livereload

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/stipple/internal/metrics"
)

type recordingMetrics struct {
	metrics.NoopRecorder
	events []string
}

func (r *recordingMetrics) IncLiveReloadEvent(kind string) { r.events = append(r.events, kind) }

// connect opens an event stream and waits until the hub has registered it.
func connect(t *testing.T, hub *Hub, srv *httptest.Server) *bufio.Reader {
	t.Helper()

	before := hub.Clients()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Eventually(t, func() bool { return hub.Clients() > before }, time.Second, 5*time.Millisecond)

	return bufio.NewReader(resp.Body)
}

func readData(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
}

func TestHubBroadcast(t *testing.T) {
	rec := &recordingMetrics{}
	hub := NewHub(rec, nil)
	defer hub.Shutdown()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	r := connect(t, hub, srv)

	require.True(t, hub.InjectCSS("/css/style.min.css", []byte("a{color:red}")))
	data := readData(t, r)
	assert.Contains(t, data, `"type":"css"`)
	assert.Contains(t, data, `"path":"/css/style.min.css"`)
	assert.Contains(t, data, `"hash":"`)

	hub.Reload()
	assert.JSONEq(t, `{"type":"reload"}`, readData(t, r))

	assert.Equal(t, []string{KindCSS, KindReload}, rec.events)
}

func TestHubSkipsUnchangedCSS(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Shutdown()

	assert.True(t, hub.InjectCSS("/css/style.min.css", []byte("a{}")))
	assert.False(t, hub.InjectCSS("/css/style.min.css", []byte("a{}")))
	assert.True(t, hub.InjectCSS("/css/style.min.css", []byte("b{}")))
	assert.True(t, hub.InjectCSS("/css/other.css", []byte("b{}")))
}

func TestHubSeededCSSIsNotResent(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.SeedCSS("/css/style.min.css", []byte("a{}"))
	assert.False(t, hub.InjectCSS("/css/style.min.css", []byte("a{}")))
	assert.True(t, hub.InjectCSS("/css/style.min.css", []byte("b{}")))
}

func TestHubHeartbeat(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.Heartbeat = 10 * time.Millisecond
	defer hub.Shutdown()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	r := connect(t, hub, srv)
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if line == ": ping\n" {
			return
		}
	}
}

func TestHubShutdown(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	r := connect(t, hub, srv)
	hub.Shutdown()

	_, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, 0, hub.Clients())
	assert.False(t, hub.InjectCSS("/css/style.min.css", []byte("a{}")))

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestInjectHTML(t *testing.T) {
	out, ok := InjectHTML([]byte("<html><BODY><p>x</p></BODY></html>"))
	require.True(t, ok)
	assert.Equal(t, "<html><BODY><p>x</p>"+ScriptTag+"</BODY></html>", string(out))

	again, ok := InjectHTML(out)
	assert.False(t, ok)
	assert.Equal(t, out, again)

	_, ok = InjectHTML([]byte("<p>fragment</p>"))
	assert.False(t, ok)
}

func TestInjectMiddleware(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/index.html", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Length", "28")
		_, _ = io.WriteString(w, "<html><body>hi</body></html>")
	})
	mux.HandleFunc("/style.css", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		_, _ = io.WriteString(w, "</body>")
	})
	mux.HandleFunc("/missing.html", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "<body>gone</body>")
	})

	srv := httptest.NewServer(Inject(mux))
	defer srv.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	code, body := get("/index.html")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "<html><body>hi"+ScriptTag+"</body></html>", body)

	_, body = get("/style.css")
	assert.Equal(t, "</body>", body)

	code, body = get("/missing.html")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "<body>gone</body>", body)
}

func TestScriptHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	ScriptHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, ScriptPath, nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "javascript")
	assert.Contains(t, rr.Body.String(), EventsPath)
}
