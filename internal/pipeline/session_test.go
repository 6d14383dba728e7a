package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/stipple/internal/livereload"
)

const sessionWait = 5 * time.Second

type runningSession struct {
	*Session
	cancel context.CancelFunc
	done   chan error
}

func startSession(t *testing.T, p *Pipeline) *runningSession {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := p.NewSession()
	require.Equal(t, Idle, s.State())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-s.Ready():
	case err := <-done:
		cancel()
		require.FailNow(t, "session ended before it was ready", "%v", err)
	case <-time.After(sessionWait):
		cancel()
		require.FailNow(t, "session never became ready")
	}

	rs := &runningSession{Session: s, cancel: cancel, done: done}
	t.Cleanup(func() { rs.stop(t) })
	return rs
}

func (rs *runningSession) stop(t *testing.T) {
	t.Helper()
	rs.cancel()
	select {
	case err, ok := <-rs.done:
		if ok {
			require.NoError(t, err)
			close(rs.done)
		}
	case <-time.After(sessionWait):
		require.FailNow(t, "session did not stop")
	}
}

// subscribe opens the live-reload stream and returns decoded events.
func subscribe(t *testing.T, rs *runningSession) <-chan livereload.Event {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimSuffix(rs.URL(), "/")+livereload.EventsPath, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := make(chan livereload.Event, 16)
	go func() {
		defer close(events)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			data, ok := strings.CutPrefix(sc.Text(), "data: ")
			if !ok {
				continue
			}
			var ev livereload.Event
			if json.Unmarshal([]byte(data), &ev) == nil {
				events <- ev
			}
		}
	}()

	require.Eventually(t, func() bool { return rs.Hub().Clients() == 1 }, sessionWait, 10*time.Millisecond)
	return events
}

func nextEvent(t *testing.T, events <-chan livereload.Event) livereload.Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "stream closed")
		return ev
	case <-time.After(sessionWait):
		require.FailNow(t, "no live-reload event")
		return livereload.Event{}
	}
}

func builtPipeline(t *testing.T) (*Pipeline, string) {
	t.Helper()
	root := newProject(t)
	p := newPipeline(t, root, Build, &fakeCompiler{})
	require.NoError(t, p.Run(context.Background(), TaskBuild))
	return p, root
}

func TestSessionLifecycle(t *testing.T) {
	p, _ := builtPipeline(t)
	rs := startSession(t, p)

	assert.Equal(t, Watching, rs.State())
	require.NotEmpty(t, rs.URL())

	resp, err := http.Get(rs.URL() + "index.html")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.Contains(t, string(body), "home")
	assert.Contains(t, string(body), livereload.ScriptPath, "pages get the reload client")

	rs.stop(t)
	assert.Equal(t, Stopped, rs.State())

	require.ErrorIs(t, rs.Run(context.Background()), ErrSessionUsed)
	require.Error(t, rs.Trigger(context.Background(), "styles"))
}

func TestSessionTriggerOutsideWatching(t *testing.T) {
	p := newPipeline(t, t.TempDir(), Build, &fakeCompiler{})
	require.Error(t, p.NewSession().Trigger(context.Background(), "styles"))
}

func TestSessionStyleChangeInjectsCSS(t *testing.T) {
	p, root := builtPipeline(t)
	rs := startSession(t, p)
	events := subscribe(t, rs)

	writeProjectFile(t, root, StyleEntry, "b {\n  color: blue;\n}\n")

	ev := nextEvent(t, events)
	assert.Equal(t, livereload.KindCSS, ev.Type)
	assert.Equal(t, StylesheetURL(), ev.Path)
	assert.NotEmpty(t, ev.Hash)
	assert.Eventually(t, func() bool {
		return strings.HasPrefix(readFile(t, filepath.Join(root, "build", StylesheetPath)), "b{color:")
	}, sessionWait, 10*time.Millisecond)
}

func TestSessionSyntaxErrorKeepsWatching(t *testing.T) {
	p, root := builtPipeline(t)
	stylesheet := filepath.Join(root, "build", StylesheetPath)
	before := readFile(t, stylesheet)

	rs := startSession(t, p)
	events := subscribe(t, rs)

	writeProjectFile(t, root, StyleEntry, "@error \"broken\";\n")
	// Longer than the debounce, so the styles reaction has run.
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, rs.Trigger(context.Background(), "icons"))

	assert.Equal(t, livereload.KindReload, nextEvent(t, events).Type, "an unchanged stylesheet is not re-injected")
	assert.Equal(t, Watching, rs.State())
	assert.Equal(t, before, readFile(t, stylesheet))
}

func TestSessionTriggerRunsBinding(t *testing.T) {
	p, _ := builtPipeline(t)
	rs := startSession(t, p)
	events := subscribe(t, rs)

	require.NoError(t, rs.Trigger(context.Background(), "icons"))
	assert.Equal(t, livereload.KindReload, nextEvent(t, events).Type)

	require.Error(t, rs.Trigger(context.Background(), "scripts"))
}

func TestSessionPageChangeReloads(t *testing.T) {
	p, root := builtPipeline(t)
	rs := startSession(t, p)
	events := subscribe(t, rs)

	writeProjectFile(t, root, "source/index.html", "<html><body>updated</body></html>")

	assert.Equal(t, livereload.KindReload, nextEvent(t, events).Type)
	assert.Eventually(t, func() bool {
		return readFile(t, filepath.Join(root, "build/index.html")) == "<html><body>updated</body></html>"
	}, sessionWait, 10*time.Millisecond)
}

func TestSessionOpensBrowser(t *testing.T) {
	root := newProject(t)
	opened := make(chan string, 1)
	p, err := New(Options{
		ProjectDir: root,
		Compiler:   &fakeCompiler{},
		Server:     ServerOptions{Host: "127.0.0.1", Open: true},
		OpenBrowser: func(_ context.Context, url string) error {
			opened <- url
			return nil
		},
	})
	require.NoError(t, err)

	rs := startSession(t, p)
	select {
	case url := <-opened:
		assert.Equal(t, rs.URL(), url)
	case <-time.After(sessionWait):
		require.FailNow(t, "browser not opened")
	}
}

func TestStartTaskBuildsThenServes(t *testing.T) {
	root := newProject(t)
	p := newPipeline(t, root, Build, &fakeCompiler{})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx, TaskStart))
	assert.FileExists(t, filepath.Join(root, "build", StylesheetPath))
	assert.FileExists(t, filepath.Join(root, "build", SpritePath))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "watching", Watching.String())
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "State(7)", State(7).String())
}
