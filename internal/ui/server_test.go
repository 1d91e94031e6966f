package ui

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	intconfig "github.com/leapstack-labs/rowbrowse/internal/config"
	"github.com/leapstack-labs/rowbrowse/internal/demo"
	"github.com/leapstack-labs/rowbrowse/internal/testutil"
	"github.com/leapstack-labs/rowbrowse/pkg/adapters/sqlite"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	a := sqlite.New(testutil.NewTestLogger(t))
	require.NoError(t, a.Connect(context.Background(), core.AdapterConfig{Type: "sqlite"}))
	t.Cleanup(func() { _ = a.Close() })
	_, err := demo.Seed(context.Background(), a, demo.Options{Events: 12})
	require.NoError(t, err)

	cfg.Backend = a
	if cfg.Views == nil {
		cfg.Views = intconfig.DefaultViews()
	}
	cfg.SessionSecret = "test-secret"
	cfg.Logger = testutil.NewTestLogger(t)

	s, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(s.registry.Close)
	return s
}

func get(t *testing.T, h http.Handler, path string) (*http.Response, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	resp := rec.Result()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t, Config{})

	resp, body := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)

	resp, body = get(t, s.Handler(), "/static/rowbrowse.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "table.rows")

	resp, body = get(t, s.Handler(), "/static/rowbrowse.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "classList.add('resized')")

	resp, body = get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "What are Event Triggers?")
	assert.NotEmpty(t, resp.Header.Get("Set-Cookie"))
	assert.Contains(t, resp.Header.Get("Set-Cookie"), "HttpOnly")
	assert.NotContains(t, resp.Header.Get("Set-Cookie"), "Secure", "serve listens on plain http")
}

func TestServer_SecureCookies(t *testing.T) {
	s := newTestServer(t, Config{SecureCookies: true})
	resp, _ := get(t, s.Handler(), "/")
	assert.Contains(t, resp.Header.Get("Set-Cookie"), "Secure")
}

func TestServer_SessionSurvivesRequests(t *testing.T) {
	s := newTestServer(t, Config{})

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar, Timeout: 10 * time.Second}

	sortBy := func() string {
		t.Helper()
		resp, err := client.Post(srv.URL+"/api/views/event_logs/sort?key=event_logs&column=trigger_name", "", nil)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(b)
	}

	assert.Contains(t, sortBy(), `trigger_name <span class="sort">▲</span>`)
	assert.Contains(t, sortBy(), `trigger_name <span class="sort">▼</span>`, "second click reverses the sort")
	assert.Equal(t, 1, s.registry.Len())
}

func TestServer_ReloadViews(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "rowbrowse.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`views:
  - name: failures
    title: Failed Events
    table: event_logs
    read_only: true
`), 0o600))

	s := newTestServer(t, Config{ConfigFile: cfgFile, Watch: true})
	updates := s.Notifier().Subscribe()
	defer s.Notifier().Unsubscribe(updates)

	s.reloadViews()

	defs := s.registry.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "failures", defs[0].Name)
	assert.True(t, defs[0].ReadOnly)

	select {
	case ev := <-updates:
		assert.True(t, ev.Reload)
	case <-time.After(time.Second):
		t.Fatal("reload was not broadcast")
	}

	// an invalid file keeps the current views
	require.NoError(t, os.WriteFile(cfgFile, []byte(`views:
  - name: broken
`), 0o600))
	s.reloadViews()
	defs = s.registry.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "failures", defs[0].Name)
}

func TestServer_ServeAndWatch(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "rowbrowse.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("views: []\n"), 0o600))

	s := newTestServer(t, Config{Host: "127.0.0.1", Port: 0, ConfigFile: cfgFile, Watch: true})
	updates := s.Notifier().Subscribe()
	defer s.Notifier().Unsubscribe(updates)

	ctx, cancel := context.WithCancel(context.Background())
	addrc := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, func(addr string) { addrc <- addr })
	}()

	var addr string
	select {
	case addr = <-addrc:
	case err := <-done:
		t.Fatalf("server stopped: %v", err)
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(cfgFile, []byte(`views:
  - name: events
    table: event_logs
`), 0o600))

	select {
	case ev := <-updates:
		assert.True(t, ev.Reload)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not picked up")
	}
	_, ok := s.registry.View("events")
	assert.True(t, ok)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
