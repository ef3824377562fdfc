package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deckhttp "github.com/scriptdeck/scriptdeck/pkg/adapters/http"
	"github.com/scriptdeck/scriptdeck/pkg/adapters/memory"
	"github.com/scriptdeck/scriptdeck/pkg/catalog"
	"github.com/scriptdeck/scriptdeck/pkg/domain"
	"github.com/scriptdeck/scriptdeck/pkg/observability"
	"github.com/scriptdeck/scriptdeck/pkg/runner"
)

func newTestServer(t *testing.T, opts ...deckhttp.Option) (*deckhttp.Server, *memory.Store) {
	t.Helper()

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "scripts.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(`
scripts:
  - name: install
    path: /opt/install.sh
    description: Install everything
  - name: demo
  - name: debug-dump
    developer_only: true
`), 0o644))

	cat, err := catalog.Load(catalogPath)
	require.NoError(t, err)

	store := memory.New()
	return deckhttp.NewServer(runner.New(), cat, store, opts...), store
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "scriptdeck", body["app"])
}

func TestStatusIdle(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["running"])
	assert.Equal(t, false, body["paused"])
	assert.NotContains(t, body, "exit_code")
}

func TestScriptsFiltersDeveloperOnly(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scripts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "debug-dump")
	assert.Contains(t, rec.Body.String(), "install")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scripts?developer=true", nil))
	assert.Contains(t, rec.Body.String(), "debug-dump")
}

func TestHistoryEndpoint(t *testing.T) {
	srv, store := newTestServer(t)

	rec := domain.RunRecord{ScriptName: "install", StartTime: time.Now()}
	rec.Finalize(domain.RunSuccess, 0, "", rec.StartTime.Add(time.Second))
	require.NoError(t, store.Save(context.Background(), map[string][]domain.RunRecord{
		"install": {rec},
	}))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history/install", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success"`)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history/ghost", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.NewMetrics(reg)

	srv, _ := newTestServer(t, deckhttp.WithMetricsRegistry(reg))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestEventStream(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	ping, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, ping, "ping")

	require.Eventually(t, func() bool {
		return srv.Streams.Count() == 1
	}, time.Second, 10*time.Millisecond)

	srv.BroadcastEvent(domain.ScriptStarted{ScriptName: "install"})

	var data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			data = line
			break
		}
	}
	assert.Contains(t, data, domain.EventScriptStarted)
	assert.Contains(t, data, "install")
}

func TestStreamManagerDropsSlowClients(t *testing.T) {
	sm := deckhttp.NewStreamManager()
	ch, cancel := sm.Subscribe()
	defer cancel()

	for i := 0; i < 100; i++ {
		sm.Broadcast("msg")
	}
	// Buffer capacity bounds delivery; nothing blocks.
	assert.LessOrEqual(t, len(ch), 16)
	assert.Equal(t, 1, sm.Count())
}
