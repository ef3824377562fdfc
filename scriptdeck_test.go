package scriptdeck_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scriptdeck "github.com/scriptdeck/scriptdeck"
	"github.com/scriptdeck/scriptdeck/pkg/adapters/memory"
	"github.com/scriptdeck/scriptdeck/pkg/domain"
	"github.com/scriptdeck/scriptdeck/pkg/runner"
	"github.com/scriptdeck/scriptdeck/pkg/state"
)

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scripts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scripts:
  - name: demo
    description: Simulation demo
`), 0o644))
	return path
}

func newApp(t *testing.T, opts ...scriptdeck.Option) *scriptdeck.App {
	t.Helper()
	base := []scriptdeck.Option{
		scriptdeck.WithCatalogPath(writeCatalog(t)),
		scriptdeck.WithHistoryStore(memory.New()),
		scriptdeck.WithRunnerOptions(runner.WithSimulationDelay(time.Millisecond)),
	}
	app, err := scriptdeck.New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestAppSimulationRun(t *testing.T) {
	app := newApp(t)

	completed := make(chan domain.Event, 1)
	app.Bus().Subscribe(domain.EventScriptCompleted, func(e domain.Event) {
		completed <- e
	})

	require.NoError(t, app.RunScript(context.Background(), "demo"))

	select {
	case e := <-completed:
		ev := e.(domain.ScriptCompleted)
		assert.Equal(t, "demo", ev.ScriptName)
		assert.Equal(t, 0, ev.ExitCode)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not complete")
	}

	snapshot := app.StateSnapshot()
	assert.Equal(t, state.StatusSuccess, snapshot[state.KeyStatus])
	assert.Equal(t, false, snapshot[state.KeyScriptRunning])
}

func TestAppUnknownScript(t *testing.T) {
	app := newApp(t)
	err := app.RunScript(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrScriptNotFound)
}

func TestAppOutputCallback(t *testing.T) {
	app := newApp(t)

	lines := make(chan string, 64)
	app.SetOutputCallback(func(message string, level domain.Level) {
		lines <- string(level) + ":" + message
	})

	done := make(chan struct{})
	app.Bus().Subscribe(domain.EventScriptCompleted, func(domain.Event) {
		close(done)
	})

	require.NoError(t, app.RunScript(context.Background(), "demo"))
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("run did not complete")
	}

	require.Eventually(t, func() bool {
		for {
			select {
			case l := <-lines:
				if l == "success:Simulation finished" {
					return true
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 20*time.Millisecond)
}

func TestAppStatePersistence(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "settings.json")
	catalogPath := writeCatalog(t)

	app, err := scriptdeck.New(
		scriptdeck.WithCatalogPath(catalogPath),
		scriptdeck.WithHistoryStore(memory.New()),
		scriptdeck.WithStatePath(statePath),
	)
	require.NoError(t, err)

	app.SetState(state.KeyTheme, "light")
	app.SetState(state.KeyFontSize, 16)
	require.NoError(t, app.Close())

	reopened, err := scriptdeck.New(
		scriptdeck.WithCatalogPath(catalogPath),
		scriptdeck.WithHistoryStore(memory.New()),
		scriptdeck.WithStatePath(statePath),
	)
	require.NoError(t, err)
	defer reopened.Close()

	snapshot := reopened.StateSnapshot()
	assert.Equal(t, "light", snapshot[state.KeyTheme])
	assert.Equal(t, 16, snapshot[state.KeyFontSize])
}

func TestAppCorruptStateFileFallsBackToDefaults(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(statePath, []byte("{not json"), 0o644))

	app, err := scriptdeck.New(
		scriptdeck.WithCatalogPath(writeCatalog(t)),
		scriptdeck.WithHistoryStore(memory.New()),
		scriptdeck.WithStatePath(statePath),
	)
	require.NoError(t, err, "a broken settings file must not block startup")
	defer app.Close()

	snapshot := app.StateSnapshot()
	assert.Equal(t, state.StatusIdle, snapshot[state.KeyStatus])
}

func TestAppHTTPHandler(t *testing.T) {
	app := newApp(t)

	rec := httptest.NewRecorder()
	app.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	app.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
