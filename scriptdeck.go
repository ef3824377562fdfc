package scriptdeck

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scriptdeck/scriptdeck/internal/logging"
	"github.com/scriptdeck/scriptdeck/pkg/adapters/file"
	deckhttp "github.com/scriptdeck/scriptdeck/pkg/adapters/http"
	"github.com/scriptdeck/scriptdeck/pkg/adapters/timer"
	"github.com/scriptdeck/scriptdeck/pkg/bus"
	"github.com/scriptdeck/scriptdeck/pkg/catalog"
	"github.com/scriptdeck/scriptdeck/pkg/control"
	"github.com/scriptdeck/scriptdeck/pkg/domain"
	"github.com/scriptdeck/scriptdeck/pkg/history"
	"github.com/scriptdeck/scriptdeck/pkg/observability"
	"github.com/scriptdeck/scriptdeck/pkg/output"
	"github.com/scriptdeck/scriptdeck/pkg/ports"
	"github.com/scriptdeck/scriptdeck/pkg/runner"
	"github.com/scriptdeck/scriptdeck/pkg/state"
)

// App is the assembled coordination core. All state mutation runs on an
// internal single-goroutine loop; the exported methods marshal onto it, so
// App is safe to drive from any goroutine.
type App struct {
	loop       *timer.Loop
	bus        *bus.Bus
	state      *state.Manager
	runner     *runner.Runner
	monitor    *output.Manager
	history    *history.Manager
	controller *control.Controller
	catalog    *catalog.Catalog
	registry   *prometheus.Registry
	logger     *slog.Logger

	statePath   string
	catalogPath string
	store       ports.HistoryStore
	runnerOpts  []runner.Option
	initial     map[string]any
}

// Option configures the App.
type Option func(*App)

// WithLogger sets the structured logger shared by all components.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithCatalogPath loads the script catalog from a YAML or JSON file.
func WithCatalogPath(path string) Option {
	return func(a *App) {
		a.catalogPath = path
	}
}

// WithCatalog injects an already loaded catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(a *App) {
		a.catalog = c
	}
}

// WithHistoryStore injects a history store. The default is a JSON file store.
func WithHistoryStore(store ports.HistoryStore) Option {
	return func(a *App) {
		a.store = store
	}
}

// WithHistoryPath selects the file path of the default history store.
func WithHistoryPath(path string) Option {
	return func(a *App) {
		a.store = file.New(path)
	}
}

// WithStatePath persists UI settings to the given file on Close and restores
// them on New.
func WithStatePath(path string) Option {
	return func(a *App) {
		a.statePath = path
	}
}

// WithInitialState overrides default state values before any persisted state
// is merged.
func WithInitialState(values map[string]any) Option {
	return func(a *App) {
		a.initial = values
	}
}

// WithRunnerOptions forwards options to the script runner.
func WithRunnerOptions(opts ...runner.Option) Option {
	return func(a *App) {
		a.runnerOpts = append(a.runnerOpts, opts...)
	}
}

// New assembles the core. The returned App owns a running loop goroutine;
// call Close to release it.
func New(opts ...Option) (*App, error) {
	a := &App{
		logger: logging.NewNop(),
		store:  file.New(""),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.catalog == nil {
		cat, err := catalog.Load(a.catalogPath)
		if err != nil {
			return nil, err
		}
		a.catalog = cat
	}

	a.bus = bus.New(bus.WithLogger(a.logger))

	stateOpts := []state.Option{state.WithLogger(a.logger)}
	if a.initial != nil {
		stateOpts = append(stateOpts, state.WithInitial(a.initial))
	}
	a.state = state.New(a.bus, stateOpts...)
	if a.statePath != "" {
		// A broken settings file must not keep the app from starting; the
		// run continues on defaults.
		if _, err := a.state.LoadFromFile(a.statePath); err != nil {
			a.logger.Warn("could not restore settings, using defaults",
				"path", a.statePath, "err", err)
		}
	}

	hist, err := history.New(context.Background(), a.store, history.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.history = hist

	runnerOpts := append([]runner.Option{runner.WithLogger(a.logger)}, a.runnerOpts...)
	a.runner = runner.New(runnerOpts...)

	a.loop = timer.NewLoop()
	a.monitor = output.New(a.runner.Output(), a.loop, output.WithLogger(a.logger))
	a.controller = control.New(
		a.state, a.bus, a.runner, a.monitor, a.history, a.loop,
		control.WithLogger(a.logger),
	)

	a.registry = prometheus.NewRegistry()
	observability.NewMetrics(a.registry).Attach(a.bus)

	return a, nil
}

// call runs fn on the loop and waits for it.
func (a *App) call(fn func() error) error {
	errc := make(chan error, 1)
	a.loop.Post(func() {
		errc <- fn()
	})
	return <-errc
}

// RunScript starts the named catalog entry.
func (a *App) RunScript(ctx context.Context, name string) error {
	script, err := a.catalog.Get(name)
	if err != nil {
		return err
	}
	return a.call(func() error {
		return a.controller.Run(ctx, script.Name, script.Path, script.Args, script.Environment)
	})
}

// StopScript terminates the active run.
func (a *App) StopScript() {
	_ = a.call(func() error {
		a.controller.Stop()
		return nil
	})
}

// ContinueScript resumes a run paused for manual review.
func (a *App) ContinueScript(ctx context.Context) error {
	return a.call(func() error {
		return a.controller.Continue(ctx)
	})
}

// ClearOutput drops queued, undelivered output lines.
func (a *App) ClearOutput() {
	_ = a.call(func() error {
		a.controller.ClearOutput()
		return nil
	})
}

// SetOutputCallback registers the sink for drained output lines. The
// callback runs on the loop goroutine.
func (a *App) SetOutputCallback(fn output.Callback) {
	_ = a.call(func() error {
		a.monitor.SetCallback(fn)
		return nil
	})
}

// StateSnapshot returns a copy of the current state map.
func (a *App) StateSnapshot() map[string]any {
	var snapshot map[string]any
	_ = a.call(func() error {
		snapshot = a.state.GetAll()
		return nil
	})
	return snapshot
}

// SetState mutates one state key on the loop.
func (a *App) SetState(key string, value any) {
	_ = a.call(func() error {
		a.state.Set(key, value)
		return nil
	})
}

// Bus exposes the event bus for subscriptions. Handlers run on the loop
// goroutine and must not block.
func (a *App) Bus() *bus.Bus {
	return a.bus
}

// Catalog exposes the loaded script catalog.
func (a *App) Catalog() *catalog.Catalog {
	return a.catalog
}

// History exposes per-script run records and stats. Read it through the loop
// when a run may be concluding.
func (a *App) History() *history.Manager {
	return a.history
}

// Runner exposes the thread-safe status flags.
func (a *App) Runner() *runner.Runner {
	return a.runner
}

// HTTPHandler builds the observation API and wires live event streaming.
func (a *App) HTTPHandler() http.Handler {
	srv := deckhttp.NewServer(a.runner, a.catalog, a.store,
		deckhttp.WithLogger(a.logger),
		deckhttp.WithMetricsRegistry(a.registry),
		deckhttp.WithVersion(Version),
	)
	for _, name := range []string{
		domain.EventScriptStarted,
		domain.EventScriptCompleted,
		domain.EventScriptStopped,
		domain.EventScriptError,
		domain.EventScriptPaused,
		domain.EventScriptResumed,
	} {
		a.bus.Subscribe(name, srv.BroadcastEvent)
	}
	return srv.Handler()
}

// Close stops any active run, persists state when configured, and releases
// the loop.
func (a *App) Close() error {
	if a.runner.IsRunning() {
		a.runner.Stop()
	}

	var err error
	if a.statePath != "" {
		err = a.call(func() error {
			return a.state.SaveToFile(a.statePath)
		})
	}
	a.loop.Stop()
	return err
}
