package control

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptdeck/scriptdeck/internal/testutils"
	"github.com/scriptdeck/scriptdeck/pkg/adapters/memory"
	"github.com/scriptdeck/scriptdeck/pkg/bus"
	"github.com/scriptdeck/scriptdeck/pkg/domain"
	"github.com/scriptdeck/scriptdeck/pkg/history"
	"github.com/scriptdeck/scriptdeck/pkg/output"
	"github.com/scriptdeck/scriptdeck/pkg/runner"
	"github.com/scriptdeck/scriptdeck/pkg/state"
)

type fixture struct {
	controller *Controller
	state      *state.Manager
	bus        *bus.Bus
	runner     *runner.Runner
	history    *history.Manager
	scheduler  *testutils.ManualScheduler

	events []domain.Event
	lines  []string
}

func newFixture(t *testing.T, runnerOpts ...runner.Option) *fixture {
	t.Helper()

	f := &fixture{
		bus:       bus.New(),
		scheduler: testutils.NewManualScheduler(),
	}
	f.state = state.New(f.bus)
	f.runner = runner.New(runnerOpts...)

	monitor := output.New(f.runner.Output(), f.scheduler)
	monitor.SetCallback(func(message string, level domain.Level) {
		f.lines = append(f.lines, string(level)+":"+message)
	})

	var err error
	f.history, err = history.New(context.Background(), memory.New())
	require.NoError(t, err)

	f.controller = New(f.state, f.bus, f.runner, monitor, f.history, f.scheduler)

	record := func(e domain.Event) { f.events = append(f.events, e) }
	for _, name := range []string{
		domain.EventScriptStarted,
		domain.EventScriptCompleted,
		domain.EventScriptStopped,
		domain.EventScriptError,
		domain.EventScriptPaused,
		domain.EventScriptResumed,
		domain.EventOutputCleared,
	} {
		f.bus.Subscribe(name, record)
	}
	return f
}

// settle waits for the worker to exit, then ticks the scheduler until the
// poll has classified the outcome.
func (f *fixture) settle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !f.runner.IsAlive()
	}, 5*time.Second, 10*time.Millisecond, "worker did not finish")
	f.scheduler.TickUntil(t, func() bool {
		return !f.controller.IsPolling()
	}, 10)
}

func (f *fixture) eventNames() []string {
	names := make([]string, len(f.events))
	for i, e := range f.events {
		names[i] = e.EventName()
	}
	return names
}

func TestRunRequiresScriptName(t *testing.T) {
	f := newFixture(t)
	err := f.controller.Run(context.Background(), "", "", nil, nil)
	require.ErrorIs(t, err, domain.ErrNoScript)
}

func TestRunMissingScriptFailsFast(t *testing.T) {
	f := newFixture(t)
	err := f.controller.Run(context.Background(), "ghost", "/nonexistent.sh", nil, nil)
	require.ErrorIs(t, err, domain.ErrScriptNotFound)
	assert.Empty(t, f.events)
	assert.Equal(t, state.StatusIdle, f.state.GetString(state.KeyStatus, ""))
}

func TestRunWhileRunning(t *testing.T) {
	f := newFixture(t, runner.WithSimulationDelay(time.Hour), runner.WithGraceTimeout(50*time.Millisecond))
	require.NoError(t, f.controller.Run(context.Background(), "demo", "", nil, nil))
	defer f.controller.Stop()

	err := f.controller.Run(context.Background(), "demo", "", nil, nil)
	require.ErrorIs(t, err, domain.ErrAlreadyRunning)
}

func TestSimulationLifecycle(t *testing.T) {
	f := newFixture(t, runner.WithSimulationDelay(time.Millisecond))
	ctx := context.Background()

	require.NoError(t, f.controller.Run(ctx, "demo", "", nil, nil))

	assert.True(t, f.state.GetBool(state.KeyScriptRunning, false))
	assert.Equal(t, state.StatusRunning, f.state.GetString(state.KeyStatus, ""))

	f.settle(t)

	assert.False(t, f.state.GetBool(state.KeyScriptRunning, false))
	assert.Equal(t, state.StatusSuccess, f.state.GetString(state.KeyStatus, ""))
	assert.Equal(t, []string{domain.EventScriptStarted, domain.EventScriptCompleted}, f.eventNames())

	// Output carries an info line before the final success line.
	var infoIdx, successIdx = -1, -1
	for i, l := range f.lines {
		if infoIdx < 0 && l == "info:Checking environment..." {
			infoIdx = i
		}
		if l == "success:Simulation finished" {
			successIdx = i
		}
	}
	require.GreaterOrEqual(t, infoIdx, 0)
	require.Greater(t, successIdx, infoIdx)

	records := f.history.Records("demo")
	require.Len(t, records, 1)
	assert.Equal(t, domain.RunSuccess, records[0].Status)
}

func TestStopMapsToIdle(t *testing.T) {
	path := testutils.WriteScript(t, t.TempDir(), "slow.sh", "sleep 5\n")
	f := newFixture(t, runner.WithGraceTimeout(200*time.Millisecond))
	ctx := context.Background()

	require.NoError(t, f.controller.Run(ctx, "slow", path, nil, nil))
	f.controller.Stop()
	f.settle(t)

	assert.Equal(t, state.StatusIdle, f.state.GetString(state.KeyStatus, ""))
	assert.False(t, f.state.GetBool(state.KeyScriptRunning, false))
	assert.Equal(t, []string{domain.EventScriptStarted, domain.EventScriptStopped}, f.eventNames())

	records := f.history.Records("slow")
	require.Len(t, records, 1)
	assert.Equal(t, domain.RunStopped, records[0].Status)
	assert.Equal(t, domain.StopExitCode, records[0].ExitCode)
}

func TestErrorExit(t *testing.T) {
	path := testutils.WriteScript(t, t.TempDir(), "fail.sh", "echo oops >&2\nexit 3\n")
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.controller.Run(ctx, "fail", path, nil, nil))
	f.settle(t)

	assert.Equal(t, state.StatusError, f.state.GetString(state.KeyStatus, ""))
	require.Equal(t, []string{domain.EventScriptStarted, domain.EventScriptError}, f.eventNames())

	errEvent := f.events[1].(domain.ScriptError)
	assert.Equal(t, 3, errEvent.ExitCode)

	assert.Contains(t, f.lines, "error:oops")

	records := f.history.Records("fail")
	require.Len(t, records, 1)
	assert.Equal(t, domain.RunError, records[0].Status)
}

func TestPauseThenContinue(t *testing.T) {
	body := `for arg in "$@"; do
  if [ "$arg" = "--resume" ]; then
    echo "[SUCCESS] resumed"
    exit 0
  fi
done
echo "[INFO] pausing"
exit 99
`
	path := testutils.WriteScript(t, t.TempDir(), "pause.sh", body)
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.controller.Run(ctx, "pause", path, nil, nil))
	f.settle(t)

	assert.Equal(t, state.StatusPaused, f.state.GetString(state.KeyStatus, ""))
	assert.False(t, f.state.GetBool(state.KeyScriptRunning, false))
	assert.Equal(t, []string{domain.EventScriptStarted, domain.EventScriptPaused}, f.eventNames())
	assert.Empty(t, f.history.Records("pause"), "a pause must not close the history record")

	require.NoError(t, f.controller.Continue(ctx))
	assert.Equal(t, state.StatusRunning, f.state.GetString(state.KeyStatus, ""))

	f.settle(t)

	assert.Equal(t, state.StatusSuccess, f.state.GetString(state.KeyStatus, ""))
	assert.Equal(t, []string{
		domain.EventScriptStarted,
		domain.EventScriptPaused,
		domain.EventScriptResumed,
		domain.EventScriptCompleted,
	}, f.eventNames())

	records := f.history.Records("pause")
	require.Len(t, records, 1)
	assert.Equal(t, domain.RunSuccess, records[0].Status)

	assert.Contains(t, f.lines, "info:pausing")
	assert.Contains(t, f.lines, "success:resumed")
}

func TestStopWhilePaused(t *testing.T) {
	body := `echo "[INFO] pausing"
exit 99
`
	path := testutils.WriteScript(t, t.TempDir(), "pause.sh", body)
	f := newFixture(t)

	require.NoError(t, f.controller.Run(context.Background(), "pause", path, nil, nil))
	f.settle(t)
	require.Equal(t, state.StatusPaused, f.state.GetString(state.KeyStatus, ""))

	// No poll is active anymore; Stop itself must conclude the run.
	f.controller.Stop()

	assert.Equal(t, state.StatusIdle, f.state.GetString(state.KeyStatus, ""))
	assert.False(t, f.controller.IsPolling())
	assert.Equal(t, []string{
		domain.EventScriptStarted,
		domain.EventScriptPaused,
		domain.EventScriptStopped,
	}, f.eventNames())

	records := f.history.Records("pause")
	require.Len(t, records, 1)
	assert.Equal(t, domain.RunStopped, records[0].Status)
	assert.Equal(t, domain.StopExitCode, records[0].ExitCode)
}

func TestContinueWithoutPause(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.controller.Continue(context.Background()), domain.ErrNotPaused)
}

func TestClearOutput(t *testing.T) {
	f := newFixture(t)
	f.runner.Output().Push(domain.OutputLine{Level: domain.LevelInfo, Message: "stale"})

	f.controller.ClearOutput()

	assert.Equal(t, 0, f.runner.Output().Len())
	require.Len(t, f.events, 1)
	assert.Equal(t, domain.EventOutputCleared, f.events[0].EventName())
}

func TestStopWhenIdleIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.controller.Stop()
	assert.Empty(t, f.events)
}
