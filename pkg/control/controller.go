// Package control wires the runner, output monitor, state manager, event bus
// and history together into the run/stop/pause/resume lifecycle.
//
// All Controller methods and scheduler callbacks must execute on the same
// goroutine; the state manager is not safe for concurrent mutation.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/scriptdeck/scriptdeck/internal/logging"
	"github.com/scriptdeck/scriptdeck/pkg/bus"
	"github.com/scriptdeck/scriptdeck/pkg/domain"
	"github.com/scriptdeck/scriptdeck/pkg/history"
	"github.com/scriptdeck/scriptdeck/pkg/output"
	"github.com/scriptdeck/scriptdeck/pkg/ports"
	"github.com/scriptdeck/scriptdeck/pkg/runner"
	"github.com/scriptdeck/scriptdeck/pkg/state"
)

// PollInterval is the completion-detection cadence.
const PollInterval = 100 * time.Millisecond

// Controller drives the execution lifecycle for the process page.
type Controller struct {
	state     *state.Manager
	bus       *bus.Bus
	runner    *runner.Runner
	monitor   *output.Manager
	history   *history.Manager
	scheduler ports.Scheduler
	logger    *slog.Logger

	pollInterval time.Duration
	pollCancel   ports.CancelFunc
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithPollInterval overrides the completion-poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.pollInterval = d
	}
}

// New creates a Controller over already constructed collaborators.
func New(
	st *state.Manager,
	eventBus *bus.Bus,
	scriptRunner *runner.Runner,
	monitor *output.Manager,
	hist *history.Manager,
	scheduler ports.Scheduler,
	opts ...Option,
) *Controller {
	c := &Controller{
		state:        st,
		bus:          eventBus,
		runner:       scriptRunner,
		monitor:      monitor,
		history:      hist,
		scheduler:    scheduler,
		logger:       logging.NewNop(),
		pollInterval: PollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run starts an execution attempt for the named script. An empty scriptPath
// selects simulation mode; env entries are added to the script's inherited
// environment. Fails fast when a run is already active.
func (c *Controller) Run(ctx context.Context, scriptName, scriptPath string, args []string, env map[string]string) error {
	if c.runner.IsRunning() {
		return domain.ErrAlreadyRunning
	}
	if scriptName == "" {
		return domain.ErrNoScript
	}

	developerMode := c.state.GetBool(state.KeyDeveloperMode, false)

	// Stale output from a previous run must not leak into this session.
	c.runner.ClearOutputQueue()
	c.runner.SetDeveloperMode(developerMode)

	if err := c.runner.Start(scriptPath, args, env, developerMode); err != nil {
		return fmt.Errorf("failed to start %q: %w", scriptName, err)
	}

	c.history.StartRun(scriptName, scriptPath)

	c.state.Update(map[string]any{
		state.KeyScriptName:    scriptName,
		state.KeyScriptPath:    scriptPath,
		state.KeyScriptRunning: true,
		state.KeyStatus:        state.StatusRunning,
	})

	c.monitor.StartMonitoring()
	c.bus.Publish(domain.ScriptStarted{
		ScriptName:    scriptName,
		ScriptPath:    scriptPath,
		DeveloperMode: developerMode,
	})

	c.startPoll(ctx)
	return nil
}

// Stop terminates the active run. For a running script the completion poll
// performs the state/event transition on its next tick, so stopping and
// natural exit share one classification path. A paused run has no poll
// anymore, so its stop is classified here.
func (c *Controller) Stop() {
	wasPaused := c.runner.IsPaused()
	if !c.runner.IsRunning() && !wasPaused {
		return
	}
	c.runner.Stop()

	if wasPaused {
		c.classify(context.Background(), c.state.GetString(state.KeyScriptName, ""))
	}
}

// Continue relaunches a paused run with the resume flag.
func (c *Controller) Continue(ctx context.Context) error {
	if err := c.runner.Resume(); err != nil {
		return err
	}

	c.state.Update(map[string]any{
		state.KeyScriptRunning: true,
		state.KeyStatus:        state.StatusRunning,
	})
	c.monitor.StartMonitoring()
	c.bus.Publish(domain.ScriptResumed{
		ScriptName: c.state.GetString(state.KeyScriptName, ""),
		ScriptPath: c.state.GetString(state.KeyScriptPath, ""),
	})

	c.startPoll(ctx)
	return nil
}

// ClearOutput drops any queued, undelivered lines.
func (c *Controller) ClearOutput() {
	c.runner.ClearOutputQueue()
	c.bus.Publish(domain.OutputCleared{Source: "user"})
}

// startPoll begins the recurring completion check. Any previous poll is
// cancelled first so pause/resume cycles never stack polls.
func (c *Controller) startPoll(ctx context.Context) {
	if c.pollCancel != nil {
		c.pollCancel()
	}
	c.pollCancel = c.scheduler.Repeat(c.pollInterval, func() {
		c.poll(ctx)
	})
}

func (c *Controller) stopPoll() {
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
}

// poll checks whether the run has concluded and, once it has, classifies the
// outcome. Trailing output may land in the same or a later tick than the
// transition; the final flush tolerates that.
func (c *Controller) poll(ctx context.Context) {
	if c.runner.IsRunning() || c.runner.IsAlive() {
		return
	}
	c.stopPoll()

	c.monitor.Flush()
	c.monitor.StopMonitoring()

	scriptName := c.state.GetString(state.KeyScriptName, "")

	if c.runner.IsPaused() {
		// Paused is not completion: history stays open, the run can resume.
		c.state.Update(map[string]any{
			state.KeyScriptRunning: false,
			state.KeyStatus:        state.StatusPaused,
		})
		c.bus.Publish(domain.ScriptPaused{
			ScriptName: scriptName,
			Reason:     "manual review",
		})
		c.logger.Info("run paused for review", "script", scriptName)
		return
	}

	c.classify(ctx, scriptName)
}

// classify maps the runner's terminal flags to status, history and event.
func (c *Controller) classify(ctx context.Context, scriptName string) {
	exitCode, haveCode := c.runner.LastExitCode()
	succeeded, haveOutcome := c.runner.Succeeded()

	var (
		status    string
		runStatus domain.RunStatus
		errMsg    string
		event     domain.Event
	)

	switch {
	case !haveCode || !haveOutcome:
		// Worker died without recording an outcome. Treat as an error but
		// keep the record distinguishable.
		status = state.StatusError
		runStatus = domain.RunUnknown
		errMsg = "script terminated without reporting an exit code"
		event = domain.ScriptError{ScriptName: scriptName, Message: errMsg}

	case exitCode == domain.StopExitCode:
		// User stop is a deliberate outcome, not a failure.
		status = state.StatusIdle
		runStatus = domain.RunStopped
		event = domain.ScriptStopped{ScriptName: scriptName, ExitCode: exitCode}

	case succeeded:
		status = state.StatusSuccess
		runStatus = domain.RunSuccess
		event = domain.ScriptCompleted{
			ScriptName: scriptName,
			Status:     domain.RunSuccess,
			ExitCode:   exitCode,
		}

	default:
		status = state.StatusError
		runStatus = domain.RunError
		errMsg = fmt.Sprintf("script exited with code %d", exitCode)
		event = domain.ScriptError{
			ScriptName: scriptName,
			ExitCode:   exitCode,
			Message:    errMsg,
		}
	}

	if err := c.history.EndRun(ctx, runStatus, exitCode, errMsg); err != nil {
		c.logger.Error("failed to record run history", "err", err)
	}

	c.state.Update(map[string]any{
		state.KeyScriptRunning: false,
		state.KeyStatus:        status,
	})
	c.bus.Publish(event)
	c.logger.Info("run concluded",
		"script", scriptName,
		"status", status,
		"exit_code", exitCode)
}

// IsPolling reports whether the completion poll is active.
func (c *Controller) IsPolling() bool {
	return c.pollCancel != nil
}
