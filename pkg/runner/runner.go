// Package runner executes one script at a time on a background worker
// goroutine, supervising a child process (or an in-process simulation) and
// streaming its leveled output through a thread-safe queue.
//
// Status flags follow a single-writer discipline: the worker is the only
// writer during a run, and the foreground only reads. The exception is Stop,
// which is the terminal operation for a run and claims the flags under the
// lock.
package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/scriptdeck/scriptdeck/internal/logging"
	"github.com/scriptdeck/scriptdeck/pkg/domain"
)

const (
	defaultGraceTimeout = 2 * time.Second
	defaultJoinTimeout  = 2 * time.Second
)

// Runner owns the lifecycle of script executions. The zero value is not
// usable; construct with New.
type Runner struct {
	mu sync.Mutex

	queue  *Queue
	logger *slog.Logger

	running       bool
	paused        bool
	stopRequested bool
	exitCode      *int
	succeeded     *bool
	developerMode bool

	scriptPath string
	args       []string
	env        map[string]string

	proc   *os.Process
	cancel context.CancelFunc
	done   chan struct{}

	graceTimeout time.Duration
	joinTimeout  time.Duration

	simScript []SimStep
	simDelay  time.Duration
}

// Option configures the Runner.
type Option func(*Runner)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithQueueLimit bounds the output queue; the oldest lines are dropped on
// overflow. Zero means unbounded.
func WithQueueLimit(limit int) Option {
	return func(r *Runner) {
		r.queue = NewQueue(limit)
	}
}

// WithGraceTimeout sets how long Stop waits between the graceful signal and
// the force kill.
func WithGraceTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.graceTimeout = d
	}
}

// WithJoinTimeout bounds how long Stop waits for the worker to exit.
func WithJoinTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.joinTimeout = d
	}
}

// WithSimulationScript replaces the built-in demo sequence used for
// simulation runs.
func WithSimulationScript(steps []SimStep) Option {
	return func(r *Runner) {
		r.simScript = steps
	}
}

// WithSimulationDelay scales the pacing of the built-in simulation.
func WithSimulationDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.simDelay = d
	}
}

// New creates an idle Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		queue:        NewQueue(0),
		logger:       logging.NewNop(),
		graceTimeout: defaultGraceTimeout,
		joinTimeout:  defaultJoinTimeout,
		simDelay:     200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches a run. An empty scriptPath selects the in-process
// simulation; otherwise the path must exist. env entries are added to the
// child's inherited environment. Fails fast with domain.ErrAlreadyRunning
// while a run is in progress.
func (r *Runner) Start(scriptPath string, args []string, env map[string]string, developerMode bool) error {
	return r.start(scriptPath, args, env, developerMode, false)
}

// Resume relaunches a paused run with the resume flag appended. Fails with
// domain.ErrNotPaused when no pause is active.
func (r *Runner) Resume() error {
	r.mu.Lock()
	if !r.paused {
		r.mu.Unlock()
		return domain.ErrNotPaused
	}
	path := r.scriptPath
	args := make([]string, len(r.args))
	copy(args, r.args)
	env := r.env
	dev := r.developerMode
	r.mu.Unlock()

	return r.start(path, append(args, domain.ResumeFlag), env, dev, true)
}

func (r *Runner) start(scriptPath string, args []string, env map[string]string, developerMode bool, resume bool) error {
	if scriptPath != "" {
		if _, err := os.Stat(scriptPath); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: %s", domain.ErrScriptNotFound, scriptPath)
			}
			return fmt.Errorf("failed to stat script: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return domain.ErrAlreadyRunning
	}

	r.running = true
	r.paused = false
	r.stopRequested = false
	r.developerMode = developerMode
	r.scriptPath = scriptPath
	if !resume {
		// A fresh start resets the previous outcome; a resume keeps the
		// original invocation so the eventual exit supersedes the pause.
		r.args = make([]string, len(args))
		copy(r.args, args)
		r.env = env
		r.exitCode = nil
		r.succeeded = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	done := r.done
	if scriptPath == "" {
		go r.runSimulation(ctx, done)
	} else {
		go r.runProcess(scriptPath, args, env, done)
	}

	r.logger.Info("script started", "path", scriptPath, "resume", resume, "developer_mode", developerMode)
	return nil
}

// Stop requests cooperative cancellation, escalates to interrupt/kill for a
// real child process, and always records the run as user-terminated:
// exit code -1, succeeded false, even if the process had already exited.
// The worker is joined with a bounded timeout.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.stopRequested = true
	r.running = false
	r.paused = false
	code := domain.StopExitCode
	r.exitCode = &code
	succeeded := false
	r.succeeded = &succeeded

	cancel := r.cancel
	proc := r.proc
	done := r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if proc != nil {
		// The whole process group is signaled: descendants inherit the
		// output pipes, and a surviving one would keep the readers blocked.
		if err := interruptProcessGroup(proc); err != nil {
			_ = killProcessGroup(proc)
		}
	}

	if done != nil {
		select {
		case <-done:
		case <-time.After(r.graceTimeout):
			if proc != nil {
				r.logger.Warn("process group ignored interrupt, killing", "pid", proc.Pid)
				_ = killProcessGroup(proc)
			}
		}
		select {
		case <-done:
		case <-time.After(r.joinTimeout):
			r.logger.Warn("worker did not exit within join timeout")
		}
	}
	r.logger.Info("script stopped by user")
}

// runProcess supervises one child process: spawn, stream stdout/stderr,
// classify the exit. Failures are converted to ERROR output plus terminal
// status; the worker never crashes.
func (r *Runner) runProcess(scriptPath string, args []string, env map[string]string, done chan struct{}) {
	defer close(done)

	cmd := exec.Command(scriptPath, args...)
	setProcessGroup(cmd)
	if len(env) > 0 {
		environ := os.Environ()
		for k, v := range env {
			environ = append(environ, k+"="+v)
		}
		cmd.Env = environ
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		r.failRun(fmt.Sprintf("Failed to open stdout: %v", err))
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		r.failRun(fmt.Sprintf("Failed to open stderr: %v", err))
		return
	}

	if err := cmd.Start(); err != nil {
		r.failRun(fmt.Sprintf("Failed to start script: %v", err))
		return
	}

	r.mu.Lock()
	r.proc = cmd.Process
	r.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.streamStdout(stdout)
	}()
	go func() {
		defer wg.Done()
		r.streamStderr(stderr)
	}()
	wg.Wait()

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			r.failRun(fmt.Sprintf("Script execution failed: %v", err))
			return
		}
	}

	r.finalize(exitCode)
}

// streamStdout parses each stdout line for a level marker, defaulting to
// INFO.
func (r *Runner) streamStdout(pipe io.Reader) {
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		level, message := domain.ParseLine(scanner.Text())
		if message == "" {
			continue
		}
		r.emit(level, message)
	}
}

// streamStderr surfaces every stderr line at ERROR level, regardless of
// content.
func (r *Runner) streamStderr(pipe io.Reader) {
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		r.emit(domain.LevelError, line)
	}
}

// emit pushes one line onto the queue. DEBUG lines are dropped unless
// developer mode is on.
func (r *Runner) emit(level domain.Level, message string) {
	if level == domain.LevelDebug {
		r.mu.Lock()
		dev := r.developerMode
		r.mu.Unlock()
		if !dev {
			return
		}
	}
	r.queue.Push(domain.OutputLine{Level: level, Message: message})
}

// finalize classifies a completed process exit. A user stop wins over
// whatever the process reported; the pause sentinel suspends the run instead
// of concluding it.
func (r *Runner) finalize(exitCode int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.proc = nil
	if r.stopRequested {
		// Stop already wrote the terminal flags; the race resolves in favor
		// of "user stopped".
		return
	}

	if exitCode == domain.PauseExitCode {
		r.running = false
		r.paused = true
		r.exitCode = nil
		r.succeeded = nil
		r.logger.Info("script paused for review", "path", r.scriptPath)
		return
	}

	r.running = false
	r.paused = false
	r.exitCode = &exitCode
	succeeded := exitCode == 0
	r.succeeded = &succeeded
	r.logger.Info("script finished", "exit_code", exitCode, "succeeded", succeeded)
}

// failRun records a spawn/IO failure as an ERROR line plus terminal status.
func (r *Runner) failRun(message string) {
	r.queue.Push(domain.OutputLine{Level: domain.LevelError, Message: message})

	r.mu.Lock()
	defer r.mu.Unlock()

	r.proc = nil
	if r.stopRequested {
		return
	}
	r.running = false
	r.paused = false
	code := 1
	r.exitCode = &code
	succeeded := false
	r.succeeded = &succeeded
	r.logger.Error("script run failed", "err", message)
}

// IsRunning reports whether a run is in progress.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// IsPaused reports whether the last run exited with the pause sentinel and
// awaits a Resume.
func (r *Runner) IsPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// IsAlive reports whether the worker goroutine is still executing.
func (r *Runner) IsAlive() bool {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// LastExitCode returns the terminal exit code. ok is false while a run is
// active or paused.
func (r *Runner) LastExitCode() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exitCode == nil {
		return 0, false
	}
	return *r.exitCode, true
}

// Succeeded reports the terminal outcome. ok is false while a run is active
// or paused.
func (r *Runner) Succeeded() (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.succeeded == nil {
		return false, false
	}
	return *r.succeeded, true
}

// SetDeveloperMode toggles DEBUG-line visibility. Takes full effect on the
// next run; mid-run it only affects lines not yet emitted.
func (r *Runner) SetDeveloperMode(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.developerMode = enabled
}

// Output returns the queue the foreground drains.
func (r *Runner) Output() *Queue {
	return r.queue
}

// ClearOutputQueue drops all pending lines, preventing stale output from a
// previous run leaking into a new session.
func (r *Runner) ClearOutputQueue() {
	r.queue.Clear()
}
