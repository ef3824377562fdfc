// Package output bridges the runner's cross-goroutine queue to a display
// callback on a recurring foreground poll.
package output

import (
	"log/slog"
	"time"

	"github.com/scriptdeck/scriptdeck/internal/logging"
	"github.com/scriptdeck/scriptdeck/pkg/domain"
	"github.com/scriptdeck/scriptdeck/pkg/ports"
)

// DefaultInterval is the polling cadence for draining queued output.
const DefaultInterval = 100 * time.Millisecond

// Source is the queue side the monitor drains. *runner.Queue satisfies it.
type Source interface {
	DrainAll() []domain.OutputLine
}

// Callback receives one queued line at a time, in FIFO order.
type Callback func(message string, level domain.Level)

// Manager polls a Source on a scheduler tick and forwards every pending line
// to the registered callback. All methods must be called from the scheduler's
// goroutine.
type Manager struct {
	source    Source
	scheduler ports.Scheduler
	logger    *slog.Logger
	interval  time.Duration

	callback Callback
	cancel   ports.CancelFunc
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithInterval overrides the polling cadence.
func WithInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.interval = d
	}
}

// New creates a Manager draining source on ticks from scheduler.
func New(source Source, scheduler ports.Scheduler, opts ...Option) *Manager {
	m := &Manager{
		source:    source,
		scheduler: scheduler,
		logger:    logging.NewNop(),
		interval:  DefaultInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetCallback registers the sink. A nil callback silently discards drained
// lines.
func (m *Manager) SetCallback(fn Callback) {
	m.callback = fn
}

// StartMonitoring begins the recurring drain. Calling it while already
// monitoring is a no-op.
func (m *Manager) StartMonitoring() {
	if m.cancel != nil {
		return
	}
	m.cancel = m.scheduler.Repeat(m.interval, m.drain)
	m.logger.Debug("output monitoring started", "interval", m.interval)
}

// StopMonitoring cancels the recurring drain. Idempotent. Lines still queued
// remain queued; a final Flush picks them up.
func (m *Manager) StopMonitoring() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.cancel = nil
	m.logger.Debug("output monitoring stopped")
}

// IsMonitoring reports whether the polling loop is active.
func (m *Manager) IsMonitoring() bool {
	return m.cancel != nil
}

// Flush drains whatever is queued right now, outside the polling cadence.
// Used after a run concludes so trailing lines are not lost when monitoring
// stops.
func (m *Manager) Flush() {
	m.drain()
}

// drain forwards every currently queued line. Draining everything per tick
// keeps bursty producers from backing up, at the cost of unbounded per-tick
// work.
func (m *Manager) drain() {
	lines := m.source.DrainAll()
	if len(lines) == 0 || m.callback == nil {
		return
	}
	for _, l := range lines {
		m.callback(l.Message, l.Level)
	}
}
