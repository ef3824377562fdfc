// Package history tracks execution attempts per script, persisted through a
// pluggable store and capped to the most recent runs.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/scriptdeck/scriptdeck/internal/logging"
	"github.com/scriptdeck/scriptdeck/pkg/domain"
	"github.com/scriptdeck/scriptdeck/pkg/ports"
)

// MaxRecordsPerScript caps how many runs are retained for each script. Older
// records are discarded oldest-first.
const MaxRecordsPerScript = 100

// Stats summarizes the retained records of one script.
type Stats struct {
	Total       int
	Succeeded   int
	Failed      int
	Stopped     int
	LastRun     time.Time
	LastStatus  domain.RunStatus
	AvgDuration float64
}

// Manager is a foreground-only history tracker. Loading and saving go through
// the configured store; an in-flight run lives only in memory until EndRun.
type Manager struct {
	store  ports.HistoryStore
	logger *slog.Logger
	clock  func() time.Time

	records map[string][]domain.RunRecord
	active  *domain.RunRecord
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// New creates a Manager and loads existing history from the store.
func New(ctx context.Context, store ports.HistoryStore, opts ...Option) (*Manager, error) {
	m := &Manager{
		store:  store,
		logger: logging.NewNop(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	records, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if records == nil {
		records = map[string][]domain.RunRecord{}
	}
	m.records = records
	return m, nil
}

// StartRun opens a record for a new attempt. A second StartRun before EndRun
// abandons the first record.
func (m *Manager) StartRun(scriptName, scriptPath string) {
	if m.active != nil {
		m.logger.Warn("abandoning unfinished history record", "script", m.active.ScriptName)
	}
	m.active = &domain.RunRecord{
		ScriptName: scriptName,
		ScriptPath: scriptPath,
		Status:     domain.RunUnknown,
		StartTime:  m.clock(),
	}
}

// EndRun finalizes the open record, appends it, enforces the per-script cap
// and persists. Calling EndRun with no open record is a no-op.
func (m *Manager) EndRun(ctx context.Context, status domain.RunStatus, exitCode int, errMsg string) error {
	if m.active == nil {
		return nil
	}
	rec := m.active
	m.active = nil
	rec.Finalize(status, exitCode, errMsg, m.clock())

	list := append(m.records[rec.ScriptName], *rec)
	if len(list) > MaxRecordsPerScript {
		list = list[len(list)-MaxRecordsPerScript:]
	}
	m.records[rec.ScriptName] = list

	if err := m.store.Save(ctx, m.records); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	m.logger.Info("run recorded",
		"script", rec.ScriptName,
		"status", rec.Status,
		"exit_code", rec.ExitCode,
		"duration", rec.Duration)
	return nil
}

// Records returns the retained runs for one script, oldest first.
func (m *Manager) Records(scriptName string) []domain.RunRecord {
	list := m.records[scriptName]
	out := make([]domain.RunRecord, len(list))
	copy(out, list)
	return out
}

// ScriptNames returns every script with at least one record, sorted.
func (m *Manager) ScriptNames() []string {
	names := make([]string, 0, len(m.records))
	for name, list := range m.records {
		if len(list) == 0 {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StatsFor aggregates the retained records of one script.
func (m *Manager) StatsFor(scriptName string) Stats {
	list := m.records[scriptName]
	s := Stats{Total: len(list)}
	if len(list) == 0 {
		return s
	}

	var totalDuration float64
	for _, rec := range list {
		totalDuration += rec.Duration
		switch rec.Status {
		case domain.RunSuccess:
			s.Succeeded++
		case domain.RunError:
			s.Failed++
		case domain.RunStopped:
			s.Stopped++
		}
	}
	last := list[len(list)-1]
	s.LastRun = last.EndTime
	s.LastStatus = last.Status
	s.AvgDuration = totalDuration / float64(len(list))
	return s
}

// Clear drops all records for one script and persists.
func (m *Manager) Clear(ctx context.Context, scriptName string) error {
	if _, ok := m.records[scriptName]; !ok {
		return nil
	}
	delete(m.records, scriptName)
	if err := m.store.Save(ctx, m.records); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}
