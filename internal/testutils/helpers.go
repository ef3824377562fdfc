// Package testutils hosts shared test doubles: a manually driven scheduler
// and fixture script helpers.
package testutils

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/scriptdeck/scriptdeck/pkg/ports"
	"github.com/stretchr/testify/require"
)

// ManualScheduler implements ports.Scheduler with explicit ticks, so tests
// drive the polling loops deterministically instead of sleeping.
type ManualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	fn        func()
	repeating bool
	cancelled bool
}

var _ ports.Scheduler = (*ManualScheduler)(nil)

// NewManualScheduler creates an empty scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule arms a one-shot task; the delay is ignored.
func (s *ManualScheduler) Schedule(_ time.Duration, fn func()) ports.CancelFunc {
	return s.add(fn, false)
}

// Repeat arms a repeating task; the interval is ignored.
func (s *ManualScheduler) Repeat(_ time.Duration, fn func()) ports.CancelFunc {
	return s.add(fn, true)
}

func (s *ManualScheduler) add(fn func(), repeating bool) ports.CancelFunc {
	task := &manualTask{fn: fn, repeating: repeating}
	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		task.cancelled = true
		s.mu.Unlock()
	}
}

// Tick fires every armed task once. One-shot tasks are disarmed first, so a
// callback rescheduling itself lands in the next tick, matching the
// re-arming behavior of the real loop.
func (s *ManualScheduler) Tick() {
	s.mu.Lock()
	due := make([]*manualTask, 0, len(s.tasks))
	remaining := s.tasks[:0]
	for _, task := range s.tasks {
		if task.cancelled {
			continue
		}
		due = append(due, task)
		if task.repeating {
			remaining = append(remaining, task)
		}
	}
	s.tasks = remaining
	s.mu.Unlock()

	for _, task := range due {
		s.mu.Lock()
		skip := task.cancelled
		s.mu.Unlock()
		if !skip {
			task.fn()
		}
	}
}

// TickUntil ticks until cond returns true or the tick budget runs out.
func (s *ManualScheduler) TickUntil(t *testing.T, cond func() bool, maxTicks int) {
	t.Helper()
	for i := 0; i < maxTicks; i++ {
		if cond() {
			return
		}
		s.Tick()
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), "condition not reached within %d ticks", maxTicks)
}

// Pending returns the number of armed tasks.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, task := range s.tasks {
		if !task.cancelled {
			n++
		}
	}
	return n
}

// WriteScript writes an executable shell script into dir and returns its
// path. Tests that spawn real processes skip on Windows.
func WriteScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fixture scripts require a POSIX shell")
	}

	path := filepath.Join(dir, name)
	content := "#!/bin/sh\n" + body
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}
