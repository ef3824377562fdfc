package runner

import (
	"sync"

	"github.com/scriptdeck/scriptdeck/pkg/domain"
)

// Queue is the thread-safe FIFO bridging the worker goroutine to the
// foreground drain loop. It is the only structure written by both sides of a
// run. Unbounded by default; with a limit set, the oldest entries are dropped
// on overflow and counted.
type Queue struct {
	mu      sync.Mutex
	items   []domain.OutputLine
	limit   int
	dropped uint64
}

// NewQueue creates a queue. limit <= 0 means unbounded.
func NewQueue(limit int) *Queue {
	return &Queue{limit: limit}
}

// Push appends a line, evicting the oldest entry when the limit is reached.
func (q *Queue) Push(line domain.OutputLine) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.limit > 0 && len(q.items) >= q.limit {
		q.items = q.items[1:]
		q.dropped++
	}
	q.items = append(q.items, line)
}

// TryPop removes and returns the oldest line without blocking.
func (q *Queue) TryPop() (domain.OutputLine, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return domain.OutputLine{}, false
	}
	line := q.items[0]
	q.items = q.items[1:]
	return line, true
}

// DrainAll removes and returns every queued line in FIFO order.
func (q *Queue) DrainAll() []domain.OutputLine {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	drained := q.items
	q.items = nil
	return drained
}

// Clear discards all queued lines and returns how many were discarded.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	q.items = nil
	return n
}

// Len returns the number of queued lines.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many lines were evicted by the overflow policy.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
