// Package timer provides the production ports.Scheduler: a single-goroutine
// event loop fed by wall-clock timers. All scheduled callbacks run serialized
// on the loop goroutine, which stands in for the UI thread of the original
// desktop shell.
package timer

import (
	"sync"
	"time"

	"github.com/scriptdeck/scriptdeck/pkg/ports"
)

// Loop is a cooperative foreground scheduler. Create it with NewLoop and stop
// it with Stop; callbacks scheduled after Stop are silently dropped.
type Loop struct {
	work chan func()
	done chan struct{}
	stop sync.Once
	wg   sync.WaitGroup
}

var _ ports.Scheduler = (*Loop)(nil)

// NewLoop starts the loop goroutine.
func NewLoop() *Loop {
	l := &Loop{
		work: make(chan func(), 64),
		done: make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case fn := <-l.work:
			fn()
		case <-l.done:
			// Drain whatever is already queued so cancellations observed
			// before Stop still take effect deterministically.
			for {
				select {
				case fn := <-l.work:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Post enqueues fn onto the loop goroutine. Dropped after Stop.
func (l *Loop) Post(fn func()) {
	select {
	case l.work <- fn:
	case <-l.done:
	}
}

// Schedule runs fn once on the loop goroutine after delay.
func (l *Loop) Schedule(delay time.Duration, fn func()) ports.CancelFunc {
	var mu sync.Mutex
	cancelled := false

	t := time.AfterFunc(delay, func() {
		l.Post(func() {
			mu.Lock()
			skip := cancelled
			mu.Unlock()
			if !skip {
				fn()
			}
		})
	})

	return func() {
		mu.Lock()
		cancelled = true
		mu.Unlock()
		t.Stop()
	}
}

// Repeat runs fn on the loop goroutine every interval until cancelled.
func (l *Loop) Repeat(interval time.Duration, fn func()) ports.CancelFunc {
	var mu sync.Mutex
	cancelled := false
	var t *time.Timer

	var arm func()
	arm = func() {
		mu.Lock()
		defer mu.Unlock()
		if cancelled {
			return
		}
		t = time.AfterFunc(interval, func() {
			l.Post(func() {
				mu.Lock()
				skip := cancelled
				mu.Unlock()
				if skip {
					return
				}
				fn()
				arm()
			})
		})
	}
	arm()

	return func() {
		mu.Lock()
		cancelled = true
		if t != nil {
			t.Stop()
		}
		mu.Unlock()
	}
}

// Stop shuts the loop down. Pending queued callbacks are drained; timers that
// fire afterwards are dropped.
func (l *Loop) Stop() {
	l.stop.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
}
