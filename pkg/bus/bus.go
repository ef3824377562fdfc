// Package bus implements the synchronous publish/subscribe dispatcher that
// decouples the scriptdeck services from each other.
package bus

import (
	"log/slog"
	"sync"

	"github.com/scriptdeck/scriptdeck/internal/logging"
	"github.com/scriptdeck/scriptdeck/pkg/domain"
)

// Handler receives a published event. Handlers run synchronously on the
// publisher's goroutine; a handler that panics degrades only itself.
type Handler func(domain.Event)

// Subscription identifies one registration. It is returned by Subscribe and
// consumed by Unsubscribe; the zero value identifies nothing.
type Subscription struct {
	event string
	seq   uint64
}

type subscription struct {
	seq uint64
	fn  Handler
}

// Bus routes events by name to ordered subscriber lists. Delivery is
// synchronous and unbuffered: publishing an event invokes every handler
// registered at publish time, in subscription order, before returning.
type Bus struct {
	mu     sync.Mutex
	subs   map[string][]subscription
	seq    uint64
	logger *slog.Logger
}

// Option configures the Bus.
type Option func(*Bus)

// WithLogger sets a structured logger for subscriber faults.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// New creates an empty event bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[string][]subscription),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers fn under the given event name and returns the handle
// that removes exactly this registration. Every call adds a new subscriber,
// including repeated calls with the same function or method value.
func (b *Bus) Subscribe(event string, fn Handler) Subscription {
	if fn == nil {
		return Subscription{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	b.subs[event] = append(b.subs[event], subscription{seq: b.seq, fn: fn})
	b.logger.Debug("subscribed", "event", event, "subscribers", len(b.subs[event]))
	return Subscription{event: event, seq: b.seq}
}

// Unsubscribe removes the registration identified by sub. It reports whether
// a removal occurred; removing a handle twice, or a zero handle, is a no-op.
// When the list becomes empty the event entry is dropped.
func (b *Bus) Unsubscribe(sub Subscription) bool {
	if sub.seq == 0 {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[sub.event]
	for i, s := range subs {
		if s.seq == sub.seq {
			b.subs[sub.event] = append(subs[:i:i], subs[i+1:]...)
			if len(b.subs[sub.event]) == 0 {
				delete(b.subs, sub.event)
			}
			b.logger.Debug("unsubscribed", "event", sub.event)
			return true
		}
	}
	return false
}

// Publish delivers evt to every subscriber of its event name, in subscription
// order. The subscriber list is snapshotted first, so handlers may subscribe
// or unsubscribe during delivery without affecting the in-flight dispatch.
// Publishing with no subscribers is a silent no-op.
func (b *Bus) Publish(evt domain.Event) {
	if evt == nil {
		return
	}
	event := evt.EventName()

	b.mu.Lock()
	snapshot := make([]subscription, len(b.subs[event]))
	copy(snapshot, b.subs[event])
	b.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}
	b.logger.Debug("publishing", "event", event, "subscribers", len(snapshot))

	for _, sub := range snapshot {
		b.dispatch(event, sub, evt)
	}
}

// dispatch invokes one handler, converting a panic into a log line so a broken
// subscriber never reaches the publisher or starves later subscribers.
func (b *Bus) dispatch(event string, sub subscription, evt domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked", "event", event, "err", r)
		}
	}()
	sub.fn(evt)
}

// HasSubscribers reports whether the event has at least one subscriber.
func (b *Bus) HasSubscribers(event string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[event]) > 0
}

// SubscriberCount returns the number of subscribers for the event.
func (b *Bus) SubscriberCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[event])
}

// EventNames returns the names of all events that currently have subscribers.
func (b *Bus) EventNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.subs))
	for name := range b.subs {
		names = append(names, name)
	}
	return names
}

// ClearSubscribers drops all subscribers of one event. It reports whether the
// event existed.
func (b *Bus) ClearSubscribers(event string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[event]; !ok {
		return false
	}
	delete(b.subs, event)
	return true
}

// ClearAll drops every subscription.
func (b *Bus) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string][]subscription)
}
