package timer_test

import (
	"sync"
	"testing"
	"time"

	"github.com/scriptdeck/scriptdeck/pkg/adapters/timer"
	"github.com/stretchr/testify/assert"
)

func TestSchedule_RunsOnce(t *testing.T) {
	loop := timer.NewLoop()
	defer loop.Stop()

	done := make(chan struct{})
	loop.Schedule(10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled callback never ran")
	}
}

func TestSchedule_Cancel(t *testing.T) {
	loop := timer.NewLoop()
	defer loop.Stop()

	var mu sync.Mutex
	ran := false
	cancel := loop.Schedule(20*time.Millisecond, func() {
		mu.Lock()
		ran = true
		mu.Unlock()
	})
	cancel()

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, ran)
}

func TestRepeat_FiresUntilCancelled(t *testing.T) {
	loop := timer.NewLoop()
	defer loop.Stop()

	ticks := make(chan struct{}, 16)
	cancel := loop.Repeat(5*time.Millisecond, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})

	// Wait for at least three ticks.
	for i := 0; i < 3; i++ {
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			t.Fatal("repeat tick missing")
		}
	}
	cancel()

	// Drain and verify the ticker eventually goes quiet.
	time.Sleep(30 * time.Millisecond)
	for len(ticks) > 0 {
		<-ticks
	}
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, ticks, "no ticks after cancel")
}

func TestCallbacksSerialized(t *testing.T) {
	loop := timer.NewLoop()
	defer loop.Stop()

	// Concurrent counter increments are only safe if the loop serializes them.
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		loop.Schedule(time.Millisecond, func() {
			defer wg.Done()
			counter++
		})
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}
