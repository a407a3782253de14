// Package irq provides the two non-blocking execution contexts of the
// simulation: a re-armable one-shot Timer standing in for a hardware
// interrupt, and a Tasklet for deferred, non-reentrant dispatch.
package irq

import (
	"errors"
	"sync"
	"time"
)

var ErrShutdown = errors.New("irq: timer shut down")

// Timer is a one-shot timer whose handler may re-arm it. The handler never
// runs concurrently with itself.
type Timer struct {
	fn      func()
	onPanic func(v any)

	mu       sync.Mutex
	cond     *sync.Cond
	t        *time.Timer
	gen      uint64
	armed    bool
	running  bool
	shutdown bool
}

func NewTimer(fn func(), onPanic func(v any)) *Timer {
	t := &Timer{fn: fn, onPanic: onPanic}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Mod (re)arms the timer to fire after d, replacing any pending expiry.
func (t *Timer) Mod(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.shutdown {
		return ErrShutdown
	}

	t.stopLocked()
	t.armed = true

	gen := t.gen
	t.t = time.AfterFunc(d, func() { t.fire(gen) })

	return nil
}

func (t *Timer) stopLocked() {
	t.gen++
	t.armed = false
	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	// expired while the previous handler is still running
	for t.running && gen == t.gen {
		t.cond.Wait()
	}
	if gen != t.gen || !t.armed {
		t.mu.Unlock()
		return
	}
	t.armed = false
	t.running = true
	t.mu.Unlock()

	defer func() {
		v := recover()

		t.mu.Lock()
		t.running = false
		t.cond.Broadcast()
		t.mu.Unlock()

		if v != nil && t.onPanic != nil {
			t.onPanic(v)
		}
	}()

	t.fn()
}

// Pending reports whether the timer is armed and has not fired yet.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// DelSync disarms the timer and waits for a running handler to return. A
// handler that re-arms while DelSync waits is disarmed again, so no expiry
// is left behind. It must not be called from the handler.
func (t *Timer) DelSync() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	wasArmed := t.armed
	for {
		t.stopLocked()
		if !t.running {
			return wasArmed
		}
		t.cond.Wait()
	}
}

// Shutdown disarms the timer for good, later Mod calls fail.
func (t *Timer) Shutdown() {
	t.mu.Lock()
	t.shutdown = true
	t.mu.Unlock()

	t.DelSync()
}
