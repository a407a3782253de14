package irq

import (
	"sync"
	"sync/atomic"
)

// Tasklet runs fn on its own goroutine whenever scheduled. Scheduling an
// already scheduled tasklet coalesces; the function never runs concurrently
// with itself.
type Tasklet struct {
	fn      func()
	onPanic func(v any)

	scheduled atomic.Bool
	killed    atomic.Bool
	wake      chan struct{}
	quit      chan struct{}
	done      chan struct{}

	mu      sync.Mutex
	cond    *sync.Cond
	running bool
}

func NewTasklet(fn func(), onPanic func(v any)) *Tasklet {
	t := &Tasklet{
		fn:      fn,
		onPanic: onPanic,
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	t.cond = sync.NewCond(&t.mu)

	go t.loop()

	return t
}

// Schedule never blocks. It reports false if the tasklet was already
// scheduled or has been killed.
func (t *Tasklet) Schedule() bool {
	if t.killed.Load() || !t.scheduled.CompareAndSwap(false, true) {
		return false
	}

	select {
	case t.wake <- struct{}{}:
	default:
	}

	return true
}

func (t *Tasklet) loop() {
	for {
		select {
		case <-t.quit:
			// a Schedule racing Kill is dropped
			t.mu.Lock()
			t.scheduled.Store(false)
			close(t.done)
			t.cond.Broadcast()
			t.mu.Unlock()
			return
		case <-t.wake:
		}

		t.mu.Lock()
		t.running = true
		t.scheduled.Store(false)
		t.mu.Unlock()

		t.run()

		t.mu.Lock()
		t.running = false
		t.cond.Broadcast()
		t.mu.Unlock()
	}
}

func (t *Tasklet) run() {
	defer func() {
		if v := recover(); v != nil && t.onPanic != nil {
			t.onPanic(v)
		}
	}()

	t.fn()
}

// Sync waits until the tasklet is neither scheduled nor running.
func (t *Tasklet) Sync() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for t.running || t.scheduled.Load() {
		select {
		case <-t.done:
			return
		default:
		}
		t.cond.Wait()
	}
}

// Kill refuses further scheduling, lets a scheduled run finish and stops the
// goroutine.
func (t *Tasklet) Kill() {
	if !t.killed.CompareAndSwap(false, true) {
		<-t.done
		return
	}

	t.Sync()
	close(t.quit)
	<-t.done
}
