// Package workqueue runs statically declared work items on a pool of
// goroutines that are allowed to block.
//
// A Work is either idle or pending. Queueing a pending Work is a no-op, so a
// Queue holds at most one entry per Work and Queue never has to wait for
// room.
package workqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	ErrDestroyed = errors.New("workqueue: destroyed")
	ErrMaxActive = errors.New("workqueue: max active must be positive")
	ErrCapacity  = errors.New("workqueue: capacity must be positive")
)

type Work struct {
	name    string
	fn      func(ctx context.Context)
	pending atomic.Bool
}

func NewWork(name string, fn func(ctx context.Context)) *Work {
	return &Work{name: name, fn: fn}
}

func (w *Work) Name() string {
	return w.name
}

func (w *Work) Pending() bool {
	return w.pending.Load()
}

type Config struct {
	// MaxActive is the number of works that may execute at once. One makes
	// the queue ordered: works run one at a time, in queueing order.
	MaxActive int

	// Capacity bounds the number of distinct works pending at once.
	// Defaults to 16.
	Capacity int

	// OnPanic is called with the recovered value when a work panics.
	OnPanic func(w *Work, v any)
}

type Queue struct {
	name string
	ch   chan *Work
	cfg  Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// outstanding counts queued and running works, for Flush
	mu          sync.Mutex
	cond        *sync.Cond
	outstanding int
	destroyed   bool
}

func New(name string, cfg Config) (*Queue, error) {
	if cfg.MaxActive <= 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrMaxActive)
	}

	if cfg.Capacity == 0 {
		cfg.Capacity = 16
	}

	if cfg.Capacity < 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrCapacity)
	}

	q := &Queue{
		name: name,
		ch:   make(chan *Work, cfg.Capacity),
		cfg:  cfg,
	}
	q.cond = sync.NewCond(&q.mu)
	q.ctx, q.cancel = context.WithCancel(context.Background())

	q.wg.Add(cfg.MaxActive)
	for range cfg.MaxActive {
		go q.worker()
	}

	return q, nil
}

func (q *Queue) Name() string {
	return q.name
}

// Queue schedules w and reports whether it was newly queued. It returns false
// if w is already pending, the queue is full, or the queue is destroyed. It
// never blocks.
func (q *Queue) Queue(w *Work) bool {
	if !w.pending.CompareAndSwap(false, true) {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.destroyed {
		w.pending.Store(false)
		return false
	}

	select {
	case q.ch <- w:
		q.outstanding++
		return true
	default:
		w.pending.Store(false)
		return false
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for w := range q.ch {
		w.pending.Store(false)
		q.run(w)

		q.mu.Lock()
		q.outstanding--
		if q.outstanding == 0 {
			q.cond.Broadcast()
		}
		q.mu.Unlock()
	}
}

func (q *Queue) run(w *Work) {
	defer func() {
		if v := recover(); v != nil && q.cfg.OnPanic != nil {
			q.cfg.OnPanic(w, v)
		}
	}()

	w.fn(q.ctx)
}

// Flush blocks until every work queued before the call, and any work those
// queue in turn, has finished.
func (q *Queue) Flush() {
	q.mu.Lock()
	for q.outstanding > 0 {
		q.cond.Wait()
	}
	q.mu.Unlock()
}

// Outstanding is the number of queued plus running works.
func (q *Queue) Outstanding() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.outstanding
}

// Destroy rejects further works, cancels the context handed to running works,
// waits for the outstanding ones and stops the workers.
func (q *Queue) Destroy() error {
	q.mu.Lock()
	if q.destroyed {
		q.mu.Unlock()
		return ErrDestroyed
	}
	q.destroyed = true
	q.mu.Unlock()

	q.cancel()
	q.Flush()
	close(q.ch)
	q.wg.Wait()

	return nil
}
