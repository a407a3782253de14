package kmldrv

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	catrate "github.com/joeycumines/go-catrate"

	"github.com/vax-r/KMLdrv/internal/kfifo"
	"github.com/vax-r/KMLdrv/internal/logger"
)

// FifoSize is the delivery queue capacity in bytes.
const FifoSize = 4096

var (
	ErrWouldBlock    = errors.New("kmldrv: no data available")
	ErrInterrupted   = errors.New("kmldrv: read interrupted")
	ErrInvalidBuffer = errors.New("kmldrv: nil read buffer")
	ErrClosed        = errors.New("kmldrv: closed")
)

// rx is the delivery queue: a byte fifo with a producer lock for the tiers
// that push frames and an interruptible consumer lock for readers.
type rx struct {
	fifo *kfifo.Fifo

	producerMu sync.Mutex
	consumer   chan struct{} // held while a reader drains the fifo
	wait       chan struct{} // one token per wake-up
	closed     chan struct{}
	closeOnce  sync.Once

	limiter *catrate.Limiter
	log     *logger.Logger

	pushedFrames  atomic.Uint64
	droppedFrames atomic.Uint64
	droppedBytes  atomic.Uint64
}

func newRx(size int, log *logger.Logger) (*rx, error) {
	f, err := kfifo.New(size)
	if err != nil {
		return nil, fmt.Errorf("allocate fifo: %w", err)
	}

	return &rx{
		fifo:     f,
		consumer: make(chan struct{}, 1),
		wait:     make(chan struct{}, 1),
		closed:   make(chan struct{}),
		limiter:  catrate.NewLimiter(map[time.Duration]int{5 * time.Second: 10}),
		log:      log,
	}, nil
}

// push appends frame under the producer lock and wakes a waiting reader.
// Whatever does not fit is dropped. Never blocks beyond the producer lock.
func (r *rx) push(frame []byte) int {
	r.producerMu.Lock()
	n := r.fifo.In(frame)
	size := r.fifo.Len()
	r.producerMu.Unlock()

	r.pushedFrames.Add(1)
	if n < len(frame) {
		r.droppedFrames.Add(1)
		r.droppedBytes.Add(uint64(len(frame) - n))
		if _, ok := r.limiter.Allow("rx_fifo_overflow"); ok {
			r.log.Warn("rx fifo overflow, frame truncated", "dropped", len(frame)-n)
		}
	}

	r.log.Debug("rx fifo in", "n", n, "len", size)
	r.wake()

	return n
}

func (r *rx) wake() {
	select {
	case r.wait <- struct{}{}:
	default:
	}
}

// pull copies up to len(p) bytes out of the fifo. Unless nonblock is set it
// waits for data; the wait ends early when ctx is done or the queue closes.
func (r *rx) pull(ctx context.Context, p []byte, nonblock bool) (int, error) {
	if p == nil {
		return 0, ErrInvalidBuffer
	}

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInterrupted, err)
	}

	if nonblock {
		select {
		case r.consumer <- struct{}{}:
		default:
			return 0, ErrWouldBlock
		}
	} else {
		select {
		case r.consumer <- struct{}{}:
		case <-ctx.Done():
			return 0, fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
		case <-r.closed:
			return 0, ErrClosed
		}
	}
	defer func() { <-r.consumer }()

	for {
		n := r.fifo.Out(p)
		if n > 0 || len(p) == 0 {
			return n, nil
		}

		if nonblock {
			return 0, ErrWouldBlock
		}

		select {
		case <-r.wait:
		case <-ctx.Done():
			return 0, fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
		case <-r.closed:
			return 0, ErrClosed
		}
	}
}

// clear empties the fifo holding both locks.
func (r *rx) clear() {
	r.producerMu.Lock()
	defer r.producerMu.Unlock()

	r.consumer <- struct{}{}
	defer func() { <-r.consumer }()

	r.fifo.Reset()
}

func (r *rx) len() int {
	r.producerMu.Lock()
	defer r.producerMu.Unlock()
	return r.fifo.Len()
}

func (r *rx) close() {
	r.closeOnce.Do(func() { close(r.closed) })
}
