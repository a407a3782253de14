// Package kfifo is a bounded byte ring buffer for exactly one producer and one
// consumer. It takes no locks: callers on the same side must serialize
// themselves, the two sides may run concurrently.
package kfifo

import (
	"errors"
	"sync/atomic"
)

var ErrSize = errors.New("kfifo: size must be a positive power of two")

type Fifo struct {
	// in is only written by the producer, out only by the consumer
	in  atomic.Uint64
	out atomic.Uint64

	buf  []byte
	mask uint64
}

func New(size int) (*Fifo, error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, ErrSize
	}

	return &Fifo{
		buf:  make([]byte, size),
		mask: uint64(size - 1),
	}, nil
}

func (f *Fifo) Cap() int {
	return len(f.buf)
}

func (f *Fifo) Len() int {
	return int(f.in.Load() - f.out.Load())
}

func (f *Fifo) Avail() int {
	return f.Cap() - f.Len()
}

func (f *Fifo) IsEmpty() bool {
	return f.Len() == 0
}

// In copies as much of p as fits and returns the number of bytes copied.
// It never blocks; the remainder of p is the caller's to drop.
func (f *Fifo) In(p []byte) int {
	in := f.in.Load()
	n := min(len(p), len(f.buf)-int(in-f.out.Load()))
	if n == 0 {
		return 0
	}

	off := int(in & f.mask)
	c := copy(f.buf[off:], p[:n])
	copy(f.buf, p[c:n])

	f.in.Store(in + uint64(n))
	return n
}

// Out moves up to len(p) bytes into p and returns the number moved.
func (f *Fifo) Out(p []byte) int {
	out := f.out.Load()
	n := min(len(p), int(f.in.Load()-out))
	if n == 0 {
		return 0
	}

	off := int(out & f.mask)
	c := copy(p[:n], f.buf[off:])
	copy(p[c:n], f.buf)

	f.out.Store(out + uint64(n))
	return n
}

// Reset discards the content. Both sides must be quiescent.
func (f *Fifo) Reset() {
	f.out.Store(f.in.Load())
}
