package kmldrv

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// File is one attachment to the frame stream. The first open arms the
// timer; the last close stops the pipeline and empties the queue.
type File struct {
	id  uuid.UUID
	svc *Service

	mu       sync.Mutex
	nonblock bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (s *Service) Open(nonblock bool) (*File, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	// Close may have won the race for lifeMu.
	if s.closed.Load() {
		return nil, ErrClosed
	}

	f := &File{id: uuid.New(), svc: s, nonblock: nonblock}
	f.ctx, f.cancel = context.WithCancel(context.Background())

	n := s.openCnt.Add(1)
	if n == 1 {
		if err := s.timer.Mod(s.delay); err != nil {
			s.openCnt.Add(-1)
			f.cancel()
			return nil, err
		}
	}

	s.log.Info("open", "file", f.id, "consumers", n)
	return f, nil
}

func (s *Service) release(f *File) {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	n := s.openCnt.Add(-1)
	s.log.Info("release", "file", f.id, "consumers", n)
	if n != 0 || s.closed.Load() {
		return
	}

	s.timer.DelSync()
	s.tasklet.Sync()
	s.wq.Flush()
	s.loadWQ.Flush()
	s.rx.clear()
}

// Consumers is the number of open files.
func (s *Service) Consumers() int32 {
	return s.openCnt.Load()
}

func (f *File) ID() uuid.UUID {
	return f.id
}

func (f *File) SetNonblock(nonblock bool) {
	f.mu.Lock()
	f.nonblock = nonblock
	f.mu.Unlock()
}

// Read copies queued frame bytes into p. In blocking mode it waits for at
// least one byte; cancelling ctx interrupts the wait with ErrInterrupted.
// In nonblocking mode an empty queue yields ErrWouldBlock.
func (f *File) Read(ctx context.Context, p []byte) (int, error) {
	if f.ctx.Err() != nil {
		return 0, ErrClosed
	}

	f.mu.Lock()
	nonblock := f.nonblock
	f.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(f.ctx, cancel)
	defer stop()

	n, err := f.svc.rx.pull(ctx, p, nonblock)
	if errors.Is(err, ErrInterrupted) && f.ctx.Err() != nil {
		return n, ErrClosed
	}

	return n, err
}

// Close detaches the file. A Read blocked on it returns ErrClosed.
func (f *File) Close() error {
	err := ErrClosed
	f.closeOnce.Do(func() {
		f.cancel()
		f.svc.release(f)
		err = nil
	})
	return err
}
