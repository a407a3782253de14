package kmldrv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vax-r/KMLdrv/internal/logger"
)

func TestRx_overflowTruncates(t *testing.T) {
	r, err := newRx(16, logger.Discard())
	require.NoError(t, err)

	assert.Equal(t, 10, r.push(make([]byte, 10)))
	assert.Equal(t, 6, r.push(make([]byte, 10)))
	assert.Equal(t, 0, r.push(make([]byte, 10)))

	assert.Equal(t, uint64(3), r.pushedFrames.Load())
	assert.Equal(t, uint64(2), r.droppedFrames.Load())
	assert.Equal(t, uint64(14), r.droppedBytes.Load())

	buf := make([]byte, 64)
	n, err := r.pull(context.Background(), buf, true)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
}

func TestRx_pullModes(t *testing.T) {
	r, err := newRx(16, logger.Discard())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = r.pull(ctx, nil, true)
	assert.ErrorIs(t, err, ErrInvalidBuffer)

	n, err := r.pull(ctx, []byte{}, false)
	assert.NoError(t, err)
	assert.Zero(t, n)

	_, err = r.pull(ctx, make([]byte, 4), true)
	assert.ErrorIs(t, err, ErrWouldBlock)

	r.push([]byte("abcdef"))
	buf := make([]byte, 4)
	n, err = r.pull(ctx, buf, true)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(buf[:n]))
	n, err = r.pull(ctx, buf, true)
	require.NoError(t, err)
	assert.Equal(t, "ef", string(buf[:n]))
}

func TestRx_nonblockingPullDoesNotWaitForConsumer(t *testing.T) {
	r, err := newRx(16, logger.Discard())
	require.NoError(t, err)

	// Another reader holds the consumer side.
	r.consumer <- struct{}{}
	defer func() { <-r.consumer }()

	done := make(chan error, 1)
	go func() {
		_, err := r.pull(context.Background(), make([]byte, 4), true)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrWouldBlock)
	case <-time.After(time.Second):
		t.Fatal("nonblocking pull waited for the consumer lock")
	}
}

func TestRx_blockingPullWakesOnPush(t *testing.T) {
	r, err := newRx(16, logger.Discard())
	require.NoError(t, err)

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 8)
		n, err := r.pull(context.Background(), buf, false)
		if err != nil {
			got <- err.Error()
			return
		}
		got <- string(buf[:n])
	}()

	time.Sleep(20 * time.Millisecond)
	r.push([]byte("frame"))

	select {
	case s := <-got:
		assert.Equal(t, "frame", s)
	case <-time.After(time.Second):
		t.Fatal("reader not woken")
	}
}

func TestRx_blockingPullInterrupted(t *testing.T) {
	r, err := newRx(16, logger.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = r.pull(ctx, make([]byte, 8), false)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	r.push([]byte("x"))
	n, err := r.pull(context.Background(), make([]byte, 8), true)
	require.NoError(t, err, "consumer lock released after interrupt")
	assert.Equal(t, 1, n)
}

func TestRx_closeWakesReader(t *testing.T) {
	r, err := newRx(16, logger.Discard())
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := r.pull(context.Background(), make([]byte, 8), false)
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	r.close()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("reader not woken by close")
	}
}

func TestOpenRelease_refcountArmsTimer(t *testing.T) {
	s := newTestService(t, testConfig())

	a, err := s.Open(false)
	require.NoError(t, err)
	assert.True(t, s.timer.Pending())

	b, err := s.Open(true)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, int32(2), s.Consumers())

	s.rx.push([]byte("stale"))

	require.NoError(t, a.Close())
	assert.True(t, s.timer.Pending(), "still attached")
	assert.Equal(t, 5, s.rx.len())

	require.NoError(t, b.Close())
	assert.False(t, s.timer.Pending())
	assert.Zero(t, s.rx.len(), "queue emptied on last detach")
	assert.Equal(t, int32(0), s.Consumers())

	assert.ErrorIs(t, b.Close(), ErrClosed)
	assert.Equal(t, int32(0), s.Consumers(), "double close does not underflow")

	openFile(t, s, true)
	assert.True(t, s.timer.Pending())
}

func TestFile_readModes(t *testing.T) {
	s := newTestService(t, testConfig())
	f := openFile(t, s, true)

	_, err := f.Read(context.Background(), make([]byte, 8))
	assert.ErrorIs(t, err, ErrWouldBlock)

	f.SetNonblock(false)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.Read(ctx, make([]byte, 8))
	assert.ErrorIs(t, err, ErrInterrupted)
}

func TestFile_closeUnblocksRead(t *testing.T) {
	s := newTestService(t, testConfig())
	f, err := s.Open(false)
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := f.Read(context.Background(), make([]byte, 8))
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, f.Close())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("read not unblocked by close")
	}

	_, err = f.Read(context.Background(), make([]byte, 8))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestService_closed(t *testing.T) {
	s, err := New(testConfig(), logger.Discard())
	require.NoError(t, err)

	f, err := s.Open(false)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), ErrClosed)

	_, err = s.Open(false)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = f.Read(context.Background(), make([]byte, 8))
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, f.Close())
}

func TestService_playsFullGame(t *testing.T) {
	cfg := testConfig()
	cfg.DelayMS = 2
	cfg.Flags.End = true
	s := newTestService(t, cfg)
	f := openFile(t, s, false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var frames []byte
	buf := make([]byte, FifoSize)
	for s.Stats().Games == 0 {
		n, err := f.Read(ctx, buf)
		require.NoError(t, err)
		frames = append(frames, buf[:n]...)
	}

	require.Eventually(t, func() bool { return !s.timer.Pending() }, 5*time.Second, 5*time.Millisecond)
	assert.NotEqual(t, "ongoing", s.Stats().Outcome)
	assert.NotEmpty(t, frames)
}
