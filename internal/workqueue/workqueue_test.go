package workqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_invalid(t *testing.T) {
	_, err := New("bad", Config{})
	assert.ErrorIs(t, err, ErrMaxActive)

	_, err = New("bad", Config{MaxActive: 1, Capacity: -1})
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestQueue_pendingWorkIsNotQueuedTwice(t *testing.T) {
	q, err := New("test", Config{MaxActive: 1})
	require.NoError(t, err)
	defer q.Destroy()

	release := make(chan struct{})
	started := make(chan struct{})
	blocker := NewWork("blocker", func(context.Context) {
		close(started)
		<-release
	})

	var runs atomic.Int32
	w := NewWork("counted", func(context.Context) { runs.Add(1) })

	require.True(t, q.Queue(blocker))
	<-started

	assert.True(t, q.Queue(w))
	assert.True(t, w.Pending())
	assert.False(t, q.Queue(w), "already pending")
	assert.Equal(t, 2, q.Outstanding())

	close(release)
	q.Flush()

	assert.Equal(t, int32(1), runs.Load())
	assert.False(t, w.Pending())
	assert.Zero(t, q.Outstanding())
}

func TestQueue_orderedRunsInQueueingOrder(t *testing.T) {
	q, err := New("ordered", Config{MaxActive: 1})
	require.NoError(t, err)
	defer q.Destroy()

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) *Work {
		return NewWork(name, func(context.Context) {
			time.Sleep(time.Millisecond)
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		})
	}

	works := []*Work{record("move"), record("load"), record("draw")}
	for range 5 {
		for _, w := range works {
			require.True(t, q.Queue(w))
		}
		q.Flush()
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 15)
	for i := 0; i < len(order); i += 3 {
		assert.Equal(t, []string{"move", "load", "draw"}, order[i:i+3])
	}
}

func TestQueue_unboundRunsConcurrently(t *testing.T) {
	q, err := New("unbound", Config{MaxActive: 2})
	require.NoError(t, err)
	defer q.Destroy()

	var wg sync.WaitGroup
	wg.Add(2)
	barrier := func(context.Context) {
		wg.Done()
		wg.Wait()
	}

	require.True(t, q.Queue(NewWork("a", barrier)))
	require.True(t, q.Queue(NewWork("b", barrier)))

	done := make(chan struct{})
	go func() {
		q.Flush()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("works did not run concurrently")
	}
}

func TestQueue_fullReturnsFalse(t *testing.T) {
	q, err := New("small", Config{MaxActive: 1, Capacity: 1})
	require.NoError(t, err)
	defer q.Destroy()

	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, q.Queue(NewWork("blocker", func(context.Context) {
		close(started)
		<-release
	})))
	<-started

	a := NewWork("a", func(context.Context) {})
	b := NewWork("b", func(context.Context) {})
	assert.True(t, q.Queue(a))
	assert.False(t, q.Queue(b))
	assert.False(t, b.Pending(), "rejected work is left idle")

	close(release)
	q.Flush()
}

func TestQueue_panicIsRecovered(t *testing.T) {
	var recovered atomic.Value
	q, err := New("panics", Config{
		MaxActive: 1,
		OnPanic:   func(w *Work, v any) { recovered.Store(w.Name()) },
	})
	require.NoError(t, err)
	defer q.Destroy()

	require.True(t, q.Queue(NewWork("boom", func(context.Context) { panic("boom") })))
	q.Flush()
	assert.Equal(t, "boom", recovered.Load())

	var ran atomic.Bool
	require.True(t, q.Queue(NewWork("after", func(context.Context) { ran.Store(true) })))
	q.Flush()
	assert.True(t, ran.Load(), "worker survives a panic")
}

func TestDestroy(t *testing.T) {
	q, err := New("destroy", Config{MaxActive: 1})
	require.NoError(t, err)

	var canceled atomic.Bool
	started := make(chan struct{})
	require.True(t, q.Queue(NewWork("long", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		canceled.Store(true)
	})))
	<-started

	require.NoError(t, q.Destroy())
	assert.True(t, canceled.Load())
	assert.ErrorIs(t, q.Destroy(), ErrDestroyed)
	assert.False(t, q.Queue(NewWork("late", func(context.Context) {})))
}
