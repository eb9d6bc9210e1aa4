package concurrency

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLoop_RunsTasksInOrder(t *testing.T) {
	el := NewEventLoop(LoopConfig{Name: "ordered", BatchSize: 4, CPU: -1})
	defer el.Shutdown()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		require.NoError(t, el.Execute(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	_, err := Submit(el, func() (struct{}, error) { return struct{}{}, nil }).Wait()
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestEventLoop_ShutdownDrainsBacklog(t *testing.T) {
	el := NewEventLoop(LoopConfig{CPU: -1})

	block := make(chan struct{})
	require.NoError(t, el.Execute(func() { <-block }))

	ran := make(chan struct{})
	require.NoError(t, el.Execute(func() { close(ran) }))

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(block)
	}()
	el.Shutdown()

	select {
	case <-ran:
	default:
		t.Fatal("queued task was dropped on shutdown")
	}
	assert.ErrorIs(t, el.Execute(func() {}), ErrEventLoopClosed)
	// Second shutdown is a no-op.
	el.Shutdown()
}

func TestEventLoop_RecoversPanics(t *testing.T) {
	el := NewEventLoop(LoopConfig{CPU: -1})
	defer el.Shutdown()

	require.NoError(t, el.Execute(func() { panic("boom") }))
	v, err := Submit(el, func() (int, error) { return 7, nil }).Wait()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.GreaterOrEqual(t, el.Executed(), uint64(2))
}

func TestSubmit_OnClosedLoopFails(t *testing.T) {
	el := NewEventLoop(LoopConfig{CPU: -1})
	el.Shutdown()

	_, err := Submit(el, func() (int, error) { return 1, nil }).Wait()
	assert.ErrorIs(t, err, ErrEventLoopClosed)
}

func TestEventLoop_PinnedLoopRuns(t *testing.T) {
	el := NewEventLoop(LoopConfig{Name: "pinned", CPU: 0})
	defer el.Shutdown()

	v, err := Submit(el, func() (string, error) { return el.Name(), nil }).Wait()
	require.NoError(t, err)
	assert.Equal(t, "pinned", v)
	assert.Same(t, el, el.Next())
}
