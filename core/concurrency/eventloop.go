// File: core/concurrency/eventloop.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventLoop is a single-goroutine task runner. Tasks are drained in batches
// from a FIFO queue, so continuations submitted to one loop never interleave
// and always run in submission order. Loops may be pinned to a CPU.

package concurrency

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-ctx/affinity"
	"github.com/momentics/hioload-ctx/api"
)

// Ensure compile-time interface compliance.
var _ api.EventLoop = (*EventLoop)(nil)

// LoopConfig configures a single EventLoop.
type LoopConfig struct {
	Name      string         // loop name used in logs
	BatchSize int            // max tasks handled per drain cycle (<= 0 means 64)
	CPU       int            // CPU to pin the loop thread to (-1 = no pinning)
	Logger    zerolog.Logger // receives pinning failures and task panics
}

// EventLoop runs tasks one at a time on its own goroutine.
type EventLoop struct {
	name      string
	batchSize int
	cpu       int
	logger    zerolog.Logger

	mu     sync.Mutex
	tasks  *queue.Queue // of func(); guarded by mu
	closed bool         // guarded by mu

	wakeCh   chan struct{} // capacity 1, coalesces wakeups
	quitCh   chan struct{} // closed on Shutdown()
	doneCh   chan struct{} // closed after run() exits
	executed atomic.Uint64
}

// NewEventLoop creates an EventLoop and starts its goroutine.
func NewEventLoop(cfg LoopConfig) *EventLoop {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.Name == "" {
		cfg.Name = "loop"
	}
	el := &EventLoop{
		name:      cfg.Name,
		batchSize: cfg.BatchSize,
		cpu:       cfg.CPU,
		logger:    cfg.Logger.With().Str("loop", cfg.Name).Logger(),
		tasks:     queue.New(),
		wakeCh:    make(chan struct{}, 1),
		quitCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	go el.run()
	return el
}

// Name implements api.EventLoop.
func (el *EventLoop) Name() string { return el.name }

// Next implements api.EventLoopGroup; a loop is a group of one.
func (el *EventLoop) Next() api.EventLoop { return el }

// Execute queues task. Returns ErrEventLoopClosed after Shutdown.
func (el *EventLoop) Execute(task func()) error {
	el.mu.Lock()
	if el.closed {
		el.mu.Unlock()
		return ErrEventLoopClosed
	}
	el.tasks.Add(task)
	el.mu.Unlock()

	select {
	case el.wakeCh <- struct{}{}:
	default:
	}
	return nil
}

// Submit runs fn on the loop and returns its outcome as a future bound to the loop.
func Submit[T any](el *EventLoop, fn func() (T, error)) *api.Future[T] {
	p := api.NewPromise[T](el)
	if err := el.Execute(func() {
		v, err := fn()
		p.Complete(api.Result[T]{Value: v, Err: err})
	}); err != nil {
		p.Fail(err)
	}
	return p.Future()
}

// Pending returns the number of queued tasks.
func (el *EventLoop) Pending() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.tasks.Length()
}

// Executed returns the number of tasks run so far.
func (el *EventLoop) Executed() uint64 {
	return el.executed.Load()
}

// Shutdown stops accepting tasks, runs what is already queued and waits for
// the loop goroutine to exit. Must not be called from the loop itself.
func (el *EventLoop) Shutdown() {
	el.mu.Lock()
	if el.closed {
		el.mu.Unlock()
		<-el.doneCh
		return
	}
	el.closed = true
	el.mu.Unlock()

	close(el.quitCh)
	<-el.doneCh
}

func (el *EventLoop) String() string {
	return fmt.Sprintf("EventLoop(%s)", el.name)
}

func (el *EventLoop) run() {
	defer close(el.doneCh)

	if el.cpu >= 0 {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := affinity.SetAffinity(el.cpu); err != nil {
			el.logger.Warn().Err(err).Int("cpu", el.cpu).Msg("event loop pinning failed")
		}
	}

	batch := make([]func(), 0, el.batchSize)
	for {
		batch = el.drain(batch[:0])
		if len(batch) > 0 {
			for i, task := range batch {
				el.safeExecute(task)
				batch[i] = nil
			}
			continue
		}

		select {
		case <-el.wakeCh:
		case <-el.quitCh:
			// Queue is closed to new tasks; finish the backlog.
			for {
				batch = el.drain(batch[:0])
				if len(batch) == 0 {
					return
				}
				for i, task := range batch {
					el.safeExecute(task)
					batch[i] = nil
				}
			}
		}
	}
}

// drain moves up to batchSize queued tasks into batch.
func (el *EventLoop) drain(batch []func()) []func() {
	el.mu.Lock()
	defer el.mu.Unlock()
	for len(batch) < el.batchSize && el.tasks.Length() > 0 {
		batch = append(batch, el.tasks.Remove().(func()))
	}
	return batch
}

func (el *EventLoop) safeExecute(task func()) {
	defer func() {
		if r := recover(); r != nil {
			el.logger.Error().Interface("panic", r).Msg("event loop task panicked")
		}
	}()
	el.executed.Add(1)
	task()
}
