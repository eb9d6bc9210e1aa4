// File: api/future.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Future/Promise pair bound to an EventLoop. Callbacks always run on the
// future's loop, so a chain of combinators observes the loop affinity chosen
// by whoever created the future.

package api

import (
	"context"
	"sync"
)

// Result wraps any payload or error.
type Result[T any] struct {
	Value T
	Err   error
}

// Future is the read side of an asynchronous result.
type Future[T any] struct {
	loop EventLoop

	mu        sync.Mutex
	done      chan struct{}
	completed bool
	result    Result[T]
	callbacks []func(Result[T])
}

// Promise is the write side of a Future. Only the first completion wins.
type Promise[T any] struct {
	future *Future[T]
}

// NewPromise creates an uncompleted promise whose future is bound to loop.
func NewPromise[T any](loop EventLoop) Promise[T] {
	return Promise[T]{future: &Future[T]{loop: loop, done: make(chan struct{})}}
}

// MakeSucceededFuture returns a future on loop already holding v.
func MakeSucceededFuture[T any](loop EventLoop, v T) *Future[T] {
	p := NewPromise[T](loop)
	p.Succeed(v)
	return p.future
}

// MakeFailedFuture returns a future on loop already failed with err.
func MakeFailedFuture[T any](loop EventLoop, err error) *Future[T] {
	p := NewPromise[T](loop)
	p.Fail(err)
	return p.future
}

// Future returns the future completed by p.
func (p Promise[T]) Future() *Future[T] { return p.future }

// Succeed completes the promise with v.
func (p Promise[T]) Succeed(v T) { p.future.complete(Result[T]{Value: v}) }

// Fail completes the promise with err.
func (p Promise[T]) Fail(err error) { p.future.complete(Result[T]{Err: err}) }

// Complete completes the promise with r. Returns false if it was already completed.
func (p Promise[T]) Complete(r Result[T]) bool { return p.future.complete(r) }

// CompleteWith completes the promise with the outcome of f.
func (p Promise[T]) CompleteWith(f *Future[T]) {
	f.OnComplete(func(r Result[T]) { p.future.complete(r) })
}

// EventLoop returns the loop callbacks of f run on.
func (f *Future[T]) EventLoop() EventLoop { return f.loop }

// Done is closed once the future has a result.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the result is available.
// Must not be called from f's own loop while f is pending.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.result.Value, f.result.Err
}

// WaitContext is Wait bounded by ctx.
func (f *Future[T]) WaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.result.Value, f.result.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Peek returns the result without blocking; ok is false while pending.
func (f *Future[T]) Peek() (r Result[T], ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.completed
}

// OnComplete registers cb to run on f's loop once the result is known.
func (f *Future[T]) OnComplete(cb func(Result[T])) {
	f.mu.Lock()
	if !f.completed {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	r := f.result
	f.mu.Unlock()
	f.run(func() { cb(r) })
}

func (f *Future[T]) complete(r Result[T]) bool {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return false
	}
	f.result = r
	f.completed = true
	cbs := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	if len(cbs) > 0 {
		f.run(func() {
			for _, cb := range cbs {
				cb(r)
			}
		})
	}
	return true
}

// run executes task on the future's loop, or inline once the loop is gone.
func (f *Future[T]) run(task func()) {
	if f.loop == nil || f.loop.Execute(task) != nil {
		task()
	}
}

// Map transforms a successful result of f on f's loop.
func Map[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	p := NewPromise[U](f.loop)
	f.OnComplete(func(r Result[T]) {
		if r.Err != nil {
			p.Fail(r.Err)
			return
		}
		v, err := fn(r.Value)
		p.Complete(Result[U]{Value: v, Err: err})
	})
	return p.future
}

// FlatMap chains an asynchronous step after a successful f.
// The returned future stays on f's loop whatever loop fn's future uses.
func FlatMap[T, U any](f *Future[T], fn func(T) *Future[U]) *Future[U] {
	p := NewPromise[U](f.loop)
	f.OnComplete(func(r Result[T]) {
		if r.Err != nil {
			p.Fail(r.Err)
			return
		}
		p.CompleteWith(fn(r.Value))
	})
	return p.future
}

// FlatMapError recovers a failed f with an asynchronous step.
func FlatMapError[T any](f *Future[T], fn func(error) *Future[T]) *Future[T] {
	p := NewPromise[T](f.loop)
	f.OnComplete(func(r Result[T]) {
		if r.Err == nil {
			p.Succeed(r.Value)
			return
		}
		p.CompleteWith(fn(r.Err))
	})
	return p.future
}

// Transform chains an asynchronous step after f regardless of its outcome.
func Transform[T, U any](f *Future[T], fn func(Result[T]) *Future[U]) *Future[U] {
	p := NewPromise[U](f.loop)
	f.OnComplete(func(r Result[T]) {
		p.CompleteWith(fn(r))
	})
	return p.future
}

// Hop delivers the outcome of f on loop.
func Hop[T any](f *Future[T], loop EventLoop) *Future[T] {
	if f.loop == loop {
		return f
	}
	p := NewPromise[T](loop)
	p.CompleteWith(f)
	return p.future
}

// WhenAll waits for every future and completes on loop with their values in
// order. All futures are awaited even after a failure; the failure of the
// lowest-indexed failed future is surfaced.
func WhenAll[T any](loop EventLoop, futures []*Future[T]) *Future[[]T] {
	p := NewPromise[[]T](loop)
	if len(futures) == 0 {
		p.Succeed(nil)
		return p.future
	}

	var mu sync.Mutex
	results := make([]Result[T], len(futures))
	remaining := len(futures)
	for i, f := range futures {
		f.OnComplete(func(r Result[T]) {
			mu.Lock()
			results[i] = r
			remaining--
			last := remaining == 0
			mu.Unlock()
			if !last {
				return
			}
			values := make([]T, len(results))
			for j, res := range results {
				if res.Err != nil {
					p.Fail(res.Err)
					return
				}
				values[j] = res.Value
			}
			p.Succeed(values)
		})
	}
	return p.future
}
