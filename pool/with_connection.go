// File: pool/with_connection.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"runtime/debug"

	"github.com/momentics/hioload-ctx/api"
	"github.com/momentics/hioload-ctx/client"
)

// WithConnection acquires a connection, runs body with it and releases it
// whatever body's outcome. The result, including an unchanged body failure,
// is delivered after the release completes, on the loop cc.EventLoop selects.
// A panic in body fails the result with *PanicError.
func WithConnection[T any](p *ConnectionPool, cc client.CallContext, body func(*client.Connection) *api.Future[T]) *api.Future[T] {
	loop := cc.EventLoop.EventLoop(p.group)
	return api.FlatMap(p.acquire(cc, loop), func(conn *client.Connection) *api.Future[T] {
		return api.Transform(runBody(loop, conn, body), func(r api.Result[T]) *api.Future[T] {
			out := api.NewPromise[T](loop)
			p.release(conn, cc, loop).OnComplete(func(api.Result[struct{}]) {
				out.Complete(r)
			})
			return out.Future()
		})
	})
}

func runBody[T any](loop api.EventLoop, conn *client.Connection, body func(*client.Connection) *api.Future[T]) (f *api.Future[T]) {
	defer func() {
		if v := recover(); v != nil {
			f = api.MakeFailedFuture[T](loop, &PanicError{Value: v, Stack: debug.Stack()})
		}
	}()
	if f = body(conn); f == nil {
		f = api.MakeFailedFuture[T](loop, ErrNilFuture)
	}
	return f
}
