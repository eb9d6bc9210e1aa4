// File: api/eventloop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Event loop contracts and the per-call event loop preference.

package api

// EventLoop runs submitted tasks one at a time, in submission order,
// on a single goroutine. An EventLoop is a group of one.
type EventLoop interface {
	EventLoopGroup

	// Execute queues task for execution on the loop.
	// Returns ErrEventLoopClosed once the loop has been shut down.
	Execute(task func()) error

	// Name identifies the loop in logs.
	Name() string
}

// EventLoopGroup hands out event loops.
type EventLoopGroup interface {
	// Next returns the loop the group selects for the next piece of work.
	Next() EventLoop
}

// EventLoopPreference selects the loop an operation's result is delivered on.
// The zero value is Indifferent.
type EventLoopPreference struct {
	loop EventLoop
}

// Indifferent leaves the choice of loop to the group.
func Indifferent() EventLoopPreference {
	return EventLoopPreference{}
}

// DelegateOn pins results to loop.
func DelegateOn(loop EventLoop) EventLoopPreference {
	return EventLoopPreference{loop: loop}
}

// IsIndifferent reports whether no loop is pinned.
func (p EventLoopPreference) IsIndifferent() bool {
	return p.loop == nil
}

// Delegate returns the pinned loop, if any.
func (p EventLoopPreference) Delegate() (EventLoop, bool) {
	return p.loop, p.loop != nil
}

// EventLoop resolves the preference against group.
func (p EventLoopPreference) EventLoop(group EventLoopGroup) EventLoop {
	if p.loop != nil {
		return p.loop
	}
	return group.Next()
}

func (p EventLoopPreference) String() string {
	if p.loop == nil {
		return "indifferent"
	}
	return "delegate(" + p.loop.Name() + ")"
}
