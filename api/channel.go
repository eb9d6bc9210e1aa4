// File: api/channel.go
// Author: momentics <momentics@gmail.com>
//
// Transport channel abstraction consumed by connections. Implementations own
// the actual I/O; the core only connects, checks liveness and closes.

package api

// Channel is a single transport channel bound to one event loop.
type Channel interface {
	// ID identifies the channel in logs.
	ID() string

	// EventLoop returns the loop the channel's I/O is bound to.
	EventLoop() EventLoop

	// Connect opens the channel to address. Failures are reported through the future.
	Connect(address string) *Future[struct{}]

	// IsActive reports whether the channel is connected and not yet closed.
	IsActive() bool

	// Close shuts the channel down.
	Close() *Future[struct{}]
}

// ChannelFactory creates unconnected channels on a given loop.
type ChannelFactory interface {
	NewChannel(loop EventLoop) Channel
}

// ChannelFactoryFunc adapts a function to ChannelFactory.
type ChannelFactoryFunc func(loop EventLoop) Channel

// NewChannel implements ChannelFactory.
func (f ChannelFactoryFunc) NewChannel(loop EventLoop) Channel { return f(loop) }
