// Package fake
// Author: momentics <momentics@gmail.com>
//
// In-memory implementations of api.Channel and api.ChannelFactory for tests
// and demos. Provides predictable, controllable behaviour: connect and close
// failures can be injected and every created channel can be inspected.

package fake

import (
	"sync"

	"github.com/google/uuid"

	"github.com/momentics/hioload-ctx/api"
)

type channelState int

const (
	stateIdle channelState = iota
	stateActive
	stateClosed
)

// Channel is an in-memory api.Channel bound to one event loop.
type Channel struct {
	id   string
	loop api.EventLoop

	mu         sync.Mutex
	state      channelState
	address    string
	connectErr error
	closeErr   error
	closes     int
}

var _ api.Channel = (*Channel)(nil)

// NewChannel creates an unconnected channel on loop.
func NewChannel(loop api.EventLoop) *Channel {
	return &Channel{id: uuid.NewString(), loop: loop}
}

// ID implements api.Channel.
func (c *Channel) ID() string { return c.id }

// EventLoop implements api.Channel.
func (c *Channel) EventLoop() api.EventLoop { return c.loop }

// Connect implements api.Channel. Completes on the channel's loop.
func (c *Channel) Connect(address string) *api.Future[struct{}] {
	p := api.NewPromise[struct{}](c.loop)
	err := c.loop.Execute(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		switch {
		case c.connectErr != nil:
			p.Fail(c.connectErr)
		case c.state == stateClosed:
			p.Fail(api.ErrChannelClosed)
		default:
			c.state = stateActive
			c.address = address
			p.Succeed(struct{}{})
		}
	})
	if err != nil {
		p.Fail(err)
	}
	return p.Future()
}

// IsActive implements api.Channel.
func (c *Channel) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateActive
}

// Close implements api.Channel. Closing an already closed channel fails with
// api.ErrChannelClosed.
func (c *Channel) Close() *api.Future[struct{}] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	if c.closeErr != nil {
		return api.MakeFailedFuture[struct{}](c.loop, c.closeErr)
	}
	if c.state == stateClosed {
		return api.MakeFailedFuture[struct{}](c.loop, api.ErrChannelClosed)
	}
	c.state = stateClosed
	return api.MakeSucceededFuture(c.loop, struct{}{})
}

// Address returns the address the channel connected to.
func (c *Channel) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

// CloseCalls returns how many times Close was invoked.
func (c *Channel) CloseCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// SetConnectError configures the channel to fail Connect with err.
func (c *Channel) SetConnectError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectErr = err
}

// SetCloseError configures the channel to fail Close with err.
func (c *Channel) SetCloseError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeErr = err
}

// ChannelFactory creates fake channels and remembers them.
type ChannelFactory struct {
	mu         sync.Mutex
	channels   []*Channel
	connectErr error
	closeErr   error
}

var _ api.ChannelFactory = (*ChannelFactory)(nil)

// NewChannelFactory creates an empty factory.
func NewChannelFactory() *ChannelFactory {
	return &ChannelFactory{}
}

// NewChannel implements api.ChannelFactory.
func (f *ChannelFactory) NewChannel(loop api.EventLoop) api.Channel {
	ch := NewChannel(loop)
	f.mu.Lock()
	defer f.mu.Unlock()
	ch.connectErr = f.connectErr
	ch.closeErr = f.closeErr
	f.channels = append(f.channels, ch)
	return ch
}

// SetConnectError makes channels created from now on fail to connect.
func (f *ChannelFactory) SetConnectError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectErr = err
}

// SetCloseError makes channels created from now on fail to close.
func (f *ChannelFactory) SetCloseError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeErr = err
}

// Channels returns every channel created so far.
func (f *ChannelFactory) Channels() []*Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Channel, len(f.channels))
	copy(out, f.channels)
	return out
}

// Active returns the number of channels currently active.
func (f *ChannelFactory) Active() int {
	n := 0
	for _, ch := range f.Channels() {
		if ch.IsActive() {
			n++
		}
	}
	return n
}
