// File: client/connection.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connection owns exactly one transport channel and answers the ping
// protocol. All per-call logging goes to the logger of the CallContext passed
// to Send; the connection's own logger only receives lifecycle diagnostics.

package client

import (
	"runtime"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-ctx/api"
	"github.com/momentics/hioload-ctx/baggage"
)

// Connection is a single channel-backed client. It must be closed explicitly.
type Connection struct {
	id      uuid.UUID
	channel api.Channel
	logger  zerolog.Logger
	closed  atomic.Bool
}

var _ Client = (*Connection)(nil)

type connectionOptions struct {
	logger zerolog.Logger
}

// ConnectionOption customizes Connect.
type ConnectionOption func(*connectionOptions)

// WithConnectionLogger sets the logger for events that have no call context,
// such as leak reports. Defaults to a disabled logger.
func WithConnectionLogger(logger zerolog.Logger) ConnectionOption {
	return func(o *connectionOptions) { o.logger = logger }
}

// Connect opens ch to address and completes with the connection once the
// channel is connected. The init event is logged to initLogger, not to the
// connection's own logger. Connect failures are returned as reported by ch.
func Connect(ch api.Channel, address string, initLogger zerolog.Logger, initBaggage baggage.Baggage, opts ...ConnectionOption) *api.Future[*Connection] {
	o := connectionOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	initLogger.Info().
		Str("channel", ch.ID()).
		Str("address", address).
		Str("trace", initBaggage.KeyList()).
		Msg("connection.init")

	return api.Map(ch.Connect(address), func(struct{}) (*Connection, error) {
		return newConnection(ch, o.logger), nil
	})
}

func newConnection(ch api.Channel, logger zerolog.Logger) *Connection {
	c := &Connection{
		id:      uuid.New(),
		channel: ch,
		logger:  logger,
	}
	runtime.SetFinalizer(c, (*Connection).finalize)
	return c
}

// ID returns the connection's identity.
func (c *Connection) ID() uuid.UUID { return c.id }

// EventLoop returns the loop of the underlying channel.
func (c *Connection) EventLoop() api.EventLoop { return c.channel.EventLoop() }

// Logger returns the connection's own logger.
func (c *Connection) Logger() zerolog.Logger { return c.logger }

// IsOpen reports whether the channel is still active.
func (c *Connection) IsOpen() bool { return c.channel.IsActive() }

// CallContext implements Sender: Indifferent, own logger, empty baggage.
func (c *Connection) CallContext() CallContext {
	return NewCallContext(c.logger)
}

// Send implements Sender. The response is resolved on the loop cc's
// preference selects, falling back to the channel's loop.
func (c *Connection) Send(msg api.Message, cc CallContext) *api.Future[api.Message] {
	loop := cc.EventLoop.EventLoop(c.channel.EventLoop())

	resp, ok := msg.Reply()
	if !ok {
		return api.MakeFailedFuture[api.Message](loop, &api.ProtocolError{Request: msg})
	}
	if !c.channel.IsActive() {
		return api.MakeFailedFuture[api.Message](loop, api.ErrChannelInactive)
	}

	cc.Logger.Info().Stringer("message", msg).Msg("connection.request")
	cc.Logger.Info().Stringer("message", resp).Msg("connection.response")
	cc.Logger.Info().Str("trace", cc.Baggage.KeyList()).Msg("connection.trace")
	return api.MakeSucceededFuture(loop, resp)
}

// Close closes the channel. Only the first call reaches the channel; later
// calls complete immediately.
func (c *Connection) Close() *api.Future[struct{}] {
	if !c.closed.CompareAndSwap(false, true) {
		return api.MakeSucceededFuture(c.channel.EventLoop(), struct{}{})
	}
	return c.channel.Close()
}

// WithEventLoop implements Client.
func (c *Connection) WithEventLoop(pref api.EventLoopPreference) Client {
	return Wrap(c).WithEventLoop(pref)
}

// WithLogger implements Client.
func (c *Connection) WithLogger(logger zerolog.Logger) Client {
	return Wrap(c).WithLogger(logger)
}

// WithBaggage implements Client.
func (c *Connection) WithBaggage(b baggage.Baggage) Client {
	return Wrap(c).WithBaggage(b)
}

func (c *Connection) finalize() {
	if c.channel.IsActive() {
		c.logger.Error().
			Str("connection", c.id.String()).
			Str("channel", c.channel.ID()).
			Msg("connection was not closed before it was collected")
	}
}
