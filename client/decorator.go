// File: client/decorator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-ctx/api"
	"github.com/momentics/hioload-ctx/baggage"
)

type override[T any] struct {
	set   bool
	value T
}

func (o override[T]) or(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}

// Decorator wraps a Sender and overrides fields of the context it reports.
// Send is pure forwarding: the context passed by the caller reaches the
// inner sender unchanged, so overrides only affect what convenience calls
// read from CallContext before the first Send.
type Decorator struct {
	inner     Sender
	eventLoop override[api.EventLoopPreference]
	logger    override[zerolog.Logger]
	baggage   override[baggage.Baggage]
}

var _ Client = Decorator{}

// CallContext implements Sender.
func (d Decorator) CallContext() CallContext {
	base := d.inner.CallContext()
	return CallContext{
		EventLoop: d.eventLoop.or(base.EventLoop),
		Logger:    d.logger.or(base.Logger),
		Baggage:   d.baggage.or(base.Baggage),
	}
}

// Send implements Sender.
func (d Decorator) Send(msg api.Message, cc CallContext) *api.Future[api.Message] {
	return d.inner.Send(msg, cc)
}

// WithEventLoop implements Client.
func (d Decorator) WithEventLoop(pref api.EventLoopPreference) Client {
	d.eventLoop = override[api.EventLoopPreference]{set: true, value: pref}
	return d
}

// WithLogger implements Client.
func (d Decorator) WithLogger(logger zerolog.Logger) Client {
	d.logger = override[zerolog.Logger]{set: true, value: logger}
	return d
}

// WithBaggage implements Client.
func (d Decorator) WithBaggage(b baggage.Baggage) Client {
	d.baggage = override[baggage.Baggage]{set: true, value: b}
	return d
}

// Inner returns the wrapped sender.
func (d Decorator) Inner() Sender { return d.inner }
