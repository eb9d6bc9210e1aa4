// File: client/client.go
// Package client: context-carrying request/response clients.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Sender performs calls with whatever CallContext it is handed. A Client
// additionally reports a current CallContext and derives new clients with one
// field overridden. Derived clients always forward to the same transport.

package client

import (
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-ctx/api"
	"github.com/momentics/hioload-ctx/baggage"
)

// Sender is the minimal client capability.
type Sender interface {
	// CallContext reports the context convenience calls use.
	CallContext() CallContext

	// Send performs the call using cc, independent of CallContext().
	Send(msg api.Message, cc CallContext) *api.Future[api.Message]
}

// Client is a Sender that can derive clients with overridden context.
type Client interface {
	Sender

	// WithEventLoop returns a client whose results are delivered per pref.
	WithEventLoop(pref api.EventLoopPreference) Client

	// WithLogger returns a client logging to logger.
	WithLogger(logger zerolog.Logger) Client

	// WithBaggage returns a client propagating b.
	WithBaggage(b baggage.Baggage) Client
}

// Wrap turns any Sender into a Client without overriding anything.
// Use it to decorate third-party senders.
func Wrap(s Sender) Client {
	if d, ok := s.(Decorator); ok {
		return d
	}
	return Decorator{inner: s}
}

// Unwrap follows a decorator chain down to the innermost sender.
func Unwrap(s Sender) Sender {
	for {
		d, ok := s.(Decorator)
		if !ok {
			return s
		}
		s = d.inner
	}
}
