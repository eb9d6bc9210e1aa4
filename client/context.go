// File: client/context.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// CallContext bundles the ambient per-call state.

package client

import (
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-ctx/api"
	"github.com/momentics/hioload-ctx/baggage"
)

// CallContext is the state a call carries: where its result is delivered,
// where it logs, and the trace baggage it propagates. It is a value type;
// the With* methods return modified copies.
type CallContext struct {
	EventLoop api.EventLoopPreference
	Logger    zerolog.Logger
	Baggage   baggage.Baggage
}

// NewCallContext returns an Indifferent context logging to logger with empty baggage.
func NewCallContext(logger zerolog.Logger) CallContext {
	return CallContext{Logger: logger}
}

// WithEventLoop returns a copy with the event loop preference replaced.
func (cc CallContext) WithEventLoop(pref api.EventLoopPreference) CallContext {
	cc.EventLoop = pref
	return cc
}

// WithLogger returns a copy with the logger replaced.
func (cc CallContext) WithLogger(logger zerolog.Logger) CallContext {
	cc.Logger = logger
	return cc
}

// WithBaggage returns a copy with the baggage replaced.
func (cc CallContext) WithBaggage(b baggage.Baggage) CallContext {
	cc.Baggage = b
	return cc
}
