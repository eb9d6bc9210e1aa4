// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-ctx.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrEventLoopClosed = errors.New("event loop is closed")
	ErrChannelInactive = errors.New("channel is not active")
	ErrChannelClosed   = errors.New("channel is closed")
	ErrInvalidArgument = errors.New("invalid argument")
)

// ProtocolError reports a response that does not match the request
// under the ping protocol.
type ProtocolError struct {
	Request  Message
	Response Message
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unexpected response %s to request %s", e.Response, e.Request)
}
