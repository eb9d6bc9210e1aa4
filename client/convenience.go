// File: client/convenience.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Calls that read the client's current context before sending.

package client

import "github.com/momentics/hioload-ctx/api"

// SendMessage sends msg with s.CallContext().
func SendMessage(s Sender, msg api.Message) *api.Future[api.Message] {
	return s.Send(msg, s.CallContext())
}

// Ping sends Ping and expects Pong. Any other response fails the future
// with *api.ProtocolError.
func Ping(s Sender) *api.Future[struct{}] {
	return expect(s, api.Ping, api.Pong)
}

// Pong sends Pong and expects Ping.
func Pong(s Sender) *api.Future[struct{}] {
	return expect(s, api.Pong, api.Ping)
}

func expect(s Sender, req, want api.Message) *api.Future[struct{}] {
	return api.Map(SendMessage(s, req), func(got api.Message) (struct{}, error) {
		if got != want {
			return struct{}{}, &api.ProtocolError{Request: req, Response: got}
		}
		return struct{}{}, nil
	})
}
