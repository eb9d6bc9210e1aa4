// File: api/message.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Request/response message of the ping protocol.

package api

// Message is the closed set of protocol messages.
type Message uint8

const (
	Ping Message = iota + 1
	Pong
)

// Valid reports whether m is one of Ping or Pong.
func (m Message) Valid() bool {
	return m == Ping || m == Pong
}

// Reply returns the protocol counterpart of m.
// Ping answers Pong and Pong answers Ping.
func (m Message) Reply() (Message, bool) {
	switch m {
	case Ping:
		return Pong, true
	case Pong:
		return Ping, true
	default:
		return 0, false
	}
}

func (m Message) String() string {
	switch m {
	case Ping:
		return "Ping"
	case Pong:
		return "Pong"
	default:
		return "Invalid"
	}
}
