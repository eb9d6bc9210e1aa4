// Package logsink captures zerolog output in memory so tests can assert on
// the exact sequence of events a logger received.
package logsink

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Entry is one decoded log event.
type Entry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// Str returns a string field, or "" when absent.
func (e Entry) Str(key string) string {
	s, _ := e.Fields[key].(string)
	return s
}

// Sink is an io.Writer collecting zerolog JSON events.
type Sink struct {
	mu      sync.Mutex
	entries []Entry
}

// New returns an empty sink.
func New() *Sink { return &Sink{} }

// Logger returns a logger writing every level into the sink.
func (s *Sink) Logger() zerolog.Logger {
	return zerolog.New(s).Level(zerolog.TraceLevel)
}

// Write implements io.Writer; zerolog writes one event per call.
func (s *Sink) Write(p []byte) (int, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		return 0, err
	}
	e := Entry{Fields: raw}
	e.Level, _ = raw[zerolog.LevelFieldName].(string)
	e.Message, _ = raw[zerolog.MessageFieldName].(string)

	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
	return len(p), nil
}

// Read returns the messages received since the last read and clears them.
func (s *Sink) Read() []string {
	entries := s.ReadEntries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

// ReadEntries returns the entries received since the last read and clears them.
func (s *Sink) ReadEntries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.entries
	s.entries = nil
	if out == nil {
		out = []Entry{}
	}
	return out
}

// Len returns the number of unread entries.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
