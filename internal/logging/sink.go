package logging

import (
	"context"
	"sync"

	"github.com/isseis/go-log-redactor/internal/logevent"
)

// MemorySink keeps every event it receives. It is meant for tests and is safe
// for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	events []*logevent.Event
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Emit implements EventSink.
func (s *MemorySink) Emit(_ context.Context, ev *logevent.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Events returns the received events in order.
func (s *MemorySink) Events() []*logevent.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*logevent.Event(nil), s.events...)
}

// Last returns the most recent event, or nil.
func (s *MemorySink) Last() *logevent.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return nil
	}
	return s.events[len(s.events)-1]
}

// Reset drops all events.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
