package audit

import (
	"context"
	"sync"

	"nearhelp/pkg/domain"
)

// Appender is an append-only sink for audit events.
type Appender interface {
	Append(ctx context.Context, event Event) error
}

// Store is an Appender that can also read events back per help request.
type Store interface {
	Appender
	ListByHelpRequest(ctx context.Context, id domain.HelpRequestID) ([]Event, error)
}

// MultiAppender fans each event out to every sink. The first failure is
// returned after all sinks were tried.
type MultiAppender []Appender

func (m MultiAppender) Append(ctx context.Context, event Event) error {
	var firstErr error
	for _, sink := range m {
		if err := sink.Append(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// InMemoryStore keeps events per help request. It backs unit tests and
// single-instance deployments without Kafka.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[domain.HelpRequestID][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[domain.HelpRequestID][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.HelpRequestID] = append(s.events[event.HelpRequestID], event)
	return nil
}

func (s *InMemoryStore) ListByHelpRequest(_ context.Context, id domain.HelpRequestID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[id]...), nil
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[domain.HelpRequestID][]Event)
}
