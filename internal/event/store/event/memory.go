package event

import (
	"context"
	"sync"

	"ysvs/internal/event/models"
	id "ysvs/pkg/domain"
	"ysvs/pkg/platform/sentinel"
)

// InMemory keeps events behind a mutex so the counter operations are
// test-and-set under one lock, mirroring the conditional UPDATE the Postgres
// store issues. Intended for tests and single-process development.
type InMemory struct {
	mu     sync.RWMutex
	events map[id.EventID]*models.Event
}

func NewInMemory() *InMemory {
	return &InMemory{events: make(map[id.EventID]*models.Event)}
}

func (s *InMemory) Create(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[event.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *event
	s.events[event.ID] = &copied
	return nil
}

func (s *InMemory) FindByID(_ context.Context, eventID id.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *event
	return &copied, nil
}

// IncrementAttendees bumps the attendee counter only while it stays within
// capacity. The check and the write happen under one lock.
func (s *InMemory) IncrementAttendees(_ context.Context, eventID id.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if event.MaxAttendees > 0 && event.CurrentAttendees >= event.MaxAttendees {
		return sentinel.ErrCapacityExceeded
	}
	event.CurrentAttendees++
	return nil
}

// DecrementAttendees is the compensating action for cancellations. It clamps
// at zero rather than failing: releasing more than was held is a logic bug
// upstream, not a reason to strand a cancellation.
func (s *InMemory) DecrementAttendees(_ context.Context, eventID id.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if event.CurrentAttendees > 0 {
		event.CurrentAttendees--
	}
	return nil
}
