package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ysvs/internal/event/models"
	id "ysvs/pkg/domain"
	"ysvs/pkg/platform/sentinel"
)

type EventStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *EventStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestEventStoreSuite(t *testing.T) {
	suite.Run(t, new(EventStoreSuite))
}

func (s *EventStoreSuite) newEvent(maxAttendees int) *models.Event {
	now := time.Now()
	return &models.Event{
		ID:               id.EventID(uuid.New()),
		Title:            "Annual Vascular Congress",
		CMEHours:         8,
		StartsAt:         now.AddDate(0, 1, 0),
		EndsAt:           now.AddDate(0, 1, 2),
		MaxAttendees:     maxAttendees,
		RegistrationOpen: true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// TestCreationAndLookups verifies the store correctly creates and retrieves events.
func (s *EventStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds event by ID", func() {
		event := s.newEvent(100)
		s.Require().NoError(s.store.Create(s.ctx, event))

		found, err := s.store.FindByID(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Equal(event.Title, found.Title)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.EventID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate ID", func() {
		event := s.newEvent(10)
		s.Require().NoError(s.store.Create(s.ctx, event))
		s.Require().ErrorIs(s.store.Create(s.ctx, event), sentinel.ErrConflict)
	})
}

// TestAttendeeCounter verifies the capacity invariant:
// 0 <= current_attendees <= max_attendees whenever max_attendees > 0.
func (s *EventStoreSuite) TestAttendeeCounter() {
	s.Run("increment stops at capacity", func() {
		event := s.newEvent(2)
		s.Require().NoError(s.store.Create(s.ctx, event))

		s.Require().NoError(s.store.IncrementAttendees(s.ctx, event.ID))
		s.Require().NoError(s.store.IncrementAttendees(s.ctx, event.ID))
		s.Require().ErrorIs(s.store.IncrementAttendees(s.ctx, event.ID), sentinel.ErrCapacityExceeded)

		found, err := s.store.FindByID(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Equal(2, found.CurrentAttendees)
	})

	s.Run("zero max means unlimited", func() {
		event := s.newEvent(0)
		s.Require().NoError(s.store.Create(s.ctx, event))
		for range 50 {
			s.Require().NoError(s.store.IncrementAttendees(s.ctx, event.ID))
		}
	})

	s.Run("decrement clamps at zero", func() {
		event := s.newEvent(5)
		s.Require().NoError(s.store.Create(s.ctx, event))

		s.Require().NoError(s.store.DecrementAttendees(s.ctx, event.ID))

		found, err := s.store.FindByID(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Equal(0, found.CurrentAttendees)
	})

	s.Run("counter ops on missing event return ErrNotFound", func() {
		missing := id.EventID(uuid.New())
		s.Require().ErrorIs(s.store.IncrementAttendees(s.ctx, missing), sentinel.ErrNotFound)
		s.Require().ErrorIs(s.store.DecrementAttendees(s.ctx, missing), sentinel.ErrNotFound)
	})
}

// TestConcurrentIncrements hammers the counter from many goroutines and
// asserts the bound holds: successes + capacity failures == attempts, and
// successes == max_attendees.
func (s *EventStoreSuite) TestConcurrentIncrements() {
	const capacity = 25
	const attempts = 200

	event := s.newEvent(capacity)
	s.Require().NoError(s.store.Create(s.ctx, event))

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.store.IncrementAttendees(s.ctx, event.ID)
		}()
	}
	wg.Wait()
	close(results)

	var successes, capacityErrs int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case s.ErrorIs(err, sentinel.ErrCapacityExceeded):
			capacityErrs++
		}
	}
	s.Equal(capacity, successes)
	s.Equal(attempts-capacity, capacityErrs)

	found, err := s.store.FindByID(s.ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(capacity, found.CurrentAttendees)
}
