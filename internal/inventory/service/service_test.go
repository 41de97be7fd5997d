package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	eventmodels "ysvs/internal/event/models"
	eventstore "ysvs/internal/event/store/event"
	"ysvs/internal/inventory/store/tickettype"
	id "ysvs/pkg/domain"
	dErrors "ysvs/pkg/domain-errors"
)

type InventoryServiceSuite struct {
	suite.Suite
	service *Service
	events  *eventstore.InMemory
	ctx     context.Context
}

func (s *InventoryServiceSuite) SetupTest() {
	s.events = eventstore.NewInMemory()
	s.service = NewService(tickettype.NewInMemory(), s.events)
	s.ctx = context.Background()
}

func TestInventoryServiceSuite(t *testing.T) {
	suite.Run(t, new(InventoryServiceSuite))
}

func (s *InventoryServiceSuite) TestCreateTicketType() {
	s.Run("rejects empty name", func() {
		_, err := s.service.CreateTicketType(s.ctx, CreateTicketTypeInput{
			EventID: id.EventID(uuid.New()),
			Name:    "   ",
		})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects negative price", func() {
		_, err := s.service.CreateTicketType(s.ctx, CreateTicketTypeInput{
			EventID:    id.EventID(uuid.New()),
			Name:       "Member Admission",
			PriceCents: -100,
		})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("new ticket types start active", func() {
		ticket, err := s.service.CreateTicketType(s.ctx, CreateTicketTypeInput{
			EventID:     id.EventID(uuid.New()),
			Name:        "Member Admission",
			PriceCents:  15000,
			MaxQuantity: 100,
		})
		s.Require().NoError(err)
		s.True(ticket.IsActive)
		s.Equal(0, ticket.SoldQuantity)
	})
}

// TestReserveTranslation verifies store facts surface as distinct domain codes.
func (s *InventoryServiceSuite) TestReserveTranslation() {
	s.Run("sold out maps to capacity exceeded", func() {
		ticket, err := s.service.CreateTicketType(s.ctx, CreateTicketTypeInput{
			EventID:     id.EventID(uuid.New()),
			Name:        "Workshop Seat",
			MaxQuantity: 1,
		})
		s.Require().NoError(err)

		s.Require().NoError(s.service.Reserve(s.ctx, ticket.ID))
		err = s.service.Reserve(s.ctx, ticket.ID)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeCapacityExceeded))
	})

	s.Run("missing ticket maps to not found", func() {
		err := s.service.Reserve(s.ctx, id.TicketTypeID(uuid.New()))
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// TestAttendanceCounters verifies the event seat counter surfaces the same
// domain codes as ticket supply.
func (s *InventoryServiceSuite) TestAttendanceCounters() {
	s.Run("full event maps to capacity exceeded", func() {
		event := &eventmodels.Event{
			ID:           id.EventID(uuid.New()),
			Title:        "Hands-on Ultrasound Workshop",
			MaxAttendees: 1,
		}
		s.Require().NoError(s.events.Create(s.ctx, event))

		s.Require().NoError(s.service.IncrementAttendance(s.ctx, event.ID))
		err := s.service.IncrementAttendance(s.ctx, event.ID)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeCapacityExceeded))

		s.Require().NoError(s.service.DecrementAttendance(s.ctx, event.ID))
		s.Require().NoError(s.service.IncrementAttendance(s.ctx, event.ID))
	})

	s.Run("missing event maps to not found", func() {
		err := s.service.IncrementAttendance(s.ctx, id.EventID(uuid.New()))
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *InventoryServiceSuite) TestReserveReleaseRoundTrip() {
	ticket, err := s.service.CreateTicketType(s.ctx, CreateTicketTypeInput{
		EventID:     id.EventID(uuid.New()),
		Name:        "Workshop Seat",
		MaxQuantity: 1,
	})
	s.Require().NoError(err)

	s.Require().NoError(s.service.Reserve(s.ctx, ticket.ID))
	s.Require().NoError(s.service.Release(s.ctx, ticket.ID))
	s.Require().NoError(s.service.Reserve(s.ctx, ticket.ID))
}
