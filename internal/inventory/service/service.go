package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"ysvs/internal/inventory/models"
	id "ysvs/pkg/domain"
	dErrors "ysvs/pkg/domain-errors"
	"ysvs/pkg/platform/sentinel"
)

type Store interface {
	Create(ctx context.Context, ticket *models.TicketType) error
	FindByID(ctx context.Context, ticketID id.TicketTypeID) (*models.TicketType, error)
	ListByEvent(ctx context.Context, eventID id.EventID) ([]*models.TicketType, error)
	Reserve(ctx context.Context, ticketID id.TicketTypeID) error
	Release(ctx context.Context, ticketID id.TicketTypeID) error
}

// EventCounters is the slice of the event store this service needs: the
// atomic attendee counter operations.
type EventCounters interface {
	IncrementAttendees(ctx context.Context, eventID id.EventID) error
	DecrementAttendees(ctx context.Context, eventID id.EventID) error
}

// Service owns ticket supply and event attendance counters. Registration
// calls Reserve and IncrementAttendance before persisting a registration and
// the matching release operations as compensating actions, so the counters
// stay correct even when a registration fails downstream.
type Service struct {
	store  Store
	events EventCounters
}

func NewService(store Store, events EventCounters) *Service {
	return &Service{store: store, events: events}
}

type CreateTicketTypeInput struct {
	EventID     id.EventID
	Name        string
	Description string
	PriceCents  int64
	MaxQuantity int
}

func (s *Service) CreateTicketType(ctx context.Context, input CreateTicketTypeInput) (*models.TicketType, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "ticket type name must not be empty")
	}
	if input.PriceCents < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "ticket price must not be negative")
	}
	if input.MaxQuantity < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "ticket quantity must not be negative")
	}

	now := time.Now()
	ticket := &models.TicketType{
		ID:          id.TicketTypeID(uuid.New()),
		EventID:     input.EventID,
		Name:        input.Name,
		Description: input.Description,
		PriceCents:  input.PriceCents,
		MaxQuantity: input.MaxQuantity,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, ticket); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create ticket type")
	}
	return ticket, nil
}

func (s *Service) GetTicketType(ctx context.Context, ticketID id.TicketTypeID) (*models.TicketType, error) {
	ticket, err := s.store.FindByID(ctx, ticketID)
	if err != nil {
		return nil, translateLookup(err)
	}
	return ticket, nil
}

func (s *Service) ListForEvent(ctx context.Context, eventID id.EventID) ([]*models.TicketType, error) {
	tickets, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list ticket types")
	}
	return tickets, nil
}

// Reserve claims one ticket. The store guarantees the claim is atomic; this
// layer only names the failure.
func (s *Service) Reserve(ctx context.Context, ticketID id.TicketTypeID) error {
	err := s.store.Reserve(ctx, ticketID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "ticket type not found")
	case errors.Is(err, sentinel.ErrInactive):
		return dErrors.New(dErrors.CodeInvalidState, "ticket type is not active")
	case errors.Is(err, sentinel.ErrCapacityExceeded):
		return dErrors.New(dErrors.CodeCapacityExceeded, "ticket type is sold out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reserve ticket")
	}
}

// Release is the compensating action for a failed or cancelled registration.
func (s *Service) Release(ctx context.Context, ticketID id.TicketTypeID) error {
	err := s.store.Release(ctx, ticketID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "ticket type not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to release ticket")
	}
}

// IncrementAttendance claims one seat on the event. The event store executes
// the capacity check and the increment as one atomic operation.
func (s *Service) IncrementAttendance(ctx context.Context, eventID id.EventID) error {
	err := s.events.IncrementAttendees(ctx, eventID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "event not found")
	case errors.Is(err, sentinel.ErrCapacityExceeded):
		return dErrors.New(dErrors.CodeCapacityExceeded, "event is full")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to increment attendance")
	}
}

// DecrementAttendance returns one seat, clamping at zero.
func (s *Service) DecrementAttendance(ctx context.Context, eventID id.EventID) error {
	err := s.events.DecrementAttendees(ctx, eventID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "event not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to decrement attendance")
	}
}

func translateLookup(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "ticket type not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ticket type")
}
