package tickettype

import (
	"context"
	"sync"

	"ysvs/internal/inventory/models"
	id "ysvs/pkg/domain"
	"ysvs/pkg/platform/sentinel"
)

// InMemory keeps ticket types behind a mutex so Reserve is test-and-set under
// one lock, matching the single conditional UPDATE the Postgres store issues.
type InMemory struct {
	mu      sync.RWMutex
	tickets map[id.TicketTypeID]*models.TicketType
}

func NewInMemory() *InMemory {
	return &InMemory{tickets: make(map[id.TicketTypeID]*models.TicketType)}
}

func (s *InMemory) Create(_ context.Context, ticket *models.TicketType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tickets[ticket.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *ticket
	s.tickets[ticket.ID] = &copied
	return nil
}

func (s *InMemory) FindByID(_ context.Context, ticketID id.TicketTypeID) (*models.TicketType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[ticketID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *ticket
	return &copied, nil
}

func (s *InMemory) ListByEvent(_ context.Context, eventID id.EventID) ([]*models.TicketType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.TicketType
	for _, ticket := range s.tickets {
		if ticket.EventID == eventID {
			copied := *ticket
			out = append(out, &copied)
		}
	}
	return out, nil
}

// Reserve claims one unit of supply. Inactive tickets and exhausted supply
// fail with distinct sentinels so the service can map them to distinct
// domain codes.
func (s *InMemory) Reserve(_ context.Context, ticketID id.TicketTypeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[ticketID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !ticket.IsActive {
		return sentinel.ErrInactive
	}
	if ticket.MaxQuantity > 0 && ticket.SoldQuantity >= ticket.MaxQuantity {
		return sentinel.ErrCapacityExceeded
	}
	ticket.SoldQuantity++
	return nil
}

// Release returns one unit of supply, clamping at zero.
func (s *InMemory) Release(_ context.Context, ticketID id.TicketTypeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[ticketID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if ticket.SoldQuantity > 0 {
		ticket.SoldQuantity--
	}
	return nil
}
