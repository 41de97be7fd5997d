package registration

import (
	"context"
	"sort"
	"sync"
	"time"

	"ysvs/internal/registration/models"
	id "ysvs/pkg/domain"
	"ysvs/pkg/platform/sentinel"
)

type pairKey struct {
	event id.EventID
	user  id.UserID
}

// InMemory enforces the same uniqueness rules the Postgres schema carries:
// one registration per (event, user) pair and globally unique registration
// numbers. Transitions are test-and-set under one lock.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[id.RegistrationID]*models.Registration
	byPair  map[pairKey]id.RegistrationID
	numbers map[string]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[id.RegistrationID]*models.Registration),
		byPair:  make(map[pairKey]id.RegistrationID),
		numbers: make(map[string]struct{}),
	}
}

func (s *InMemory) Create(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{event: reg.EventID, user: reg.UserID}
	if _, exists := s.byPair[key]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.numbers[reg.RegistrationNumber]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byID[reg.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := cloneRegistration(reg)
	s.byID[reg.ID] = copied
	s.byPair[key] = reg.ID
	s.numbers[reg.RegistrationNumber] = struct{}{}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, regID id.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.byID[regID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRegistration(reg), nil
}

func (s *InMemory) FindByEventAndUser(_ context.Context, eventID id.EventID, userID id.UserID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regID, ok := s.byPair[pairKey{event: eventID, user: userID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRegistration(s.byID[regID]), nil
}

func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Registration
	for _, reg := range s.byID {
		if reg.UserID == userID {
			out = append(out, cloneRegistration(reg))
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemory) ListByStatus(_ context.Context, eventID id.EventID, statuses []models.Status) ([]*models.Registration, error) {
	wanted := make(map[models.Status]bool, len(statuses))
	for _, status := range statuses {
		wanted[status] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Registration
	for _, reg := range s.byID {
		if reg.EventID == eventID && wanted[reg.Status] {
			out = append(out, cloneRegistration(reg))
		}
	}
	sortByCreation(out)
	return out, nil
}

// ListEligible returns the certificate eligibility set: attended and not yet
// certified.
func (s *InMemory) ListEligible(_ context.Context, eventID id.EventID) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Registration
	for _, reg := range s.byID {
		if reg.EventID == eventID && reg.CertificateEligible() {
			out = append(out, cloneRegistration(reg))
		}
	}
	sortByCreation(out)
	return out, nil
}

// Transition moves a registration to target only when its current status is
// in allowedFrom. The check and the write happen under one lock.
func (s *InMemory) Transition(_ context.Context, regID id.RegistrationID, allowedFrom []models.Status, target models.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.byID[regID]
	if !ok {
		return sentinel.ErrNotFound
	}
	allowed := false
	for _, from := range allowedFrom {
		if reg.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return sentinel.ErrInvalidState
	}
	reg.Status = target
	reg.UpdatedAt = at
	switch target {
	case models.StatusAttended:
		stamped := at
		reg.AttendedAt = &stamped
	case models.StatusCancelled:
		stamped := at
		reg.CancelledAt = &stamped
	}
	return nil
}

func (s *InMemory) SetCertificateIssued(_ context.Context, regID id.RegistrationID, issued bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.byID[regID]
	if !ok {
		return sentinel.ErrNotFound
	}
	reg.CertificateIssued = issued
	reg.UpdatedAt = at
	return nil
}

func cloneRegistration(reg *models.Registration) *models.Registration {
	copied := *reg
	if reg.FormData != nil {
		copied.FormData = make(map[string]any, len(reg.FormData))
		for k, v := range reg.FormData {
			copied.FormData[k] = v
		}
	}
	return &copied
}

func sortByCreation(regs []*models.Registration) {
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].CreatedAt.Before(regs[j].CreatedAt)
	})
}
