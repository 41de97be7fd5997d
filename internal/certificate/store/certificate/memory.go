package certificate

import (
	"context"
	"sync"
	"time"

	"ysvs/internal/certificate/models"
	id "ysvs/pkg/domain"
	"ysvs/pkg/platform/sentinel"
)

// InMemory enforces the same uniqueness rules the Postgres schema carries:
// one certificate per registration and globally unique serials. First write
// wins; a racing duplicate gets ErrConflict.
type InMemory struct {
	mu             sync.RWMutex
	byID           map[id.CertificateID]*models.Certificate
	byRegistration map[id.RegistrationID]id.CertificateID
	bySerial       map[string]id.CertificateID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:           make(map[id.CertificateID]*models.Certificate),
		byRegistration: make(map[id.RegistrationID]id.CertificateID),
		bySerial:       make(map[string]id.CertificateID),
	}
}

func (s *InMemory) Create(_ context.Context, cert *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byRegistration[cert.RegistrationID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.bySerial[cert.SerialNumber]; exists {
		return sentinel.ErrConflict
	}
	copied := *cert
	s.byID[cert.ID] = &copied
	s.byRegistration[cert.RegistrationID] = cert.ID
	s.bySerial[cert.SerialNumber] = cert.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, certID id.CertificateID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cert, ok := s.byID[certID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *cert
	return &copied, nil
}

func (s *InMemory) FindByRegistration(_ context.Context, regID id.RegistrationID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	certID, ok := s.byRegistration[regID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.byID[certID]
	return &copied, nil
}

func (s *InMemory) FindBySerial(_ context.Context, serialNumber string) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	certID, ok := s.bySerial[serialNumber]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.byID[certID]
	return &copied, nil
}

// Revoke flips validity exactly once. Re-revoking an invalid certificate is
// rejected so revocation metadata is never overwritten.
func (s *InMemory) Revoke(_ context.Context, certID id.CertificateID, reason string, revokedBy id.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert, ok := s.byID[certID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !cert.IsValid {
		return sentinel.ErrInvalidState
	}
	cert.IsValid = false
	stamped := at
	cert.RevokedAt = &stamped
	cert.RevokedReason = reason
	actor := revokedBy
	cert.RevokedBy = &actor
	cert.UpdatedAt = at
	return nil
}
