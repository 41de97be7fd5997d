package template

import (
	"context"
	"sync"

	"ysvs/internal/certificate/models"
	id "ysvs/pkg/domain"
	"ysvs/pkg/platform/sentinel"
)

// InMemory keeps certificate templates. Flagging a template as default
// clears the flag from every other template under the same lock, so at most
// one default exists at any time.
type InMemory struct {
	mu        sync.RWMutex
	templates map[id.TemplateID]*models.CertificateTemplate
}

func NewInMemory() *InMemory {
	return &InMemory{templates: make(map[id.TemplateID]*models.CertificateTemplate)}
}

func (s *InMemory) Create(_ context.Context, tmpl *models.CertificateTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.templates[tmpl.ID]; exists {
		return sentinel.ErrConflict
	}
	if tmpl.IsDefault {
		for _, other := range s.templates {
			other.IsDefault = false
		}
	}
	copied := *tmpl
	s.templates[tmpl.ID] = &copied
	return nil
}

func (s *InMemory) FindByID(_ context.Context, templateID id.TemplateID) (*models.CertificateTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tmpl, ok := s.templates[templateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *tmpl
	return &copied, nil
}

func (s *InMemory) FindDefault(_ context.Context) (*models.CertificateTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tmpl := range s.templates {
		if tmpl.IsDefault {
			copied := *tmpl
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) SetDefault(_ context.Context, templateID id.TemplateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.templates[templateID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for _, tmpl := range s.templates {
		tmpl.IsDefault = false
	}
	target.IsDefault = true
	return nil
}
