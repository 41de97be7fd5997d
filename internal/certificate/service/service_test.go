package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ysvs/internal/audit"
	"ysvs/internal/certificate/artifact"
	"ysvs/internal/certificate/artifact/mocks"
	"ysvs/internal/certificate/models"
	"ysvs/internal/certificate/serial"
	certstore "ysvs/internal/certificate/store/certificate"
	templatestore "ysvs/internal/certificate/store/template"
	eventModels "ysvs/internal/event/models"
	eventstore "ysvs/internal/event/store/event"
	"ysvs/internal/member"
	regModels "ysvs/internal/registration/models"
	regstore "ysvs/internal/registration/store/registration"
	id "ysvs/pkg/domain"
	dErrors "ysvs/pkg/domain-errors"
	"ysvs/pkg/requestcontext"
)

type CertificateServiceSuite struct {
	suite.Suite
	service   *Service
	certs     *certstore.InMemory
	templates *templatestore.InMemory
	regs      *regstore.InMemory
	events    *eventstore.InMemory
	members   *member.InMemory
	sink      *audit.MemorySink
	ctx       context.Context
	seq       int
}

func (s *CertificateServiceSuite) SetupTest() {
	s.certs = certstore.NewInMemory()
	s.templates = templatestore.NewInMemory()
	s.regs = regstore.NewInMemory()
	s.events = eventstore.NewInMemory()
	s.members = member.NewInMemory()
	s.sink = audit.NewMemorySink()
	s.seq = 0

	artifacts, err := artifact.NewFilesystemStore(s.T().TempDir())
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(Config{
		Certificates:  s.certs,
		Templates:     s.templates,
		Registrations: s.regs,
		Events:        s.events,
		Members:       s.members,
		Allocator:     serial.NewMemory("YSVS"),
		Renderer:      artifact.NewPDFRenderer(),
		Artifacts:     artifacts,
		Auditor:       audit.NewPublisher(s.sink),
		Logger:        logger,
		VerifyBaseURL: "https://example.org",
	})
	s.ctx = requestcontext.WithRole(
		requestcontext.WithUserID(context.Background(), id.UserID(uuid.New())),
		requestcontext.RoleAdmin,
	)
}

func TestCertificateServiceSuite(t *testing.T) {
	suite.Run(t, new(CertificateServiceSuite))
}

func (s *CertificateServiceSuite) createEvent() *eventModels.Event {
	now := time.Now()
	event := &eventModels.Event{
		ID:        id.EventID(uuid.New()),
		Title:     "Annual Vascular Congress",
		CMEHours:  8,
		StartsAt:  now.AddDate(0, -1, 0),
		EndsAt:    now.AddDate(0, -1, -2),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.events.Create(s.ctx, event))
	return event
}

func (s *CertificateServiceSuite) createMember(name string) *member.Member {
	m := &member.Member{
		ID:        id.UserID(uuid.New()),
		FullName:  name,
		Email:     "attendee@example.org",
		Active:    true,
		CreatedAt: time.Now(),
	}
	s.Require().NoError(s.members.Create(s.ctx, m))
	return m
}

// attendedRegistration seeds a registration already in ATTENDED state, the
// way bulk issuance would find it.
func (s *CertificateServiceSuite) attendedRegistration(eventID id.EventID, userID id.UserID) *regModels.Registration {
	now := time.Now()
	s.seq++
	attended := now.Add(-time.Hour)
	reg := &regModels.Registration{
		ID:                 id.RegistrationID(uuid.New()),
		EventID:            eventID,
		UserID:             userID,
		Status:             regModels.StatusAttended,
		PaymentStatus:      regModels.PaymentFree,
		RegistrationNumber: fmt.Sprintf("REG-2026-%08x", s.seq),
		AttendedAt:         &attended,
		CreatedAt:          now.Add(time.Duration(s.seq) * time.Millisecond),
		UpdatedAt:          now,
	}
	s.Require().NoError(s.regs.Create(s.ctx, reg))
	return reg
}

func (s *CertificateServiceSuite) TestIssue() {
	s.Run("issues with a snapshot frozen at issuance", func() {
		event := s.createEvent()
		recipient := s.createMember("Dr. Selin Aydin")
		reg := s.attendedRegistration(event.ID, recipient.ID)

		cert, err := s.service.Issue(s.ctx, reg.ID, nil)
		s.Require().NoError(err)
		s.Equal(fmt.Sprintf("YSVS-%d-00001", time.Now().Year()), cert.SerialNumber)
		s.Equal("Dr. Selin Aydin", cert.RecipientName)
		s.Equal(event.Title, cert.EventTitle)
		s.Equal(event.CMEHours, cert.CMEHours)
		s.True(cert.IsValid)
		s.NotEmpty(cert.ArtifactPath)

		flagged, err := s.regs.FindByID(s.ctx, reg.ID)
		s.Require().NoError(err)
		s.True(flagged.CertificateIssued)
	})

	s.Run("second issue for the same registration conflicts", func() {
		event := s.createEvent()
		recipient := s.createMember("Dr. Selin Aydin")
		reg := s.attendedRegistration(event.ID, recipient.ID)

		_, err := s.service.Issue(s.ctx, reg.ID, nil)
		s.Require().NoError(err)
		_, err = s.service.Issue(s.ctx, reg.ID, nil)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unattended registration is rejected", func() {
		event := s.createEvent()
		recipient := s.createMember("Dr. Selin Aydin")
		reg := s.attendedRegistration(event.ID, recipient.ID)
		s.Require().NoError(s.regs.Transition(s.ctx, reg.ID,
			[]regModels.Status{regModels.StatusAttended}, regModels.StatusConfirmed, time.Now()))

		_, err := s.service.Issue(s.ctx, reg.ID, nil)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("unknown registration returns not found", func() {
		_, err := s.service.Issue(s.ctx, id.RegistrationID(uuid.New()), nil)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("explicit missing template returns not found", func() {
		event := s.createEvent()
		recipient := s.createMember("Dr. Selin Aydin")
		reg := s.attendedRegistration(event.ID, recipient.ID)

		missing := id.TemplateID(uuid.New())
		_, err := s.service.Issue(s.ctx, reg.ID, &missing)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *CertificateServiceSuite) TestRevoke() {
	event := s.createEvent()
	recipient := s.createMember("Dr. Selin Aydin")
	reg := s.attendedRegistration(event.ID, recipient.ID)
	cert, err := s.service.Issue(s.ctx, reg.ID, nil)
	s.Require().NoError(err)

	s.Run("revocation stamps metadata and keeps the record", func() {
		revoked, err := s.service.Revoke(s.ctx, cert.ID, "credits retracted after review")
		s.Require().NoError(err)
		s.False(revoked.IsValid)
		s.NotNil(revoked.RevokedAt)
		s.Equal("credits retracted after review", revoked.RevokedReason)
		s.Require().NotNil(revoked.RevokedBy)
		s.Equal(requestcontext.UserID(s.ctx), *revoked.RevokedBy)
	})

	s.Run("re-revoking is rejected", func() {
		_, err := s.service.Revoke(s.ctx, cert.ID, "again")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("unknown certificate returns not found", func() {
		_, err := s.service.Revoke(s.ctx, id.CertificateID(uuid.New()), "reason")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *CertificateServiceSuite) TestVerify() {
	event := s.createEvent()
	recipient := s.createMember("Dr. Selin Aydin")
	reg := s.attendedRegistration(event.ID, recipient.ID)
	cert, err := s.service.Issue(s.ctx, reg.ID, nil)
	s.Require().NoError(err)

	s.Run("valid certificate resolves with the public projection", func() {
		result, err := s.service.Verify(s.ctx, cert.SerialNumber)
		s.Require().NoError(err)
		s.True(result.Valid)
		s.Require().NotNil(result.Certificate)
		s.Equal(cert.SerialNumber, result.Certificate.SerialNumber)
		s.Equal("Dr. Selin Aydin", result.Certificate.RecipientName)
	})

	s.Run("missing serial is a non-error outcome", func() {
		result, err := s.service.Verify(s.ctx, "YSVS-2026-99999")
		s.Require().NoError(err)
		s.False(result.Valid)
		s.Nil(result.Certificate)
	})

	s.Run("revoked certificate still resolves, as invalid", func() {
		_, err := s.service.Revoke(s.ctx, cert.ID, "credits retracted after review")
		s.Require().NoError(err)

		result, err := s.service.Verify(s.ctx, cert.SerialNumber)
		s.Require().NoError(err)
		s.False(result.Valid)
		s.Require().NotNil(result.Certificate)
		s.Contains(result.Message, "revoked")
	})
}

// TestBulkIssuance covers the partial-failure contract: already-certified
// registrations are skipped, a registration whose member record is gone
// lands in the error list, and everything else is generated regardless.
func (s *CertificateServiceSuite) TestBulkIssuance() {
	event := s.createEvent()

	var clean []*regModels.Registration
	for range 2 {
		recipient := s.createMember("Dr. Clean Path")
		clean = append(clean, s.attendedRegistration(event.ID, recipient.ID))
	}

	// Two already hold certificates; resetting the flag puts them back in
	// the eligibility set so only the duplicate guard can stop them.
	for range 2 {
		recipient := s.createMember("Dr. Already Certified")
		reg := s.attendedRegistration(event.ID, recipient.ID)
		_, err := s.service.Issue(s.ctx, reg.ID, nil)
		s.Require().NoError(err)
		s.Require().NoError(s.regs.SetCertificateIssued(s.ctx, reg.ID, false, time.Now()))
	}

	// One registration references a user with no member record.
	orphan := s.attendedRegistration(event.ID, id.UserID(uuid.New()))

	result, err := s.service.IssueForEvent(s.ctx, event.ID, nil)
	s.Require().NoError(err)
	s.Equal(2, result.Generated)
	s.Equal(2, result.Skipped)
	s.Require().Len(result.Errors, 1)
	s.Equal(orphan.ID, result.Errors[0].RegistrationID)

	// The successes stand despite the failure.
	for _, reg := range clean {
		cert, err := s.certs.FindByRegistration(s.ctx, reg.ID)
		s.Require().NoError(err)
		s.True(cert.IsValid)
	}
}

func (s *CertificateServiceSuite) TestBulkStructuralFailures() {
	s.Run("unknown event is a structural error", func() {
		_, err := s.service.IssueForEvent(s.ctx, id.EventID(uuid.New()), nil)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("empty eligibility set returns a zero tally", func() {
		event := s.createEvent()
		result, err := s.service.IssueForEvent(s.ctx, event.ID, nil)
		s.Require().NoError(err)
		s.Equal(&models.BulkResult{Errors: []models.BulkError{}}, result)
	})
}

// TestArtifactFailure verifies a storage failure aborts the item before any
// certificate record exists.
func (s *CertificateServiceSuite) TestArtifactFailure() {
	ctrl := gomock.NewController(s.T())
	artifacts := mocks.NewMockStore(ctrl)
	artifacts.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", fmt.Errorf("bucket unavailable"))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewService(Config{
		Certificates:  s.certs,
		Templates:     s.templates,
		Registrations: s.regs,
		Events:        s.events,
		Members:       s.members,
		Allocator:     serial.NewMemory("YSVS"),
		Renderer:      artifact.NewPDFRenderer(),
		Artifacts:     artifacts,
		Auditor:       audit.NewPublisher(s.sink),
		Logger:        logger,
		VerifyBaseURL: "https://example.org",
	})

	event := s.createEvent()
	recipient := s.createMember("Dr. Selin Aydin")
	reg := s.attendedRegistration(event.ID, recipient.ID)

	_, err := service.Issue(s.ctx, reg.ID, nil)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeInternal))

	_, err = s.certs.FindByRegistration(s.ctx, reg.ID)
	s.Require().Error(err)
}
