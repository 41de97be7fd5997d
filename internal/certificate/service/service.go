package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ysvs/internal/audit"
	"ysvs/internal/certificate/artifact"
	"ysvs/internal/certificate/metrics"
	"ysvs/internal/certificate/models"
	"ysvs/internal/certificate/serial"
	"ysvs/internal/certificate/verifycache"
	eventModels "ysvs/internal/event/models"
	"ysvs/internal/member"
	regModels "ysvs/internal/registration/models"
	id "ysvs/pkg/domain"
	dErrors "ysvs/pkg/domain-errors"
	"ysvs/pkg/platform/sentinel"
	"ysvs/pkg/requestcontext"
)

type CertificateStore interface {
	Create(ctx context.Context, cert *models.Certificate) error
	FindByID(ctx context.Context, certID id.CertificateID) (*models.Certificate, error)
	FindByRegistration(ctx context.Context, regID id.RegistrationID) (*models.Certificate, error)
	FindBySerial(ctx context.Context, serialNumber string) (*models.Certificate, error)
	Revoke(ctx context.Context, certID id.CertificateID, reason string, revokedBy id.UserID, at time.Time) error
}

type TemplateStore interface {
	FindByID(ctx context.Context, templateID id.TemplateID) (*models.CertificateTemplate, error)
	FindDefault(ctx context.Context) (*models.CertificateTemplate, error)
}

// Registrations is the slice of the registration store issuance reads and
// flags.
type Registrations interface {
	FindByID(ctx context.Context, regID id.RegistrationID) (*regModels.Registration, error)
	ListEligible(ctx context.Context, eventID id.EventID) ([]*regModels.Registration, error)
	SetCertificateIssued(ctx context.Context, regID id.RegistrationID, issued bool, at time.Time) error
}

type EventStore interface {
	FindByID(ctx context.Context, eventID id.EventID) (*eventModels.Event, error)
}

// Service issues, revokes and verifies certificates. The unique constraint
// on the certificate store is the authoritative duplicate guard; the
// pre-check in issue only exists to give the common case a clean error
// before a serial is spent.
type Service struct {
	certs     CertificateStore
	templates TemplateStore
	regs      Registrations
	events    EventStore
	members   member.Store
	allocator serial.Allocator
	renderer  artifact.Renderer
	artifacts artifact.Store
	cache     *verifycache.Cache
	auditor   *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer

	// verifyBaseURL is the public base the printed verification link points
	// at; the serial is appended.
	verifyBaseURL string
}

type Config struct {
	Certificates  CertificateStore
	Templates     TemplateStore
	Registrations Registrations
	Events        EventStore
	Members       member.Store
	Allocator     serial.Allocator
	Renderer      artifact.Renderer
	Artifacts     artifact.Store
	Cache         *verifycache.Cache
	Auditor       *audit.Publisher
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	VerifyBaseURL string
}

func NewService(cfg Config) *Service {
	return &Service{
		certs:         cfg.Certificates,
		templates:     cfg.Templates,
		regs:          cfg.Registrations,
		events:        cfg.Events,
		members:       cfg.Members,
		allocator:     cfg.Allocator,
		renderer:      cfg.Renderer,
		artifacts:     cfg.Artifacts,
		cache:         cfg.Cache,
		auditor:       cfg.Auditor,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		tracer:        otel.Tracer("ysvs/certificate"),
		verifyBaseURL: cfg.VerifyBaseURL,
	}
}

// Issue creates the certificate for one attended registration. Calling it
// twice for the same registration yields exactly one certificate; the second
// call fails with Conflict whether it loses at the pre-check or at the
// store's unique constraint.
func (s *Service) Issue(ctx context.Context, regID id.RegistrationID, templateID *id.TemplateID) (*models.Certificate, error) {
	started := time.Now()
	cert, err := s.issue(ctx, regID, templateID)
	s.metrics.ObserveIssueLatency(time.Since(started))
	switch {
	case err == nil:
		s.metrics.IncrementIssue("issued")
	case dErrors.HasCode(err, dErrors.CodeConflict):
		s.metrics.IncrementIssue("conflict")
	default:
		s.metrics.IncrementIssue("error")
	}
	return cert, err
}

func (s *Service) issue(ctx context.Context, regID id.RegistrationID, templateID *id.TemplateID) (*models.Certificate, error) {
	if _, err := s.certs.FindByRegistration(ctx, regID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "certificate already issued for this registration")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing certificate")
	}

	reg, err := s.regs.FindByID(ctx, regID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	if reg.Status != regModels.StatusAttended {
		return nil, dErrors.New(dErrors.CodeInvalidState, "certificate requires an attended registration")
	}

	template, err := s.resolveTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	serialNumber, err := s.allocator.Next(ctx, now.Year())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate serial number")
	}
	return s.issueWithSerial(ctx, reg, template, serialNumber, now)
}

// issueWithSerial runs the snapshot, render, persist sequence for an already
// allocated serial. Shared by single and bulk issuance.
func (s *Service) issueWithSerial(
	ctx context.Context,
	reg *regModels.Registration,
	template *models.CertificateTemplate,
	serialNumber string,
	now time.Time,
) (*models.Certificate, error) {
	recipient, err := s.members.FindByID(ctx, reg.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "member record not found for registration")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}
	event, err := s.events.FindByID(ctx, reg.EventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found for registration")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}

	doc := artifact.Document{
		SerialNumber:    serialNumber,
		RecipientName:   recipient.FullName,
		EventTitle:      event.Title,
		CMEHours:        event.CMEHours,
		EventDate:       event.StartsAt,
		VerificationURL: s.verifyBaseURL + "/certificates/verify/" + serialNumber,
	}
	if template != nil {
		doc.Layout = template.Layout
	}
	rendered, err := s.renderer.Render(ctx, doc)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render certificate")
	}
	path, err := s.artifacts.Save(ctx, serialNumber+".pdf", rendered)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store certificate artifact")
	}

	cert := &models.Certificate{
		ID:             id.CertificateID(uuid.New()),
		RegistrationID: reg.ID,
		SerialNumber:   serialNumber,
		RecipientName:  recipient.FullName,
		EventTitle:     event.Title,
		CMEHours:       event.CMEHours,
		EventDate:      event.StartsAt,
		ArtifactPath:   path,
		IsValid:        true,
		IssuedAt:       now,
		UpdatedAt:      now,
	}
	if template != nil {
		templateID := template.ID
		cert.TemplateID = &templateID
	}

	if err := s.certs.Create(ctx, cert); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "certificate already issued for this registration")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist certificate")
	}

	if err := s.regs.SetCertificateIssued(ctx, reg.ID, true, now); err != nil {
		// The certificate is the source of truth; a stale flag only costs a
		// skipped item on the next bulk run.
		s.logger.ErrorContext(ctx, "failed to flag registration as certified",
			"registration_id", reg.ID.String(), "error", err)
	}

	if err := s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionCertificateIssued,
		ActorID:   requestcontext.UserID(ctx).String(),
		SubjectID: cert.ID.String(),
		EventID:   reg.EventID.String(),
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", audit.ActionCertificateIssued, "error", err)
	}
	return cert, nil
}

func (s *Service) resolveTemplate(ctx context.Context, templateID *id.TemplateID) (*models.CertificateTemplate, error) {
	if templateID != nil {
		template, err := s.templates.FindByID(ctx, *templateID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "certificate template not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load template")
		}
		return template, nil
	}
	template, err := s.templates.FindDefault(ctx)
	if err != nil {
		// No default template is fine; the renderer falls back to built-in
		// defaults.
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load default template")
	}
	return template, nil
}

// Revoke invalidates a certificate without deleting it; the serial keeps
// resolving publicly to a "revoked" outcome.
func (s *Service) Revoke(ctx context.Context, certID id.CertificateID, reason string) (*models.Certificate, error) {
	actor := requestcontext.UserID(ctx)
	cert, err := s.certs.FindByID(ctx, certID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
	}

	now := requestcontext.Now(ctx)
	if err := s.certs.Revoke(ctx, certID, reason, actor, now); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeInvalidState, "certificate is already revoked")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke certificate")
		}
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, cert.SerialNumber)
	}
	s.metrics.IncrementRevocations()
	if err := s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionCertificateRevoked,
		ActorID:   actor.String(),
		SubjectID: certID.String(),
		Reason:    reason,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", audit.ActionCertificateRevoked, "error", err)
	}

	revoked, err := s.certs.FindByID(ctx, certID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload certificate")
	}
	return revoked, nil
}

// Verify is the public lookup. A missing or revoked serial is an expected
// outcome and returns a non-error result; only infrastructure failures
// surface as errors.
func (s *Service) Verify(ctx context.Context, serialNumber string) (*models.VerificationResult, error) {
	if s.cache != nil {
		result, err := s.cache.Lookup(ctx, serialNumber, s.loadVerification)
		if err != nil {
			return nil, err
		}
		s.recordVerify(result)
		return result, nil
	}
	result, err := s.loadVerification(ctx, serialNumber)
	if err != nil {
		return nil, err
	}
	s.recordVerify(result)
	return result, nil
}

func (s *Service) loadVerification(ctx context.Context, serialNumber string) (*models.VerificationResult, error) {
	cert, err := s.certs.FindBySerial(ctx, serialNumber)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &models.VerificationResult{
				Valid:   false,
				Message: "no certificate with this serial number",
			}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up certificate")
	}

	projection := &models.VerifiedCertificate{
		SerialNumber:  cert.SerialNumber,
		RecipientName: cert.RecipientName,
		EventTitle:    cert.EventTitle,
		CMEHours:      cert.CMEHours,
		EventDate:     cert.EventDate,
		IssuedAt:      cert.IssuedAt,
	}
	if !cert.IsValid {
		return &models.VerificationResult{
			Valid:       false,
			Message:     "certificate has been revoked",
			Certificate: projection,
		}, nil
	}
	return &models.VerificationResult{
		Valid:       true,
		Message:     "certificate is valid",
		Certificate: projection,
	}, nil
}

func (s *Service) recordVerify(result *models.VerificationResult) {
	switch {
	case result.Valid:
		s.metrics.IncrementVerify("valid")
	case result.Certificate != nil:
		s.metrics.IncrementVerify("revoked")
	default:
		s.metrics.IncrementVerify("not_found")
	}
}

// IssueForEvent drives issuance over the event's eligibility set. Each item
// is its own unit of work: a failure appends an error and the batch keeps
// going, so prior successes always stand.
func (s *Service) IssueForEvent(ctx context.Context, eventID id.EventID, templateID *id.TemplateID) (*models.BulkResult, error) {
	ctx, span := s.tracer.Start(ctx, "certificate.issue_for_event",
		trace.WithAttributes(attribute.String("event.id", eventID.String())))
	defer span.End()

	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	template, err := s.resolveTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	eligible, err := s.regs.ListEligible(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list eligible registrations")
	}

	result := &models.BulkResult{Errors: []models.BulkError{}}
	if len(eligible) == 0 {
		return result, nil
	}

	now := requestcontext.Now(ctx)
	serials, err := s.allocator.NextBatch(ctx, now.Year(), len(eligible))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate serial block")
	}

	for i, reg := range eligible {
		_, err := s.issueOne(ctx, reg, template, serials[i], now)
		switch {
		case err == nil:
			result.Generated++
			s.metrics.IncrementBulkItem("generated")
		case dErrors.HasCode(err, dErrors.CodeConflict):
			result.Skipped++
			s.metrics.IncrementBulkItem("skipped")
		default:
			result.Errors = append(result.Errors, models.BulkError{
				RegistrationID: reg.ID,
				Message:        err.Error(),
			})
			s.metrics.IncrementBulkItem("error")
			s.logger.WarnContext(ctx, "bulk issuance item failed",
				"registration_id", reg.ID.String(), "error", err)
		}
	}

	span.SetAttributes(
		attribute.Int("bulk.generated", result.Generated),
		attribute.Int("bulk.skipped", result.Skipped),
		attribute.Int("bulk.errors", len(result.Errors)),
	)
	return result, nil
}

// issueOne is the per-item unit of work for bulk issuance. The eligibility
// query already filtered by flag, so the pre-check here catches only flag
// drift and races; the store constraint catches the rest.
func (s *Service) issueOne(
	ctx context.Context,
	reg *regModels.Registration,
	template *models.CertificateTemplate,
	serialNumber string,
	now time.Time,
) (*models.Certificate, error) {
	if _, err := s.certs.FindByRegistration(ctx, reg.ID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "certificate already issued for this registration")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing certificate")
	}
	return s.issueWithSerial(ctx, reg, template, serialNumber, now)
}

// GetCertificate returns one certificate by ID.
func (s *Service) GetCertificate(ctx context.Context, certID id.CertificateID) (*models.Certificate, error) {
	cert, err := s.certs.FindByID(ctx, certID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
	}
	return cert, nil
}
