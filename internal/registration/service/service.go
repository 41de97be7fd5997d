package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ysvs/internal/audit"
	eventModels "ysvs/internal/event/models"
	"ysvs/internal/form"
	invModels "ysvs/internal/inventory/models"
	"ysvs/internal/registration/metrics"
	"ysvs/internal/registration/models"
	id "ysvs/pkg/domain"
	dErrors "ysvs/pkg/domain-errors"
	"ysvs/pkg/platform/sentinel"
	"ysvs/pkg/requestcontext"
)

// numberAttempts bounds retries when a generated registration number
// collides with an existing one.
const numberAttempts = 3

type EventStore interface {
	FindByID(ctx context.Context, eventID id.EventID) (*eventModels.Event, error)
}

type Store interface {
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	FindByEventAndUser(ctx context.Context, eventID id.EventID, userID id.UserID) (*models.Registration, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Registration, error)
	ListEligible(ctx context.Context, eventID id.EventID) ([]*models.Registration, error)
	Transition(ctx context.Context, regID id.RegistrationID, allowedFrom []models.Status, target models.Status, at time.Time) error
	SetCertificateIssued(ctx context.Context, regID id.RegistrationID, issued bool, at time.Time) error
}

// Inventory is the slice of the inventory controller this service drives:
// ticket supply and event seat counters.
type Inventory interface {
	GetTicketType(ctx context.Context, ticketID id.TicketTypeID) (*invModels.TicketType, error)
	Reserve(ctx context.Context, ticketID id.TicketTypeID) error
	Release(ctx context.Context, ticketID id.TicketTypeID) error
	IncrementAttendance(ctx context.Context, eventID id.EventID) error
	DecrementAttendance(ctx context.Context, eventID id.EventID) error
}

// Service drives the registration lifecycle: admission, cancellation,
// attendance, and the certificate eligibility set. Counter mutations are
// delegated to the inventory controller; this layer sequences them and runs
// the compensating actions when a later step fails.
type Service struct {
	events    EventStore
	store     Store
	inventory Inventory
	auditor   *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewService(
	events EventStore,
	store Store,
	inventory Inventory,
	auditor *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		events:    events,
		store:     store,
		inventory: inventory,
		auditor:   auditor,
		metrics:   m,
		logger:    logger,
	}
}

type RegisterInput struct {
	EventID      id.EventID
	TicketTypeID *id.TicketTypeID
	FormData     map[string]any
}

// Register admits a user to an event. Admission checks and form validation
// run before any mutation; the counter claims and the insert are sequenced
// so a failure at any point leaves all counters where they started.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.Registration, error) {
	started := time.Now()
	reg, err := s.register(ctx, input)
	s.metrics.ObserveRegisterLatency(time.Since(started))
	if err != nil {
		s.metrics.IncrementOutcome(outcomeLabel(err))
		return nil, err
	}
	s.metrics.IncrementOutcome(string(reg.Status))
	return reg, nil
}

func (s *Service) register(ctx context.Context, input RegisterInput) (*models.Registration, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	now := requestcontext.Now(ctx)

	event, err := s.events.FindByID(ctx, input.EventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}

	open, deadlinePassed := event.AcceptsRegistrationsAt(now)
	if !open {
		return nil, dErrors.New(dErrors.CodeRegistrationClosed, "registration is closed for this event")
	}
	if deadlinePassed {
		return nil, dErrors.New(dErrors.CodeDeadlinePassed, "registration deadline has passed")
	}
	if event.IsFull() {
		return nil, dErrors.New(dErrors.CodeCapacityExceeded, "event is full")
	}

	if _, err := s.store.FindByEventAndUser(ctx, input.EventID, userID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "already registered for this event")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing registration")
	}

	if len(event.FormSchema) > 0 {
		if err := form.ValidateStrict(event.FormSchema, input.FormData); err != nil {
			return nil, err
		}
	}

	payment := models.PaymentFree
	if input.TicketTypeID != nil {
		ticket, err := s.inventory.GetTicketType(ctx, *input.TicketTypeID)
		if err != nil {
			return nil, err
		}
		if ticket.EventID != input.EventID {
			return nil, dErrors.New(dErrors.CodeValidation, "ticket type does not belong to this event")
		}
		if !ticket.IsFree() {
			payment = models.PaymentPending
		}
		if err := s.inventory.Reserve(ctx, *input.TicketTypeID); err != nil {
			return nil, err
		}
	}

	if err := s.inventory.IncrementAttendance(ctx, input.EventID); err != nil {
		s.compensateTicket(ctx, input.TicketTypeID)
		return nil, err
	}

	reg, err := s.persistNew(ctx, input, userID, payment, now)
	if err != nil {
		s.compensateSeat(ctx, input.EventID)
		s.compensateTicket(ctx, input.TicketTypeID)
		return nil, err
	}

	if err := s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionRegistrationCreated,
		ActorID:   userID.String(),
		SubjectID: reg.ID.String(),
		EventID:   input.EventID.String(),
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", audit.ActionRegistrationCreated, "error", err)
	}
	return reg, nil
}

// persistNew inserts the registration, regenerating the registration number
// on a uniqueness collision. A collision on the (event, user) pair surfaces
// as Conflict instead of being retried.
func (s *Service) persistNew(ctx context.Context, input RegisterInput, userID id.UserID, payment models.PaymentStatus, now time.Time) (*models.Registration, error) {
	for attempt := 0; attempt < numberAttempts; attempt++ {
		reg := &models.Registration{
			ID:                 id.RegistrationID(uuid.New()),
			EventID:            input.EventID,
			UserID:             userID,
			TicketTypeID:       input.TicketTypeID,
			FormData:           input.FormData,
			Status:             models.InitialStatus(payment),
			PaymentStatus:      payment,
			RegistrationNumber: newRegistrationNumber(now),
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		err := s.store.Create(ctx, reg)
		if err == nil {
			return reg, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist registration")
		}
		// A conflict is either the (event, user) pair or the number. The
		// pair case wins; only a pure number collision is retryable.
		if _, pairErr := s.store.FindByEventAndUser(ctx, input.EventID, userID); pairErr == nil {
			return nil, dErrors.New(dErrors.CodeConflict, "already registered for this event")
		}
	}
	return nil, dErrors.New(dErrors.CodeConflict, "could not allocate a unique registration number")
}

// Cancel transitions a registration to CANCELLED and runs the compensating
// counter releases. Only the owner or an admin may cancel; an attended
// registration can not be cancelled.
func (s *Service) Cancel(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	userID := requestcontext.UserID(ctx)
	reg, err := s.getOwned(ctx, regID, userID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	err = s.store.Transition(ctx, regID,
		[]models.Status{models.StatusPending, models.StatusConfirmed},
		models.StatusCancelled, now)
	if err != nil {
		return nil, translateTransition(err, "registration can not be cancelled in its current state")
	}

	s.compensateSeat(ctx, reg.EventID)
	s.compensateTicket(ctx, reg.TicketTypeID)

	s.metrics.IncrementTransition(string(models.StatusCancelled))
	if err := s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionRegistrationCancelled,
		ActorID:   userID.String(),
		SubjectID: regID.String(),
		EventID:   reg.EventID.String(),
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", audit.ActionRegistrationCancelled, "error", err)
	}
	return s.reload(ctx, regID)
}

// MarkAttendance transitions CONFIRMED to ATTENDED. Attendance presumes a
// confirmed registration, so PENDING is rejected. The admin gate sits in the
// transport layer.
func (s *Service) MarkAttendance(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	now := requestcontext.Now(ctx)
	err := s.store.Transition(ctx, regID,
		[]models.Status{models.StatusConfirmed},
		models.StatusAttended, now)
	if err != nil {
		return nil, translateTransition(err, "attendance requires a confirmed registration")
	}

	s.metrics.IncrementTransition(string(models.StatusAttended))
	if err := s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionRegistrationAttended,
		ActorID:   requestcontext.UserID(ctx).String(),
		SubjectID: regID.String(),
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", audit.ActionRegistrationAttended, "error", err)
	}
	return s.reload(ctx, regID)
}

// GetRegistration returns one registration with an ownership check.
func (s *Service) GetRegistration(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	return s.getOwned(ctx, regID, requestcontext.UserID(ctx))
}

// ListMyRegistrations returns everything the calling user has registered for.
func (s *Service) ListMyRegistrations(ctx context.Context) ([]*models.Registration, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	regs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return regs, nil
}

// GetAttendedRegistrations returns the certificate eligibility set for an
// event: attended registrations that do not yet hold a certificate.
func (s *Service) GetAttendedRegistrations(ctx context.Context, eventID id.EventID) ([]*models.Registration, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	regs, err := s.store.ListEligible(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list eligible registrations")
	}
	return regs, nil
}

func (s *Service) getOwned(ctx context.Context, regID id.RegistrationID, userID id.UserID) (*models.Registration, error) {
	reg, err := s.store.FindByID(ctx, regID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	if reg.UserID != userID && !requestcontext.IsAdmin(ctx) {
		return nil, dErrors.New(dErrors.CodeForbidden, "registration belongs to another user")
	}
	return reg, nil
}

func (s *Service) reload(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	reg, err := s.store.FindByID(ctx, regID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload registration")
	}
	return reg, nil
}

// compensateTicket and compensateSeat undo counter claims after a downstream
// failure. Compensation failures are logged, not propagated: the caller is
// already handling the primary error.
func (s *Service) compensateTicket(ctx context.Context, ticketID *id.TicketTypeID) {
	if ticketID == nil {
		return
	}
	if err := s.inventory.Release(ctx, *ticketID); err != nil {
		s.logger.ErrorContext(ctx, "ticket release compensation failed",
			"ticket_type_id", ticketID.String(), "error", err)
	}
}

func (s *Service) compensateSeat(ctx context.Context, eventID id.EventID) {
	if err := s.inventory.DecrementAttendance(ctx, eventID); err != nil {
		s.logger.ErrorContext(ctx, "attendance compensation failed",
			"event_id", eventID.String(), "error", err)
	}
}

func translateTransition(err error, invalidStateMsg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "registration not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, invalidStateMsg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update registration")
	}
}

func outcomeLabel(err error) string {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return string(domainErr.Code)
	}
	return "internal_error"
}

// newRegistrationNumber builds the human-readable identifier handed to the
// registrant: REG-<year>-<8 hex chars>. Uniqueness is enforced by the store;
// collisions are retried by the caller.
func newRegistrationNumber(now time.Time) string {
	raw := uuid.New()
	return fmt.Sprintf("REG-%d-%s", now.Year(), hex.EncodeToString(raw[:4]))
}
