package registration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ysvs/internal/platform/database"
	"ysvs/internal/registration/models"
	id "ysvs/pkg/domain"
	"ysvs/pkg/platform/sentinel"
)

// Postgres persists registrations. The schema carries the two uniqueness
// rules: UNIQUE (event_id, user_id) and UNIQUE (registration_number). Status
// moves only through conditional UPDATEs so an illegal transition can never
// be committed by a racing request.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const registrationColumns = `
	id, event_id, user_id, ticket_type_id, form_data, status, payment_status,
	registration_number, certificate_issued, attended_at, cancelled_at,
	created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, reg *models.Registration) error {
	formJSON, err := json.Marshal(reg.FormData)
	if err != nil {
		return fmt.Errorf("marshal form data: %w", err)
	}
	var ticketID any
	if reg.TicketTypeID != nil {
		ticketID = uuid.UUID(*reg.TicketTypeID)
	}
	query := `
		INSERT INTO registrations (` + registrationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(reg.ID), uuid.UUID(reg.EventID), uuid.UUID(reg.UserID),
		ticketID, formJSON, string(reg.Status), string(reg.PaymentStatus),
		reg.RegistrationNumber, reg.CertificateIssued, reg.AttendedAt,
		reg.CancelledAt, reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg, err := scanRegistration(s.db.QueryRowContext(ctx, query, uuid.UUID(regID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select registration: %w", err)
	}
	return reg, nil
}

func (s *Postgres) FindByEventAndUser(ctx context.Context, eventID id.EventID, userID id.UserID) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 AND user_id = $2`
	reg, err := scanRegistration(s.db.QueryRowContext(ctx, query, uuid.UUID(eventID), uuid.UUID(userID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select registration by pair: %w", err)
	}
	return reg, nil
}

func (s *Postgres) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE user_id = $1 ORDER BY created_at`
	return s.list(ctx, query, uuid.UUID(userID))
}

func (s *Postgres) ListByStatus(ctx context.Context, eventID id.EventID, statuses []models.Status) ([]*models.Registration, error) {
	wanted := make([]string, len(statuses))
	for i, status := range statuses {
		wanted[i] = string(status)
	}
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND status = ANY($2)
		ORDER BY created_at
	`
	return s.list(ctx, query, uuid.UUID(eventID), pq.Array(wanted))
}

func (s *Postgres) ListEligible(ctx context.Context, eventID id.EventID) ([]*models.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND status = $2 AND NOT certificate_issued
		ORDER BY created_at
	`
	return s.list(ctx, query, uuid.UUID(eventID), string(models.StatusAttended))
}

// Transition commits the status move and the legality check as one statement.
// Zero rows affected means the registration is missing or its current status
// is outside allowedFrom; an existence probe disambiguates.
func (s *Postgres) Transition(ctx context.Context, regID id.RegistrationID, allowedFrom []models.Status, target models.Status, at time.Time) error {
	fromSet := make([]string, len(allowedFrom))
	for i, status := range allowedFrom {
		fromSet[i] = string(status)
	}
	query := `
		UPDATE registrations
		SET status = $2,
		    attended_at = CASE WHEN $2 = 'ATTENDED' THEN $4 ELSE attended_at END,
		    cancelled_at = CASE WHEN $2 = 'CANCELLED' THEN $4 ELSE cancelled_at END,
		    updated_at = $4
		WHERE id = $1 AND status = ANY($3)
	`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(regID), string(target), pq.Array(fromSet), at)
	if err != nil {
		return fmt.Errorf("transition registration: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition registration rows: %w", err)
	}
	if affected == 0 {
		return s.classifyTransitionMiss(ctx, regID)
	}
	return nil
}

func (s *Postgres) SetCertificateIssued(ctx context.Context, regID id.RegistrationID, issued bool, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE registrations SET certificate_issued = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(regID), issued, at,
	)
	if err != nil {
		return fmt.Errorf("set certificate issued: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set certificate issued rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) classifyTransitionMiss(ctx context.Context, regID id.RegistrationID) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE id = $1)`,
		uuid.UUID(regID),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("classify transition miss: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]*models.Registration, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var out []*models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		reg         models.Registration
		rawID       uuid.UUID
		rawEventID  uuid.UUID
		rawUserID   uuid.UUID
		rawTicketID uuid.NullUUID
		formJSON    []byte
		status      string
		payment     string
		attendedAt  sql.NullTime
		cancelledAt sql.NullTime
	)
	err := row.Scan(
		&rawID, &rawEventID, &rawUserID, &rawTicketID, &formJSON,
		&status, &payment, &reg.RegistrationNumber, &reg.CertificateIssued,
		&attendedAt, &cancelledAt, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	reg.ID = id.RegistrationID(rawID)
	reg.EventID = id.EventID(rawEventID)
	reg.UserID = id.UserID(rawUserID)
	if rawTicketID.Valid {
		ticketID := id.TicketTypeID(rawTicketID.UUID)
		reg.TicketTypeID = &ticketID
	}
	reg.Status = models.Status(status)
	reg.PaymentStatus = models.PaymentStatus(payment)
	if attendedAt.Valid {
		t := attendedAt.Time
		reg.AttendedAt = &t
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		reg.CancelledAt = &t
	}
	if len(formJSON) > 0 {
		if err := json.Unmarshal(formJSON, &reg.FormData); err != nil {
			return nil, fmt.Errorf("unmarshal form data: %w", err)
		}
	}
	return &reg, nil
}
