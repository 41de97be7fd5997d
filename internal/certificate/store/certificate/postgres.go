package certificate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ysvs/internal/certificate/models"
	"ysvs/internal/platform/database"
	id "ysvs/pkg/domain"
	"ysvs/pkg/platform/sentinel"
)

// Postgres persists certificates. The schema carries UNIQUE (registration_id)
// and UNIQUE (serial_number); a racing duplicate insert loses at the
// constraint, which is the authoritative guard behind the service pre-check.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const certificateColumns = `
	id, registration_id, serial_number, recipient_name, event_title,
	cme_hours, event_date, template_id, artifact_path, is_valid,
	revoked_at, revoked_reason, revoked_by, issued_at, updated_at`

func (s *Postgres) Create(ctx context.Context, cert *models.Certificate) error {
	var templateID any
	if cert.TemplateID != nil {
		templateID = uuid.UUID(*cert.TemplateID)
	}
	var revokedBy any
	if cert.RevokedBy != nil {
		revokedBy = uuid.UUID(*cert.RevokedBy)
	}
	query := `
		INSERT INTO certificates (` + certificateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(cert.ID), uuid.UUID(cert.RegistrationID), cert.SerialNumber,
		cert.RecipientName, cert.EventTitle, cert.CMEHours, cert.EventDate,
		templateID, cert.ArtifactPath, cert.IsValid, cert.RevokedAt,
		nullableString(cert.RevokedReason), revokedBy, cert.IssuedAt, cert.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, certID id.CertificateID) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE id = $1`
	return s.findOne(ctx, query, uuid.UUID(certID))
}

func (s *Postgres) FindByRegistration(ctx context.Context, regID id.RegistrationID) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE registration_id = $1`
	return s.findOne(ctx, query, uuid.UUID(regID))
}

func (s *Postgres) FindBySerial(ctx context.Context, serialNumber string) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE serial_number = $1`
	return s.findOne(ctx, query, serialNumber)
}

// Revoke commits the validity check and the flip as one statement. Zero rows
// affected means the certificate is missing or already revoked.
func (s *Postgres) Revoke(ctx context.Context, certID id.CertificateID, reason string, revokedBy id.UserID, at time.Time) error {
	query := `
		UPDATE certificates
		SET is_valid = FALSE, revoked_at = $2, revoked_reason = $3,
		    revoked_by = $4, updated_at = $2
		WHERE id = $1 AND is_valid
	`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(certID), at, reason, uuid.UUID(revokedBy))
	if err != nil {
		return fmt.Errorf("revoke certificate: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke certificate rows: %w", err)
	}
	if affected == 0 {
		return s.classifyRevokeMiss(ctx, certID)
	}
	return nil
}

func (s *Postgres) classifyRevokeMiss(ctx context.Context, certID id.CertificateID) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM certificates WHERE id = $1)`,
		uuid.UUID(certID),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("classify revoke miss: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

func (s *Postgres) findOne(ctx context.Context, query string, arg any) (*models.Certificate, error) {
	var (
		cert          models.Certificate
		rawID         uuid.UUID
		rawRegID      uuid.UUID
		rawTemplateID uuid.NullUUID
		rawRevokedBy  uuid.NullUUID
		revokedAt     sql.NullTime
		revokedReason sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&rawID, &rawRegID, &cert.SerialNumber, &cert.RecipientName,
		&cert.EventTitle, &cert.CMEHours, &cert.EventDate, &rawTemplateID,
		&cert.ArtifactPath, &cert.IsValid, &revokedAt, &revokedReason,
		&rawRevokedBy, &cert.IssuedAt, &cert.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select certificate: %w", err)
	}
	cert.ID = id.CertificateID(rawID)
	cert.RegistrationID = id.RegistrationID(rawRegID)
	if rawTemplateID.Valid {
		templateID := id.TemplateID(rawTemplateID.UUID)
		cert.TemplateID = &templateID
	}
	if rawRevokedBy.Valid {
		revokedBy := id.UserID(rawRevokedBy.UUID)
		cert.RevokedBy = &revokedBy
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		cert.RevokedAt = &t
	}
	cert.RevokedReason = revokedReason.String
	return &cert, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
