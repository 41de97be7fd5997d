package template

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ysvs/internal/certificate/models"
	"ysvs/internal/platform/database"
	id "ysvs/pkg/domain"
	"ysvs/pkg/platform/sentinel"
)

// Postgres persists certificate templates. A partial unique index on
// is_default keeps at most one default; SetDefault clears and sets inside
// one transaction so the index never observes two defaults.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, tmpl *models.CertificateTemplate) error {
	layoutJSON, err := json.Marshal(tmpl.Layout)
	if err != nil {
		return fmt.Errorf("marshal template layout: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin template insert: %w", err)
	}
	defer tx.Rollback()

	if tmpl.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE certificate_templates SET is_default = FALSE WHERE is_default`); err != nil {
			return fmt.Errorf("clear default template: %w", err)
		}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO certificate_templates (id, name, is_default, layout, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(tmpl.ID), tmpl.Name, tmpl.IsDefault, layoutJSON, tmpl.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert template: %w", err)
	}
	return tx.Commit()
}

func (s *Postgres) FindByID(ctx context.Context, templateID id.TemplateID) (*models.CertificateTemplate, error) {
	query := `SELECT id, name, is_default, layout, created_at FROM certificate_templates WHERE id = $1`
	return s.findOne(ctx, query, uuid.UUID(templateID))
}

func (s *Postgres) FindDefault(ctx context.Context) (*models.CertificateTemplate, error) {
	query := `SELECT id, name, is_default, layout, created_at FROM certificate_templates WHERE is_default`
	return s.findOne(ctx, query)
}

func (s *Postgres) SetDefault(ctx context.Context, templateID id.TemplateID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set default: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE certificate_templates SET is_default = FALSE WHERE is_default`); err != nil {
		return fmt.Errorf("clear default template: %w", err)
	}
	result, err := tx.ExecContext(ctx,
		`UPDATE certificate_templates SET is_default = TRUE WHERE id = $1`,
		uuid.UUID(templateID),
	)
	if err != nil {
		return fmt.Errorf("set default template: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set default template rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return tx.Commit()
}

func (s *Postgres) findOne(ctx context.Context, query string, args ...any) (*models.CertificateTemplate, error) {
	var (
		tmpl       models.CertificateTemplate
		rawID      uuid.UUID
		layoutJSON []byte
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&rawID, &tmpl.Name, &tmpl.IsDefault, &layoutJSON, &tmpl.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select template: %w", err)
	}
	tmpl.ID = id.TemplateID(rawID)
	if len(layoutJSON) > 0 {
		if err := json.Unmarshal(layoutJSON, &tmpl.Layout); err != nil {
			return nil, fmt.Errorf("unmarshal template layout: %w", err)
		}
	}
	return &tmpl, nil
}
