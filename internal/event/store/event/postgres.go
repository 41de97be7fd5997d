package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ysvs/internal/event/models"
	"ysvs/internal/form"
	"ysvs/internal/platform/database"
	id "ysvs/pkg/domain"
	"ysvs/pkg/platform/sentinel"
)

// Postgres persists events. Attendee counters are mutated exclusively through
// conditional UPDATEs so concurrent registrations can never jointly exceed
// capacity; the capacity check and the increment are one statement.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, event *models.Event) error {
	schemaJSON, err := json.Marshal(event.FormSchema)
	if err != nil {
		return fmt.Errorf("marshal form schema: %w", err)
	}

	query := `
		INSERT INTO events (
			id, title, description, cme_hours, starts_at, ends_at,
			max_attendees, current_attendees, registration_open,
			registration_deadline, form_schema, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(event.ID), event.Title, event.Description, event.CMEHours,
		event.StartsAt, event.EndsAt, event.MaxAttendees, event.CurrentAttendees,
		event.RegistrationOpen, event.RegistrationDeadline, schemaJSON,
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	query := `
		SELECT id, title, description, cme_hours, starts_at, ends_at,
		       max_attendees, current_attendees, registration_open,
		       registration_deadline, form_schema, created_at, updated_at
		FROM events
		WHERE id = $1
	`
	var (
		event      models.Event
		rawID      uuid.UUID
		deadline   sql.NullTime
		schemaJSON []byte
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(eventID)).Scan(
		&rawID, &event.Title, &event.Description, &event.CMEHours,
		&event.StartsAt, &event.EndsAt, &event.MaxAttendees,
		&event.CurrentAttendees, &event.RegistrationOpen,
		&deadline, &schemaJSON, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select event: %w", err)
	}

	event.ID = id.EventID(rawID)
	if deadline.Valid {
		t := deadline.Time
		event.RegistrationDeadline = &t
	}
	if len(schemaJSON) > 0 {
		var schema []form.FieldDef
		if err := json.Unmarshal(schemaJSON, &schema); err != nil {
			return nil, fmt.Errorf("unmarshal form schema: %w", err)
		}
		event.FormSchema = schema
	}
	return &event, nil
}

// IncrementAttendees executes the capacity check and the increment as one
// conditional UPDATE. Zero rows affected means either the event is missing or
// the bound would be violated; a follow-up existence probe disambiguates.
func (s *Postgres) IncrementAttendees(ctx context.Context, eventID id.EventID) error {
	query := `
		UPDATE events
		SET current_attendees = current_attendees + 1, updated_at = $2
		WHERE id = $1
		  AND (max_attendees = 0 OR current_attendees < max_attendees)
	`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(eventID), time.Now())
	if err != nil {
		return fmt.Errorf("increment attendees: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment attendees rows: %w", err)
	}
	if affected == 0 {
		return s.classifyCounterMiss(ctx, eventID)
	}
	return nil
}

// DecrementAttendees clamps at zero inside the statement itself.
func (s *Postgres) DecrementAttendees(ctx context.Context, eventID id.EventID) error {
	query := `
		UPDATE events
		SET current_attendees = GREATEST(current_attendees - 1, 0), updated_at = $2
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(eventID), time.Now())
	if err != nil {
		return fmt.Errorf("decrement attendees: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement attendees rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) classifyCounterMiss(ctx context.Context, eventID id.EventID) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`,
		uuid.UUID(eventID),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("classify counter miss: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrCapacityExceeded
}
