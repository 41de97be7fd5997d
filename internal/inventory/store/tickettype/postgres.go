package tickettype

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ysvs/internal/inventory/models"
	"ysvs/internal/platform/database"
	id "ysvs/pkg/domain"
	"ysvs/pkg/platform/sentinel"
)

// Postgres persists ticket types. Supply moves only through conditional
// UPDATEs; the activity check, the supply check and the increment are one
// statement, so concurrent reservations can never jointly oversell.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, ticket *models.TicketType) error {
	query := `
		INSERT INTO ticket_types (
			id, event_id, name, description, price_cents,
			max_quantity, sold_quantity, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(ticket.ID), uuid.UUID(ticket.EventID), ticket.Name,
		ticket.Description, ticket.PriceCents, ticket.MaxQuantity,
		ticket.SoldQuantity, ticket.IsActive, ticket.CreatedAt, ticket.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert ticket type: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, ticketID id.TicketTypeID) (*models.TicketType, error) {
	query := `
		SELECT id, event_id, name, description, price_cents,
		       max_quantity, sold_quantity, is_active, created_at, updated_at
		FROM ticket_types
		WHERE id = $1
	`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(ticketID))
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select ticket type: %w", err)
	}
	return ticket, nil
}

func (s *Postgres) ListByEvent(ctx context.Context, eventID id.EventID) ([]*models.TicketType, error) {
	query := `
		SELECT id, event_id, name, description, price_cents,
		       max_quantity, sold_quantity, is_active, created_at, updated_at
		FROM ticket_types
		WHERE event_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(eventID))
	if err != nil {
		return nil, fmt.Errorf("list ticket types: %w", err)
	}
	defer rows.Close()

	var out []*models.TicketType
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket type: %w", err)
		}
		out = append(out, ticket)
	}
	return out, rows.Err()
}

// Reserve claims one unit of supply in a single conditional UPDATE. Zero rows
// affected means missing, inactive, or sold out; a follow-up probe
// disambiguates so callers get distinct sentinels.
func (s *Postgres) Reserve(ctx context.Context, ticketID id.TicketTypeID) error {
	query := `
		UPDATE ticket_types
		SET sold_quantity = sold_quantity + 1, updated_at = $2
		WHERE id = $1
		  AND is_active
		  AND (max_quantity = 0 OR sold_quantity < max_quantity)
	`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(ticketID), time.Now())
	if err != nil {
		return fmt.Errorf("reserve ticket: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve ticket rows: %w", err)
	}
	if affected == 0 {
		return s.classifyReserveMiss(ctx, ticketID)
	}
	return nil
}

// Release returns one unit of supply, clamping at zero in the statement.
func (s *Postgres) Release(ctx context.Context, ticketID id.TicketTypeID) error {
	query := `
		UPDATE ticket_types
		SET sold_quantity = GREATEST(sold_quantity - 1, 0), updated_at = $2
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(ticketID), time.Now())
	if err != nil {
		return fmt.Errorf("release ticket: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("release ticket rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) classifyReserveMiss(ctx context.Context, ticketID id.TicketTypeID) error {
	var active sql.NullBool
	err := s.db.QueryRowContext(ctx,
		`SELECT is_active FROM ticket_types WHERE id = $1`,
		uuid.UUID(ticketID),
	).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("classify reserve miss: %w", err)
	}
	if !active.Bool {
		return sentinel.ErrInactive
	}
	return sentinel.ErrCapacityExceeded
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*models.TicketType, error) {
	var (
		ticket     models.TicketType
		rawID      uuid.UUID
		rawEventID uuid.UUID
	)
	err := row.Scan(
		&rawID, &rawEventID, &ticket.Name, &ticket.Description,
		&ticket.PriceCents, &ticket.MaxQuantity, &ticket.SoldQuantity,
		&ticket.IsActive, &ticket.CreatedAt, &ticket.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ticket.ID = id.TicketTypeID(rawID)
	ticket.EventID = id.EventID(rawEventID)
	return &ticket, nil
}
