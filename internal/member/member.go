// Package member is the minimal directory of association members the
// registration and certificate flows read from. Member lifecycle (signup,
// dues, profile edits) is owned by a separate system; this package only
// resolves identity to the display attributes printed on certificates.
package member

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"ysvs/internal/platform/database"
	id "ysvs/pkg/domain"
	"ysvs/pkg/platform/sentinel"
)

type Member struct {
	ID           id.UserID `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	MemberNumber string    `json:"member_number"`
	Specialty    string    `json:"specialty,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store resolves members by ID.
type Store interface {
	FindByID(ctx context.Context, userID id.UserID) (*Member, error)
	Create(ctx context.Context, m *Member) error
}

type InMemory struct {
	mu      sync.RWMutex
	members map[id.UserID]*Member
}

func NewInMemory() *InMemory {
	return &InMemory{members: make(map[id.UserID]*Member)}
}

func (s *InMemory) Create(_ context.Context, m *Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.members[m.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *m
	s.members[m.ID] = &copied
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, m *Member) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, full_name, email, member_number, specialty, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID.String(), m.FullName, m.Email, m.MemberNumber, m.Specialty, m.Active, m.CreatedAt,
	)
	if database.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	return err
}

func (s *Postgres) FindByID(ctx context.Context, userID id.UserID) (*Member, error) {
	var m Member
	var rawID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, member_number, specialty, active, created_at
		FROM members WHERE id = $1`,
		userID.String(),
	).Scan(&rawID, &m.FullName, &m.Email, &m.MemberNumber, &m.Specialty, &m.Active, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.ID, err = id.ParseUserID(rawID)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
