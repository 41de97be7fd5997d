package serial

import (
	"context"
	"database/sql"
	"fmt"
)

// Postgres allocates serials from a per-year counter row. The upsert and the
// increment are one statement returning the new high-water mark, so
// concurrent allocations can never collide; the naive "read max serial then
// insert" approach is deliberately absent.
type Postgres struct {
	db     *sql.DB
	prefix string
}

func NewPostgres(db *sql.DB, prefix string) *Postgres {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Postgres{db: db, prefix: prefix}
}

func (a *Postgres) Next(ctx context.Context, year int) (string, error) {
	serials, err := a.NextBatch(ctx, year, 1)
	if err != nil {
		return "", err
	}
	return serials[0], nil
}

func (a *Postgres) NextBatch(ctx context.Context, year, count int) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("batch count must be positive, got %d", count)
	}
	query := `
		INSERT INTO certificate_serials (year, counter)
		VALUES ($1, $2)
		ON CONFLICT (year)
		DO UPDATE SET counter = certificate_serials.counter + $2
		RETURNING counter
	`
	var high int
	if err := a.db.QueryRowContext(ctx, query, year, count).Scan(&high); err != nil {
		return nil, fmt.Errorf("allocate serial block: %w", err)
	}
	serials := make([]string, count)
	for i := range serials {
		serials[i] = Format(a.prefix, year, high-count+1+i)
	}
	return serials, nil
}
