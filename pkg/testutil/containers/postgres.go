//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"ysvs/migrations"
	id "ysvs/pkg/domain"
)

// PostgresContainer wraps a testcontainers Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container with migrations applied.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("ysvs_test"),
		postgres.WithUsername("ysvs"),
		postgres.WithPassword("ysvs_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	pc := &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}

	if err := pc.runMigrations(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Cleanup is left to Ryuk since the container is shared across suites
	// through the singleton Manager.

	return pc
}

// runMigrations executes all *.sql migrations from the embedded migrations.FS
// in lexical order.
func (p *PostgresContainer) runMigrations(ctx context.Context) error {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := fs.ReadFile(migrations.FS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		if _, err := p.DB.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", file, err)
		}
	}

	return nil
}

// TruncateTables clears all data from the specified tables.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		_, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE")
		if err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// TruncateModuleTables truncates every module table for full test isolation.
// CASCADE handles foreign key dependencies between them.
func (p *PostgresContainer) TruncateModuleTables(ctx context.Context) error {
	tables := []string{
		"certificates",
		"certificate_serials",
		"certificate_templates",
		"registrations",
		"ticket_types",
		"events",
		"members",
	}
	return p.TruncateTables(ctx, tables...)
}

// Exec runs a SQL statement and returns the result.
func (p *PostgresContainer) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.DB.ExecContext(ctx, query, args...)
}

// QueryRow runs a SQL query expected to return a single row.
func (p *PostgresContainer) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.DB.QueryRowContext(ctx, query, args...)
}

// CreateTestMember inserts an active member and returns its ID.
// Fails the test if insertion fails.
func (p *PostgresContainer) CreateTestMember(ctx context.Context, t testing.TB) id.UserID {
	t.Helper()
	userID := id.UserID(uuid.New())
	_, err := p.Exec(ctx, `
		INSERT INTO members (id, full_name, email, member_number, specialty, active)
		VALUES ($1, $2, $3, $4, 'Vascular Surgery', TRUE)
	`, uuid.UUID(userID), "Test Member "+uuid.NewString()[:8],
		"member-"+uuid.NewString()+"@example.com", "M-"+uuid.NewString()[:8])
	if err != nil {
		t.Fatalf("CreateTestMember: %v", err)
	}
	return userID
}

// CreateTestEvent inserts an open event with unlimited capacity and returns its ID.
// Fails the test if insertion fails.
func (p *PostgresContainer) CreateTestEvent(ctx context.Context, t testing.TB) id.EventID {
	t.Helper()
	eventID := id.EventID(uuid.New())
	now := time.Now().UTC()
	_, err := p.Exec(ctx, `
		INSERT INTO events (id, title, cme_hours, starts_at, ends_at, max_attendees, registration_open)
		VALUES ($1, $2, 8, $3, $4, 0, TRUE)
	`, uuid.UUID(eventID), "Test Congress "+uuid.NewString()[:8],
		now.Add(24*time.Hour), now.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("CreateTestEvent: %v", err)
	}
	return eventID
}
