package registry

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store on SQLite. It keeps the same observable
// contract as YAMLStore but writes are transactional per statement, which
// closes the lost-update window between concurrent single operations.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) a SQLite registry and runs
// migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewRegistryError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewRegistryError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewRegistryError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// runMigrations applies the embedded SQL migrations.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Store Operations
// =============================================================================

type deploymentRow struct {
	Project     string `db:"project"`
	Environment string `db:"environment"`
	Entry       string `db:"entry"`
}

// Add creates or overwrites the entry for (project, environment).
func (s *SQLiteStore) Add(ctx context.Context, project, environment string, entry Entry) error {
	if entry.DeployedAt == "" {
		entry.DeployedAt = timestamp(s.now())
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return NewRegistryError("Add", project, environment, "marshal entry", ErrInvalidData)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deployments (project, environment, entry, deployed_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project, environment) DO UPDATE SET
			entry = excluded.entry,
			deployed_at = excluded.deployed_at,
			updated_at = excluded.updated_at`,
		project, environment, string(data), entry.DeployedAt, timestamp(s.now()))
	if err != nil {
		return NewRegistryError("Add", project, environment, "insert entry", err)
	}
	return nil
}

// Remove deletes the entry and reports whether one existed.
func (s *SQLiteStore) Remove(ctx context.Context, project, environment string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM deployments WHERE project = ? AND environment = ?`,
		project, environment)
	if err != nil {
		return false, NewRegistryError("Remove", project, environment, "delete entry", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, NewRegistryError("Remove", project, environment, "rows affected", err)
	}
	return n > 0, nil
}

// Get returns the entry or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, project, environment string) (*Entry, error) {
	var row deploymentRow
	err := s.db.GetContext(ctx, &row,
		`SELECT project, environment, entry FROM deployments WHERE project = ? AND environment = ?`,
		project, environment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, NewRegistryError("Get", project, environment, "select entry", err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(row.Entry), &entry); err != nil {
		return nil, NewRegistryError("Get", project, environment, "unmarshal entry", ErrInvalidData)
	}
	return &entry, nil
}

// List returns all entries keyed by project then environment.
func (s *SQLiteStore) List(ctx context.Context) (map[string]map[string]Entry, error) {
	var rows []deploymentRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT project, environment, entry FROM deployments ORDER BY project, environment`); err != nil {
		return nil, NewRegistryError("List", "", "", "select entries", err)
	}

	out := make(map[string]map[string]Entry)
	for _, row := range rows {
		var entry Entry
		if err := json.Unmarshal([]byte(row.Entry), &entry); err != nil {
			return nil, NewRegistryError("List", row.Project, row.Environment, "unmarshal entry", ErrInvalidData)
		}
		if out[row.Project] == nil {
			out[row.Project] = make(map[string]Entry)
		}
		out[row.Project][row.Environment] = entry
	}
	return out, nil
}

// UpdateServiceStatus updates one service's status and PID in place.
func (s *SQLiteStore) UpdateServiceStatus(ctx context.Context, project, environment, service, status string, pid *int) (bool, error) {
	entry, err := s.Get(ctx, project, environment)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(entry.Services) == 0 {
		return false, nil
	}
	if !applyServiceStatus(entry, service, status, pid) {
		return false, nil
	}

	if err := s.Add(ctx, project, environment, *entry); err != nil {
		return false, err
	}
	return true, nil
}
