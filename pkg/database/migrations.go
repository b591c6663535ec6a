package database

import (
	"fmt"

	"go.uber.org/zap"
)

// Migration represents one schema migration shipped with the binary.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// schema holds all migrations in order. The schema ships in-binary; there is
// no external migrations directory to deploy.
var schema = []Migration{
	{
		Version: 1,
		Name:    "create_projects",
		SQL: `
			CREATE TABLE IF NOT EXISTS projects (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				manager_id TEXT NOT NULL,
				config_id TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'ACTIVE',
				created_at DATETIME NOT NULL,
				last_activity DATETIME NOT NULL
			);
		`,
	},
	{
		Version: 2,
		Name:    "create_submissions",
		SQL: `
			CREATE TABLE IF NOT EXISTS submissions (
				id TEXT PRIMARY KEY,
				project_id TEXT NOT NULL REFERENCES projects(id),
				editor_id TEXT NOT NULL,
				version INTEGER NOT NULL,
				source_kind TEXT NOT NULL,
				source_locator TEXT NOT NULL,
				status TEXT NOT NULL,
				report_json TEXT,
				comments_json TEXT NOT NULL DEFAULT '[]',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_submissions_project
				ON submissions(project_id, created_at DESC);
		`,
	},
}

// Migrator handles database migrations
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
	}
}

// createMigrationsTable creates the migrations tracking table
func (m *Migrator) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := m.db.Exec(query)
	return err
}

// getAppliedMigrations returns the set of applied migration versions
func (m *Migrator) getAppliedMigrations() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// RunMigrations applies all pending schema migrations in order
func (m *Migrator) RunMigrations() error {
	if err := m.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for _, migration := range schema {
		if applied[migration.Version] {
			continue
		}

		m.logger.Info("Applying migration",
			zap.Int("version", migration.Version),
			zap.String("name", migration.Name))

		if _, err := m.db.Exec(migration.SQL); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		if _, err := m.db.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version, migration.Name,
		); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
