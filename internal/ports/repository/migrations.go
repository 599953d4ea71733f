package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// migration holds a single schema migration with its target version and statements.
type migration struct {
	version    int
	statements []string
}

const createSchemaVersion = `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`

// Each dialect's versions must be sequential starting from 1.
var migrations = map[string][]migration{
	"sqlite": {
		{
			version: 1,
			statements: []string{
				`CREATE TABLE IF NOT EXISTS time_entries (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	entry_date        TEXT NOT NULL,
	clock_in          DATETIME NOT NULL,
	clock_out         DATETIME,
	status            TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'paused', 'completed')),
	total_hours       REAL,
	edited_manually   INTEGER NOT NULL DEFAULT 0,
	notes             TEXT,
	labor_status      TEXT NOT NULL DEFAULT 'PENDING',
	labor_retry_count INTEGER NOT NULL DEFAULT 0,
	email_status      TEXT NOT NULL DEFAULT 'PENDING',
	email_retry_count INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL,
	updated_at        DATETIME NOT NULL
)`,
				`CREATE TABLE IF NOT EXISTS pauses (
	id            TEXT PRIMARY KEY,
	time_entry_id TEXT NOT NULL REFERENCES time_entries(id) ON DELETE CASCADE,
	start_time    DATETIME NOT NULL,
	end_time      DATETIME,
	type          TEXT NOT NULL CHECK (type IN ('meal', 'break', 'other')),
	duration      INTEGER,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
)`,
				`CREATE INDEX IF NOT EXISTS idx_time_entries_user_date ON time_entries(user_id, entry_date)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS ux_time_entries_open ON time_entries(user_id) WHERE status IN ('active', 'paused')`,
				`CREATE INDEX IF NOT EXISTS idx_pauses_entry ON pauses(time_entry_id)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS ux_pauses_open ON pauses(time_entry_id) WHERE end_time IS NULL`,
			},
		},
	},
	"pgx": {
		{
			version: 1,
			statements: []string{
				`CREATE TABLE IF NOT EXISTS time_entries (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	entry_date        TEXT NOT NULL,
	clock_in          TIMESTAMPTZ NOT NULL,
	clock_out         TIMESTAMPTZ,
	status            TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'paused', 'completed')),
	total_hours       DOUBLE PRECISION,
	edited_manually   BOOLEAN NOT NULL DEFAULT FALSE,
	notes             TEXT,
	labor_status      TEXT NOT NULL DEFAULT 'PENDING',
	labor_retry_count INTEGER NOT NULL DEFAULT 0,
	email_status      TEXT NOT NULL DEFAULT 'PENDING',
	email_retry_count INTEGER NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
)`,
				`CREATE TABLE IF NOT EXISTS pauses (
	id            TEXT PRIMARY KEY,
	time_entry_id TEXT NOT NULL REFERENCES time_entries(id) ON DELETE CASCADE,
	start_time    TIMESTAMPTZ NOT NULL,
	end_time      TIMESTAMPTZ,
	type          TEXT NOT NULL CHECK (type IN ('meal', 'break', 'other')),
	duration      INTEGER,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
)`,
				`CREATE INDEX IF NOT EXISTS idx_time_entries_user_date ON time_entries(user_id, entry_date)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS ux_time_entries_open ON time_entries(user_id) WHERE status IN ('active', 'paused')`,
				`CREATE INDEX IF NOT EXISTS idx_pauses_entry ON pauses(time_entry_id)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS ux_pauses_open ON pauses(time_entry_id) WHERE end_time IS NULL`,
			},
		},
	},
}

// Migrate applies any outstanding migrations for db's driver, each in its own transaction.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	steps, ok := migrations[db.DriverName()]
	if !ok {
		return fmt.Errorf("no migrations for driver %q", db.DriverName())
	}

	if _, err := db.ExecContext(ctx, createSchemaVersion); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	currentVersion := 0
	if err := db.GetContext(ctx, &currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range steps {
		if m.version <= currentVersion {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sqlx.DB, m migration) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO schema_version (version) VALUES (?)"), m.version); err != nil {
		return err
	}
	return tx.Commit()
}
