package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver
	"github.com/jmoiron/sqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"timetrack.service/internal/config"
)

// pgx selects $n placeholders for sqlx.Rebind.
const postgresDriver = "pgx"

const (
	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// NewConnection creates and verifies a PostgreSQL connection pool without tracing.
func NewConnection(cfg config.Config) (*sqlx.DB, error) {
	db, err := sql.Open(postgresDriver, cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	return postgresPool(db)
}

// NewInstrumentedConnection creates a PostgreSQL connection pool whose queries are
// recorded as OpenTelemetry spans.
func NewInstrumentedConnection(cfg config.Config) (*sqlx.DB, error) {
	db, err := otelsql.Open(postgresDriver, cfg.PostgresDSN(),
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithSQLCommenter(true),
	)
	if err != nil {
		return nil, fmt.Errorf("error opening instrumented database: %w", err)
	}
	return postgresPool(db)
}

func postgresPool(db *sql.DB) (*sqlx.DB, error) {
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return sqlx.NewDb(db, postgresDriver), nil
}

// Open connects to the configured SQL backend, instrumented unless tracing is off.
func Open(cfg config.Config) (*sqlx.DB, error) {
	instrumented := cfg.TraceExporter != config.ExporterNone
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		return NewSQLiteConnection(cfg.SQLitePath, instrumented)
	case config.BackendPostgres:
		if instrumented {
			return NewInstrumentedConnection(cfg)
		}
		return NewConnection(cfg)
	default:
		return nil, fmt.Errorf("storage backend %q has no SQL connection", cfg.StorageBackend)
	}
}
