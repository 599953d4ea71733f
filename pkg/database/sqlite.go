package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/XSAM/otelsql"
	"github.com/jmoiron/sqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	_ "modernc.org/sqlite"
)

const sqliteMemory = ":memory:"

// NewSQLiteConnection opens (or creates) a SQLite database at path with WAL mode
// and foreign keys enabled.
func NewSQLiteConnection(path string, instrumented bool) (*sqlx.DB, error) {
	dsn := path
	if path != sqliteMemory {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		// Pragmas in the DSN apply to every pooled connection.
		dsn = path + sep + "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	var (
		db  *sql.DB
		err error
	)
	if instrumented {
		db, err = otelsql.Open("sqlite", dsn, otelsql.WithAttributes(semconv.DBSystemSqlite))
	} else {
		db, err = sql.Open("sqlite", dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if path == sqliteMemory {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	return sqlx.NewDb(db, "sqlite"), nil
}
