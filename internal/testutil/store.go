package testutil

import (
	"context"
	"testing"

	"timetrack.service/internal/ports/repository"
	"timetrack.service/pkg/database"
)

// NewTestRepository creates an in-memory SQLite repository with all migrations applied.
// It automatically closes the database when the test completes.
func NewTestRepository(t *testing.T) *repository.SQLRepository {
	t.Helper()

	db, err := database.NewSQLiteConnection(":memory:", false)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("closing test database: %v", err)
		}
	})

	if err := repository.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return repository.NewSQLRepository(db)
}
