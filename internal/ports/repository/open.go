package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"timetrack.service/internal/config"
	"timetrack.service/internal/core/model"
	"timetrack.service/pkg/database"
)

const demoSeed = 42

// Open builds the repository selected by cfg.StorageBackend. The memory backend is
// seeded from DEMO_FIXTURE_PATH, or with generated history for the demo user before
// now. SQL backends are migrated to the latest schema. The returned func releases
// the underlying connection.
func Open(ctx context.Context, cfg config.Config, now time.Time) (Repository, func() error, error) {
	if cfg.StorageBackend == config.BackendMemory {
		repo := NewMemoryRepository()
		entries, err := demoData(cfg, now)
		if err != nil {
			return nil, nil, err
		}
		repo.Seed(entries...)
		log.Info().Int("entries", len(entries)).Msg("Seeded in-memory repository")
		return repo, func() error { return nil }, nil
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s database: %w", cfg.StorageBackend, err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrating %s database: %w", cfg.StorageBackend, err)
	}
	log.Info().Str("backend", cfg.StorageBackend).Msg("Successfully connected to the database")
	return NewSQLRepository(db), db.Close, nil
}

func demoData(cfg config.Config, now time.Time) ([]model.TimeEntry, error) {
	if cfg.DemoFixturePath != "" {
		return LoadFixtures(cfg.DemoFixturePath)
	}
	userID := cfg.DemoUserID
	if userID == "" {
		userID = DefaultDemoUserID
	}
	return DemoEntries(userID, now.In(cfg.Location()), demoSeed), nil
}
