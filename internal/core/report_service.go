package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"timetrack.service/internal/core/calc"
	"timetrack.service/internal/core/model"
	"timetrack.service/internal/core/tracking"
	"timetrack.service/internal/ports/repository"
)

// ReportService serves history, statistics and exports over a user's entries.
type ReportService struct {
	repo     repository.Repository
	registry *tracking.Registry
	loc      *time.Location
	locale   string
}

// NewReportService creates the service. registry may be nil when no tracking
// stores are hosted in this process.
func NewReportService(repo repository.Repository, registry *tracking.Registry, loc *time.Location, locale string) *ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{
		repo:     repo,
		registry: registry,
		loc:      loc,
		locale:   locale,
	}
}

// Location is the time zone calendar days are resolved in.
func (s *ReportService) Location() *time.Location {
	return s.loc
}

// Entries returns the user's entries within rng, newest date first.
func (s *ReportService) Entries(ctx context.Context, userID string, rng model.DateRange) ([]model.TimeEntry, error) {
	if userID == "" {
		return nil, tracking.ErrNoUserSignedIn
	}
	entries, err := s.repo.QueryEntries(ctx, userID, rng)
	if err != nil {
		return nil, &tracking.PersistenceError{Op: "query entries", Err: err}
	}
	if entries == nil {
		entries = []model.TimeEntry{}
	}
	return entries, nil
}

// Daily aggregates the calendar day of date.
func (s *ReportService) Daily(ctx context.Context, userID string, date time.Time) (model.DailyStats, error) {
	day := date.In(s.loc)
	entries, err := s.Entries(ctx, userID, model.RangeOf(day, day))
	if err != nil {
		return model.DailyStats{}, err
	}
	return calc.DailyStatsFor(entries, day.Format(model.DateLayout)), nil
}

// Weekly aggregates the Monday-start week containing ref.
func (s *ReportService) Weekly(ctx context.Context, userID string, ref time.Time) (model.WeeklyStats, error) {
	ref = ref.In(s.loc)
	start, end := calc.WeekRange(ref)
	entries, err := s.Entries(ctx, userID, model.RangeOf(start, end))
	if err != nil {
		return model.WeeklyStats{}, err
	}
	return calc.WeeklyStatsFor(entries, ref, s.locale), nil
}

// Monthly aggregates the calendar month containing ref.
func (s *ReportService) Monthly(ctx context.Context, userID string, ref time.Time) (model.MonthlyStats, error) {
	ref = ref.In(s.loc)
	start, end := calc.MonthRange(ref)
	entries, err := s.Entries(ctx, userID, model.RangeOf(start, end))
	if err != nil {
		return model.MonthlyStats{}, err
	}
	return calc.MonthlyStatsFor(entries, ref), nil
}

// Distribution splits work and pause hours over rng.
func (s *ReportService) Distribution(ctx context.Context, userID string, rng model.DateRange) (model.TimeDistribution, error) {
	entries, err := s.Entries(ctx, userID, rng)
	if err != nil {
		return model.TimeDistribution{}, err
	}
	return calc.Distribution(entries), nil
}

// ExportCSV writes the entries in rng to w, oldest first.
func (s *ReportService) ExportCSV(ctx context.Context, w io.Writer, userID string, rng model.DateRange) error {
	entries, err := s.Entries(ctx, userID, rng)
	if err != nil {
		return err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date < entries[j].Date
		}
		return entries[i].ClockIn.Before(entries[j].ClockIn)
	})
	if err := calc.WriteCSV(w, entries, s.loc); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

// DeleteEntry removes one of the user's entries. Entries of other users are reported
// as not found. Deleting the entry a hosted store is tracking refreshes that store.
func (s *ReportService) DeleteEntry(ctx context.Context, userID, id string) error {
	if userID == "" {
		return tracking.ErrNoUserSignedIn
	}

	entry, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return &tracking.PersistenceError{Op: "get entry", Err: err}
	}
	if entry.UserID != userID {
		return repository.ErrNotFound
	}

	if err := s.repo.DeleteEntry(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return &tracking.PersistenceError{Op: "delete entry", Err: err}
	}
	log.Ctx(ctx).Info().Str("user_id", userID).Str("entry_id", id).Msg("Time entry deleted")

	if s.registry == nil {
		return nil
	}
	store, ok := s.registry.Lookup(userID)
	if !ok {
		return nil
	}
	if current := store.State().CurrentEntry; current != nil && current.ID == id {
		if _, err := store.RefreshState(ctx); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("Failed to refresh tracking state after delete")
		}
	}
	return nil
}
