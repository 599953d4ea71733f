package labor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"timetrack.service/internal/core/model"
	"timetrack.service/internal/ports/messaging"
	"timetrack.service/internal/ports/repository"
	"timetrack.service/internal/worker"
	"timetrack.service/internal/worker/legacyapi"
)

// Processor syncs completed shifts to the legacy labor system through a circuit breaker.
type Processor struct {
	repo      repository.Repository
	legacyapi legacyapi.Client
	cb        *gobreaker.CircuitBreaker
}

func NewProcessor(r repository.Repository, client legacyapi.Client) *Processor {
	settings := gobreaker.Settings{
		Name:        "Legacy-API",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip once at least 10 requests saw a failure rate of 50% or more.
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	}

	return &Processor{
		repo:      r,
		legacyapi: client,
		cb:        gobreaker.NewCircuitBreaker(settings),
	}
}

func (p *Processor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	if msg.Body == nil {
		return false, 0, errors.New("empty message body")
	}
	var event messaging.ShiftCompletedEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal labor event")
		return false, 0, err
	}

	logger := log.Ctx(ctx).With().Str("time_entry_id", event.TimeEntryID).Logger()
	logger.Info().Float64("total_hours", event.TotalHours).Msg("Processing completed shift")

	record, err := p.repo.GetEntry(ctx, event.TimeEntryID)
	if errors.Is(err, repository.ErrNotFound) {
		// The entry was deleted after clock-out; nothing left to sync.
		logger.Warn().Msg("Entry no longer exists. Skipping.")
		return false, 0, err
	}
	if err != nil {
		return true, worker.Backoff(0), fmt.Errorf("failed to get record from db: %w", err)
	}

	if record.LaborStatus == model.DeliveryCompleted {
		logger.Info().Msg("Shift already synced. Skipping.")
		return false, 0, nil
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.legacyapi.RecordShift(ctx, event)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logger.Warn().Msg("Circuit breaker is open; skipping legacy API call")
		}
		newCount := record.LaborRetryCount + 1
		if uerr := p.repo.UpdateLaborStatus(ctx, event.TimeEntryID, model.DeliveryPending, newCount); uerr != nil {
			logger.Error().Err(uerr).Msg("Failed to record labor retry")
		}
		return true, worker.Backoff(newCount), err
	}

	err = p.repo.UpdateLaborStatus(ctx, event.TimeEntryID, model.DeliveryCompleted, 0)
	return false, 0, err
}
