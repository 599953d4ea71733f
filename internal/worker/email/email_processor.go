package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
	core "timetrack.service/internal/core"
	"timetrack.service/internal/core/model"
	"timetrack.service/internal/ports/messaging"
	"timetrack.service/internal/ports/repository"
	"timetrack.service/internal/worker"
)

type Processor struct {
	emailService core.EmailService
	repo         repository.Repository
	domain       string
	loc          *time.Location
}

// NewProcessor builds a processor that mails a shift summary to userID@domain.
// Summary clock times are rendered in loc.
func NewProcessor(emailService core.EmailService, repo repository.Repository, domain string, loc *time.Location) *Processor {
	if loc == nil {
		loc = time.Local
	}
	return &Processor{
		emailService: emailService,
		repo:         repo,
		domain:       domain,
		loc:          loc,
	}
}

func (p *Processor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	if msg.Body == nil {
		return false, 0, errors.New("empty message body")
	}
	var event messaging.ShiftCompletedEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal email event")
		return false, 0, err
	}

	record, err := p.repo.GetEntry(ctx, event.TimeEntryID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Ctx(ctx).Warn().Str("time_entry_id", event.TimeEntryID).Msg("Entry no longer exists. Skipping.")
		return false, 0, err
	}
	if err != nil {
		return true, worker.Backoff(0), fmt.Errorf("failed to get record from db for email processing: %w", err)
	}

	if record.EmailStatus == model.DeliveryCompleted {
		log.Ctx(ctx).Info().Str("time_entry_id", event.TimeEntryID).Msg("Email already sent. Skipping.")
		return false, 0, nil
	}

	to := record.UserID + "@" + p.domain
	if err := p.emailService.SendShiftSummary(ctx, to, core.SummaryOf(*record, p.loc)); err != nil {
		newCount := record.EmailRetryCount + 1
		if uerr := p.repo.UpdateEmailStatus(ctx, event.TimeEntryID, model.DeliveryPending, newCount); uerr != nil {
			log.Ctx(ctx).Error().Err(uerr).Msg("Failed to record email retry")
		}
		return true, worker.Backoff(newCount), err
	}

	err = p.repo.UpdateEmailStatus(ctx, event.TimeEntryID, model.DeliveryCompleted, 0)
	return false, 0, err
}
