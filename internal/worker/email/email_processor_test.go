package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	core "timetrack.service/internal/core"
	"timetrack.service/internal/core/model"
	"timetrack.service/internal/ports/repository"
)

type fakeEmailService struct {
	err     error
	to      []string
	summary core.ShiftSummary
}

func (f *fakeEmailService) SendShiftSummary(_ context.Context, to string, summary core.ShiftSummary) error {
	f.to = append(f.to, to)
	f.summary = summary
	return f.err
}

func seed(status model.DeliveryStatus) *repository.MemoryRepository {
	clockIn := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	clockOut := clockIn.Add(8*time.Hour + 30*time.Minute)
	pauseEnd := clockIn.Add(4*time.Hour + 30*time.Minute)
	repo := repository.NewMemoryRepository()
	repo.Seed(model.TimeEntry{
		ID:          "e1",
		UserID:      "ana",
		Date:        "2025-03-10",
		ClockIn:     clockIn,
		ClockOut:    &clockOut,
		Status:      model.StatusCompleted,
		EmailStatus: status,
		Pauses: []model.Pause{{
			ID:          "p1",
			TimeEntryID: "e1",
			StartTime:   clockIn.Add(4 * time.Hour),
			EndTime:     &pauseEnd,
			Type:        model.PauseMeal,
		}},
	})
	return repo
}

func msg() types.Message {
	return types.Message{Body: aws.String(`{"timeEntryId":"e1","userId":"ana"}`)}
}

func TestProcess_SendsSummaryToUserAddress(t *testing.T) {
	repo := seed(model.DeliveryPending)
	mailer := &fakeEmailService{}

	retry, _, err := NewProcessor(mailer, repo, "example.com", time.UTC).Process(context.Background(), msg())

	require.NoError(t, err)
	assert.False(t, retry)
	assert.Equal(t, []string{"ana@example.com"}, mailer.to)
	assert.Equal(t, "08:00", mailer.summary.ClockIn)
	assert.Equal(t, "16:30", mailer.summary.ClockOut)
	assert.Equal(t, int64(30), mailer.summary.PauseMinutes)
	assert.InDelta(t, 8.0, mailer.summary.TotalHours, 1e-9)

	entry, err := repo.GetEntry(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryCompleted, entry.EmailStatus)
}

func TestProcess_AlreadySentIsSkipped(t *testing.T) {
	mailer := &fakeEmailService{}

	retry, _, err := NewProcessor(mailer, seed(model.DeliveryCompleted), "example.com", time.UTC).Process(context.Background(), msg())

	require.NoError(t, err)
	assert.False(t, retry)
	assert.Empty(t, mailer.to)
}

func TestProcess_SendFailureSchedulesRetry(t *testing.T) {
	repo := seed(model.DeliveryPending)
	mailer := &fakeEmailService{err: errors.New("ses throttled")}

	retry, delay, err := NewProcessor(mailer, repo, "example.com", time.UTC).Process(context.Background(), msg())

	require.Error(t, err)
	assert.True(t, retry)
	assert.Equal(t, int32(20), delay)
	entry, err := repo.GetEntry(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.EmailRetryCount)
}
