package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"timetrack.service/internal/core/calc"
	"timetrack.service/internal/core/model"
	"timetrack.service/pkg/telemetry"
)

// ShiftSummary is the content of a clock-out email.
type ShiftSummary struct {
	Date         string
	ClockIn      string
	ClockOut     string
	PauseMinutes int64
	TotalHours   float64
}

// SummaryOf renders entry's clock times in loc.
func SummaryOf(entry model.TimeEntry, loc *time.Location) ShiftSummary {
	s := ShiftSummary{
		Date:         entry.Date,
		ClockIn:      entry.ClockIn.In(loc).Format("15:04"),
		ClockOut:     "-",
		PauseMinutes: calc.PauseDurationMinutes(entry.Pauses),
		TotalHours:   calc.EntryHours(entry),
	}
	if entry.ClockOut != nil {
		s.ClockOut = entry.ClockOut.In(loc).Format("15:04")
	}
	return s
}

type EmailService interface {
	SendShiftSummary(ctx context.Context, to string, summary ShiftSummary) error
}

// SESClient is the subset of the SES client used to send mail.
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESEmailService struct {
	client SESClient
	sender string
}

func NewSESEmailService(client SESClient, sender string) *SESEmailService {
	return &SESEmailService{client: client, sender: sender}
}

func (s *SESEmailService) SendShiftSummary(ctx context.Context, to string, summary ShiftSummary) error {
	tracer := otel.Tracer("ses-email-service")
	ctx, span := tracer.Start(ctx, "send_email", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	// Enrich span with the user ID if available in context
	if userID := telemetry.GetUserIDFromContext(ctx); userID != "" {
		span.SetAttributes(attribute.String("app.user_id", userID))
	}

	input := &ses.SendEmailInput{
		Source: aws.String(s.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Resumen de jornada " + summary.Date),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(summaryText(summary)),
				},
			},
		},
	}

	_, err := s.client.SendEmail(ctx, input)
	return err
}

func summaryText(s ShiftSummary) string {
	var b strings.Builder
	b.WriteString("Hola,\n\nHas registrado tu salida.\n\n")
	fmt.Fprintf(&b, "Fecha: %s\n", s.Date)
	fmt.Fprintf(&b, "Hora Entrada: %s\n", s.ClockIn)
	fmt.Fprintf(&b, "Hora Salida: %s\n", s.ClockOut)
	fmt.Fprintf(&b, "Pausas (min): %d\n", s.PauseMinutes)
	fmt.Fprintf(&b, "Total Horas: %.2f\n", s.TotalHours)
	return b.String()
}
