package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Producer struct {
	sender        MessageSender
	laborQueueURL string
	emailQueueURL string
}

func NewProducer(sender MessageSender, laborQueueURL, emailQueueURL string) *Producer {
	return &Producer{
		sender:        sender,
		laborQueueURL: laborQueueURL,
		emailQueueURL: emailQueueURL,
	}
}

func NewSQSProducer(client SQSClient, laborQueueURL, emailQueueURL string) *Producer {
	return NewProducer(NewSQSSender(client), laborQueueURL, emailQueueURL)
}

func (p *Producer) PublishLabor(ctx context.Context, body any) error {
	return p.publish(ctx, p.laborQueueURL, body)
}

func (p *Producer) PublishEmail(ctx context.Context, body any) error {
	return p.publish(ctx, p.emailQueueURL, body)
}

// PublishShiftCompleted sends event to both queues. A failure on one queue does not
// prevent the other send.
func (p *Producer) PublishShiftCompleted(ctx context.Context, event ShiftCompletedEvent) error {
	laborErr := p.PublishLabor(ctx, event)
	if laborErr != nil {
		laborErr = fmt.Errorf("labor queue: %w", laborErr)
	}
	emailErr := p.PublishEmail(ctx, event)
	if emailErr != nil {
		emailErr = fmt.Errorf("email queue: %w", emailErr)
	}
	return errors.Join(laborErr, emailErr)
}

func (p *Producer) publish(ctx context.Context, destination string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	// Enrich the current span with the user ID if available
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		var payload struct {
			UserID string `json:"userId"`
		}
		if err := json.Unmarshal(b, &payload); err == nil && payload.UserID != "" {
			span.SetAttributes(attribute.String("app.user_id", payload.UserID))
		}
	}

	if err := p.sender.SendMessage(ctx, destination, b); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
