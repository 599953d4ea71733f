package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"timetrack.service/pkg/telemetry"
)

// ErrNoDestination is returned when a queue URL is not configured.
var ErrNoDestination = errors.New("no destination queue configured")

// SQSSender implements MessageSender for AWS SQS. The caller's trace context
// travels in the message attributes.
type SQSSender struct {
	client SQSClient
}

func NewSQSSender(client SQSClient) *SQSSender {
	return &SQSSender{client: client}
}

func (s *SQSSender) SendMessage(ctx context.Context, destination string, body []byte) error {
	if destination == "" {
		return ErrNoDestination
	}
	_, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(destination),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: telemetry.InjectTraceContext(ctx),
	})
	if err != nil {
		return fmt.Errorf("sending to %s: %w", destination, err)
	}
	return nil
}
