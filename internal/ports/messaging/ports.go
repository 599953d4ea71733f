package messaging

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// QueueProducer defines the output port for publishing domain events.
type QueueProducer interface {
	PublishLabor(ctx context.Context, body any) error
	PublishEmail(ctx context.Context, body any) error
}

// ShiftPublisher announces completed shifts to every downstream queue.
type ShiftPublisher interface {
	PublishShiftCompleted(ctx context.Context, event ShiftCompletedEvent) error
}

// MessageSender defines the interface for sending raw messages to a messaging system.
type MessageSender interface {
	SendMessage(ctx context.Context, destination string, body []byte) error
}

// SQSClient defines the subset of the AWS SQS client used to send messages.
type SQSClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}
