package worker

import (
	"context"
	"math"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"timetrack.service/pkg/logger"
	"timetrack.service/pkg/telemetry"
)

const (
	defaultConcurrency = 10
	waitTimeSeconds    = 20
	maxBackoffSeconds  = 3600
	baseBackoffSeconds = 10
)

type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

// Processor handles one queue message. When err is non-nil and shouldRetry is set,
// the message becomes visible again after retryDelay seconds.
type Processor interface {
	Process(ctx context.Context, msg types.Message) (shouldRetry bool, retryDelay int32, err error)
}

// Worker polls a queue and fans messages out to a fixed pool of processors.
type Worker struct {
	client    SQSClient
	queueURL  string
	processor Processor
	// Concurrency controls how many messages can be processed at the same time.
	Concurrency int
}

func NewWorker(client SQSClient, url string, proc Processor) *Worker {
	return &Worker{
		client:      client,
		queueURL:    url,
		processor:   proc,
		Concurrency: defaultConcurrency,
	}
}

// Start polls until ctx is canceled and returns once every in-flight message is handled.
func (w *Worker) Start(ctx context.Context) error {
	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	log.Info().Str("queue", w.queueURL).Int("concurrency", concurrency).Msg("SQS worker started")

	messagesCh := make(chan types.Message, concurrency)

	var g errgroup.Group
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			w.processMessages(ctx, messagesCh)
			return nil
		})
	}
	w.pollMessages(ctx, messagesCh, concurrency)
	return g.Wait()
}

func (w *Worker) pollMessages(ctx context.Context, messagesCh chan<- types.Message, batch int) {
	defer close(messagesCh)

	if batch > 10 {
		batch = 10
	}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Poller shutting down")
			return
		default:
		}

		output, err := w.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              &w.queueURL,
			MaxNumberOfMessages:   int32(batch),
			WaitTimeSeconds:       waitTimeSeconds,
			MessageAttributeNames: []string{"All"},
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Msg("Error receiving messages")
			continue
		}
		if len(output.Messages) > 0 {
			log.Debug().Int("count", len(output.Messages)).Msg("Received messages")
		}
		for _, msg := range output.Messages {
			select {
			case messagesCh <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *Worker) processMessages(ctx context.Context, messagesCh <-chan types.Message) {
	for msg := range messagesCh {
		w.handleSingleMessage(ctx, msg)
	}
}

// handleSingleMessage deletes the message on success, changes its visibility for a retry,
// and leaves unrecoverable failures to the queue's redrive policy.
func (w *Worker) handleSingleMessage(ctx context.Context, msg types.Message) {
	ctx, span := telemetry.StartSpanFromSQSMessage(ctx, msg)
	defer span.End()

	ctx = logger.EnrichContextWithLogger(ctx)

	shouldRetry, retryDelay, err := w.processor.Process(ctx, msg)

	if err != nil && shouldRetry {
		log.Ctx(ctx).Warn().Err(err).Int32("retry_delay", retryDelay).Msg("Processing failed, will retry")

		if _, verr := w.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
			QueueUrl:          &w.queueURL,
			ReceiptHandle:     msg.ReceiptHandle,
			VisibilityTimeout: retryDelay,
		}); verr != nil {
			log.Ctx(ctx).Error().Err(verr).Msg("Failed to change message visibility")
		}
		return
	}

	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Unrecoverable error processing message, will not retry")
		return
	}

	if _, derr := w.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &w.queueURL,
		ReceiptHandle: msg.ReceiptHandle,
	}); derr != nil {
		log.Ctx(ctx).Error().Err(derr).Msg("Failed to delete message")
	}
}

// Backoff returns the visibility delay in seconds for the given retry count:
// 10s doubled per retry, capped at one hour.
func Backoff(retryCount int) int32 {
	if retryCount < 0 {
		retryCount = 0
	}
	backoff := math.Pow(2, float64(retryCount)) * baseBackoffSeconds
	if backoff > maxBackoffSeconds {
		return maxBackoffSeconds
	}
	return int32(backoff)
}
