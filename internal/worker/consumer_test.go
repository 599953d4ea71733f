package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	mu         sync.Mutex
	batches    [][]types.Message
	deleted    []string
	visibility map[string]int32
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return &sqs.ReceiveMessageOutput{Messages: batch}, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSQS) DeleteMessage(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) ChangeMessageVisibility(_ context.Context, params *sqs.ChangeMessageVisibilityInput, _ ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.visibility == nil {
		f.visibility = make(map[string]int32)
	}
	f.visibility[aws.ToString(params.ReceiptHandle)] = params.VisibilityTimeout
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

func (f *fakeSQS) handled() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted) + len(f.visibility)
}

type outcome struct {
	retry bool
	delay int32
	err   error
}

type scriptedProcessor struct {
	outcomes map[string]outcome
}

func (p *scriptedProcessor) Process(_ context.Context, msg types.Message) (bool, int32, error) {
	o := p.outcomes[aws.ToString(msg.Body)]
	return o.retry, o.delay, o.err
}

func message(body string) types.Message {
	return types.Message{
		MessageId:     aws.String("id-" + body),
		ReceiptHandle: aws.String("rh-" + body),
		Body:          aws.String(body),
	}
}

func TestWorker_DeletesOnSuccessAndRetriesOnFailure(t *testing.T) {
	client := &fakeSQS{batches: [][]types.Message{
		{message("ok"), message("retry"), message("fatal")},
	}}
	proc := &scriptedProcessor{outcomes: map[string]outcome{
		"ok":    {},
		"retry": {retry: true, delay: 40, err: errors.New("downstream unavailable")},
		"fatal": {err: errors.New("malformed")},
	}}
	w := NewWorker(client, "queue-url", proc)
	w.Concurrency = 2

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	assert.Eventually(t, func() bool { return client.handled() == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, []string{"rh-ok"}, client.deleted)
	assert.Equal(t, map[string]int32{"rh-retry": 40}, client.visibility)
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		retries int
		want    int32
	}{
		{-1, 10},
		{0, 10},
		{1, 20},
		{3, 80},
		{8, 2560},
		{9, 3600},
		{30, 3600},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(tt.retries), "retries=%d", tt.retries)
	}
}
