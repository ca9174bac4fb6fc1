package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"parkflow/internal/domain"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	mu       sync.Mutex
	failures int
	sent     []*sqs.SendMessageInput
	attempts int
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("throttled")
	}
	f.sent = append(f.sent, in)
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestSQSPublisher_SendsQueuedEvents(t *testing.T) {
	fake := &fakeSQS{failures: 1}
	p := NewSQSPublisher(fake, "https://sqs.local/queue")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Start(ctx)

	require.True(t, p.Publish(domain.CheckoutNotification{
		EventType: domain.CheckoutEventCheckedOut,
		VehicleID: "veh-1",
		Timestamp: time.Date(2024, 1, 15, 13, 30, 0, 0, time.UTC),
	}))

	require.Eventually(t, func() bool { return fake.sentCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 2, fake.attempts)
	assert.Equal(t, "https://sqs.local/queue", *fake.sent[0].QueueUrl)
	assert.Equal(t, "vehicle_checked_out", *fake.sent[0].MessageAttributes["event_type"].StringValue)

	var got domain.CheckoutNotification
	require.NoError(t, json.Unmarshal([]byte(*fake.sent[0].MessageBody), &got))
	assert.Equal(t, "veh-1", got.VehicleID)
}

func TestSQSPublisher_CloseFlushesBuffer(t *testing.T) {
	fake := &fakeSQS{}
	p := NewSQSPublisher(fake, "q")
	for i := 0; i < 3; i++ {
		require.True(t, p.Publish(domain.CheckoutNotification{EventType: domain.CheckoutEventCheckedOut}))
	}

	p.Close()
	p.Start(context.Background())

	assert.Equal(t, 3, fake.sentCount())
}

func TestSQSPublisher_PublishDropsWhenFull(t *testing.T) {
	p := NewSQSPublisher(&fakeSQS{}, "q")
	for i := 0; i < defaultBufferSize; i++ {
		require.True(t, p.Publish(domain.CheckoutNotification{}))
	}
	assert.False(t, p.Publish(domain.CheckoutNotification{}))
}
