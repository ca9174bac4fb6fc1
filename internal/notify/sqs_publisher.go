// Package notify publishes checkout events for downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"parkflow/internal/domain"
	"parkflow/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// SQSAPI is the subset of the SQS client the publisher uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

const defaultBufferSize = 256

// SQSPublisher sends vehicle_checked_out notifications to a queue from a background loop,
// so a slow queue never delays a checkout. Events that cannot be sent are logged and dropped.
type SQSPublisher struct {
	sqsClient SQSAPI
	queueURL  string
	events    chan domain.CheckoutNotification
	maxTries  uint64

	closeOnce sync.Once
	done      chan struct{}
}

func NewSQSPublisher(client SQSAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{
		sqsClient: client,
		queueURL:  queueURL,
		events:    make(chan domain.CheckoutNotification, defaultBufferSize),
		maxTries:  3,
		done:      make(chan struct{}),
	}
}

// Publish queues an event without blocking. It returns false when the buffer is full.
func (p *SQSPublisher) Publish(n domain.CheckoutNotification) bool {
	select {
	case p.events <- n:
		return true
	default:
		logger.Warn("SQS publisher buffer full, dropping event",
			zap.String("event_type", string(n.EventType)),
			zap.String("vehicle_id", n.VehicleID))
		return false
	}
}

// Start sends queued events until ctx is cancelled or Close is called. Whatever is still
// buffered on Close is flushed first.
func (p *SQSPublisher) Start(ctx context.Context) {
	logger.Info("SQS publisher started", zap.String("queue_url", p.queueURL))
	for {
		select {
		case <-ctx.Done():
			logger.Info("SQS publisher: context cancelled, stopping")
			return
		case <-p.done:
			p.flush(ctx)
			logger.Info("SQS publisher stopped")
			return
		case n := <-p.events:
			p.send(ctx, n)
		}
	}
}

func (p *SQSPublisher) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}

func (p *SQSPublisher) flush(ctx context.Context) {
	for {
		select {
		case n := <-p.events:
			p.send(ctx, n)
		default:
			return
		}
	}
}

func (p *SQSPublisher) send(ctx context.Context, n domain.CheckoutNotification) {
	body, err := json.Marshal(n)
	if err != nil {
		logger.Error("SQS publisher: failed to encode event", zap.Error(err))
		return
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(string(n.EventType))},
		},
	}

	operation := func() error {
		sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err := p.sqsClient.SendMessage(sendCtx, input)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.maxTries-1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		logger.Error("SQS publisher: failed to send event",
			zap.String("event_type", string(n.EventType)),
			zap.String("vehicle_id", n.VehicleID),
			zap.Error(fmt.Errorf("send message: %w", err)))
		return
	}
	logger.Debug("SQS publisher: event sent",
		zap.String("event_type", string(n.EventType)),
		zap.String("vehicle_id", n.VehicleID))
}
