package messaging

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/billingd/internal/metrics"
	"github.com/ignite/billingd/internal/pkg/logger"
)

// Handler processes one decoded event. A nil return acknowledges the
// message; an error leaves it on the queue for redelivery after the
// visibility timeout, so handlers must tolerate duplicates.
type Handler interface {
	Handle(ctx context.Context, evt *Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt *Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, evt *Event) error { return f(ctx, evt) }

// sqsAPI is the subset of the SQS client the consumer uses.
type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// ConsumerConfig tunes one queue consumer.
type ConsumerConfig struct {
	// EventType is the event type this queue is expected to carry. A message
	// declaring a different type is logged and dispatched by its own type.
	EventType string
	QueueURL  string
	// MaxMessages per receive batch, 1..10. Defaults to 10.
	MaxMessages int32
	// WaitTime is the long-poll duration. Defaults to 20s.
	WaitTime time.Duration
	// ErrorBackoff is the pause after a receive error. Defaults to 5s.
	ErrorBackoff time.Duration
}

// Consumer long-polls one SQS queue and dispatches decoded events to a
// handler. One handler failure never stops the loop; channel-level errors
// are logged and retried with backoff.
type Consumer struct {
	client   sqsAPI
	cfg      ConsumerConfig
	registry *Registry
	handler  Handler
	log      *logger.Logger
}

// NewConsumer builds a consumer for one event type queue.
func NewConsumer(client *sqs.Client, cfg ConsumerConfig, registry *Registry, handler Handler, log *logger.Logger) *Consumer {
	return newConsumer(client, cfg, registry, handler, log)
}

func newConsumer(client sqsAPI, cfg ConsumerConfig, registry *Registry, handler Handler, log *logger.Logger) *Consumer {
	if cfg.MaxMessages <= 0 || cfg.MaxMessages > 10 {
		cfg.MaxMessages = 10
	}
	if cfg.WaitTime <= 0 {
		cfg.WaitTime = 20 * time.Second
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = 5 * time.Second
	}
	return &Consumer{
		client:   client,
		cfg:      cfg,
		registry: registry,
		handler:  handler,
		log:      log.With("queue_url", cfg.QueueURL, "queue_event_type", cfg.EventType),
	}
}

// Run consumes until ctx is cancelled. In-flight messages finish processing
// before Run returns; a message interrupted mid-handler is neither acked nor
// lost and will be redelivered.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("consumer started")
	for {
		select {
		case <-ctx.Done():
			c.log.Info("consumer stopped")
			return ctx.Err()
		default:
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.cfg.QueueURL),
			MaxNumberOfMessages: c.cfg.MaxMessages,
			WaitTimeSeconds:     int32(c.cfg.WaitTime / time.Second),
		})
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer stopped")
				return ctx.Err()
			}
			c.log.Error("receive error, backing off", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.ErrorBackoff):
			}
			continue
		}

		for _, msg := range out.Messages {
			c.process(ctx, aws.ToString(msg.Body), msg.ReceiptHandle)
		}
	}
}

func (c *Consumer) process(ctx context.Context, body string, receiptHandle *string) {
	evt, err := c.registry.Decode([]byte(body))
	if err != nil {
		// An undecodable message would redeliver forever; drop it.
		c.log.Error("dropping undecodable message", "error", err)
		metrics.EventsFailed.WithLabelValues(c.cfg.EventType).Inc()
		c.ack(ctx, receiptHandle)
		return
	}

	if evt.EventType != c.cfg.EventType {
		c.log.Warn("event type mismatch between queue and message",
			"message_event_type", evt.EventType)
	}

	log := c.log.With("event_id", evt.EventID, "event_type", evt.EventType, "aggregate_id", evt.AggregateID)
	log.Info("processing event")

	if err := c.handler.Handle(ctx, evt); err != nil {
		// Nack by inaction: the message becomes visible again after the
		// visibility timeout.
		log.Error("handler failed, leaving message for redelivery", "error", err)
		metrics.EventsFailed.WithLabelValues(evt.EventType).Inc()
		return
	}

	metrics.EventsConsumed.WithLabelValues(evt.EventType).Inc()
	log.Info("processed event")
	c.ack(ctx, receiptHandle)
}

func (c *Consumer) ack(ctx context.Context, receiptHandle *string) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.cfg.QueueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		c.log.Error("failed to ack message", "error", err)
	}
}
