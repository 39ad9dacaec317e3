package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/ignite/billingd/internal/metrics"
	"github.com/ignite/billingd/internal/pkg/logger"
)

// Publisher delivers a domain event to the bus. Implementations must
// propagate failures to the caller: a failed publish after a committed write
// is a real inconsistency the operator needs to observe, not something to
// swallow.
type Publisher interface {
	Publish(ctx context.Context, evt *Event) error
}

// snsAPI is the subset of the SNS client the publisher uses.
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes events to one SNS topic, attaching the event type
// and aggregate type as message attributes so subscriptions can filter
// without parsing bodies.
type SNSPublisher struct {
	client   snsAPI
	topicARN string
	log      *logger.Logger
}

// NewSNSPublisher builds a publisher for the given topic.
func NewSNSPublisher(client *sns.Client, topicARN string, log *logger.Logger) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN, log: log}
}

// Publish serializes the event and sends it to the topic. Errors count
// toward events_publish_failures_total and are returned to the caller.
func (p *SNSPublisher) Publish(ctx context.Context, evt *Event) error {
	if p.topicARN == "" {
		return fmt.Errorf("publish %s: topic ARN not configured", evt.EventType)
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", evt.EventType, err)
	}

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(evt.EventType)},
			// Alias kept for subscriptions that filter on message_type.
			"message_type":   {DataType: aws.String("String"), StringValue: aws.String(evt.EventType)},
			"aggregate_type": {DataType: aws.String("String"), StringValue: aws.String(evt.AggregateType)},
		},
	})
	if err != nil {
		metrics.EventsPublishFailures.WithLabelValues(evt.EventType).Inc()
		p.log.Error("failed to publish event",
			"event_id", evt.EventID, "event_type", evt.EventType, "error", err)
		return fmt.Errorf("publish %s: %w", evt.EventType, err)
	}

	metrics.EventsPublished.WithLabelValues(evt.EventType).Inc()
	p.log.Info("published event",
		"event_id", evt.EventID, "event_type", evt.EventType, "message_id", aws.ToString(out.MessageId))
	return nil
}
