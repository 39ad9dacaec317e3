package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/billingd/internal/pkg/logger"
)

type stubSQS struct {
	deleted []string
}

func (s *stubSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (s *stubSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	s.deleted = append(s.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func testConsumer(t *testing.T, handler Handler) (*Consumer, *stubSQS) {
	t.Helper()
	client := &stubSQS{}
	c := newConsumer(client, ConsumerConfig{
		EventType: EventInvoicePaymentRequested,
		QueueURL:  "http://localhost:4566/000000000000/invoice-payment-requested",
	}, NewRegistry(logger.NewNop()), handler, logger.NewNop())
	return c, client
}

func eventBody(t *testing.T, eventType string) string {
	t.Helper()
	evt := NewEvent(eventType, AggregateInvoice, "11111111-1111-7111-8111-111111111111", map[string]any{
		"user_id": "u1", "amount": "10",
	})
	raw, err := json.Marshal(evt)
	require.NoError(t, err)
	return string(raw)
}

func TestProcess_AcksOnSuccess(t *testing.T) {
	var handled *Event
	c, client := testConsumer(t, HandlerFunc(func(ctx context.Context, evt *Event) error {
		handled = evt
		return nil
	}))

	c.process(context.Background(), eventBody(t, EventInvoicePaymentRequested), aws.String("rh-1"))

	require.NotNil(t, handled)
	assert.Equal(t, EventInvoicePaymentRequested, handled.EventType)
	assert.Equal(t, []string{"rh-1"}, client.deleted)
}

func TestProcess_LeavesMessageOnHandlerError(t *testing.T) {
	c, client := testConsumer(t, HandlerFunc(func(ctx context.Context, evt *Event) error {
		return errors.New("transient")
	}))

	c.process(context.Background(), eventBody(t, EventInvoicePaymentRequested), aws.String("rh-1"))

	// Nack by inaction: no delete, SQS redelivers after the visibility
	// timeout.
	assert.Empty(t, client.deleted)
}

func TestProcess_DropsUndecodableMessage(t *testing.T) {
	var handled bool
	c, client := testConsumer(t, HandlerFunc(func(ctx context.Context, evt *Event) error {
		handled = true
		return nil
	}))

	c.process(context.Background(), "not json at all", aws.String("rh-1"))

	assert.False(t, handled)
	assert.Equal(t, []string{"rh-1"}, client.deleted)
}

func TestProcess_MismatchedTypeStillDispatches(t *testing.T) {
	var handledType string
	c, client := testConsumer(t, HandlerFunc(func(ctx context.Context, evt *Event) error {
		handledType = evt.EventType
		return nil
	}))

	c.process(context.Background(), eventBody(t, EventInvoicePaid), aws.String("rh-1"))

	assert.Equal(t, EventInvoicePaid, handledType)
	assert.Equal(t, []string{"rh-1"}, client.deleted)
}

func TestRun_StopsOnCancel(t *testing.T) {
	c, _ := testConsumer(t, HandlerFunc(func(ctx context.Context, evt *Event) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

type stubSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (s *stubSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.inputs = append(s.inputs, params)
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func TestSNSPublisher_Publish(t *testing.T) {
	client := &stubSNS{}
	p := &SNSPublisher{client: client, topicARN: "arn:aws:sns:us-east-1:000000000000:billingd-events", log: logger.NewNop()}

	evt := NewEvent(EventUserCreated, AggregateUser, "u-1", map[string]any{"email": "a@b.com", "name": "Ada"})
	require.NoError(t, p.Publish(context.Background(), evt))

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:billingd-events", aws.ToString(in.TopicArn))
	assert.Equal(t, "user.created", aws.ToString(in.MessageAttributes["event_type"].StringValue))
	assert.Equal(t, "user", aws.ToString(in.MessageAttributes["aggregate_type"].StringValue))

	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.Message)), &decoded))
	assert.Equal(t, evt.EventID, decoded.EventID)
}

func TestSNSPublisher_ErrorPropagates(t *testing.T) {
	client := &stubSNS{err: errors.New("throttled")}
	p := &SNSPublisher{client: client, topicARN: "arn:x", log: logger.NewNop()}

	err := p.Publish(context.Background(), NewEvent(EventUserCreated, AggregateUser, "u-1", nil))
	require.Error(t, err)
}

func TestSNSPublisher_MissingTopic(t *testing.T) {
	p := &SNSPublisher{client: &stubSNS{}, topicARN: "", log: logger.NewNop()}

	err := p.Publish(context.Background(), NewEvent(EventUserCreated, AggregateUser, "u-1", nil))
	require.Error(t, err)
}
