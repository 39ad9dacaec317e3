// Package messaging implements the event bus surface: the domain event
// envelope, an SNS-backed publisher, and an SQS long-poll consumer with a
// per-event-type decoder registry.
package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Aggregate type classifications attached to events for subscription-side
// filtering.
const (
	AggregateUser    = "user"
	AggregateInvoice = "invoice"
)

// Event types emitted by the domain services.
const (
	EventUserCreated             = "user.created"
	EventUserUpdated             = "user.updated"
	EventInvoiceCreated          = "invoice.created"
	EventInvoicePaymentRequested = "invoice.payment_requested"
	EventInvoicePaid             = "invoice.paid"
)

// Event is the immutable envelope for a domain event. It is produced at the
// moment of a successful mutation, serialized onto the bus, and never
// mutated afterwards. Events are notifications, not the source of truth.
type Event struct {
	EventID       string         `json:"event_id"`
	EventType     string         `json:"event_type"`
	AggregateID   string         `json:"aggregate_id"`
	AggregateType string         `json:"aggregate_type"`
	OccurredAt    time.Time      `json:"occurred_at"`
	Version       int            `json:"version"`
	Metadata      map[string]any `json:"metadata"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// NewEvent builds an envelope with a fresh random event id, version 1 and the
// current timestamp. The event id is unique per publish, so a retried publish
// of the same logical change produces a distinct id.
func NewEvent(eventType, aggregateType, aggregateID string, payload map[string]any) *Event {
	return &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		OccurredAt:    time.Now().UTC(),
		Version:       1,
		Metadata:      map[string]any{},
		Payload:       payload,
	}
}

// snsEnvelope is the bus-native wrapper SQS delivers when raw message
// delivery is disabled on the subscription.
type snsEnvelope struct {
	TopicArn string `json:"TopicArn"`
	Message  string `json:"Message"`
}

// UnwrapBody strips the SNS wrapper from a queue message body if one is
// present, returning the inner event JSON. Bodies without a wrapper are
// returned unchanged.
func UnwrapBody(body []byte) []byte {
	var env snsEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.TopicArn != "" && env.Message != "" {
		return []byte(env.Message)
	}
	return body
}
