package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/ignite/billingd/internal/pkg/logger"
)

// DecodeFunc turns raw event JSON into an envelope, validating whatever the
// event type requires beyond the envelope fields.
type DecodeFunc func(data []byte) (*Event, error)

// Registry resolves a decoder from a message's declared event type, falling
// back to the generic envelope decoder (with a logged warning) for types it
// does not recognize.
type Registry struct {
	decoders map[string]DecodeFunc
	log      *logger.Logger
}

// NewRegistry builds a registry preloaded with decoders for every event type
// the services emit.
func NewRegistry(log *logger.Logger) *Registry {
	r := &Registry{decoders: make(map[string]DecodeFunc), log: log}
	r.Register(EventUserCreated, requirePayloadKeys("email", "name"))
	r.Register(EventUserUpdated, requirePayloadKeys("changes"))
	r.Register(EventInvoiceCreated, requirePayloadKeys("user_id", "amount"))
	r.Register(EventInvoicePaymentRequested, decodeEnvelope)
	r.Register(EventInvoicePaid, requirePayloadKeys("user_id", "amount"))
	return r
}

// Register installs a decoder for an event type, replacing any existing one.
func (r *Registry) Register(eventType string, fn DecodeFunc) {
	r.decoders[eventType] = fn
}

// Decode unwraps the bus envelope if present, reads the declared event type,
// and dispatches to the matching decoder.
func (r *Registry) Decode(body []byte) (*Event, error) {
	data := UnwrapBody(body)

	var probe struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if probe.EventType == "" {
		return nil, fmt.Errorf("decode event: missing event_type")
	}

	fn, ok := r.decoders[probe.EventType]
	if !ok {
		r.log.Warn("unknown event type, using generic envelope decoder", "event_type", probe.EventType)
		fn = decodeEnvelope
	}
	return fn(data)
}

func decodeEnvelope(data []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &evt, nil
}

// requirePayloadKeys builds a decoder that additionally checks the payload
// carries the keys the event type promises.
func requirePayloadKeys(keys ...string) DecodeFunc {
	return func(data []byte) (*Event, error) {
		evt, err := decodeEnvelope(data)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			if _, ok := evt.Payload[k]; !ok {
				return nil, fmt.Errorf("decode %s: payload missing %q", evt.EventType, k)
			}
		}
		return evt, nil
	}
}
