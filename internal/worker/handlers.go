package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/billingd/internal/domain"
	"github.com/ignite/billingd/internal/messaging"
	"github.com/ignite/billingd/internal/pkg/logger"
)

// InvoicePayer is the slice of the invoice service the payment handler
// needs.
type InvoicePayer interface {
	MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
}

// NewPaymentRequestedHandler reacts to invoice.payment_requested by marking
// the invoice paid. Redeliveries are harmless: a second attempt finds the
// invoice already paid, which counts as success here, so the duplicate is
// acked instead of retried forever.
func NewPaymentRequestedHandler(payer InvoicePayer, log *logger.Logger) messaging.HandlerFunc {
	return func(ctx context.Context, evt *messaging.Event) error {
		invoiceID, err := uuid.Parse(evt.AggregateID)
		if err != nil {
			return fmt.Errorf("parse invoice id %q: %w", evt.AggregateID, err)
		}

		_, err = payer.MarkPaid(ctx, invoiceID)

		var bre *domain.BusinessRuleError
		if errors.As(err, &bre) {
			log.Info("invoice already paid, treating as processed", "invoice_id", invoiceID)
			return nil
		}
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			// The invoice is gone (owner deleted, cascade ran). Retrying
			// cannot succeed, so drop the event.
			log.Warn("invoice vanished before payment, dropping event", "invoice_id", invoiceID)
			return nil
		}
		if err != nil {
			return err
		}

		log.Info("invoice paid by worker", "invoice_id", invoiceID)
		return nil
	}
}

// NewAuditHandler records an event and does nothing else. Used for the event
// types whose only consumer-side effect is visibility.
func NewAuditHandler(log *logger.Logger) messaging.HandlerFunc {
	return func(ctx context.Context, evt *messaging.Event) error {
		log.Info("event observed",
			"event_type", evt.EventType,
			"aggregate_type", evt.AggregateType,
			"aggregate_id", evt.AggregateID,
			"occurred_at", evt.OccurredAt)
		return nil
	}
}

// Handlers maps every emitted event type to its consumer-side handler.
func Handlers(payer InvoicePayer, log *logger.Logger) map[string]messaging.Handler {
	audit := NewAuditHandler(log)
	return map[string]messaging.Handler{
		messaging.EventUserCreated:             audit,
		messaging.EventUserUpdated:             audit,
		messaging.EventInvoiceCreated:          audit,
		messaging.EventInvoicePaymentRequested: NewPaymentRequestedHandler(payer, log),
		messaging.EventInvoicePaid:             audit,
	}
}
