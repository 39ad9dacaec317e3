package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/billingd/internal/domain"
	"github.com/ignite/billingd/internal/messaging"
	"github.com/ignite/billingd/internal/pkg/logger"
)

type fakePayer struct {
	calls []uuid.UUID
	err   error
}

func (f *fakePayer) MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Invoice{ID: id, Status: domain.InvoicePaid}, nil
}

func paymentEvent(invoiceID uuid.UUID) *messaging.Event {
	return messaging.NewEvent(
		messaging.EventInvoicePaymentRequested,
		messaging.AggregateInvoice,
		invoiceID.String(),
		map[string]any{"user_id": uuid.NewString(), "amount": "10"},
	)
}

func TestPaymentRequestedHandler_MarksPaid(t *testing.T) {
	payer := &fakePayer{}
	h := NewPaymentRequestedHandler(payer, logger.NewNop())
	invoiceID := uuid.Must(uuid.NewV7())

	err := h.Handle(context.Background(), paymentEvent(invoiceID))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{invoiceID}, payer.calls)
}

func TestPaymentRequestedHandler_AlreadyPaidIsSuccess(t *testing.T) {
	payer := &fakePayer{err: &domain.BusinessRuleError{Message: "Invoice is already paid"}}
	h := NewPaymentRequestedHandler(payer, logger.NewNop())

	err := h.Handle(context.Background(), paymentEvent(uuid.Must(uuid.NewV7())))
	require.NoError(t, err)
}

func TestPaymentRequestedHandler_VanishedInvoiceIsDropped(t *testing.T) {
	payer := &fakePayer{err: &domain.NotFoundError{EntityType: "Invoice"}}
	h := NewPaymentRequestedHandler(payer, logger.NewNop())

	err := h.Handle(context.Background(), paymentEvent(uuid.Must(uuid.NewV7())))
	require.NoError(t, err)
}

func TestPaymentRequestedHandler_TransientErrorRetries(t *testing.T) {
	payer := &fakePayer{err: &domain.DatabaseError{Op: "update invoice", Err: errors.New("connection reset")}}
	h := NewPaymentRequestedHandler(payer, logger.NewNop())

	err := h.Handle(context.Background(), paymentEvent(uuid.Must(uuid.NewV7())))
	require.Error(t, err)
}

func TestPaymentRequestedHandler_BadAggregateID(t *testing.T) {
	payer := &fakePayer{}
	h := NewPaymentRequestedHandler(payer, logger.NewNop())

	evt := paymentEvent(uuid.Must(uuid.NewV7()))
	evt.AggregateID = "not-a-uuid"

	err := h.Handle(context.Background(), evt)
	require.Error(t, err)
	assert.Empty(t, payer.calls)
}

func TestHandlers_CoverEveryEventType(t *testing.T) {
	handlers := Handlers(&fakePayer{}, logger.NewNop())
	for _, et := range []string{
		messaging.EventUserCreated,
		messaging.EventUserUpdated,
		messaging.EventInvoiceCreated,
		messaging.EventInvoicePaymentRequested,
		messaging.EventInvoicePaid,
	} {
		assert.Contains(t, handlers, et)
	}
}

func setupGuard(t *testing.T) (*Guard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewGuard(rdb, 0, logger.NewNop()), mr
}

func TestGuard_SkipsDuplicateEvent(t *testing.T) {
	guard, _ := setupGuard(t)

	var handled int
	h := guard.Wrap(messaging.HandlerFunc(func(ctx context.Context, evt *messaging.Event) error {
		handled++
		return nil
	}))

	evt := paymentEvent(uuid.Must(uuid.NewV7()))
	require.NoError(t, h.Handle(context.Background(), evt))
	require.NoError(t, h.Handle(context.Background(), evt))

	assert.Equal(t, 1, handled)
}

func TestGuard_ReleasesClaimOnFailure(t *testing.T) {
	guard, mr := setupGuard(t)

	boom := errors.New("boom")
	fail := true
	var handled int
	h := guard.Wrap(messaging.HandlerFunc(func(ctx context.Context, evt *messaging.Event) error {
		handled++
		if fail {
			return boom
		}
		return nil
	}))

	evt := paymentEvent(uuid.Must(uuid.NewV7()))
	require.ErrorIs(t, h.Handle(context.Background(), evt), boom)
	assert.False(t, mr.Exists(guardKeyPrefix+evt.EventID))

	// Redelivery after the failure processes normally.
	fail = false
	require.NoError(t, h.Handle(context.Background(), evt))
	assert.Equal(t, 2, handled)
}

func TestGuard_NilRedisPassesThrough(t *testing.T) {
	guard := NewGuard(nil, 0, logger.NewNop())

	var handled int
	h := guard.Wrap(messaging.HandlerFunc(func(ctx context.Context, evt *messaging.Event) error {
		handled++
		return nil
	}))

	evt := paymentEvent(uuid.Must(uuid.NewV7()))
	require.NoError(t, h.Handle(context.Background(), evt))
	require.NoError(t, h.Handle(context.Background(), evt))
	assert.Equal(t, 2, handled)
}
