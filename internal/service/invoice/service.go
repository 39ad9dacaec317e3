package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignite/billingd/internal/domain"
	"github.com/ignite/billingd/internal/messaging"
	"github.com/ignite/billingd/internal/pkg/logger"
	"github.com/ignite/billingd/internal/storage"
)

// Service orchestrates invoice operations. Like the user service, it
// publishes events only after the surrounding transaction commits.
type Service struct {
	repo  Repository
	users UserDirectory
	txm   storage.Manager
	pub   messaging.Publisher
	log   *logger.Logger
}

// NewService wires an invoice service.
func NewService(repo Repository, users UserDirectory, txm storage.Manager, pub messaging.Publisher, log *logger.Logger) *Service {
	return &Service{repo: repo, users: users, txm: txm, pub: pub, log: log}
}

// Create inserts a pending invoice for an existing user and emits
// invoice.created followed by invoice.payment_requested. The immediate
// payment request exercises the full event loop: the worker picks it up and
// marks the invoice paid.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*domain.Invoice, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	n := domain.NewInvoice{
		ID:        id,
		UserID:    userID,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}

	var created *domain.Invoice
	err = s.txm.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		owner, err := s.users.GetByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if owner == nil {
			return &domain.NotFoundError{EntityType: "User", ID: userID.String()}
		}

		created, err = s.repo.Create(ctx, tx, n)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice created", "invoice_id", created.ID, "user_id", userID, "amount", amount)

	evt := messaging.NewEvent(messaging.EventInvoiceCreated, messaging.AggregateInvoice, created.ID.String(), map[string]any{
		"user_id": created.UserID.String(),
		"amount":  created.Amount.String(),
	})
	if err := s.pub.Publish(ctx, evt); err != nil {
		return nil, err
	}
	// Intentionally outside the creation transaction: the payment request is
	// a follow-on notification, not part of the invoice's unit of work.
	if err := s.publishPaymentRequested(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// Get returns the invoice or a NotFoundError.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var inv *domain.Invoice
	err := s.txm.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		inv, err = s.repo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return &domain.NotFoundError{EntityType: "Invoice", ID: id.String()}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// MarkPaid transitions an invoice from pending to paid and emits
// invoice.paid. Paying an already-paid invoice is a business rule violation;
// callers that want idempotency (the worker) treat that error as success.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var paid *domain.Invoice
	err := s.txm.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		inv, err := s.repo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return &domain.NotFoundError{EntityType: "Invoice", ID: id.String()}
		}
		if inv.Status == domain.InvoicePaid {
			return &domain.BusinessRuleError{Message: "Invoice is already paid"}
		}

		now := time.Now().UTC()
		inv.Status = domain.InvoicePaid
		inv.PaidAt = &now
		inv.UpdatedAt = now

		paid, err = s.repo.Update(ctx, tx, inv)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice paid", "invoice_id", paid.ID, "user_id", paid.UserID)

	evt := messaging.NewEvent(messaging.EventInvoicePaid, messaging.AggregateInvoice, paid.ID.String(), map[string]any{
		"user_id": paid.UserID.String(),
		"amount":  paid.Amount.String(),
	})
	if err := s.pub.Publish(ctx, evt); err != nil {
		return nil, err
	}
	return paid, nil
}

// RequestPayment emits invoice.payment_requested for an existing invoice
// without mutating it. The worker consumes the event and performs the actual
// payment transition.
func (s *Service) RequestPayment(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.publishPaymentRequested(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) publishPaymentRequested(ctx context.Context, inv *domain.Invoice) error {
	evt := messaging.NewEvent(messaging.EventInvoicePaymentRequested, messaging.AggregateInvoice, inv.ID.String(), map[string]any{
		"user_id": inv.UserID.String(),
		"amount":  inv.Amount.String(),
	})
	return s.pub.Publish(ctx, evt)
}

// List returns a page of invoices plus the total count, optionally filtered
// to one owner.
func (s *Service) List(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]domain.Invoice, int, error) {
	var (
		invoices []domain.Invoice
		total    int
	)
	err := s.txm.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		invoices, err = s.repo.List(ctx, tx, userID, limit, offset)
		if err != nil {
			return err
		}
		total, err = s.repo.Count(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

// DeleteByUserIDInTx removes every invoice owned by the user inside the
// caller's transaction. Used by the user service's deletion cascade.
func (s *Service) DeleteByUserIDInTx(ctx context.Context, tx storage.Tx, userID uuid.UUID) (int, error) {
	return s.repo.DeleteByUserID(ctx, tx, userID)
}
