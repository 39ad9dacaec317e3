// Package invoice implements the invoice aggregate: creation against an
// existing user, the one-way pending to paid transition, and the payment
// request flow that drives the worker.
package invoice

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignite/billingd/internal/domain"
	"github.com/ignite/billingd/internal/storage"
)

// Repository is the persistence contract for invoices. Every method runs
// inside the transaction it is handed.
type Repository interface {
	Create(ctx context.Context, tx storage.Tx, n domain.NewInvoice) (*domain.Invoice, error)
	GetByID(ctx context.Context, tx storage.Tx, id uuid.UUID) (*domain.Invoice, error)
	Update(ctx context.Context, tx storage.Tx, inv *domain.Invoice) (*domain.Invoice, error)
	List(ctx context.Context, tx storage.Tx, userID *uuid.UUID, limit, offset int) ([]domain.Invoice, error)
	Count(ctx context.Context, tx storage.Tx, userID *uuid.UUID) (int, error)
	DeleteByUserID(ctx context.Context, tx storage.Tx, userID uuid.UUID) (int, error)
}

// UserDirectory is the slice of the user repository the invoice service
// needs: existence checks for the referenced owner.
type UserDirectory interface {
	GetByID(ctx context.Context, tx storage.Tx, id uuid.UUID) (*domain.User, error)
}
