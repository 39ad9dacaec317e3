// Package user implements the user aggregate: validation, transactional
// orchestration, and event emission. Storage access goes through the
// Repository contract so the postgres and gorm backends are interchangeable.
package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignite/billingd/internal/domain"
	"github.com/ignite/billingd/internal/storage"
)

// Repository is the persistence contract for users. Every method runs inside
// the transaction it is handed; none opens its own.
type Repository interface {
	Create(ctx context.Context, tx storage.Tx, n domain.NewUser) (*domain.User, error)
	GetByID(ctx context.Context, tx storage.Tx, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, tx storage.Tx, email string) (*domain.User, error)
	Update(ctx context.Context, tx storage.Tx, u *domain.User) (*domain.User, error)
	UpdatePartial(ctx context.Context, tx storage.Tx, id uuid.UUID, patch domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, tx storage.Tx, id uuid.UUID) error
	List(ctx context.Context, tx storage.Tx, limit, offset int) ([]domain.User, error)
	Count(ctx context.Context, tx storage.Tx) (int, error)
}

// InvoiceCascader deletes a user's invoices inside the caller's transaction,
// so user deletion and its cascade commit or roll back together.
type InvoiceCascader interface {
	DeleteByUserIDInTx(ctx context.Context, tx storage.Tx, userID uuid.UUID) (int, error)
}
