package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ignite/billingd/internal/domain"
	"github.com/ignite/billingd/internal/storage"
)

// InvoiceRepository persists invoices through GORM sessions.
type InvoiceRepository struct{}

// NewInvoiceRepository returns an invoice repository.
func NewInvoiceRepository() *InvoiceRepository { return &InvoiceRepository{} }

// Create inserts an invoice in the pending state.
func (r *InvoiceRepository) Create(ctx context.Context, tx storage.Tx, n domain.NewInvoice) (*domain.Invoice, error) {
	db, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	row := invoiceRow{
		ID:        n.ID,
		UserID:    n.UserID,
		Amount:    n.Amount,
		Status:    string(domain.InvoicePending),
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return nil, &domain.DatabaseError{Op: "create invoice", Err: err}
	}
	return row.toDomain(), nil
}

// GetByID returns the invoice or nil when no row matches.
func (r *InvoiceRepository) GetByID(ctx context.Context, tx storage.Tx, id uuid.UUID) (*domain.Invoice, error) {
	db, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	var row invoiceRow
	err = db.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.DatabaseError{Op: "get invoice by id", Err: err}
	}
	return row.toDomain(), nil
}

// Update replaces the mutable columns. The caller has already verified the
// row exists in this transaction, so a vanished row is a storage fault.
func (r *InvoiceRepository) Update(ctx context.Context, tx storage.Tx, inv *domain.Invoice) (*domain.Invoice, error) {
	db, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	res := db.Model(&invoiceRow{}).Where("id = ?", inv.ID).Updates(map[string]any{
		"amount":     inv.Amount,
		"status":     string(inv.Status),
		"paid_at":    inv.PaidAt,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return nil, &domain.DatabaseError{Op: "update invoice", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return nil, &domain.DatabaseError{Op: "update invoice", Err: fmt.Errorf("row %s not found", inv.ID)}
	}
	return r.GetByID(ctx, tx, inv.ID)
}

// List returns a page of invoices, newest first, optionally filtered by
// owner. A non-positive limit defaults to 50.
func (r *InvoiceRepository) List(ctx context.Context, tx storage.Tx, userID *uuid.UUID, limit, offset int) ([]domain.Invoice, error) {
	db, err := unwrap(tx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := db.Order("created_at DESC, id DESC").Limit(limit).Offset(offset)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}

	var rows []invoiceRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, &domain.DatabaseError{Op: "list invoices", Err: err}
	}

	invoices := make([]domain.Invoice, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, *row.toDomain())
	}
	return invoices, nil
}

// Count returns the number of invoices, optionally filtered by owner.
func (r *InvoiceRepository) Count(ctx context.Context, tx storage.Tx, userID *uuid.UUID) (int, error) {
	db, err := unwrap(tx)
	if err != nil {
		return 0, err
	}

	q := db.Model(&invoiceRow{})
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}

	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, &domain.DatabaseError{Op: "count invoices", Err: err}
	}
	return int(n), nil
}

// DeleteByUserID removes every invoice owned by the user, returning how many
// rows went away.
func (r *InvoiceRepository) DeleteByUserID(ctx context.Context, tx storage.Tx, userID uuid.UUID) (int, error) {
	db, err := unwrap(tx)
	if err != nil {
		return 0, err
	}

	res := db.Where("user_id = ?", userID).Delete(&invoiceRow{})
	if res.Error != nil {
		return 0, &domain.DatabaseError{Op: "delete invoices by user", Err: res.Error}
	}
	return int(res.RowsAffected), nil
}
