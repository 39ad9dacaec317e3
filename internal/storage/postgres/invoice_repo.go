package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/billingd/internal/domain"
	"github.com/ignite/billingd/internal/storage"
)

// InvoiceRepository persists invoices. Stateless, like UserRepository.
type InvoiceRepository struct{}

// NewInvoiceRepository returns an invoice repository.
func NewInvoiceRepository() *InvoiceRepository { return &InvoiceRepository{} }

const invoiceColumns = "id, user_id, amount, status, created_at, paid_at, updated_at"

func scanInvoice(row interface{ Scan(...any) error }) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(&inv.ID, &inv.UserID, &inv.Amount, &inv.Status, &inv.CreatedAt, &inv.PaidAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserts an invoice in the pending state.
func (r *InvoiceRepository) Create(ctx context.Context, tx storage.Tx, n domain.NewInvoice) (*domain.Invoice, error) {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	_, err = sqlTx.ExecContext(ctx,
		`INSERT INTO invoices (id, user_id, amount, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.UserID, n.Amount, domain.InvoicePending, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return nil, &domain.DatabaseError{Op: "create invoice", Err: err}
	}

	return &domain.Invoice{
		ID:        n.ID,
		UserID:    n.UserID,
		Amount:    n.Amount,
		Status:    domain.InvoicePending,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}, nil
}

// GetByID returns the invoice or nil when no row matches.
func (r *InvoiceRepository) GetByID(ctx context.Context, tx storage.Tx, id uuid.UUID) (*domain.Invoice, error) {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	inv, err := scanInvoice(sqlTx.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.DatabaseError{Op: "get invoice by id", Err: err}
	}
	return inv, nil
}

// Update replaces the mutable columns. The caller has already verified the
// row exists in this transaction, so a vanished row is a storage fault.
func (r *InvoiceRepository) Update(ctx context.Context, tx storage.Tx, inv *domain.Invoice) (*domain.Invoice, error) {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	updated, err := scanInvoice(sqlTx.QueryRowContext(ctx,
		`UPDATE invoices SET amount = $1, status = $2, paid_at = $3, updated_at = $4
		 WHERE id = $5
		 RETURNING `+invoiceColumns,
		inv.Amount, inv.Status, inv.PaidAt, time.Now().UTC(), inv.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.DatabaseError{Op: "update invoice", Err: fmt.Errorf("row %s not found", inv.ID)}
	}
	if err != nil {
		return nil, &domain.DatabaseError{Op: "update invoice", Err: err}
	}
	return updated, nil
}

// List returns a page of invoices, newest first, optionally filtered by
// owner. A non-positive limit defaults to 50.
func (r *InvoiceRepository) List(ctx context.Context, tx storage.Tx, userID *uuid.UUID, limit, offset int) ([]domain.Invoice, error) {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows *sql.Rows
	if userID != nil {
		rows, err = sqlTx.QueryContext(ctx,
			`SELECT `+invoiceColumns+` FROM invoices
			 WHERE user_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2 OFFSET $3`, *userID, limit, offset)
	} else {
		rows, err = sqlTx.QueryContext(ctx,
			`SELECT `+invoiceColumns+` FROM invoices
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, &domain.DatabaseError{Op: "list invoices", Err: err}
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0, limit)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, &domain.DatabaseError{Op: "scan invoice", Err: err}
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.DatabaseError{Op: "list invoices", Err: err}
	}
	return invoices, nil
}

// Count returns the number of invoices, optionally filtered by owner.
func (r *InvoiceRepository) Count(ctx context.Context, tx storage.Tx, userID *uuid.UUID) (int, error) {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return 0, err
	}

	var n int
	if userID != nil {
		err = sqlTx.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices WHERE user_id = $1`, *userID).Scan(&n)
	} else {
		err = sqlTx.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&n)
	}
	if err != nil {
		return 0, &domain.DatabaseError{Op: "count invoices", Err: err}
	}
	return n, nil
}

// DeleteByUserID removes every invoice owned by the user, returning how many
// rows went away. Part of the user-deletion cascade; runs in the caller's
// transaction.
func (r *InvoiceRepository) DeleteByUserID(ctx context.Context, tx storage.Tx, userID uuid.UUID) (int, error) {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return 0, err
	}

	res, err := sqlTx.ExecContext(ctx, `DELETE FROM invoices WHERE user_id = $1`, userID)
	if err != nil {
		return 0, &domain.DatabaseError{Op: "delete invoices by user", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, &domain.DatabaseError{Op: "delete invoices by user", Err: err}
	}
	return int(affected), nil
}
