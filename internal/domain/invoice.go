package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus enumerates the states an invoice can be in. The only legal
// transition is pending -> paid; paid is terminal.
type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"
)

// Invoice is the invoice aggregate. Amount is a fixed-point decimal and must
// be strictly positive. PaidAt stays nil until the invoice is paid.
type Invoice struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    uuid.UUID       `json:"user_id" db:"user_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Status    InvoiceStatus   `json:"status" db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	PaidAt    *time.Time      `json:"paid_at" db:"paid_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// NewInvoice holds the fields for inserting an invoice. Status is always
// pending at creation and is set by the repository, not the caller.
type NewInvoice struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Amount    decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks construction invariants for a new invoice.
func (n NewInvoice) Validate() error {
	if !n.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "amount must be positive"}
	}
	return nil
}
