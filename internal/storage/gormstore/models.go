package gormstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignite/billingd/internal/domain"
)

// userRow is the persistence shape of a user. Column names match the raw
// statements in the postgres package so both backends share one schema.
type userRow struct {
	ID        uuid.UUID `gorm:"column:id;primaryKey"`
	Email     string    `gorm:"column:email;uniqueIndex"`
	Name      string    `gorm:"column:name"`
	Age       *int      `gorm:"column:age"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (userRow) TableName() string { return "users" }

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		ID:        r.ID,
		Email:     r.Email,
		Name:      r.Name,
		Age:       r.Age,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// invoiceRow is the persistence shape of an invoice.
type invoiceRow struct {
	ID        uuid.UUID       `gorm:"column:id;primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;index"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(10,2)"`
	Status    string          `gorm:"column:status"`
	CreatedAt time.Time       `gorm:"column:created_at"`
	PaidAt    *time.Time      `gorm:"column:paid_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (invoiceRow) TableName() string { return "invoices" }

func (r invoiceRow) toDomain() *domain.Invoice {
	return &domain.Invoice{
		ID:        r.ID,
		UserID:    r.UserID,
		Amount:    r.Amount,
		Status:    domain.InvoiceStatus(r.Status),
		CreatedAt: r.CreatedAt,
		PaidAt:    r.PaidAt,
		UpdatedAt: r.UpdatedAt,
	}
}
