package gormstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/billingd/internal/domain"
	"github.com/ignite/billingd/internal/storage"
)

type foreignTx struct{}

func (foreignTx) Backend() string { return "postgres" }

func TestUnwrap_RejectsForeignTx(t *testing.T) {
	var tx storage.Tx = foreignTx{}

	_, err := NewUserRepository().GetByID(context.Background(), tx, uuid.Must(uuid.NewV7()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "foreign transaction handle")

	_, err = NewInvoiceRepository().GetByID(context.Background(), tx, uuid.Must(uuid.NewV7()))
	require.Error(t, err)
}

func TestRowMapping(t *testing.T) {
	now := time.Now().UTC()
	age := 36

	u := userRow{
		ID:        uuid.Must(uuid.NewV7()),
		Email:     "ada@example.com",
		Name:      "Ada",
		Age:       &age,
		CreatedAt: now,
		UpdatedAt: now,
	}.toDomain()
	assert.Equal(t, "ada@example.com", u.Email)
	require.NotNil(t, u.Age)
	assert.Equal(t, 36, *u.Age)

	paidAt := now
	inv := invoiceRow{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    u.ID,
		Amount:    decimal.RequireFromString("99.90"),
		Status:    "paid",
		CreatedAt: now,
		PaidAt:    &paidAt,
		UpdatedAt: now,
	}.toDomain()
	assert.Equal(t, domain.InvoicePaid, inv.Status)
	require.NotNil(t, inv.PaidAt)
	assert.True(t, inv.Amount.Equal(decimal.RequireFromString("99.9")))
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "users", userRow{}.TableName())
	assert.Equal(t, "invoices", invoiceRow{}.TableName())
}
