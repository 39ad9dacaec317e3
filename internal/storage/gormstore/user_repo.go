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

// UserRepository persists users through GORM sessions.
type UserRepository struct{}

// NewUserRepository returns a user repository.
func NewUserRepository() *UserRepository { return &UserRepository{} }

// Create inserts a user, translating a unique violation on email to a
// DuplicateError.
func (r *UserRepository) Create(ctx context.Context, tx storage.Tx, n domain.NewUser) (*domain.User, error) {
	db, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	row := userRow{
		ID:        n.ID,
		Email:     n.Email,
		Name:      n.Name,
		Age:       n.Age,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &domain.DuplicateError{EntityType: "User", Field: "email", Value: n.Email}
		}
		return nil, &domain.DatabaseError{Op: "create user", Err: err}
	}
	return row.toDomain(), nil
}

// GetByID returns the user or nil when no row matches.
func (r *UserRepository) GetByID(ctx context.Context, tx storage.Tx, id uuid.UUID) (*domain.User, error) {
	db, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	var row userRow
	err = db.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.DatabaseError{Op: "get user by id", Err: err}
	}
	return row.toDomain(), nil
}

// GetByEmail returns the user or nil when no row matches.
func (r *UserRepository) GetByEmail(ctx context.Context, tx storage.Tx, email string) (*domain.User, error) {
	db, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	var row userRow
	err = db.Where("email = ?", email).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.DatabaseError{Op: "get user by email", Err: err}
	}
	return row.toDomain(), nil
}

// Update replaces every mutable column. The caller has already verified the
// row exists in this transaction, so a vanished row is a storage fault.
func (r *UserRepository) Update(ctx context.Context, tx storage.Tx, u *domain.User) (*domain.User, error) {
	db, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	res := db.Model(&userRow{}).Where("id = ?", u.ID).Updates(map[string]any{
		"email":      u.Email,
		"name":       u.Name,
		"age":        u.Age,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, &domain.DuplicateError{EntityType: "User", Field: "email", Value: u.Email}
		}
		return nil, &domain.DatabaseError{Op: "update user", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return nil, &domain.DatabaseError{Op: "update user", Err: fmt.Errorf("row %s not found", u.ID)}
	}
	return r.GetByID(ctx, tx, u.ID)
}

// UpdatePartial applies only the fields the patch carries. An all-unset
// patch returns ErrNoFieldsToUpdate without touching the database.
func (r *UserRepository) UpdatePartial(ctx context.Context, tx storage.Tx, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	db, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	values := map[string]any{}
	if v, ok := patch.Email.Value(); ok {
		values["email"] = v
	}
	if v, ok := patch.Name.Value(); ok {
		values["name"] = v
	}
	if !patch.Age.IsUnset() {
		values["age"] = patch.Age.Ptr()
	}
	if len(values) == 0 {
		return nil, domain.ErrNoFieldsToUpdate
	}
	values["updated_at"] = time.Now().UTC()

	res := db.Model(&userRow{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			v, _ := patch.Email.Value()
			return nil, &domain.DuplicateError{EntityType: "User", Field: "email", Value: v}
		}
		return nil, &domain.DatabaseError{Op: "update user partial", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, tx, id)
}

// Delete removes the user. Deleting an absent id is not an error.
func (r *UserRepository) Delete(ctx context.Context, tx storage.Tx, id uuid.UUID) error {
	db, err := unwrap(tx)
	if err != nil {
		return err
	}

	if err := db.Where("id = ?", id).Delete(&userRow{}).Error; err != nil {
		return &domain.DatabaseError{Op: "delete user", Err: err}
	}
	return nil
}

// List returns a page of users, newest first. A non-positive limit defaults
// to 50.
func (r *UserRepository) List(ctx context.Context, tx storage.Tx, limit, offset int) ([]domain.User, error) {
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

	var rows []userRow
	err = db.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return nil, &domain.DatabaseError{Op: "list users", Err: err}
	}

	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, *row.toDomain())
	}
	return users, nil
}

// Count returns the total number of users.
func (r *UserRepository) Count(ctx context.Context, tx storage.Tx) (int, error) {
	db, err := unwrap(tx)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := db.Model(&userRow{}).Count(&n).Error; err != nil {
		return 0, &domain.DatabaseError{Op: "count users", Err: err}
	}
	return int(n), nil
}
