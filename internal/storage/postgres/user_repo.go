package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/billingd/internal/domain"
	"github.com/ignite/billingd/internal/storage"
)

const uniqueViolation = "23505"

// UserRepository persists users. It is stateless: every method operates on
// the transaction handed in, never on the pool directly.
type UserRepository struct{}

// NewUserRepository returns a user repository.
func NewUserRepository() *UserRepository { return &UserRepository{} }

const userColumns = "id, email, name, age, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Age, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user. A unique violation on email is translated to a
// DuplicateError so callers racing past the service-level check still get a
// conflict, not a 500.
func (r *UserRepository) Create(ctx context.Context, tx storage.Tx, n domain.NewUser) (*domain.User, error) {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	_, err = sqlTx.ExecContext(ctx,
		`INSERT INTO users (id, email, name, age, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.Email, n.Name, n.Age, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, &domain.DuplicateError{EntityType: "User", Field: "email", Value: n.Email}
		}
		return nil, &domain.DatabaseError{Op: "create user", Err: err}
	}

	return &domain.User{
		ID:        n.ID,
		Email:     n.Email,
		Name:      n.Name,
		Age:       n.Age,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}, nil
}

// GetByID returns the user or nil when no row matches.
func (r *UserRepository) GetByID(ctx context.Context, tx storage.Tx, id uuid.UUID) (*domain.User, error) {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	u, err := scanUser(sqlTx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.DatabaseError{Op: "get user by id", Err: err}
	}
	return u, nil
}

// GetByEmail returns the user or nil when no row matches.
func (r *UserRepository) GetByEmail(ctx context.Context, tx storage.Tx, email string) (*domain.User, error) {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	u, err := scanUser(sqlTx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.DatabaseError{Op: "get user by email", Err: err}
	}
	return u, nil
}

// Update replaces every mutable column. The caller has already verified the
// row exists in this transaction, so a vanished row is a storage fault, not
// a domain not-found.
func (r *UserRepository) Update(ctx context.Context, tx storage.Tx, u *domain.User) (*domain.User, error) {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	updated, err := scanUser(sqlTx.QueryRowContext(ctx,
		`UPDATE users SET email = $1, name = $2, age = $3, updated_at = $4
		 WHERE id = $5
		 RETURNING `+userColumns,
		u.Email, u.Name, u.Age, time.Now().UTC(), u.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.DatabaseError{Op: "update user", Err: fmt.Errorf("row %s not found", u.ID)}
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, &domain.DuplicateError{EntityType: "User", Field: "email", Value: u.Email}
		}
		return nil, &domain.DatabaseError{Op: "update user", Err: err}
	}
	return updated, nil
}

// UpdatePartial applies only the fields the patch carries, in a single
// statement. An all-unset patch returns ErrNoFieldsToUpdate without touching
// the database. updated_at always moves when anything else does.
func (r *UserRepository) UpdatePartial(ctx context.Context, tx storage.Tx, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return nil, err
	}

	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if v, ok := patch.Email.Value(); ok {
		add("email", v)
	}
	if v, ok := patch.Name.Value(); ok {
		add("name", v)
	}
	if !patch.Age.IsUnset() {
		add("age", patch.Age.Ptr())
	}
	if len(sets) == 0 {
		return nil, domain.ErrNoFieldsToUpdate
	}
	add("updated_at", time.Now().UTC())

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)

	updated, err := scanUser(sqlTx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			v, _ := patch.Email.Value()
			return nil, &domain.DuplicateError{EntityType: "User", Field: "email", Value: v}
		}
		return nil, &domain.DatabaseError{Op: "update user partial", Err: err}
	}
	return updated, nil
}

// Delete removes the user. Deleting an absent id is not an error.
func (r *UserRepository) Delete(ctx context.Context, tx storage.Tx, id uuid.UUID) error {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return err
	}

	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return &domain.DatabaseError{Op: "delete user", Err: err}
	}
	return nil
}

// List returns a page of users, newest first. A non-positive limit defaults
// to 50.
func (r *UserRepository) List(ctx context.Context, tx storage.Tx, limit, offset int) ([]domain.User, error) {
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

	rows, err := sqlTx.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, &domain.DatabaseError{Op: "list users", Err: err}
	}
	defer rows.Close()

	users := make([]domain.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, &domain.DatabaseError{Op: "scan user", Err: err}
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.DatabaseError{Op: "list users", Err: err}
	}
	return users, nil
}

// Count returns the total number of users.
func (r *UserRepository) Count(ctx context.Context, tx storage.Tx) (int, error) {
	sqlTx, err := unwrap(tx)
	if err != nil {
		return 0, err
	}

	var n int
	if err := sqlTx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, &domain.DatabaseError{Op: "count users", Err: err}
	}
	return n, nil
}
