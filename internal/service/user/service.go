package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/billingd/internal/domain"
	"github.com/ignite/billingd/internal/messaging"
	"github.com/ignite/billingd/internal/pkg/logger"
	"github.com/ignite/billingd/internal/storage"
)

// Service orchestrates user operations. Reads and writes run inside one
// transaction; events publish only after that transaction commits, so a
// rolled-back write never produces an event. The reverse window exists: a
// commit whose publish then fails surfaces the error to the caller and the
// publish-failure counter, but the row stays committed.
type Service struct {
	repo     Repository
	invoices InvoiceCascader
	txm      storage.Manager
	pub      messaging.Publisher
	log      *logger.Logger
}

// NewService wires a user service.
func NewService(repo Repository, invoices InvoiceCascader, txm storage.Manager, pub messaging.Publisher, log *logger.Logger) *Service {
	return &Service{repo: repo, invoices: invoices, txm: txm, pub: pub, log: log}
}

// CreateInput carries the client-supplied fields for a new user.
type CreateInput struct {
	Email string
	Name  string
	Age   *int
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.Email) == "" || !strings.Contains(in.Email, "@") {
		return &domain.ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	if strings.TrimSpace(in.Name) == "" {
		return &domain.ValidationError{Field: "name", Message: "must not be empty"}
	}
	if in.Age != nil && *in.Age < 0 {
		return &domain.ValidationError{Field: "age", Message: "must not be negative"}
	}
	return nil
}

// Create inserts a user and emits user.created. The email uniqueness check
// and the insert share one transaction; the database unique constraint backs
// the check up against races.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var created *domain.User
	err := s.txm.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		existing, err := s.repo.GetByEmail(ctx, tx, in.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return &domain.DuplicateError{EntityType: "User", Field: "email", Value: in.Email}
		}

		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		created, err = s.repo.Create(ctx, tx, domain.NewUser{
			ID:        id,
			Email:     in.Email,
			Name:      in.Name,
			Age:       in.Age,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user created", "user_id", created.ID, "email", created.Email)

	evt := messaging.NewEvent(messaging.EventUserCreated, messaging.AggregateUser, created.ID.String(), map[string]any{
		"email": created.Email,
		"name":  created.Name,
	})
	if err := s.pub.Publish(ctx, evt); err != nil {
		return nil, err
	}
	return created, nil
}

// Get returns the user or a NotFoundError.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u *domain.User
	err := s.txm.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		u, err = s.repo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return &domain.NotFoundError{EntityType: "User", ID: id.String()}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func validatePatch(patch domain.UserPatch) error {
	if patch.Email.IsNull() {
		return &domain.ValidationError{Field: "email", Message: "must not be null"}
	}
	if v, ok := patch.Email.Value(); ok && (strings.TrimSpace(v) == "" || !strings.Contains(v, "@")) {
		return &domain.ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	if patch.Name.IsNull() {
		return &domain.ValidationError{Field: "name", Message: "must not be null"}
	}
	if v, ok := patch.Name.Value(); ok && strings.TrimSpace(v) == "" {
		return &domain.ValidationError{Field: "name", Message: "must not be empty"}
	}
	if v, ok := patch.Age.Value(); ok && v < 0 {
		return &domain.ValidationError{Field: "age", Message: "must not be negative"}
	}
	return nil
}

// Patch applies a sparse update and emits user.updated carrying the computed
// field diff. An empty patch, or one that changes nothing, succeeds without
// an event and returns the stored user unchanged.
func (s *Service) Patch(ctx context.Context, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	var (
		result  *domain.User
		changes map[string]map[string]string
	)
	err := s.txm.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		current, err := s.repo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return &domain.NotFoundError{EntityType: "User", ID: id.String()}
		}

		if v, ok := patch.Email.Value(); ok && v != current.Email {
			existing, err := s.repo.GetByEmail(ctx, tx, v)
			if err != nil {
				return err
			}
			if existing != nil {
				return &domain.DuplicateError{EntityType: "User", Field: "email", Value: v}
			}
		}

		pending := diff(current, patch)

		updated, err := s.repo.UpdatePartial(ctx, tx, id, patch)
		if errors.Is(err, domain.ErrNoFieldsToUpdate) {
			result = current
			return nil
		}
		if err != nil {
			return err
		}
		if updated == nil {
			return &domain.NotFoundError{EntityType: "User", ID: id.String()}
		}

		result = updated
		changes = pending
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(changes) == 0 {
		return result, nil
	}

	s.log.Info("user updated", "user_id", id, "changed_fields", len(changes))

	evt := messaging.NewEvent(messaging.EventUserUpdated, messaging.AggregateUser, id.String(), map[string]any{
		"changes": changes,
	})
	if err := s.pub.Publish(ctx, evt); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a user and, in the same transaction, every invoice the user
// owns. No event is emitted for deletion.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.txm.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		current, err := s.repo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return &domain.NotFoundError{EntityType: "User", ID: id.String()}
		}

		n, err := s.invoices.DeleteByUserIDInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}

		s.log.Info("user deleted", "user_id", id, "cascaded_invoices", n)
		return nil
	})
}

// List returns a page of users plus the total count, both read in one
// transaction so the page and count agree.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	var (
		users []domain.User
		total int
	)
	err := s.txm.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		users, err = s.repo.List(ctx, tx, limit, offset)
		if err != nil {
			return err
		}
		total, err = s.repo.Count(ctx, tx)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
