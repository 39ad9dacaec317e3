package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/billingd/internal/domain"
	"github.com/ignite/billingd/internal/messaging"
	"github.com/ignite/billingd/internal/pkg/logger"
	"github.com/ignite/billingd/internal/storage"
)

type memTx struct{}

func (memTx) Backend() string { return "memory" }

// memTxManager runs the closure directly. The fake repositories apply writes
// immediately, so rollback semantics are not simulated; tests that care about
// atomicity assert on the repository state after an error instead.
type memTxManager struct{}

func (memTxManager) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return fn(ctx, memTx{})
}

type memUserRepo struct {
	users map[uuid.UUID]domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]domain.User)}
}

func (m *memUserRepo) Create(ctx context.Context, tx storage.Tx, n domain.NewUser) (*domain.User, error) {
	u := domain.User{ID: n.ID, Email: n.Email, Name: n.Name, Age: n.Age, CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt}
	m.users[n.ID] = u
	return &u, nil
}

func (m *memUserRepo) GetByID(ctx context.Context, tx storage.Tx, id uuid.UUID) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (m *memUserRepo) GetByEmail(ctx context.Context, tx storage.Tx, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) Update(ctx context.Context, tx storage.Tx, u *domain.User) (*domain.User, error) {
	if _, ok := m.users[u.ID]; !ok {
		return nil, nil
	}
	updated := *u
	updated.UpdatedAt = time.Now().UTC()
	m.users[u.ID] = updated
	return &updated, nil
}

func (m *memUserRepo) UpdatePartial(ctx context.Context, tx storage.Tx, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	if patch.IsEmpty() {
		return nil, domain.ErrNoFieldsToUpdate
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	if v, ok := patch.Email.Value(); ok {
		u.Email = v
	}
	if v, ok := patch.Name.Value(); ok {
		u.Name = v
	}
	if !patch.Age.IsUnset() {
		u.Age = patch.Age.Ptr()
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[id] = u
	return &u, nil
}

func (m *memUserRepo) Delete(ctx context.Context, tx storage.Tx, id uuid.UUID) error {
	delete(m.users, id)
	return nil
}

func (m *memUserRepo) List(ctx context.Context, tx storage.Tx, limit, offset int) ([]domain.User, error) {
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memUserRepo) Count(ctx context.Context, tx storage.Tx) (int, error) {
	return len(m.users), nil
}

type capturePublisher struct {
	events  []*messaging.Event
	failWith error
}

func (p *capturePublisher) Publish(ctx context.Context, evt *messaging.Event) error {
	if p.failWith != nil {
		return p.failWith
	}
	p.events = append(p.events, evt)
	return nil
}

type fakeCascader struct {
	deletedFor []uuid.UUID
	count      int
}

func (f *fakeCascader) DeleteByUserIDInTx(ctx context.Context, tx storage.Tx, userID uuid.UUID) (int, error) {
	f.deletedFor = append(f.deletedFor, userID)
	return f.count, nil
}

func newTestService() (*Service, *memUserRepo, *capturePublisher, *fakeCascader) {
	repo := newMemUserRepo()
	pub := &capturePublisher{}
	casc := &fakeCascader{}
	svc := NewService(repo, casc, memTxManager{}, pub, logger.NewNop())
	return svc, repo, pub, casc
}

func TestCreate(t *testing.T) {
	svc, repo, pub, _ := newTestService()
	age := 36

	u, err := svc.Create(context.Background(), CreateInput{Email: "ada@example.com", Name: "Ada", Age: &age})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)
	assert.Len(t, repo.users, 1)

	require.Len(t, pub.events, 1)
	evt := pub.events[0]
	assert.Equal(t, messaging.EventUserCreated, evt.EventType)
	assert.Equal(t, u.ID.String(), evt.AggregateID)
	assert.Equal(t, "ada@example.com", evt.Payload["email"])
}

func TestCreate_DuplicateEmail(t *testing.T) {
	svc, _, pub, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateInput{Email: "ada@example.com", Name: "Ada"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Email: "ada@example.com", Name: "Other"})
	var dup *domain.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "email", dup.Field)
	assert.Len(t, pub.events, 1)
}

func TestCreate_Validation(t *testing.T) {
	svc, _, pub, _ := newTestService()
	neg := -1

	cases := []struct {
		name  string
		in    CreateInput
		field string
	}{
		{"empty email", CreateInput{Email: "", Name: "Ada"}, "email"},
		{"malformed email", CreateInput{Email: "not-an-email", Name: "Ada"}, "email"},
		{"empty name", CreateInput{Email: "a@b.com", Name: "  "}, "name"},
		{"negative age", CreateInput{Email: "a@b.com", Name: "Ada", Age: &neg}, "age"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.in)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
	assert.Empty(t, pub.events)
}

func TestCreate_PublishFailureSurfaces(t *testing.T) {
	svc, repo, pub, _ := newTestService()
	pub.failWith = errors.New("bus down")

	_, err := svc.Create(context.Background(), CreateInput{Email: "ada@example.com", Name: "Ada"})
	require.Error(t, err)
	// The write committed before the publish attempt.
	assert.Len(t, repo.users, 1)
}

func TestGet_Absent(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Get(context.Background(), uuid.Must(uuid.NewV7()))
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "User", nf.EntityType)
}

func TestPatch_EmptyPatchIsNoOp(t *testing.T) {
	svc, _, pub, _ := newTestService()

	u, err := svc.Create(context.Background(), CreateInput{Email: "ada@example.com", Name: "Ada"})
	require.NoError(t, err)
	pub.events = nil

	got, err := svc.Patch(context.Background(), u.ID, domain.UserPatch{})
	require.NoError(t, err)
	assert.Equal(t, u.UpdatedAt, got.UpdatedAt)
	assert.Empty(t, pub.events)
}

func TestPatch_NullName(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Patch(context.Background(), uuid.Must(uuid.NewV7()), domain.UserPatch{
		Name: domain.Null[string](),
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestPatch_EmitsDiff(t *testing.T) {
	svc, _, pub, _ := newTestService()

	u, err := svc.Create(context.Background(), CreateInput{Email: "ada@example.com", Name: "Ada"})
	require.NoError(t, err)
	pub.events = nil

	got, err := svc.Patch(context.Background(), u.ID, domain.UserPatch{
		Name: domain.Set("Ada Lovelace"),
		Age:  domain.Set(36),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Name)

	require.Len(t, pub.events, 1)
	evt := pub.events[0]
	assert.Equal(t, messaging.EventUserUpdated, evt.EventType)
	changes, ok := evt.Payload["changes"].(map[string]map[string]string)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"old": "Ada", "new": "Ada Lovelace"}, changes["name"])
	assert.Equal(t, map[string]string{"old": "null", "new": "36"}, changes["age"])
}

func TestPatch_SameEmailSkipsDuplicateCheckAndEvent(t *testing.T) {
	svc, _, pub, _ := newTestService()

	u, err := svc.Create(context.Background(), CreateInput{Email: "ada@example.com", Name: "Ada"})
	require.NoError(t, err)
	pub.events = nil

	// Setting the email to its current value must not trip the uniqueness
	// check against the user's own row, and changes nothing worth an event.
	_, err = svc.Patch(context.Background(), u.ID, domain.UserPatch{
		Email: domain.Set("ada@example.com"),
	})
	require.NoError(t, err)
	assert.Empty(t, pub.events)
}

func TestPatch_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateInput{Email: "ada@example.com", Name: "Ada"})
	require.NoError(t, err)
	u2, err := svc.Create(context.Background(), CreateInput{Email: "grace@example.com", Name: "Grace"})
	require.NoError(t, err)

	_, err = svc.Patch(context.Background(), u2.ID, domain.UserPatch{
		Email: domain.Set("ada@example.com"),
	})
	var dup *domain.DuplicateError
	require.ErrorAs(t, err, &dup)
}

func TestDelete_CascadesInvoices(t *testing.T) {
	svc, repo, _, casc := newTestService()
	casc.count = 2

	u, err := svc.Create(context.Background(), CreateInput{Email: "ada@example.com", Name: "Ada"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), u.ID))
	assert.Equal(t, []uuid.UUID{u.ID}, casc.deletedFor)
	assert.Empty(t, repo.users)
}

func TestDelete_Absent(t *testing.T) {
	svc, _, _, casc := newTestService()

	err := svc.Delete(context.Background(), uuid.Must(uuid.NewV7()))
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Empty(t, casc.deletedFor)
}

func TestList(t *testing.T) {
	svc, _, _, _ := newTestService()

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		_, err := svc.Create(context.Background(), CreateInput{Email: email, Name: "N"})
		require.NoError(t, err)
	}

	users, total, err := svc.List(context.Background(), 50, 0)
	require.NoError(t, err)
	assert.Len(t, users, 3)
	assert.Equal(t, 3, total)
}
