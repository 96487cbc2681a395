package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/queue"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int64]domain.User
	nextID int64

	createErr error
	updateErr error

	getByIDCalls int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]domain.User)}
}

func (f *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getByIDCalls++
	if u, ok := f.users[id]; ok {
		copy := u
		return &copy, nil
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copy := u
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) Create(_ context.Context, data domain.UserCreateData) (*domain.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	now := time.Now()
	u := domain.User{ID: f.nextID, Email: data.Email, Name: data.Name, CreatedAt: now, UpdatedAt: now}
	f.users[u.ID] = u
	return &u, nil
}

func (f *fakeUserRepo) Update(_ context.Context, id int64, data domain.UserUpdateData) (*domain.User, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	if data.Empty() {
		copy := u
		return &copy, nil
	}
	if data.Email != nil {
		u.Email = *data.Email
	}
	if data.Name != nil {
		u.Name = *data.Name
	}
	now := time.Now()
	if !now.After(u.UpdatedAt) {
		now = u.UpdatedAt.Add(time.Nanosecond)
	}
	u.UpdatedAt = now
	f.users[id] = u
	copy := u
	return &copy, nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return false, nil
	}
	delete(f.users, id)
	return true, nil
}

func (f *fakeUserRepo) WithTx(_ context.Context, fn func(repository.UserRepository) error) error {
	return fn(f)
}

type fakeProducer struct {
	mu       sync.Mutex
	payloads []queue.UserCreatedPayload
	err      error
}

func (p *fakeProducer) EnqueueUserCreated(_ context.Context, payload queue.UserCreatedPayload) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

func newTestService(t *testing.T) (*UserService, *fakeUserRepo, *fakeProducer) {
	t.Helper()
	repo := newFakeUserRepo()
	producer := &fakeProducer{}
	svc := NewUserService(UserDependencies{UserRepo: repo, Producer: producer})
	return svc, repo, producer
}

func mustCreate(t *testing.T, svc *UserService, email, name string) *domain.User {
	t.Helper()
	u, err := svc.CreateUser(context.Background(), domain.UserCreateData{Email: email, Name: name})
	require.NoError(t, err)
	return u
}

func domainStatus(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	return apperrors.ToDomainError(err).HTTPStatus
}

func TestGetAllUsers(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	users, err := svc.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	mustCreate(t, svc, "a@x.com", "A")
	mustCreate(t, svc, "b@x.com", "B")

	users, err = svc.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	// newest first
	assert.Equal(t, "b@x.com", users[0].Email)
}

func TestGetUserByID(t *testing.T) {
	svc, _, _ := newTestService(t)
	created := mustCreate(t, svc, "a@x.com", "A")

	got, err := svc.GetUserByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, got.Email)
	assert.Equal(t, created.Name, got.Name)
	assert.True(t, got.CreatedAt.Equal(got.UpdatedAt))
}

func TestGetUserByID_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetUserByID(context.Background(), 999)
	assert.Equal(t, 404, domainStatus(t, err))
	assert.EqualError(t, err, "User with id 999 not found")
}

func TestCreateUser_EnqueuesJob(t *testing.T) {
	svc, _, producer := newTestService(t)

	user := mustCreate(t, svc, "a@x.com", "A")
	assert.NotZero(t, user.ID)
	assert.True(t, user.CreatedAt.Equal(user.UpdatedAt))

	require.Len(t, producer.payloads, 1)
	assert.Equal(t, queue.UserCreatedPayload{UserID: user.ID, Email: "a@x.com", Name: "A"}, producer.payloads[0])
}

func TestCreateUser_EmailConflict(t *testing.T) {
	svc, _, producer := newTestService(t)
	mustCreate(t, svc, "a@x.com", "A")

	_, err := svc.CreateUser(context.Background(), domain.UserCreateData{Email: "a@x.com", Name: "Other"})
	assert.Equal(t, 409, domainStatus(t, err))
	assert.EqualError(t, err, "Email already exists")
	assert.Len(t, producer.payloads, 1)
}

func TestCreateUser_StoreConstraintViolation(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.createErr = repository.ErrDuplicateEmail

	_, err := svc.CreateUser(context.Background(), domain.UserCreateData{Email: "a@x.com", Name: "A"})
	assert.Equal(t, 409, domainStatus(t, err))
}

func TestCreateUser_EnqueueFailureStillReturnsUser(t *testing.T) {
	svc, _, producer := newTestService(t)
	producer.err = assert.AnError

	user, err := svc.CreateUser(context.Background(), domain.UserCreateData{Email: "a@x.com", Name: "A"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
}

func TestUpdateUser_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	name := "B"
	_, err := svc.UpdateUser(context.Background(), 42, domain.UserUpdateData{Name: &name})
	assert.Equal(t, 404, domainStatus(t, err))
}

func TestUpdateUser_EmailOwnedByOther(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustCreate(t, svc, "a@x.com", "A")
	other := mustCreate(t, svc, "b@x.com", "B")

	email := "a@x.com"
	_, err := svc.UpdateUser(context.Background(), other.ID, domain.UserUpdateData{Email: &email})
	assert.Equal(t, 409, domainStatus(t, err))
}

func TestUpdateUser_OwnEmailAllowed(t *testing.T) {
	svc, _, _ := newTestService(t)
	user := mustCreate(t, svc, "a@x.com", "A")

	email := "a@x.com"
	updated, err := svc.UpdateUser(context.Background(), user.ID, domain.UserUpdateData{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", updated.Email)
}

func TestUpdateUser_PartialNameKeepsEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	user := mustCreate(t, svc, "a@x.com", "A")

	name := "B"
	updated, err := svc.UpdateUser(context.Background(), user.ID, domain.UserUpdateData{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "B", updated.Name)
	assert.Equal(t, "a@x.com", updated.Email)
	assert.True(t, updated.UpdatedAt.After(user.UpdatedAt))
	assert.True(t, updated.CreatedAt.Equal(user.CreatedAt))
}

func TestUpdateUser_NoFieldsIsNoOp(t *testing.T) {
	svc, _, _ := newTestService(t)
	user := mustCreate(t, svc, "a@x.com", "A")

	updated, err := svc.UpdateUser(context.Background(), user.ID, domain.UserUpdateData{})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.Equal(user.UpdatedAt))
}

func TestDeleteUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	user := mustCreate(t, svc, "a@x.com", "A")

	require.NoError(t, svc.DeleteUser(context.Background(), user.ID))

	_, err := svc.GetUserByID(context.Background(), user.ID)
	assert.Equal(t, 404, domainStatus(t, err))
}

func TestDeleteUser_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.DeleteUser(context.Background(), 7)
	assert.Equal(t, 404, domainStatus(t, err))
}
