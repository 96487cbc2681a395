package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/queue"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// UserService enforces business invariants around users and schedules the
// asynchronous side effects of user creation.
type UserService struct {
	users    repository.UserRepository
	producer queue.Producer
	logger   *zap.Logger
}

// UserDependencies bundles collaborators for UserService.
type UserDependencies struct {
	UserRepo repository.UserRepository
	Producer queue.Producer
	Logger   *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:    deps.UserRepo,
		producer: deps.Producer,
		logger:   logger,
	}
}

// GetAllUsers returns all users, newest first.
func (s *UserService) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// GetUserByID returns the user or a NotFound error.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewNotFound(fmt.Sprintf("User with id %d not found", id))
	}
	return user, nil
}

// CreateUser persists a new user and enqueues the user.created job. The
// created user is returned even when the enqueue fails; the job loss is
// logged, not surfaced.
func (s *UserService) CreateUser(ctx context.Context, data domain.UserCreateData) (*domain.User, error) {
	existing, err := s.users.GetByEmail(ctx, data.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.NewConflict("Email already exists")
	}

	user, err := s.users.Create(ctx, data)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			// a concurrent create slipped past the pre-check; the unique
			// constraint is the backstop
			return nil, apperrors.NewConflict("Email already exists")
		}
		return nil, err
	}

	if s.producer != nil {
		payload := queue.UserCreatedPayload{UserID: user.ID, Email: user.Email, Name: user.Name}
		if err := s.producer.EnqueueUserCreated(ctx, payload); err != nil {
			s.logger.Error("enqueue user.created failed",
				zap.Int64("user_id", user.ID),
				zap.Error(err))
		}
	}

	return user, nil
}

// UpdateUser applies a partial update after checking existence and email
// ownership. Reusing the user's own current email is allowed.
func (s *UserService) UpdateUser(ctx context.Context, id int64, data domain.UserUpdateData) (*domain.User, error) {
	if _, err := s.GetUserByID(ctx, id); err != nil {
		return nil, err
	}

	if data.Email != nil {
		owner, err := s.users.GetByEmail(ctx, *data.Email)
		if err != nil {
			return nil, err
		}
		if owner != nil && owner.ID != id {
			return nil, apperrors.NewConflict("Email already exists")
		}
	}

	user, err := s.users.Update(ctx, id, data)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewConflict("Email already exists")
		}
		return nil, err
	}
	if user == nil {
		// row vanished between the existence check and the update
		return nil, apperrors.NewNotFound(fmt.Sprintf("User with id %d not found", id))
	}
	return user, nil
}

// DeleteUser removes the user or fails with NotFound.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.GetUserByID(ctx, id); err != nil {
		return err
	}

	deleted, err := s.users.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.NewNotFound(fmt.Sprintf("User with id %d not found", id))
	}
	return nil
}
