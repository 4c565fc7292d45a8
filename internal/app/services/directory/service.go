// Package directory manages the user registry consulted by the access gate.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/emphub/workforce/internal/app/domain/user"
	"github.com/emphub/workforce/internal/app/storage"
	apperrors "github.com/emphub/workforce/internal/errors"
	"github.com/emphub/workforce/pkg/logger"
)

// Service provides user registration, lookup and the verified-flag
// transition.
type Service struct {
	store storage.UserStore
	log   *logger.Logger
}

// New constructs a directory service.
func New(store storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("directory")
	}
	return &Service{store: store, log: log}
}

// Register creates a user. Role defaults to employee; invalid roles are
// rejected before anything is stored.
func (s *Service) Register(ctx context.Context, name, email, role string) (user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return user.User{}, apperrors.Validation("a valid email is required")
	}

	parsed := user.RoleEmployee
	if strings.TrimSpace(role) != "" {
		var err error
		parsed, err = user.ParseRole(role)
		if err != nil {
			return user.User{}, apperrors.Validation(err.Error())
		}
	}

	created, err := s.store.CreateUser(ctx, user.User{
		Name:  strings.TrimSpace(name),
		Email: email,
		Role:  parsed,
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return user.User{}, apperrors.Validation(fmt.Sprintf("user %s already exists", email))
		}
		return user.User{}, apperrors.Internal("create user failed", err)
	}

	s.log.WithField("user_id", created.ID).
		WithField("email", created.Email).
		WithField("role", string(created.Role)).
		Info("user registered")
	return created, nil
}

// Get fetches one user by ID.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, apperrors.NotFound(fmt.Sprintf("user %s not found", id))
		}
		return user.User{}, apperrors.Internal("fetch user failed", err)
	}
	return u, nil
}

// GetUserByEmail resolves a user by email. This is the lookup the access
// gate performs on every role-protected request.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return s.store.GetUserByEmail(ctx, email)
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]user.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, apperrors.Internal("list users failed", err)
	}
	return users, nil
}

// ListEmployees returns users with the employee role.
func (s *Service) ListEmployees(ctx context.Context) ([]user.User, error) {
	users, err := s.store.ListUsersByRole(ctx, user.RoleEmployee)
	if err != nil {
		return nil, apperrors.Internal("list employees failed", err)
	}
	return users, nil
}

// SetVerified flips the verified flag. This is the only mutation allowed
// after registration.
func (s *Service) SetVerified(ctx context.Context, id string, verified bool) (user.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	u.Verified = verified
	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, apperrors.Internal("update user failed", err)
	}

	s.log.WithField("user_id", id).WithField("verified", verified).Info("user verification updated")
	return updated, nil
}

// HasRole reports whether the user registered under email holds the role.
// Unknown emails report false rather than an error: the boolean role probes
// exist for callers checking their own status.
func (s *Service) HasRole(ctx context.Context, email string, role user.Role) (bool, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, apperrors.Internal("role lookup failed", err)
	}
	return u.Role == role, nil
}
