package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"musicstream/core/auth"
	"musicstream/logger"
	"musicstream/model"
	"musicstream/repository"
)

// Register creates a new account. The pre-check gives the common case a
// clean error; the unique index on email is what actually closes the
// check-then-insert race, so a concurrent duplicate insert also surfaces
// as ErrDuplicateEmail.
func (s *Service) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	if err := validateRegistration(name, email, password); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		FavoriteIDs:  []string{},
		CreatedAt:    time.Now().UTC(),
	}

	id, err := s.users.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	user.ID = id

	logger.Info("account registered", logger.String("userId", id.Hex()))
	return user, nil
}

// Authenticate verifies credentials and returns the account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser resolves an account by id.
func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func validateRegistration(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: invalid email", ErrValidation)
	}
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	return nil
}
