package services

import (
	"context"
	"strings"

	"github.com/splitfair/splitfair/internal/apperr"
	"github.com/splitfair/splitfair/internal/auth"
	"github.com/splitfair/splitfair/internal/models"
	repo "github.com/splitfair/splitfair/internal/repository"
)

type UserService struct {
	users repo.Users
}

func NewUserService(users repo.Users) *UserService { return &UserService{users: users} }

func (s *UserService) Register(ctx context.Context, name, email, password string) (models.User, error) {
	u := models.User{Name: strings.TrimSpace(name), Email: strings.ToLower(strings.TrimSpace(email))}
	if err := u.Validate(); err != nil {
		return models.User{}, err
	}
	if len(password) < 8 {
		return models.User{}, apperr.Validation("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, apperr.Internal("hash password", err)
	}
	return s.users.Create(ctx, u.Name, u.Email, hash)
}

// Authenticate verifies credentials and returns the user. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return models.User{}, apperr.Unauthorized("invalid credentials")
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return models.User{}, apperr.Unauthorized("invalid credentials")
	}
	return u, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (models.User, error) {
	return s.users.GetByID(ctx, id)
}
