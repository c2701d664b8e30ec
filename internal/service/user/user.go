package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nkiryanov/minibank/internal/apperrors"
	"github.com/nkiryanov/minibank/internal/models"
	"github.com/nkiryanov/minibank/internal/repository"
	"github.com/nkiryanov/minibank/internal/service/auth"
)

type UserService struct {
	hasher  auth.PasswordHasher
	storage repository.Storage

	// Emails that get admin role on registration
	admins map[string]struct{}
}

type Option func(*UserService)

// Users registered with one of these emails become admins
func WithAdminEmails(emails ...string) Option {
	return func(s *UserService) {
		for _, email := range emails {
			if email = normalizeEmail(email); email != "" {
				s.admins[email] = struct{}{}
			}
		}
	}
}

func NewService(hasher auth.PasswordHasher, storage repository.Storage, opts ...Option) *UserService {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	s := &UserService{
		hasher:  hasher,
		storage: storage,
		admins:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *UserService) CreateUser(ctx context.Context, email string, fullName string, password string) (models.User, error) {
	var user models.User

	if password == "" {
		return user, apperrors.New(apperrors.ErrValidation, "Password must not be empty")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	email = normalizeEmail(email)
	role := models.RoleCustomer
	if _, ok := s.admins[email]; ok {
		role = models.RoleAdmin
	}

	user, err = s.storage.User().CreateUser(ctx, repository.CreateUserParams{
		Email:          email,
		FullName:       strings.TrimSpace(fullName),
		HashedPassword: hash,
		Role:           role,
	})
	if err != nil {
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

// Login returns ErrInvalidCredentials both for unknown email and wrong password
func (s *UserService) Login(ctx context.Context, email string, password string) (models.User, error) {
	user, err := s.storage.User().GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// Spend the same time as for existing user
			_, _ = s.hasher.Hash(password)
			return models.User{}, apperrors.ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.User{}, apperrors.ErrInvalidCredentials
	}

	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, userID)
}

func (s *UserService) ListCustomers(ctx context.Context) ([]models.CustomerOverview, error) {
	return s.storage.User().ListCustomers(ctx)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
