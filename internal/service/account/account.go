package account

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/minibank/internal/apperrors"
	"github.com/nkiryanov/minibank/internal/models"
	"github.com/nkiryanov/minibank/internal/repository"
)

// Account lifecycle:
//
//	active -> frozen      (Freeze)
//	frozen -> active      (Unfreeze)
//	active -> deactivated (Deactivate)
//
// Expired freeze is not lifted automatically, it waits for Unfreeze.
type AccountService struct {
	storage repository.Storage
	now     func() time.Time
}

func NewService(storage repository.Storage) *AccountService {
	return &AccountService{
		storage: storage,
		now:     time.Now,
	}
}

func (s *AccountService) CreateAccount(ctx context.Context, userID uuid.UUID, number string, accountType string) (models.Account, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return models.Account{}, apperrors.New(apperrors.ErrValidation, "Account number must not be empty")
	}
	if !models.IsValidAccountType(accountType) {
		return models.Account{}, apperrors.ErrAccountTypeInvalid
	}

	return s.storage.Account().CreateAccount(ctx, userID, number, accountType)
}

func (s *AccountService) GetAccount(ctx context.Context, accountID uuid.UUID) (models.Account, error) {
	return s.storage.Account().GetAccount(ctx, accountID)
}

// Unknown user is an error, user without accounts is not
func (s *AccountService) ListUserAccounts(ctx context.Context, userID uuid.UUID) ([]models.Account, error) {
	if _, err := s.storage.User().GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	return s.storage.Account().ListUserAccounts(ctx, userID)
}

func (s *AccountService) UpdateType(ctx context.Context, accountID uuid.UUID, accountType string) (models.Account, error) {
	if !models.IsValidAccountType(accountType) {
		return models.Account{}, apperrors.ErrAccountTypeInvalid
	}

	return s.storage.Account().UpdateType(ctx, accountID, accountType)
}

// Longest freeze, about a hundred years
const MaxFreezeDays = 36500

func (s *AccountService) Freeze(ctx context.Context, accountID uuid.UUID, days int) (models.Account, error) {
	if days <= 0 || days > MaxFreezeDays {
		return models.Account{}, apperrors.ErrFreezeDaysInvalid
	}

	until := s.now().AddDate(0, 0, days)
	return s.storage.Account().UpdateStatus(ctx, accountID, repository.UpdateStatusParams{
		From:        models.AccountStatusActive,
		To:          models.AccountStatusFrozen,
		FreezeUntil: &until,
	})
}

func (s *AccountService) Unfreeze(ctx context.Context, accountID uuid.UUID) (models.Account, error) {
	return s.storage.Account().UpdateStatus(ctx, accountID, repository.UpdateStatusParams{
		From: models.AccountStatusFrozen,
		To:   models.AccountStatusActive,
	})
}

func (s *AccountService) Deactivate(ctx context.Context, accountID uuid.UUID) (models.Account, error) {
	return s.storage.Account().UpdateStatus(ctx, accountID, repository.UpdateStatusParams{
		From: models.AccountStatusActive,
		To:   models.AccountStatusDeactivated,
	})
}

func (s *AccountService) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	return s.storage.Account().DeleteAccount(ctx, accountID)
}
