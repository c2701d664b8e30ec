package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/minibank/internal/models"
)

// Storage gives access to all repositories over the same connection (pool or transaction)
type Storage interface {
	User() UserRepo
	Account() AccountRepo
	Transaction() TransactionRepo
	Refresh() RefreshTokenRepo

	// Run fn in db transaction
	// Commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

type CreateUserParams struct {
	Email          string
	FullName       string
	HashedPassword string
	Role           string
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with email exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Get user by it's id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Lock users rows until the end of transaction
	// Rows are locked in ascending id order; users that not exist are skipped
	LockUsers(ctx context.Context, userIDs ...uuid.UUID) ([]models.User, error)

	// Decrease user balance if it is enough
	// If balance is less than amount must return apperrors.ErrBalanceInsufficient and change nothing
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (models.User, error)

	// Increase user balance
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (models.User, error)

	// List users with customer role
	ListCustomers(ctx context.Context) ([]models.CustomerOverview, error)
}

type UpdateStatusParams struct {
	// Status the account has to be in to make the transition
	From string

	To          string
	FreezeUntil *time.Time
}

type AccountRepo interface {
	// Create active account
	// If account number is taken must return apperrors.ErrAccountNumberTaken
	CreateAccount(ctx context.Context, userID uuid.UUID, number string, accountType string) (models.Account, error)

	// If account not found must return apperrors.ErrAccountNotFound
	GetAccount(ctx context.Context, accountID uuid.UUID) (models.Account, error)

	ListUserAccounts(ctx context.Context, userID uuid.UUID) ([]models.Account, error)

	// Return the user account that fits for transfers best and lock it in share mode
	// Accounts with preferred type and active status go first
	// If user has no accounts must return apperrors.ErrAccountNotFound
	GetTransferAccount(ctx context.Context, userID uuid.UUID, preferredType string) (models.Account, error)

	UpdateType(ctx context.Context, accountID uuid.UUID, accountType string) (models.Account, error)

	// Change status only if the account is in params.From status
	// Must return apperrors.ErrAccountStatusTransition if status differs and apperrors.ErrAccountNotFound if there is no account
	UpdateStatus(ctx context.Context, accountID uuid.UUID, params UpdateStatusParams) (models.Account, error)

	DeleteAccount(ctx context.Context, accountID uuid.UUID) error
}

type ListTransactionsOpts struct {
	// Empty means both sent and received
	Type string
}

type TransactionRepo interface {
	// Append ledger entry
	// If idempotency key is already used by the sender must return apperrors.ErrIdempotencyConflict
	CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error)

	// If transaction not found must return apperrors.ErrTransactionNotFound
	GetByIdempotencyKey(ctx context.Context, fromUserID uuid.UUID, key string) (models.Transaction, error)

	ListTransactions(ctx context.Context, userID uuid.UUID, opts ListTransactionsOpts) ([]models.Transaction, error)
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Return the token if it exists in the database even if it is used or expired
	// If not found must return apperrors.ErrRefreshTokenNotFound
	Get(ctx context.Context, tokenString string) (models.RefreshToken, error)

	// Mark token as used and return it
	// If the token is already used, must not overwrite the existing 'usedAt' and return apperrors.ErrRefreshTokenIsUsed
	GetAndMarkUsed(ctx context.Context, tokenString string) (models.RefreshToken, error)
}
