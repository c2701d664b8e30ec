package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/minibank/internal/apperrors"
	"github.com/nkiryanov/minibank/internal/models"
	"github.com/nkiryanov/minibank/internal/repository"
)

type AccountRepo struct {
	DB DBTX
}

const accountColumns = `id, user_id, account_number, account_type, status, freeze_until, created_at`

const createAccount = `-- name: CreateAccount
INSERT INTO accounts (id, user_id, account_number, account_type, status)
VALUES ($1, $2, $3, $4, 'active')
RETURNING ` + accountColumns

func (r *AccountRepo) CreateAccount(ctx context.Context, userID uuid.UUID, number string, accountType string) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, createAccount, uuid.New(), userID, number, accountType)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return account, apperrors.ErrAccountNumberTaken
			case pgerrcode.ForeignKeyViolation:
				return account, apperrors.ErrUserNotFound
			}
		}

		return account, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

const getAccount = `-- name: GetAccount
SELECT ` + accountColumns + ` FROM accounts
WHERE id = $1
`

func (r *AccountRepo) GetAccount(ctx context.Context, accountID uuid.UUID) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, getAccount, accountID)
	return collectAccount(rows)
}

const listUserAccounts = `-- name: ListUserAccounts
SELECT ` + accountColumns + ` FROM accounts
WHERE user_id = $1
ORDER BY created_at, id
`

func (r *AccountRepo) ListUserAccounts(ctx context.Context, userID uuid.UUID) ([]models.Account, error) {
	rows, _ := r.DB.Query(ctx, listUserAccounts, userID)
	accounts, err := pgx.CollectRows(rows, rowToAccount)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return accounts, nil
}

// Share lock is enough: it blocks concurrent status changes but not other transfers
const getTransferAccount = `-- name: GetTransferAccount
SELECT ` + accountColumns + ` FROM accounts
WHERE user_id = $1
ORDER BY (account_type = $2) DESC, (status = 'active') DESC, created_at, id
LIMIT 1
FOR SHARE
`

func (r *AccountRepo) GetTransferAccount(ctx context.Context, userID uuid.UUID, preferredType string) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, getTransferAccount, userID, preferredType)
	return collectAccount(rows)
}

const updateAccountType = `-- name: UpdateAccountType
UPDATE accounts
SET account_type = $2
WHERE id = $1
RETURNING ` + accountColumns

func (r *AccountRepo) UpdateType(ctx context.Context, accountID uuid.UUID, accountType string) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, updateAccountType, accountID, accountType)
	return collectAccount(rows)
}

const updateAccountStatus = `-- name: UpdateAccountStatus
UPDATE accounts
SET status = $3, freeze_until = $4
WHERE id = $1 AND status = $2
RETURNING ` + accountColumns

const accountExists = `-- name: AccountExists
SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)
`

func (r *AccountRepo) UpdateStatus(ctx context.Context, accountID uuid.UUID, params repository.UpdateStatusParams) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, updateAccountStatus, accountID, params.From, params.To, params.FreezeUntil)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Nothing updated: either there is no account or it is in other status
		var exists bool
		if err := r.DB.QueryRow(ctx, accountExists, accountID).Scan(&exists); err != nil {
			return account, fmt.Errorf("db error: %w", err)
		}
		if !exists {
			return account, apperrors.ErrAccountNotFound
		}
		return account, apperrors.ErrAccountStatusTransition
	default:
		return account, fmt.Errorf("db error: %w", err)
	}
}

const deleteAccount = `-- name: DeleteAccount
DELETE FROM accounts
WHERE id = $1
`

func (r *AccountRepo) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteAccount, accountID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperrors.ErrAccountNotFound
	}

	return nil
}

func collectAccount(rows pgx.Rows) (models.Account, error) {
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrAccountNotFound
	default:
		return account, fmt.Errorf("db error: %w", err)
	}
}

func rowToAccount(row pgx.CollectableRow) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.UserID, &a.Number, &a.Type, &a.Status, &a.FreezeUntil, &a.CreatedAt)
	return a, err
}
