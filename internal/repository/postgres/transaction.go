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

type TransactionRepo struct {
	DB DBTX
}

const transactionColumns = `id, from_user_id, to_user_id, amount, status, description, idempotency_key, created_at`

const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (id, from_user_id, to_user_id, amount, status, description, idempotency_key)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + transactionColumns

func (r *TransactionRepo) CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = models.TransactionStatusCompleted
	}

	rows, _ := r.DB.Query(ctx, createTransaction, t.ID, t.FromUserID, t.ToUserID, t.Amount, t.Status, t.Description, t.IdempotencyKey)
	created, err := pgx.CollectOneRow(rows, rowToTransaction)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return created, apperrors.ErrIdempotencyConflict
		}

		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getTransactionByIdempotencyKey = `-- name: GetTransactionByIdempotencyKey
SELECT ` + transactionColumns + ` FROM transactions
WHERE from_user_id = $1 AND idempotency_key = $2
`

func (r *TransactionRepo) GetByIdempotencyKey(ctx context.Context, fromUserID uuid.UUID, key string) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, getTransactionByIdempotencyKey, fromUserID, key)
	t, err := pgx.CollectOneRow(rows, rowToTransaction)

	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, pgx.ErrNoRows):
		return t, apperrors.ErrTransactionNotFound
	default:
		return t, fmt.Errorf("db error: %w", err)
	}
}

const (
	listAllTransactions = `-- name: ListAllTransactions
SELECT ` + transactionColumns + ` FROM transactions
WHERE from_user_id = $1 OR to_user_id = $1
ORDER BY created_at DESC, id
`
	listSentTransactions = `-- name: ListSentTransactions
SELECT ` + transactionColumns + ` FROM transactions
WHERE from_user_id = $1
ORDER BY created_at DESC, id
`
	listReceivedTransactions = `-- name: ListReceivedTransactions
SELECT ` + transactionColumns + ` FROM transactions
WHERE to_user_id = $1
ORDER BY created_at DESC, id
`
)

func (r *TransactionRepo) ListTransactions(ctx context.Context, userID uuid.UUID, opts repository.ListTransactionsOpts) ([]models.Transaction, error) {
	var query string

	switch opts.Type {
	case "":
		query = listAllTransactions
	case models.TransactionTypeSent:
		query = listSentTransactions
	case models.TransactionTypeReceived:
		query = listReceivedTransactions
	default:
		return nil, apperrors.ErrTransactionTypeInvalid
	}

	rows, _ := r.DB.Query(ctx, query, userID)
	transactions, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return transactions, nil
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.FromUserID, &t.ToUserID, &t.Amount, &t.Status, &t.Description, &t.IdempotencyKey, &t.CreatedAt)
	return t, err
}
