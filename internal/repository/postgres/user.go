package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/minibank/internal/apperrors"
	"github.com/nkiryanov/minibank/internal/models"
	"github.com/nkiryanov/minibank/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const userColumns = `id, created_at, email, full_name, password_hash, role, balance`

const createUser = `-- name: CreateUser
INSERT INTO users (id, email, full_name, password_hash, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns

func (r *UserRepo) CreateUser(ctx context.Context, params repository.CreateUserParams) (models.User, error) {
	role := params.Role
	if role == "" {
		role = models.RoleCustomer
	}

	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), params.Email, params.FullName, params.HashedPassword, role)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT ` + userColumns + ` FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	return collectUser(rows)
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT ` + userColumns + ` FROM users
WHERE email = $1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	return collectUser(rows)
}

const lockUsers = `-- name: LockUsers
SELECT ` + userColumns + ` FROM users
WHERE id = ANY($1)
ORDER BY id
FOR UPDATE
`

func (r *UserRepo) LockUsers(ctx context.Context, userIDs ...uuid.UUID) ([]models.User, error) {
	// Postgres locks rows in the order they are read, so the order has to be fixed by 'ORDER BY'
	ids := slices.Clone(userIDs)
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	ids = slices.Compact(ids)

	rows, _ := r.DB.Query(ctx, lockUsers, ids)
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return users, nil
}

const debitUser = `-- name: DebitUser
UPDATE users
SET balance = balance - $2
WHERE id = $1 AND balance >= $2
RETURNING ` + userColumns

func (r *UserRepo) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (models.User, error) {
	rows, _ := r.DB.Query(ctx, debitUser, userID, amount)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrBalanceInsufficient
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const creditUser = `-- name: CreditUser
UPDATE users
SET balance = balance + $2
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (models.User, error) {
	rows, _ := r.DB.Query(ctx, creditUser, userID, amount)
	return collectUser(rows)
}

const listCustomers = `-- name: ListCustomers
SELECT u.id, u.email, u.full_name, u.balance,
       EXISTS (SELECT 1 FROM accounts a WHERE a.user_id = u.id) AS has_account
FROM users u
WHERE u.role = 'customer'
ORDER BY u.created_at, u.id
`

func (r *UserRepo) ListCustomers(ctx context.Context) ([]models.CustomerOverview, error) {
	rows, _ := r.DB.Query(ctx, listCustomers)
	customers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CustomerOverview, error) {
		var c models.CustomerOverview
		err := row.Scan(&c.ID, &c.Email, &c.FullName, &c.Balance, &c.HasAccount)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return customers, nil
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Email, &u.FullName, &u.HashedPassword, &u.Role, &u.Balance)
	return u, err
}
