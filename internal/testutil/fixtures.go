package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Insert customer with given balance straight into db
// Password hash is not a valid bcrypt hash, so such user can't log in
func CreateUser(t *testing.T, db execer, email string, balance string) uuid.UUID {
	t.Helper()

	amount, err := decimal.NewFromString(balance)
	require.NoError(t, err, "fixture balance should be a number")

	id := uuid.New()
	_, err = db.Exec(t.Context(),
		`INSERT INTO users (id, email, full_name, password_hash, role, balance) VALUES ($1, $2, $3, 'not-a-hash', 'customer', $4)`,
		id, email, "Test "+email, amount,
	)
	require.NoError(t, err, "fixture user should be created")

	return id
}

// Insert account straight into db
func CreateAccount(t *testing.T, db execer, userID uuid.UUID, accountType string, status string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(t.Context(),
		`INSERT INTO accounts (id, user_id, account_number, account_type, status) VALUES ($1, $2, $3, $4, $5)`,
		id, userID, "ACC-"+id.String(), accountType, status,
	)
	require.NoError(t, err, "fixture account should be created")

	return id
}

func UserBalance(t *testing.T, db execer, userID uuid.UUID) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(t.Context(), `SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	require.NoError(t, err, "fixture user balance should be read")

	return balance
}

func CountTransactions(t *testing.T, db execer, userID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(t.Context(),
		`SELECT count(*) FROM transactions WHERE from_user_id = $1 OR to_user_id = $1`, userID,
	).Scan(&count)
	require.NoError(t, err, "transactions should be counted")

	return count
}
