package account

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/minibank/internal/apperrors"
	"github.com/nkiryanov/minibank/internal/models"
	"github.com/nkiryanov/minibank/internal/repository/postgres"
	"github.com/nkiryanov/minibank/internal/testutil"
)

func TestAccount(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	inTx := func(t *testing.T, fn func(s *AccountService, tx pgx.Tx)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			s := NewService(postgres.NewStorage(tx))
			s.now = func() time.Time { return now }
			fn(s, tx)
		})
	}

	t.Run("CreateAccount", func(t *testing.T) {
		t.Run("create ok", func(t *testing.T) {
			inTx(t, func(s *AccountService, tx pgx.Tx) {
				userID := testutil.CreateUser(t, tx, "alice@example.com", "0")

				acc, err := s.CreateAccount(t.Context(), userID, " 1234-5678 ", models.AccountTypeSavings)

				require.NoError(t, err)
				require.Equal(t, userID, acc.UserID)
				require.Equal(t, "1234-5678", acc.Number)
				require.Equal(t, models.AccountTypeSavings, acc.Type)
				require.Equal(t, models.AccountStatusActive, acc.Status, "new account is active")
				require.Nil(t, acc.FreezeUntil)
			})
		})

		tests := []struct {
			name        string
			number      string
			accountType string
			expectedErr error
		}{
			{name: "empty number", number: "  ", accountType: models.AccountTypeChecking, expectedErr: apperrors.ErrValidation},
			{name: "unknown type", number: "1", accountType: "brokerage", expectedErr: apperrors.ErrAccountTypeInvalid},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				inTx(t, func(s *AccountService, tx pgx.Tx) {
					userID := testutil.CreateUser(t, tx, "alice@example.com", "0")

					_, err := s.CreateAccount(t.Context(), userID, tt.number, tt.accountType)

					require.ErrorIs(t, err, tt.expectedErr)
				})
			})
		}

		t.Run("duplicate number", func(t *testing.T) {
			inTx(t, func(s *AccountService, tx pgx.Tx) {
				userID := testutil.CreateUser(t, tx, "alice@example.com", "0")
				_, err := s.CreateAccount(t.Context(), userID, "1", models.AccountTypeChecking)
				require.NoError(t, err)

				_, err = s.CreateAccount(t.Context(), userID, "1", models.AccountTypeSavings)

				require.ErrorIs(t, err, apperrors.ErrAccountNumberTaken)
				require.ErrorIs(t, err, apperrors.ErrConflict)
			})
		})

		t.Run("unknown user", func(t *testing.T) {
			inTx(t, func(s *AccountService, _ pgx.Tx) {
				_, err := s.CreateAccount(t.Context(), uuid.New(), "1", models.AccountTypeChecking)

				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})

	t.Run("ListUserAccounts", func(t *testing.T) {
		t.Run("list ok", func(t *testing.T) {
			inTx(t, func(s *AccountService, tx pgx.Tx) {
				userID := testutil.CreateUser(t, tx, "alice@example.com", "0")
				otherID := testutil.CreateUser(t, tx, "bob@example.com", "0")
				testutil.CreateAccount(t, tx, userID, models.AccountTypeChecking, models.AccountStatusActive)
				testutil.CreateAccount(t, tx, userID, models.AccountTypeSavings, models.AccountStatusFrozen)
				testutil.CreateAccount(t, tx, otherID, models.AccountTypeSavings, models.AccountStatusActive)

				accounts, err := s.ListUserAccounts(t.Context(), userID)

				require.NoError(t, err)
				require.Len(t, accounts, 2)
				for _, acc := range accounts {
					require.Equal(t, userID, acc.UserID)
				}
			})
		})

		t.Run("user without accounts", func(t *testing.T) {
			inTx(t, func(s *AccountService, tx pgx.Tx) {
				userID := testutil.CreateUser(t, tx, "alice@example.com", "0")

				accounts, err := s.ListUserAccounts(t.Context(), userID)

				require.NoError(t, err)
				require.Empty(t, accounts)
			})
		})

		t.Run("unknown user", func(t *testing.T) {
			inTx(t, func(s *AccountService, _ pgx.Tx) {
				_, err := s.ListUserAccounts(t.Context(), uuid.New())

				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})

	t.Run("UpdateType", func(t *testing.T) {
		inTx(t, func(s *AccountService, tx pgx.Tx) {
			userID := testutil.CreateUser(t, tx, "alice@example.com", "0")
			accID := testutil.CreateAccount(t, tx, userID, models.AccountTypeChecking, models.AccountStatusActive)

			acc, err := s.UpdateType(t.Context(), accID, models.AccountTypeSavings)
			require.NoError(t, err)
			require.Equal(t, models.AccountTypeSavings, acc.Type)

			_, err = s.UpdateType(t.Context(), accID, "gold")
			require.ErrorIs(t, err, apperrors.ErrAccountTypeInvalid)

			_, err = s.UpdateType(t.Context(), uuid.New(), models.AccountTypeSavings)
			require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
		})
	})

	t.Run("lifecycle", func(t *testing.T) {
		t.Run("freeze and unfreeze", func(t *testing.T) {
			inTx(t, func(s *AccountService, tx pgx.Tx) {
				userID := testutil.CreateUser(t, tx, "alice@example.com", "0")
				accID := testutil.CreateAccount(t, tx, userID, models.AccountTypeChecking, models.AccountStatusActive)

				frozen, err := s.Freeze(t.Context(), accID, 3)
				require.NoError(t, err)
				require.Equal(t, models.AccountStatusFrozen, frozen.Status)
				require.NotNil(t, frozen.FreezeUntil)
				require.WithinDuration(t, now.AddDate(0, 0, 3), *frozen.FreezeUntil, time.Second)

				_, err = s.Freeze(t.Context(), accID, 3)
				require.ErrorIs(t, err, apperrors.ErrAccountStatusTransition, "frozen account can't be frozen again")

				_, err = s.Deactivate(t.Context(), accID)
				require.ErrorIs(t, err, apperrors.ErrAccountStatusTransition, "frozen account can't be deactivated")

				active, err := s.Unfreeze(t.Context(), accID)
				require.NoError(t, err)
				require.Equal(t, models.AccountStatusActive, active.Status)
				require.Nil(t, active.FreezeUntil, "unfreeze clears freeze date")
			})
		})

		t.Run("freeze days must be in range", func(t *testing.T) {
			inTx(t, func(s *AccountService, tx pgx.Tx) {
				userID := testutil.CreateUser(t, tx, "alice@example.com", "0")
				accID := testutil.CreateAccount(t, tx, userID, models.AccountTypeChecking, models.AccountStatusActive)

				for _, days := range []int{0, -1, MaxFreezeDays + 1, math.MaxInt} {
					_, err := s.Freeze(t.Context(), accID, days)
					require.ErrorIs(t, err, apperrors.ErrFreezeDaysInvalid)
				}

				acc, err := s.Freeze(t.Context(), accID, MaxFreezeDays)
				require.NoError(t, err)
				require.Equal(t, models.AccountStatusFrozen, acc.Status)
			})
		})

		t.Run("unfreeze active fails", func(t *testing.T) {
			inTx(t, func(s *AccountService, tx pgx.Tx) {
				userID := testutil.CreateUser(t, tx, "alice@example.com", "0")
				accID := testutil.CreateAccount(t, tx, userID, models.AccountTypeChecking, models.AccountStatusActive)

				_, err := s.Unfreeze(t.Context(), accID)

				require.ErrorIs(t, err, apperrors.ErrAccountStatusTransition)
				require.ErrorIs(t, err, apperrors.ErrPolicyViolation)
			})
		})

		t.Run("deactivate is final", func(t *testing.T) {
			inTx(t, func(s *AccountService, tx pgx.Tx) {
				userID := testutil.CreateUser(t, tx, "alice@example.com", "0")
				accID := testutil.CreateAccount(t, tx, userID, models.AccountTypeChecking, models.AccountStatusActive)

				acc, err := s.Deactivate(t.Context(), accID)
				require.NoError(t, err)
				require.Equal(t, models.AccountStatusDeactivated, acc.Status)

				_, err = s.Freeze(t.Context(), accID, 1)
				require.ErrorIs(t, err, apperrors.ErrAccountStatusTransition)
				_, err = s.Unfreeze(t.Context(), accID)
				require.ErrorIs(t, err, apperrors.ErrAccountStatusTransition)
			})
		})

		t.Run("unknown account", func(t *testing.T) {
			inTx(t, func(s *AccountService, _ pgx.Tx) {
				_, err := s.Deactivate(t.Context(), uuid.New())
				require.ErrorIs(t, err, apperrors.ErrAccountNotFound)

				_, err = s.Freeze(t.Context(), uuid.New(), 1)
				require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
			})
		})
	})

	t.Run("DeleteAccount", func(t *testing.T) {
		inTx(t, func(s *AccountService, tx pgx.Tx) {
			userID := testutil.CreateUser(t, tx, "alice@example.com", "0")
			accID := testutil.CreateAccount(t, tx, userID, models.AccountTypeChecking, models.AccountStatusActive)

			err := s.DeleteAccount(t.Context(), accID)
			require.NoError(t, err)

			_, err = s.GetAccount(t.Context(), accID)
			require.ErrorIs(t, err, apperrors.ErrAccountNotFound)

			err = s.DeleteAccount(t.Context(), accID)
			require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
		})
	})
}
