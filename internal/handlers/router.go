package handlers

import (
	"context"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/nkiryanov/minibank/internal/handlers/middleware"
	"github.com/nkiryanov/minibank/internal/logger"
	"github.com/nkiryanov/minibank/internal/models"
	"github.com/nkiryanov/minibank/internal/service/transfer"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type Services struct {
	Auth     authService
	User     userService
	Account  accountService
	Transfer transferService
}

// NewRouter builds the API handler
// rdb is optional: without it idempotency relies on the database only
func NewRouter(s Services, rdb *redis.Client, logger logger.Logger) http.Handler {
	withAuth := middleware.AuthMiddleware(s.Auth)
	withAdmin := func(h http.Handler) http.Handler {
		return chain(h, withAuth, middleware.AdminOnly)
	}
	withIdempotency := middleware.Idempotency(rdb, logger)

	mux := http.NewServeMux()

	mux.Handle("POST /users/register", handleRegister(s.Auth, logger))
	mux.Handle("POST /users/login", handleLogin(s.Auth, logger))
	mux.Handle("POST /users/refresh", handleTokenRefresh(s.Auth, logger))
	mux.Handle("GET /users/me", withAuth(handleUserMe()))
	mux.Handle("GET /users", withAdmin(handleListCustomers(s.User, logger)))
	mux.Handle("GET /users/{userId}/accounts", withAuth(handleListUserAccounts(s.Account, logger)))

	mux.Handle("POST /accounts", withAuth(handleCreateAccount(s.Account, logger)))
	mux.Handle("GET /accounts/{id}", withAuth(handleGetAccount(s.Account, logger)))
	mux.Handle("PUT /accounts/{id}", withAdmin(handleUpdateAccountType(s.Account, logger)))
	mux.Handle("PUT /accounts/{id}/deactivate", withAdmin(handleDeactivateAccount(s.Account, logger)))
	mux.Handle("PUT /accounts/{id}/freeze", withAdmin(handleFreezeAccount(s.Account, logger)))
	mux.Handle("PUT /accounts/{id}/unfreeze", withAdmin(handleUnfreezeAccount(s.Account, logger)))
	mux.Handle("DELETE /accounts/{id}", withAdmin(handleDeleteAccount(s.Account, logger)))

	mux.Handle("POST /transfers", chain(handleTransfer(s.Transfer, logger), withAuth, withIdempotency))
	mux.Handle("GET /transactions/{userId}", withAuth(handleListTransactions(s.Transfer, logger)))

	handler := chain(mux,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register user with email, full name and password
	// Has to return apperrors.ErrUserAlreadyExists if email is taken
	Register(ctx context.Context, email string, fullName string, password string) (models.User, models.TokenPair, error)

	// Has to return apperrors.ErrInvalidCredentials if user not found or password is wrong
	Login(ctx context.Context, email string, password string) (models.User, models.TokenPair, error)

	// Refresh tokens using refresh token
	// If token expired: has to return apperrors.ErrRefreshTokenExpired
	// If token not found: has to return apperrors.ErrRefreshTokenNotFound
	RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error)

	// Set auth tokens (access, refresh) to response
	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)

	// Get refresh token from request
	GetRefreshString(r *http.Request) (string, error)

	// Get request and return user if it authenticated or error
	Auth(ctx context.Context, r *http.Request) (models.User, error)
}

type userService interface {
	ListCustomers(ctx context.Context) ([]models.CustomerOverview, error)
}

type accountService interface {
	CreateAccount(ctx context.Context, userID uuid.UUID, number string, accountType string) (models.Account, error)
	GetAccount(ctx context.Context, accountID uuid.UUID) (models.Account, error)
	ListUserAccounts(ctx context.Context, userID uuid.UUID) ([]models.Account, error)
	UpdateType(ctx context.Context, accountID uuid.UUID, accountType string) (models.Account, error)
	Freeze(ctx context.Context, accountID uuid.UUID, days int) (models.Account, error)
	Unfreeze(ctx context.Context, accountID uuid.UUID) (models.Account, error)
	Deactivate(ctx context.Context, accountID uuid.UUID) (models.Account, error)
	DeleteAccount(ctx context.Context, accountID uuid.UUID) error
}

type transferService interface {
	Transfer(ctx context.Context, params transfer.TransferParams) (models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, txType string) ([]models.Transaction, error)
}
