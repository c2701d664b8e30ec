package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/minibank/internal/handlers/render"
	"github.com/nkiryanov/minibank/internal/handlers/userctx"
	"github.com/nkiryanov/minibank/internal/logger"
	"github.com/nkiryanov/minibank/internal/models"
)

type accountResponse struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Number      string     `json:"account_number"`
	Type        string     `json:"account_type"`
	Status      string     `json:"status"`
	FreezeUntil *time.Time `json:"freeze_until"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newAccountResponse(a models.Account) accountResponse {
	return accountResponse{
		ID:          a.ID,
		UserID:      a.UserID,
		Number:      a.Number,
		Type:        a.Type,
		Status:      a.Status,
		FreezeUntil: a.FreezeUntil,
		CreatedAt:   a.CreatedAt,
	}
}

func handleCreateAccount(accountService accountService, l logger.Logger) http.Handler {
	type request struct {
		UserID      uuid.UUID `json:"user_id" validate:"required"`
		Number      string    `json:"account_number" validate:"required,max=34"`
		AccountType string    `json:"account_type" validate:"required,account_type"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}
		if !userctx.CanAccess(r.Context(), data.UserID) {
			renderForbidden(w)
			return
		}

		account, err := accountService.CreateAccount(r.Context(), data.UserID, data.Number, data.AccountType)
		if err != nil {
			renderError(w, l, err)
			return
		}

		render.JSONWithStatus(w, newAccountResponse(account), http.StatusCreated)
	})
}

func handleGetAccount(accountService accountService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		account, err := accountService.GetAccount(r.Context(), accountID)
		if err != nil {
			renderError(w, l, err)
			return
		}
		if !userctx.CanAccess(r.Context(), account.UserID) {
			renderForbidden(w)
			return
		}

		render.JSON(w, newAccountResponse(account))
	})
}

func handleListUserAccounts(accountService accountService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUUID(w, r, "userId")
		if !ok {
			return
		}
		if !userctx.CanAccess(r.Context(), userID) {
			renderForbidden(w)
			return
		}

		accounts, err := accountService.ListUserAccounts(r.Context(), userID)
		if err != nil {
			renderError(w, l, err)
			return
		}

		resp := make([]accountResponse, 0, len(accounts))
		for _, a := range accounts {
			resp = append(resp, newAccountResponse(a))
		}
		render.JSON(w, resp)
	})
}

func handleUpdateAccountType(accountService accountService, l logger.Logger) http.Handler {
	type request struct {
		AccountType string `json:"account_type" validate:"required,account_type"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		account, err := accountService.UpdateType(r.Context(), accountID, data.AccountType)
		if err != nil {
			renderError(w, l, err)
			return
		}

		render.JSON(w, newAccountResponse(account))
	})
}

func handleFreezeAccount(accountService accountService, l logger.Logger) http.Handler {
	type request struct {
		Days int `json:"days" validate:"required,gt=0,max=36500"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		account, err := accountService.Freeze(r.Context(), accountID, data.Days)
		if err != nil {
			renderError(w, l, err)
			return
		}

		render.JSON(w, newAccountResponse(account))
	})
}

// Status change without request body: deactivate or unfreeze
func handleAccountStatus(change func(r *http.Request, accountID uuid.UUID) (models.Account, error), l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		account, err := change(r, accountID)
		if err != nil {
			renderError(w, l, err)
			return
		}

		render.JSON(w, newAccountResponse(account))
	})
}

func handleDeactivateAccount(accountService accountService, l logger.Logger) http.Handler {
	return handleAccountStatus(func(r *http.Request, accountID uuid.UUID) (models.Account, error) {
		return accountService.Deactivate(r.Context(), accountID)
	}, l)
}

func handleUnfreezeAccount(accountService accountService, l logger.Logger) http.Handler {
	return handleAccountStatus(func(r *http.Request, accountID uuid.UUID) (models.Account, error) {
		return accountService.Unfreeze(r.Context(), accountID)
	}, l)
}

func handleDeleteAccount(accountService accountService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		if err := accountService.DeleteAccount(r.Context(), accountID); err != nil {
			renderError(w, l, err)
			return
		}

		render.JSON(w, response{Message: "Account deleted successfully"})
	})
}
