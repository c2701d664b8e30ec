package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/minibank/internal/handlers/middleware"
	"github.com/nkiryanov/minibank/internal/handlers/render"
	"github.com/nkiryanov/minibank/internal/handlers/userctx"
	"github.com/nkiryanov/minibank/internal/logger"
	"github.com/nkiryanov/minibank/internal/models"
	"github.com/nkiryanov/minibank/internal/service/transfer"
)

func handleTransfer(transferService transferService, l logger.Logger) http.Handler {
	type request struct {
		From        string          `json:"from" validate:"required"`
		To          string          `json:"to" validate:"required"`
		Amount      decimal.Decimal `json:"amount" validate:"dgt0"`
		Description string          `json:"description" validate:"max=255"`
	}
	type response struct {
		TransactionID uuid.UUID `json:"transaction_id"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		// Customers may send only their own money
		from := strings.TrimSpace(data.From)
		if !user.IsAdmin() && from != user.ID.String() && !strings.EqualFold(from, user.Email) {
			renderForbidden(w)
			return
		}

		tx, err := transferService.Transfer(r.Context(), transfer.TransferParams{
			From:           from,
			To:             data.To,
			Amount:         data.Amount,
			Description:    data.Description,
			IdempotencyKey: r.Header.Get(middleware.IdempotencyHeader),
		})
		if err != nil {
			renderError(w, l, err)
			return
		}

		render.JSONWithStatus(w, response{TransactionID: tx.ID}, http.StatusCreated)
	})
}

func handleListTransactions(transferService transferService, l logger.Logger) http.Handler {
	type transaction struct {
		ID          uuid.UUID `json:"id"`
		Type        string    `json:"type"`
		FromUserID  uuid.UUID `json:"from_user_id"`
		ToUserID    uuid.UUID `json:"to_user_id"`
		Amount      float64   `json:"amount"`
		Status      string    `json:"status"`
		Description string    `json:"description"`
		CreatedAt   time.Time `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUUID(w, r, "userId")
		if !ok {
			return
		}
		if !userctx.CanAccess(r.Context(), userID) {
			renderForbidden(w)
			return
		}

		txs, err := transferService.ListTransactions(r.Context(), userID, r.URL.Query().Get("type"))
		if err != nil {
			renderError(w, l, err)
			return
		}

		resp := make([]transaction, 0, len(txs))
		for _, tx := range txs {
			amount, _ := tx.Amount.Float64()
			txType := models.TransactionTypeReceived
			if tx.FromUserID == userID {
				txType = models.TransactionTypeSent
			}

			resp = append(resp, transaction{
				ID:          tx.ID,
				Type:        txType,
				FromUserID:  tx.FromUserID,
				ToUserID:    tx.ToUserID,
				Amount:      amount,
				Status:      tx.Status,
				Description: tx.Description,
				CreatedAt:   tx.CreatedAt,
			})
		}

		render.JSON(w, resp)
	})
}
