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

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u models.User) userResponse {
	balance, _ := u.Balance.Float64()
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		Balance:   balance,
		CreatedAt: u.CreatedAt,
	}
}

type authResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

func handleRegister(authService authService, l logger.Logger) http.Handler {
	type request struct {
		FullName string `json:"full_name" validate:"required,max=100"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, pair, err := authService.Register(r.Context(), data.Email, data.FullName, data.Password)
		if err != nil {
			renderError(w, l, err)
			return
		}

		authService.SetTokenPairToResponse(w, pair)
		render.JSONWithStatus(w, authResponse{Message: "User registered successfully", User: newUserResponse(user)}, http.StatusCreated)
	})
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, pair, err := authService.Login(r.Context(), data.Email, data.Password)
		if err != nil {
			renderError(w, l, err)
			return
		}

		authService.SetTokenPairToResponse(w, pair)
		render.JSON(w, authResponse{Message: "User logged in successfully", User: newUserResponse(user)})
	})
}

func handleTokenRefresh(authService authService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh, err := authService.GetRefreshString(r)
		if err != nil {
			renderError(w, l, err)
			return
		}

		pair, err := authService.RefreshPair(r.Context(), refresh)
		if err != nil {
			renderError(w, l, err)
			return
		}

		authService.SetTokenPairToResponse(w, pair)
		render.JSON(w, response{Message: "Tokens refreshed successfully"})
	})
}

func handleUserMe() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())
		render.JSON(w, newUserResponse(user))
	})
}

func handleListCustomers(userService userService, l logger.Logger) http.Handler {
	type customer struct {
		ID         uuid.UUID `json:"id"`
		FullName   string    `json:"full_name"`
		Email      string    `json:"email"`
		Balance    float64   `json:"balance"`
		HasAccount bool      `json:"has_account"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		customers, err := userService.ListCustomers(r.Context())
		if err != nil {
			renderError(w, l, err)
			return
		}

		resp := make([]customer, 0, len(customers))
		for _, c := range customers {
			balance, _ := c.Balance.Float64()
			resp = append(resp, customer{
				ID:         c.ID,
				FullName:   c.FullName,
				Email:      c.Email,
				Balance:    balance,
				HasAccount: c.HasAccount,
			})
		}

		render.JSON(w, resp)
	})
}

// Parse uuid path value, write 400 if it is not valid
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		render.ServiceError(w, "Invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
