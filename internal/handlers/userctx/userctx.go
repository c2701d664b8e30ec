// Package userctx carries per request values between middlewares and handlers
package userctx

import (
	"context"

	"github.com/google/uuid"

	"github.com/nkiryanov/minibank/internal/models"
)

type ctxKey int

const (
	userKey ctxKey = iota
	requestIDKey
)

// Create a new context with the authenticated user
func New(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// Extract the authenticated user from the context
func FromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userKey).(models.User)
	return u, ok
}

// Admins may access everything, customers only their own data
func CanAccess(ctx context.Context, ownerID uuid.UUID) bool {
	u, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return u.IsAdmin() || u.ID == ownerID
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// Empty if request passed no logger middleware
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
