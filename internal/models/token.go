package models

import (
	"time"

	"github.com/google/uuid"
)

// One-shot refresh token stored in db
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time // nil until token exchanged for a new pair
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Access and refresh tokens issued together on register, login or refresh
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
