package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Email          string
	FullName       string
	HashedPassword string
	Role           string
	Balance        decimal.Decimal
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Customer as it is shown to admins in users list
type CustomerOverview struct {
	ID         uuid.UUID
	Email      string
	FullName   string
	Balance    decimal.Decimal
	HasAccount bool
}
