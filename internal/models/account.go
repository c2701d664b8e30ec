package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AccountTypeChecking = "checking"
	AccountTypeSavings  = "savings"
)

const (
	AccountStatusActive      = "active"
	AccountStatusDeactivated = "deactivated"
	AccountStatusFrozen      = "frozen"
)

type Account struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Number      string
	Type        string
	Status      string
	FreezeUntil *time.Time // set only while account is frozen
	CreatedAt   time.Time
}

func IsValidAccountType(t string) bool {
	return t == AccountTypeChecking || t == AccountTypeSavings
}
