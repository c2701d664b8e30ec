package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const TransactionStatusCompleted = "completed"

// Ledger filters relative to the user
const (
	TransactionTypeSent     = "sent"
	TransactionTypeReceived = "received"
)

const DefaultTransferDescription = "Transfer completed"

// Ledger entry. Written once per completed transfer and never changed
type Transaction struct {
	ID             uuid.UUID
	FromUserID     uuid.UUID
	ToUserID       uuid.UUID
	Amount         decimal.Decimal
	Status         string
	Description    string
	IdempotencyKey *string
	CreatedAt      time.Time
}
