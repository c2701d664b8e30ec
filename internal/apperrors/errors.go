package apperrors

import (
	"errors"
)

// Error kinds
// Every client facing error wraps exactly one of them, so callers may check the kind with errors.Is
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrPolicyViolation   = errors.New("policy violation")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
)

// Error is a well known error with a message that is safe to show to the client
type Error struct {
	kind error
	msg  string
}

func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.kind
}

// Message returns the client message of the first *Error in the chain
// Returns empty string if err is not a well known error
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return ""
}

var (
	ErrUserAlreadyExists  = New(ErrConflict, "Email already registered")
	ErrUserNotFound       = New(ErrNotFound, "User not found")
	ErrInvalidCredentials = New(ErrUnauthorized, "Invalid email or password")

	ErrRefreshTokenNotFound = New(ErrUnauthorized, "Refresh token not found")
	ErrRefreshTokenIsUsed   = New(ErrUnauthorized, "Refresh token is used")
	ErrRefreshTokenExpired  = New(ErrUnauthorized, "Refresh token expired")
	ErrAccessTokenInvalid   = New(ErrUnauthorized, "Access token is missing or invalid")

	ErrAccountNotFound         = New(ErrNotFound, "Account not found")
	ErrAccountNumberTaken      = New(ErrConflict, "Account number already exists")
	ErrAccountTypeInvalid      = New(ErrValidation, "Account type must be 'checking' or 'savings'")
	ErrAccountStatusTransition = New(ErrPolicyViolation, "Account status does not allow this operation")
	ErrFreezeDaysInvalid       = New(ErrValidation, "Freeze days must be between 1 and 36500")

	ErrAmountInvalid          = New(ErrValidation, "Amount must be positive with at most two decimal places")
	ErrSelfTransfer           = New(ErrValidation, "Sender and receiver must be different users")
	ErrTransactionTypeInvalid = New(ErrValidation, "Transaction type must be 'sent' or 'received'")
	ErrTransactionNotFound    = New(ErrNotFound, "Transaction not found")

	ErrSenderNotFound          = New(ErrNotFound, "Sender not found")
	ErrSenderAccountNotFound   = New(ErrNotFound, "Sender account not found")
	ErrSenderAccountInactive   = New(ErrPolicyViolation, "Sender account is not active")
	ErrSenderAccountType       = New(ErrPolicyViolation, "Sender account type not allowed for transfer")
	ErrReceiverNotFound        = New(ErrNotFound, "Receiver not found")
	ErrReceiverAccountNotFound = New(ErrNotFound, "Receiver account not found")
	ErrReceiverAccountInactive = New(ErrPolicyViolation, "Receiver account is not active")
	ErrReceiverAccountType     = New(ErrPolicyViolation, "Receiver account type not allowed for transfer")

	ErrBalanceInsufficient = New(ErrInsufficientFunds, "Insufficient balance")
	ErrIdempotencyConflict = New(ErrConflict, "Idempotency key already used for a different transfer")
)
