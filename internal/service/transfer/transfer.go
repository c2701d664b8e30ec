package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/minibank/internal/apperrors"
	"github.com/nkiryanov/minibank/internal/logger"
	"github.com/nkiryanov/minibank/internal/models"
	"github.com/nkiryanov/minibank/internal/notify"
	"github.com/nkiryanov/minibank/internal/repository"
)

const amountPlaces = 2

type notifier interface {
	Notify(msgs ...notify.Message)
}

type Config struct {
	// Type both sender and receiver transfer accounts must have
	AccountType string
}

type TransferParams struct {
	// User id or email
	From string
	To   string

	Amount      decimal.Decimal
	Description string

	// Optional. Repeated transfer with the same key returns the first result
	IdempotencyKey string
}

type TransferService struct {
	accountType string

	storage  repository.Storage
	notifier notifier
	logger   logger.Logger
}

func NewService(cfg Config, storage repository.Storage, notifier notifier, logger logger.Logger) (*TransferService, error) {
	if cfg.AccountType == "" {
		cfg.AccountType = models.AccountTypeChecking
	}
	if !models.IsValidAccountType(cfg.AccountType) {
		return nil, fmt.Errorf("transfer account type %q is not valid", cfg.AccountType)
	}

	return &TransferService{
		accountType: cfg.AccountType,
		storage:     storage,
		notifier:    notifier,
		logger:      logger,
	}, nil
}

// Transfer moves money between users atomically
//
// Both user rows are locked in id order, so concurrent and mirrored transfers are serialized without deadlocks.
// Nothing is changed if any check fails. Notifications are queued only after commit.
func (s *TransferService) Transfer(ctx context.Context, params TransferParams) (models.Transaction, error) {
	var tx models.Transaction

	if !params.Amount.IsPositive() || !params.Amount.Equal(params.Amount.Round(amountPlaces)) {
		return tx, apperrors.ErrAmountInvalid
	}
	params.From = strings.TrimSpace(params.From)
	params.To = strings.TrimSpace(params.To)
	if strings.EqualFold(params.From, params.To) {
		return tx, apperrors.ErrSelfTransfer
	}

	var (
		sender   models.User
		receiver models.User
		replayed bool
	)

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error

		sender, err = resolveUser(ctx, storage.User(), params.From)
		if err != nil {
			if errors.Is(err, apperrors.ErrUserNotFound) {
				return apperrors.ErrSenderNotFound
			}
			return err
		}

		// Receiver checks go after sender ones, so remember the error for later
		receiver, err = resolveUser(ctx, storage.User(), params.To)
		receiverErr := err
		if errors.Is(err, apperrors.ErrUserNotFound) {
			receiverErr = apperrors.ErrReceiverNotFound
		} else if err != nil {
			return err
		}

		if receiverErr == nil && receiver.ID == sender.ID {
			return apperrors.ErrSelfTransfer
		}

		// Lock and reread balances
		ids := []uuid.UUID{sender.ID}
		if receiverErr == nil {
			ids = append(ids, receiver.ID)
		}
		locked, err := storage.User().LockUsers(ctx, ids...)
		if err != nil {
			return err
		}
		for _, u := range locked {
			switch u.ID {
			case sender.ID:
				sender = u
			case receiver.ID:
				receiver = u
			}
		}

		if params.IdempotencyKey != "" {
			prev, err := storage.Transaction().GetByIdempotencyKey(ctx, sender.ID, params.IdempotencyKey)
			switch {
			case err == nil:
				if receiverErr != nil || !samePayload(prev, receiver.ID, params) {
					return apperrors.ErrIdempotencyConflict
				}
				tx, replayed = prev, true
				return nil
			case !errors.Is(err, apperrors.ErrTransactionNotFound):
				return err
			}
		}

		if sender.Balance.LessThan(params.Amount) {
			return apperrors.ErrBalanceInsufficient
		}

		err = s.checkAccount(ctx, storage.Account(), sender.ID, accountErrors{
			notFound:  apperrors.ErrSenderAccountNotFound,
			inactive:  apperrors.ErrSenderAccountInactive,
			wrongType: apperrors.ErrSenderAccountType,
		})
		if err != nil {
			return err
		}

		if receiverErr != nil {
			return receiverErr
		}

		err = s.checkAccount(ctx, storage.Account(), receiver.ID, accountErrors{
			notFound:  apperrors.ErrReceiverAccountNotFound,
			inactive:  apperrors.ErrReceiverAccountInactive,
			wrongType: apperrors.ErrReceiverAccountType,
		})
		if err != nil {
			return err
		}

		if sender, err = storage.User().Debit(ctx, sender.ID, params.Amount); err != nil {
			return err
		}
		if receiver, err = storage.User().Credit(ctx, receiver.ID, params.Amount); err != nil {
			return err
		}

		description := strings.TrimSpace(params.Description)
		if description == "" {
			description = models.DefaultTransferDescription
		}
		var key *string
		if params.IdempotencyKey != "" {
			key = &params.IdempotencyKey
		}

		tx, err = storage.Transaction().CreateTransaction(ctx, models.Transaction{
			FromUserID:     sender.ID,
			ToUserID:       receiver.ID,
			Amount:         params.Amount,
			Status:         models.TransactionStatusCompleted,
			Description:    description,
			IdempotencyKey: key,
		})
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}

	if replayed {
		s.logger.Info("Transfer replayed", "transaction_id", tx.ID, "idempotency_key", params.IdempotencyKey)
		return tx, nil
	}

	s.logger.Info("Transfer completed", "transaction_id", tx.ID, "from", tx.FromUserID, "to", tx.ToUserID, "amount", tx.Amount.StringFixed(amountPlaces))
	s.notifier.Notify(transferMessages(sender, receiver, tx)...)

	return tx, nil
}

// List user ledger entries, newest first
// txType is one of models.TransactionType*, empty means both
func (s *TransferService) ListTransactions(ctx context.Context, userID uuid.UUID, txType string) ([]models.Transaction, error) {
	if _, err := s.storage.User().GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	return s.storage.Transaction().ListTransactions(ctx, userID, repository.ListTransactionsOpts{Type: txType})
}

type accountErrors struct {
	notFound  error
	inactive  error
	wrongType error
}

func (s *TransferService) checkAccount(ctx context.Context, repo repository.AccountRepo, userID uuid.UUID, errs accountErrors) error {
	account, err := repo.GetTransferAccount(ctx, userID, s.accountType)
	switch {
	case errors.Is(err, apperrors.ErrAccountNotFound):
		return errs.notFound
	case err != nil:
		return err
	case account.Status != models.AccountStatusActive:
		return errs.inactive
	case account.Type != s.accountType:
		return errs.wrongType
	}

	return nil
}

// Identifier is user id if it parses as uuid and email otherwise
func resolveUser(ctx context.Context, repo repository.UserRepo, identifier string) (models.User, error) {
	if id, err := uuid.Parse(identifier); err == nil {
		return repo.GetUserByID(ctx, id)
	}

	return repo.GetUserByEmail(ctx, strings.ToLower(identifier))
}

func samePayload(prev models.Transaction, receiverID uuid.UUID, params TransferParams) bool {
	description := strings.TrimSpace(params.Description)
	if description == "" {
		description = models.DefaultTransferDescription
	}

	return prev.ToUserID == receiverID &&
		prev.Amount.Equal(params.Amount) &&
		prev.Description == description
}

func transferMessages(sender models.User, receiver models.User, tx models.Transaction) []notify.Message {
	amount := tx.Amount.StringFixed(amountPlaces)

	return []notify.Message{
		{
			To:      sender.Email,
			Subject: "Transfer sent",
			Body:    fmt.Sprintf("You sent %s to %s.\n%s\nTransaction: %s", amount, receiver.Email, tx.Description, tx.ID),
		},
		{
			To:      receiver.Email,
			Subject: "Transfer received",
			Body:    fmt.Sprintf("You received %s from %s.\n%s\nTransaction: %s", amount, sender.Email, tx.Description, tx.ID),
		},
	}
}
