package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eaglebank/ledger/ledger-service/internal/repository"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
	"github.com/eaglebank/ledger/shared/utils"
)

// DefaultInitialBalance is credited to accounts registered without an
// explicit balance.
var DefaultInitialBalance = money.MustParse("1000.00")

// EventPublisher is satisfied by events.Publisher and events.NopPublisher.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// LedgerCommandService implements the two mutating ledger operations on top
// of the account store. It is the only place that sequences several store
// calls into one logical operation.
type LedgerCommandService struct {
	store          *repository.AccountStore
	hasher         utils.PinHasher
	publisher      EventPublisher
	defaultBalance money.Amount
	logger         *slog.Logger
}

type Option func(*LedgerCommandService)

func WithDefaultBalance(a money.Amount) Option {
	return func(s *LedgerCommandService) { s.defaultBalance = a }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *LedgerCommandService) { s.logger = l }
}

func NewLedgerCommandService(
	store *repository.AccountStore,
	hasher utils.PinHasher,
	publisher EventPublisher,
	opts ...Option,
) *LedgerCommandService {
	s := &LedgerCommandService{
		store:          store,
		hasher:         hasher,
		publisher:      publisher,
		defaultBalance: DefaultInitialBalance,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	return s
}

// AuthenticateOrRegister logs an existing account in or creates it on first
// sight. Two concurrent first calls for the same name create one account:
// the loser of the insert race is treated as a login against the winner.
func (s *LedgerCommandService) AuthenticateOrRegister(ctx context.Context, cmd cqrs.AuthenticateCommand) (*models.AuthOutcome, error) {
	existing, err := s.store.FindByName(cmd.Name)
	if err == nil {
		return s.login(existing, cmd.Pin)
	}
	if !errors.Is(err, models.ErrAccountNotFound) {
		return nil, err
	}

	balance := s.defaultBalance
	if cmd.InitialBalance != nil {
		balance = *cmd.InitialBalance
	}
	if balance < 0 {
		return nil, fmt.Errorf("%w: initial balance %s", models.ErrInvalidAmount, balance)
	}

	stored, err := s.hasher.Hash(cmd.Pin)
	if err != nil {
		return nil, err
	}
	account, err := s.store.Create(cmd.Name, stored, balance)
	if errors.Is(err, models.ErrDuplicateAccount) {
		winner, findErr := s.store.FindByName(cmd.Name)
		if findErr != nil {
			return nil, err
		}
		s.logger.Debug("Lost registration race, authenticating against existing account", "name", cmd.Name)
		return s.login(winner, cmd.Pin)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account registered", "accountId", account.ID, "name", account.Name, "balance", account.Balance.String())
	if err := s.publisher.Publish(ctx, events.LedgerEventsStream, events.AccountRegistered, events.AccountRegisteredEvent{
		AccountID:      account.ID,
		Name:           account.Name,
		InitialBalance: account.Balance,
		Version:        account.Version,
		CreatedAt:      account.CreatedAt,
	}); err != nil {
		s.logger.Warn("Failed to publish account.registered event", "accountId", account.ID, "error", err)
	}

	return &models.AuthOutcome{
		Status:  models.AuthRegistered,
		Name:    account.Name,
		Balance: account.Balance,
	}, nil
}

func (s *LedgerCommandService) login(account models.Account, pin string) (*models.AuthOutcome, error) {
	if !s.hasher.Matches(pin, account.Pin) {
		return nil, models.ErrInvalidCredentials
	}
	return &models.AuthOutcome{
		Status:  models.AuthWelcomeBack,
		Name:    account.Name,
		Balance: account.Balance,
	}, nil
}

// Transfer moves funds between two accounts. Checks run in a fixed order and
// the first failure wins: amount, sender, recipient, funds.
func (s *LedgerCommandService) Transfer(ctx context.Context, cmd cqrs.TransferCommand) (*models.TransferOutcome, error) {
	if cmd.Amount <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be greater than zero", models.ErrInvalidAmount)
	}
	if _, err := s.store.FindByName(cmd.SenderName); err != nil {
		return nil, notFoundAs(err, models.ErrSenderNotFound, cmd.SenderName)
	}
	if _, err := s.store.FindByName(cmd.RecipientName); err != nil {
		return nil, notFoundAs(err, models.ErrRecipientNotFound, cmd.RecipientName)
	}

	outcome := &models.TransferOutcome{
		TransferID: utils.GenerateID("trf"),
		Amount:     cmd.Amount,
	}
	err := s.store.WithAccounts([]string{cmd.SenderName, cmd.RecipientName}, func(tx *repository.AccountTx) error {
		sender, err := tx.Account(cmd.SenderName)
		if err != nil {
			return err
		}
		if sender.Balance < cmd.Amount {
			return fmt.Errorf("%w: %s has %s, needs %s", models.ErrInsufficientFunds, sender.Name, sender.Balance, cmd.Amount)
		}
		if err := tx.Adjust(cmd.SenderName, -cmd.Amount); err != nil {
			return err
		}
		if err := tx.Adjust(cmd.RecipientName, cmd.Amount); err != nil {
			return err
		}

		// Re-read both after staging so balances and versions are the committed ones.
		if sender, err = tx.Account(cmd.SenderName); err != nil {
			return err
		}
		recipient, err := tx.Account(cmd.RecipientName)
		if err != nil {
			return err
		}
		outcome.Sender = sender.Name
		outcome.Recipient = recipient.Name
		outcome.SenderBalance = sender.Balance
		outcome.RecipientBalance = recipient.Balance
		outcome.SenderVersion = sender.Version
		outcome.RecipientVersion = recipient.Version
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transfer completed",
		"transferId", outcome.TransferID,
		"sender", outcome.Sender,
		"recipient", outcome.Recipient,
		"amount", outcome.Amount.String(),
	)
	if err := s.publisher.Publish(ctx, events.LedgerEventsStream, events.TransferCompleted, events.TransferCompletedEvent{
		TransferID:       outcome.TransferID,
		Sender:           outcome.Sender,
		Recipient:        outcome.Recipient,
		Amount:           outcome.Amount,
		SenderBalance:    outcome.SenderBalance,
		RecipientBalance: outcome.RecipientBalance,
		SenderVersion:    outcome.SenderVersion,
		RecipientVersion: outcome.RecipientVersion,
	}); err != nil {
		s.logger.Warn("Failed to publish transfer.completed event", "transferId", outcome.TransferID, "error", err)
	}

	return outcome, nil
}

func notFoundAs(err, kind error, name string) error {
	if errors.Is(err, models.ErrAccountNotFound) {
		return fmt.Errorf("%w: %s", kind, name)
	}
	return err
}
