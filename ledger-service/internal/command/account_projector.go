package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
)

// AccountViewStore is the read model written by AccountProjector.
type AccountViewStore interface {
	GetAccountView(ctx context.Context, name string) (*models.AccountView, bool)
	CacheAccountView(ctx context.Context, view *models.AccountView)
}

// AccountProjector consumes ledger events and keeps the account read model
// current. Events are applied in stream order by a single consumer.
type AccountProjector struct {
	views  AccountViewStore
	logger *slog.Logger
}

func NewAccountProjector(views AccountViewStore, logger *slog.Logger) *AccountProjector {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountProjector{views: views, logger: logger}
}

// HandleLedgerEvent is the events.Handler for the ledger stream. Unknown
// event types are acknowledged and ignored.
//
// Events are published after the store releases its locks, so two transfers
// touching the same account can reach the stream out of commit order. Every
// balance carries the account version it was committed at and a view is only
// replaced by a newer version.
func (p *AccountProjector) HandleLedgerEvent(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.AccountRegistered:
		var data events.AccountRegisteredEvent
		if err := events.DecodeData(event, &data); err != nil {
			return err
		}
		p.applyRegistration(ctx, data)
	case events.TransferCompleted:
		var data events.TransferCompletedEvent
		if err := events.DecodeData(event, &data); err != nil {
			return err
		}
		p.applyBalance(ctx, data.Sender, data.SenderBalance, data.SenderVersion, event.Timestamp)
		p.applyBalance(ctx, data.Recipient, data.RecipientBalance, data.RecipientVersion, event.Timestamp)
	default:
		p.logger.Debug("Ignoring ledger event", "type", event.Type)
	}
	return nil
}

func (p *AccountProjector) applyRegistration(ctx context.Context, data events.AccountRegisteredEvent) {
	view, ok := p.views.GetAccountView(ctx, data.Name)
	if ok && view.Version >= data.Version {
		// A transfer was projected first; only fill in the identity.
		view.ID = data.AccountID
		view.CreatedAt = data.CreatedAt
		p.views.CacheAccountView(ctx, view)
		return
	}
	p.views.CacheAccountView(ctx, &models.AccountView{
		ID:        data.AccountID,
		Name:      data.Name,
		Balance:   data.InitialBalance,
		Version:   data.Version,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.CreatedAt,
	})
}

func (p *AccountProjector) applyBalance(ctx context.Context, name string, balance money.Amount, version uint64, at time.Time) {
	view, ok := p.views.GetAccountView(ctx, name)
	if !ok {
		view = &models.AccountView{Name: name}
	} else if view.Version >= version {
		p.logger.Debug("Skipping stale balance", "name", name, "viewVersion", view.Version, "eventVersion", version)
		return
	}
	view.Balance = balance
	view.Version = version
	view.UpdatedAt = at
	p.views.CacheAccountView(ctx, view)
}
