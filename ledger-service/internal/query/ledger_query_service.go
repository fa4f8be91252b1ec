package query

import (
	"context"

	"github.com/eaglebank/ledger/ledger-service/internal/repository"
	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/models"
)

type LedgerQueryService struct {
	store *repository.AccountStore
}

func NewLedgerQueryService(store *repository.AccountStore) *LedgerQueryService {
	return &LedgerQueryService{store: store}
}

// ListAccounts returns a consistent snapshot of every account in
// registration order.
func (s *LedgerQueryService) ListAccounts(_ context.Context, _ cqrs.ListAccountsQuery) ([]models.AccountListing, error) {
	accounts := s.store.ListAll()
	listings := make([]models.AccountListing, 0, len(accounts))
	for _, a := range accounts {
		listings = append(listings, models.AccountListing{
			Name:    a.Name,
			Pin:     a.Pin,
			Balance: a.Balance,
		})
	}
	return listings, nil
}
