package repository

import (
	"context"
	"log/slog"

	"github.com/eaglebank/ledger/shared/models"
	sharedredis "github.com/eaglebank/ledger/shared/redis"
	"github.com/eaglebank/ledger/shared/utils"
	goredis "github.com/redis/go-redis/v9"
)

const accountViewKeyPrefix = "account:view:"

// AccountReadRepository maintains the Redis read model of account balances
// for consumers outside this process. The in-memory AccountStore stays the
// source of truth; this projection is eventually consistent with it.
type AccountReadRepository struct {
	cache *sharedredis.ViewCache[models.AccountView]
}

func NewAccountReadRepository(redisClient *goredis.Client, logger *slog.Logger) *AccountReadRepository {
	return &AccountReadRepository{
		cache: sharedredis.NewViewCache[models.AccountView](redisClient, 0, logger),
	}
}

func accountViewKey(name string) string {
	return accountViewKeyPrefix + utils.NormalizeName(name)
}

// GetAccountView returns the projected view, if any.
func (r *AccountReadRepository) GetAccountView(ctx context.Context, name string) (*models.AccountView, bool) {
	return r.cache.Get(ctx, accountViewKey(name))
}

// CacheAccountView stores or refreshes the projection for an account.
func (r *AccountReadRepository) CacheAccountView(ctx context.Context, view *models.AccountView) {
	r.cache.Set(ctx, accountViewKey(view.Name), view)
}
