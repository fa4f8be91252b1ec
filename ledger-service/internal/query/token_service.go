package query

import (
	"time"

	"github.com/eaglebank/ledger/shared/middleware"
)

// TokenService issues bearer tokens after a successful authentication. It
// does not touch application state.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret []byte, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: secret, ttl: ttl}
}

func (s *TokenService) Issue(accountName string) (string, error) {
	return middleware.SignToken(s.secret, accountName, s.ttl)
}
