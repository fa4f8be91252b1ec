package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
	"github.com/eaglebank/ledger/shared/utils"
)

// AccountStore is the single source of truth for accounts. It lives in
// process memory only.
//
// Locking: mu guards the map and the insertion order. Create and ListAll take
// it exclusively; balance mutations take it shared and then lock the affected
// accounts in ascending key order. A ListAll therefore never runs concurrently
// with a mutation and never sees half of a transfer.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*accountEntry
	order    []string
	now      func() time.Time
}

type accountEntry struct {
	mu      sync.Mutex
	account models.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]*accountEntry),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FindByName looks an account up case-insensitively.
func (s *AccountStore) FindByName(name string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.accounts[utils.NormalizeName(name)]
	if !ok {
		return models.Account{}, fmt.Errorf("%w: %s", models.ErrAccountNotFound, name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.account, nil
}

// Create inserts a new account if no account with the same normalized name
// exists. The check and the insert happen under one lock.
func (s *AccountStore) Create(name, pin string, balance money.Amount) (models.Account, error) {
	if balance < 0 {
		return models.Account{}, fmt.Errorf("%w: initial balance %s", models.ErrInvalidAmount, balance)
	}
	key := utils.NormalizeName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[key]; exists {
		return models.Account{}, fmt.Errorf("%w: %s", models.ErrDuplicateAccount, name)
	}
	now := s.now()
	acct := models.Account{
		ID:        utils.GenerateID("acc"),
		Name:      name,
		Key:       key,
		Pin:       pin,
		Balance:   balance,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.accounts[key] = &accountEntry{account: acct}
	s.order = append(s.order, key)
	return acct, nil
}

// AdjustBalance applies delta to one account atomically and returns the new
// balance.
func (s *AccountStore) AdjustBalance(name string, delta money.Amount) (money.Amount, error) {
	var balance money.Amount
	err := s.WithAccounts([]string{name}, func(tx *AccountTx) error {
		if err := tx.Adjust(name, delta); err != nil {
			return err
		}
		balance, _ = tx.Balance(name)
		return nil
	})
	return balance, err
}

// ListAll returns copies of every account in registration order.
func (s *AccountStore) ListAll() []models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Account, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.accounts[key].account)
	}
	return out
}

func (s *AccountStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// WithAccounts runs fn while holding every named account. Balance changes
// made through the AccountTx are committed together if fn returns nil and
// discarded otherwise. Duplicate names (after normalization) are locked once.
func (s *AccountStore) WithAccounts(names []string, fn func(tx *AccountTx) error) error {
	keys := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		key := utils.NormalizeName(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	s.mu.RLock()
	defer s.mu.RUnlock()

	tx := &AccountTx{
		entries: make(map[string]*accountEntry, len(keys)),
		pending: make(map[string]money.Amount, len(keys)),
	}
	for i, key := range keys {
		e, ok := s.accounts[key]
		if !ok {
			for _, locked := range keys[:i] {
				tx.entries[locked].mu.Unlock()
			}
			return fmt.Errorf("%w: %s", models.ErrAccountNotFound, key)
		}
		e.mu.Lock()
		tx.entries[key] = e
	}
	defer func() {
		for _, e := range tx.entries {
			e.mu.Unlock()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	now := s.now()
	for key, delta := range tx.pending {
		if delta == 0 {
			continue
		}
		e := tx.entries[key]
		e.account.Balance += delta
		e.account.Version++
		e.account.UpdatedAt = now
	}
	return nil
}

// AccountTx stages balance changes for the accounts held by WithAccounts.
type AccountTx struct {
	entries map[string]*accountEntry
	pending map[string]money.Amount
}

// Balance returns the staged balance of a held account.
func (tx *AccountTx) Balance(name string) (money.Amount, error) {
	key := utils.NormalizeName(name)
	e, ok := tx.entries[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is not held by this transaction", models.ErrAccountNotFound, name)
	}
	return e.account.Balance + tx.pending[key], nil
}

// Account returns a copy of a held account with the staged balance applied.
// Version is the one the account will carry once the staged change commits.
func (tx *AccountTx) Account(name string) (models.Account, error) {
	key := utils.NormalizeName(name)
	e, ok := tx.entries[key]
	if !ok {
		return models.Account{}, fmt.Errorf("%w: %s is not held by this transaction", models.ErrAccountNotFound, name)
	}
	acct := e.account
	if delta := tx.pending[key]; delta != 0 {
		acct.Balance += delta
		acct.Version++
	}
	return acct, nil
}

// Adjust stages delta against a held account. The staged balance may never
// go negative or overflow.
func (tx *AccountTx) Adjust(name string, delta money.Amount) error {
	current, err := tx.Balance(name)
	if err != nil {
		return err
	}
	next, ok := current.Add(delta)
	if !ok {
		return fmt.Errorf("%w: balance of %s would overflow", models.ErrInvalidAmount, name)
	}
	if next < 0 {
		return fmt.Errorf("%w: %s has %s", models.ErrInsufficientFunds, name, current)
	}
	key := utils.NormalizeName(name)
	tx.pending[key] += delta
	return nil
}
