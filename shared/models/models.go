package models

import (
	"time"

	"github.com/eaglebank/ledger/shared/money"
)

// Account is the write model owned by the account store. Key is the
// normalized (lower-cased) name and is the uniqueness key; Name keeps the
// casing supplied at registration. Version starts at 1 and increases with
// every committed balance change.
type Account struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Key       string       `json:"-"`
	Pin       string       `json:"-"`
	Balance   money.Amount `json:"balance"`
	Version   uint64       `json:"version"`
	CreatedAt time.Time    `json:"createdTimestamp"`
	UpdatedAt time.Time    `json:"updatedTimestamp"`
}

// AuthStatus tells a fresh registration apart from a returning login.
type AuthStatus string

const (
	AuthRegistered  AuthStatus = "registered"
	AuthWelcomeBack AuthStatus = "welcome_back"
)

// AuthOutcome is the result of a successful AuthenticateOrRegister call.
type AuthOutcome struct {
	Status  AuthStatus
	Name    string
	Balance money.Amount
}

// TransferOutcome reports both balances after a committed transfer, with the
// account versions they were committed at.
type TransferOutcome struct {
	TransferID       string
	Sender           string
	Recipient        string
	Amount           money.Amount
	SenderBalance    money.Amount
	RecipientBalance money.Amount
	SenderVersion    uint64
	RecipientVersion uint64
}
