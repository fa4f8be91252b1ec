package cqrs

import "github.com/eaglebank/ledger/shared/money"

// AuthenticateCommand logs in an existing account or registers a new one.
// InitialBalance is only consulted on registration; nil selects the
// configured default.
type AuthenticateCommand struct {
	Name           string
	Pin            string
	InitialBalance *money.Amount
}

type TransferCommand struct {
	SenderName    string
	RecipientName string
	Amount        money.Amount
}
