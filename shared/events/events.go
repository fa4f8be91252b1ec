package events

import (
	"time"

	"github.com/eaglebank/ledger/shared/money"
)

// Event types
const (
	AccountRegistered = "account.registered"
	TransferCompleted = "transfer.completed"
)

// Stream names
const (
	LedgerEventsStream = "ledger.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type AccountRegisteredEvent struct {
	AccountID      string       `json:"accountId"`
	Name           string       `json:"name"`
	InitialBalance money.Amount `json:"initialBalance"`
	Version        uint64       `json:"version"`
	CreatedAt      time.Time    `json:"createdTimestamp"`
}

type TransferCompletedEvent struct {
	TransferID       string       `json:"transferId"`
	Sender           string       `json:"sender"`
	Recipient        string       `json:"recipient"`
	Amount           money.Amount `json:"amount"`
	SenderBalance    money.Amount `json:"senderBalance"`
	RecipientBalance money.Amount `json:"recipientBalance"`
	SenderVersion    uint64       `json:"senderVersion"`
	RecipientVersion uint64       `json:"recipientVersion"`
}
