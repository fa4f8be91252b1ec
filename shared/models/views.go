package models

import (
	"time"

	"github.com/eaglebank/ledger/shared/money"
)

// AccountListing is the snapshot returned by the account listing. It carries
// the stored credential, which is the bcrypt hash unless plain PIN storage is
// configured.
type AccountListing struct {
	Name    string       `json:"name"`
	Pin     string       `json:"pin_number"`
	Balance money.Amount `json:"bank_balance"`
}

// AccountView is the read-optimised projection pushed to the Redis read model.
// It never carries the PIN. Version is the account version the balance was
// committed at; older events never overwrite a newer view.
type AccountView struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Balance   money.Amount `json:"balance"`
	Version   uint64       `json:"version"`
	CreatedAt time.Time    `json:"createdTimestamp"`
	UpdatedAt time.Time    `json:"updatedTimestamp"`
}
