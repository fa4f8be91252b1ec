package models

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateAccount means a concurrent registration already inserted the
	// name. Callers may retry.
	ErrDuplicateAccount  = errors.New("account already exists")
	ErrAccountNotFound   = errors.New("account not found")
	ErrSenderNotFound    = errors.New("sender not found")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrPinTooLong        = errors.New("pin too long")
)
