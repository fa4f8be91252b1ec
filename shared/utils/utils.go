package utils

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/eaglebank/ledger/shared/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// GenerateID generates a unique ID with the given prefix, e.g. "acc-<uuid>".
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// NormalizeName returns the case-insensitive lookup key for an account name.
func NormalizeName(name string) string {
	return strings.ToLower(name)
}

// PinHasher turns a PIN into its stored form and checks presented PINs
// against it.
type PinHasher interface {
	Hash(pin string) (string, error)
	Matches(pin, stored string) bool
}

// MaxPinBytes is the longest PIN bcrypt accepts. The limit is in bytes, not
// runes.
const MaxPinBytes = 72

// BcryptHasher stores PINs as bcrypt hashes.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(pin string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(pin), h.Cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: %d bytes, limit is %d", models.ErrPinTooLong, len(pin), MaxPinBytes)
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash pin: %w", err)
	}
	return string(bytes), nil
}

func (h *BcryptHasher) Matches(pin, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(pin)) == nil
}

// PlainHasher stores PINs verbatim and compares them exactly.
type PlainHasher struct{}

func (PlainHasher) Hash(pin string) (string, error) { return pin, nil }

func (PlainHasher) Matches(pin, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(pin), []byte(stored)) == 1
}

// NewPinHasher returns the hasher for a configured mode ("bcrypt" or "plain").
func NewPinHasher(mode string, cost int) (PinHasher, error) {
	switch mode {
	case "", "bcrypt":
		return NewBcryptHasher(cost), nil
	case "plain":
		return PlainHasher{}, nil
	default:
		return nil, fmt.Errorf("unknown pin hashing mode %q", mode)
	}
}
