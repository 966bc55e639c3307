package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned by Compare for a wrong password.
var ErrPasswordMismatch = errors.New("password does not match")

// PasswordHasher hashes staff passwords and checks login attempts against them.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

// BcryptPasswordHasher stores passwords as bcrypt hashes.
type BcryptPasswordHasher struct {
	cost int
}

// NewBcryptPasswordHasherWithCost builds a hasher. Costs outside bcrypt's
// accepted range fall back to bcrypt.DefaultCost, so a zero config value is safe.
func NewBcryptPasswordHasherWithCost(cost int) *BcryptPasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{cost: cost}
}

// Hash fails for passwords longer than bcrypt's 72 byte limit instead of truncating them.
func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare maps every bcrypt mismatch onto ErrPasswordMismatch; other failures
// (a corrupt stored hash) are passed through.
func (h *BcryptPasswordHasher) Compare(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
