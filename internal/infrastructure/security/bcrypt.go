package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/contacts-service/internal/domain"
)

// DefaultCost matches the work factor the stored hashes were created with.
const DefaultCost = 10

// BcryptHasher implements auth.PasswordHasher.
type BcryptHasher struct{ cost int }

// NewBcryptHasher clamps cost to DefaultCost when it is not positive.
// Costs above bcrypt.MaxCost are kept and fail at Hash time.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	switch {
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return "", domain.ErrInvalidField("password", "must be at most 72 bytes")
	case err != nil:
		return "", domain.ErrHashFailed(err)
	}
	return string(b), nil
}

// Compare returns nil only when password matches hash.
func (h *BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
