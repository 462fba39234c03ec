package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/sports-card-catalog/internal/types"
)

var _ PasswordService = (*BcryptPasswordService)(nil)

// PasswordService hashes and verifies account passwords.
type PasswordService interface {
	// Hash returns a salted one-way hash. Two calls with the same password
	// return different hashes.
	Hash(password string) (string, error)
	// Verify reports whether password matches a hash produced by Hash.
	Verify(password, hash string) bool
}

// BcryptPasswordService implements PasswordService with bcrypt. The salt and
// cost are embedded in each hash, so Verify needs no configuration.
type BcryptPasswordService struct {
	cost int
}

// NewPasswordService returns a bcrypt service. A cost outside bcrypt's
// accepted range falls back to bcrypt.DefaultCost.
func NewPasswordService(cost int) *BcryptPasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordService{cost: cost}
}

func (s *BcryptPasswordService) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password must not exceed 72 bytes", types.ErrValidation)
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify uses bcrypt's constant-time comparison. A malformed hash never
// verifies.
func (s *BcryptPasswordService) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
