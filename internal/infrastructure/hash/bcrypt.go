// Package hash provides the password hashers behind ports.PasswordHasher.
package hash

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// MaxBcryptPasswordBytes is the longest input bcrypt accepts.
const MaxBcryptPasswordBytes = 72

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// ErrPasswordTooLong is returned for passwords over MaxBcryptPasswordBytes.
// It matches domain.ErrInvalidInput, so callers report it as bad input.
var ErrPasswordTooLong = fmt.Errorf("%w: password exceeds %d bytes", domain.ErrInvalidInput, MaxBcryptPasswordBytes)

// Bcrypt hashes with bcrypt; the salt and cost live in the digest.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a bcrypt hasher. Costs outside bcrypt's range fall back
// to bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	if len(plaintext) > MaxBcryptPasswordBytes {
		return "", ErrPasswordTooLong
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").With("algorithm", "bcrypt").Wrap(err)
	}
	return string(h), nil
}

// Verify delegates to bcrypt, which compares in constant time.
func (b *Bcrypt) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// New returns the hasher registered under name.
func New(name string) (ports.PasswordHasher, error) {
	switch name {
	case "", "bcrypt":
		return NewBcrypt(bcrypt.DefaultCost), nil
	case "argon2id":
		return NewArgon2id(), nil
	}
	return nil, fmt.Errorf("unknown password hasher %q", name)
}
