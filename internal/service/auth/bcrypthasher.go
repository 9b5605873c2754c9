package auth

import (
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword string, password string) error
}

// Used by services if caller does not provide its own hasher
var DefaultHasher PasswordHasher = BcryptHasher{}

// Bcrypt password hasher
// Password is pre-hashed with sha256, so bcrypt 72 bytes limit doesn't truncate long passwords
type BcryptHasher struct {
	// Zero means bcrypt.DefaultCost
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}

	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	sum := sha256.Sum256([]byte(password))
	hash, err := bcrypt.GenerateFromPassword(sum[:], cost)
	return string(hash), err
}

func (h BcryptHasher) Compare(hashedPassword string, password string) error {
	sum := sha256.Sum256([]byte(password))
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), sum[:])
}
