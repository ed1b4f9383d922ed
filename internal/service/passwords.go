package service

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 10

// Passwords hashes and checks passwords with bcrypt.
type Passwords struct {
	cost      int
	dummyHash []byte
}

// NewPasswords precomputes a dummy hash at the same cost so that a login for
// an unknown user spends as long as one with a wrong password.
func NewPasswords(cost int) (*Passwords, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}
	return &Passwords{cost: cost, dummyHash: dummy}, nil
}

// Hash returns the salted bcrypt hash of raw.
func (p *Passwords) Hash(raw string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), p.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Matches reports whether raw matches hash.
func (p *Passwords) Matches(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

// BurnTime runs a comparison against the dummy hash and discards the result.
func (p *Passwords) BurnTime(raw string) {
	_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(raw))
}
