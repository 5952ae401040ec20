package auth

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// PasswordAuthenticator hashes and verifies passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
	Verify(password, hash string) bool
}

// PasswordHasher is the bcrypt backed PasswordAuthenticator
type PasswordHasher struct {
	cost    int
	metrics *Metrics
}

var _ PasswordAuthenticator = (*PasswordHasher)(nil)

// NewPasswordHasher returns a hasher using the given bcrypt cost.
// Out of range costs fall back to the build default.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = passwordHashCost()
	}
	return &PasswordHasher{cost: cost}
}

// WithMetrics records hash durations
func (h *PasswordHasher) WithMetrics(m *Metrics) *PasswordHasher {
	h.metrics = m
	return h
}

// HashPassword generates a salted bcrypt hash; the salt and cost are
// encoded in the returned string
func (h *PasswordHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	started := time.Now()
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	h.metrics.observeHash(time.Since(started))

	return string(out), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func (h *PasswordHasher) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}

// Verify reports whether password matches hash. Malformed hashes never match.
func (h *PasswordHasher) Verify(password, hash string) bool {
	return ComparePasswordAndHash(password, hash) == nil
}

// HashPassword will generate a password hash with the default cost
func HashPassword(password string) (string, error) {
	return NewPasswordHasher(passwordHashCost()).HashPassword(password)
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}
