package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the claim set carried by access tokens and organization API keys.
// Subject is the user id for access tokens and the organization id for API keys.
type TokenClaims struct {
	jwt.RegisteredClaims
	OrganizationID string `json:"organization_id"`
}

// NewTokenClaims builds a claim set expiring at expiresAt
func NewTokenClaims(subject, organizationID string, expiresAt time.Time) *TokenClaims {
	return &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		OrganizationID: organizationID,
	}
}

// UserID returns the subject claim
func (c *TokenClaims) UserID() string {
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// ExpiredAt reports whether the token is no longer valid at now.
// A token expiring exactly at now is expired.
func (c *TokenClaims) ExpiredAt(now time.Time) bool {
	exp := c.Expires()
	if exp.IsZero() {
		return true
	}
	return !exp.After(now)
}

func (c *TokenClaims) complete() bool {
	return c.RegisteredClaims.Subject != "" &&
		c.RegisteredClaims.ExpiresAt != nil &&
		c.OrganizationID != ""
}
