package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenCodec encodes and decodes signed claim sets
type TokenCodec interface {
	Encode(claims *TokenClaims) (string, error)
	Decode(token string) (*TokenClaims, error)
}

// TokenService is the HMAC JWT TokenCodec. Decode checks signature and shape
// only; expiry is a separate CheckExpiry step.
type TokenService struct {
	signingKey     []byte
	signingMethod  jwt.SigningMethod
	accessTokenTTL time.Duration
	apiTokenTTL    time.Duration
	logger         Logger
}

var _ TokenCodec = (*TokenService)(nil)

// NewTokenService creates a new TokenService from config
func NewTokenService(cfg Config, logger Logger) (*TokenService, error) {
	if cfg.GetSigningKey() == "" {
		return nil, errors.New("signing key is required", errors.CategoryBadInput)
	}

	method, ok := jwt.GetSigningMethod(cfg.GetSigningMethod()).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, errors.New("signing method must be HMAC", errors.CategoryBadInput).
			WithMetadata(map[string]any{"alg": cfg.GetSigningMethod()})
	}

	if logger == nil {
		logger = defLogger{}
	}

	return &TokenService{
		signingKey:     []byte(cfg.GetSigningKey()),
		signingMethod:  method,
		accessTokenTTL: cfg.GetAccessTokenTTL(),
		apiTokenTTL:    cfg.GetAPITokenTTL(),
		logger:         logger,
	}, nil
}

// NewAccessClaims returns bearer token claims for a user acting in an organization
func (ts *TokenService) NewAccessClaims(userID, organizationID string, now time.Time) *TokenClaims {
	return NewTokenClaims(userID, organizationID, now.Add(ts.accessTokenTTL))
}

// NewAPIKeyClaims returns organization API key claims
func (ts *TokenService) NewAPIKeyClaims(organizationID string, now time.Time) *TokenClaims {
	return NewTokenClaims(organizationID, organizationID, now.Add(ts.apiTokenTTL))
}

// Encode signs the claims. The same claims and key always yield the same token.
func (ts *TokenService) Encode(claims *TokenClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(ts.signingMethod, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Decode verifies the signature and returns the claims, without looking at expiry
func (ts *TokenService) Decode(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	},
		jwt.WithValidMethods([]string{ts.signingMethod.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	if err != nil {
		ts.logger.Debug("token decode failed", "error", err)
		return nil, ErrInvalidToken
	}

	if !token.Valid || !claims.complete() {
		ts.logger.Debug("token decode missing claims")
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// CheckExpiry fails with ErrTokenExpired unless the claims expire after now
func (ts *TokenService) CheckExpiry(claims *TokenClaims, now time.Time) error {
	if claims == nil || claims.ExpiredAt(now) {
		return ErrTokenExpired
	}
	return nil
}

// DecodeUnexpired runs Decode then CheckExpiry
func (ts *TokenService) DecodeUnexpired(tokenString string, now time.Time) (*TokenClaims, error) {
	claims, err := ts.Decode(tokenString)
	if err != nil {
		return nil, err
	}

	if err := ts.CheckExpiry(claims, now); err != nil {
		return nil, err
	}

	return claims, nil
}
