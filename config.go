package auth

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultSigningMethod is the symmetric algorithm used for every token
	DefaultSigningMethod = "HS256"
	// DefaultAccessTokenTTL is the lifetime of bearer access tokens
	DefaultAccessTokenTTL = 7 * 24 * time.Hour
	// DefaultAPITokenTTL is the lifetime of organization API keys, 5200 weeks
	DefaultAPITokenTTL = 5200 * 7 * 24 * time.Hour
	// DefaultPasswordCost is the bcrypt cost for new password hashes
	DefaultPasswordCost = 12
	// DefaultAPIKeyHeader is the header carrying organization API keys
	DefaultAPIKeyHeader = "x-api-key"
	// DefaultAuthScheme is the Authorization header scheme for access tokens
	DefaultAuthScheme = "Bearer"
	// DefaultContextKey is the fiber locals key holding the resolved identity
	DefaultContextKey = "user"
	// DefaultOrganizationContextKey is the fiber locals key holding the API key organization
	DefaultOrganizationContextKey = "organization"
)

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetAccessTokenTTL() time.Duration
	GetAPITokenTTL() time.Duration
	GetPasswordCost() int
	GetAPIKeyHeader() string
	GetAuthScheme() string
	GetContextKey() string
	GetOrganizationContextKey() string
	GetUseHashidUserIDs() bool
}

// BaseConfig is the plain struct implementation of Config
type BaseConfig struct {
	SigningKey             string        `json:"signing_key"`
	SigningMethod          string        `json:"signing_method"`
	AccessTokenTTL         time.Duration `json:"access_token_ttl"`
	APITokenTTL            time.Duration `json:"api_token_ttl"`
	PasswordCost           int           `json:"password_cost"`
	APIKeyHeader           string        `json:"api_key_header"`
	AuthScheme             string        `json:"auth_scheme"`
	ContextKey             string        `json:"context_key"`
	OrganizationContextKey string        `json:"organization_context_key"`
	UseHashidUserIDs       bool          `json:"use_hashid_user_ids"`
}

var _ Config = BaseConfig{}

// DefaultConfig returns a config with every default set except the signing key
func DefaultConfig(signingKey string) BaseConfig {
	return BaseConfig{
		SigningKey:             signingKey,
		SigningMethod:          DefaultSigningMethod,
		AccessTokenTTL:         DefaultAccessTokenTTL,
		APITokenTTL:            DefaultAPITokenTTL,
		PasswordCost:           DefaultPasswordCost,
		APIKeyHeader:           DefaultAPIKeyHeader,
		AuthScheme:             DefaultAuthScheme,
		ContextKey:             DefaultContextKey,
		OrganizationContextKey: DefaultOrganizationContextKey,
	}
}

// Validate checks the config is usable for signing and hashing
func (c BaseConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.SigningMethod, validation.Required, validation.In("HS256", "HS384", "HS512")),
		validation.Field(&c.AccessTokenTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.APITokenTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.PasswordCost, validation.Min(bcrypt.MinCost), validation.Max(bcrypt.MaxCost)),
	)
}

func (c BaseConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c BaseConfig) GetSigningMethod() string {
	if c.SigningMethod == "" {
		return DefaultSigningMethod
	}
	return c.SigningMethod
}

func (c BaseConfig) GetAccessTokenTTL() time.Duration {
	if c.AccessTokenTTL <= 0 {
		return DefaultAccessTokenTTL
	}
	return c.AccessTokenTTL
}

func (c BaseConfig) GetAPITokenTTL() time.Duration {
	if c.APITokenTTL <= 0 {
		return DefaultAPITokenTTL
	}
	return c.APITokenTTL
}

func (c BaseConfig) GetPasswordCost() int {
	if c.PasswordCost == 0 {
		return DefaultPasswordCost
	}
	return c.PasswordCost
}

func (c BaseConfig) GetAPIKeyHeader() string {
	if c.APIKeyHeader == "" {
		return DefaultAPIKeyHeader
	}
	return c.APIKeyHeader
}

func (c BaseConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return DefaultAuthScheme
	}
	return c.AuthScheme
}

func (c BaseConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return DefaultContextKey
	}
	return c.ContextKey
}

func (c BaseConfig) GetOrganizationContextKey() string {
	if c.OrganizationContextKey == "" {
		return DefaultOrganizationContextKey
	}
	return c.OrganizationContextKey
}

func (c BaseConfig) GetUseHashidUserIDs() bool {
	return c.UseHashidUserIDs
}
