package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger is the structured logger used across the package.
// Args are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Authenticator holds the login and identity resolution operations
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	ResolveBearer(ctx context.Context, authorization string) (*UserIdentity, error)
	RequireActive(identity *UserIdentity) error
}

// OrganizationAuthenticator resolves organization API keys
type OrganizationAuthenticator interface {
	CreateOrgAPIToken(ctx context.Context, organizationID string) (*OrganizationAuthToken, error)
	ResolveAPIKey(ctx context.Context, apiKey string) (*Organization, error)
}

// LoginResult is returned to the client after a successful login
type LoginResult struct {
	APIKey    string `json:"api_key"`
	TokenType string `json:"token_type"`
}

// AccessToken is a minted bearer token
type AccessToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] AUTH " + format(msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] AUTH " + format(msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] AUTH " + format(msg, args...))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print("[DBG] AUTH " + format(msg, args...))
}

func format(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	b.WriteString("\n")
	return b.String()
}

// NoopLogger discards everything
type NoopLogger struct{}

func (NoopLogger) Debug(string, ...any) {}
func (NoopLogger) Info(string, ...any)  {}
func (NoopLogger) Warn(string, ...any)  {}
func (NoopLogger) Error(string, ...any) {}
