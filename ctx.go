package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var identityCtxKey = &contextKey{"identity"}
var organizationCtxKey = &contextKey{"organization"}

type contextKey struct {
	name string
}

// WithIdentity sets the UserIdentity in the given context
func WithIdentity(ctx context.Context, identity *UserIdentity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the UserIdentity in the context
func IdentityFromContext(ctx context.Context) (*UserIdentity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(*UserIdentity)
	return raw, ok && raw != nil
}

// WithOrganization sets the API key Organization in the given context
func WithOrganization(ctx context.Context, org *Organization) context.Context {
	return context.WithValue(ctx, organizationCtxKey, org)
}

// OrganizationFromContext finds the API key Organization in the context
func OrganizationFromContext(ctx context.Context) (*Organization, bool) {
	raw, ok := ctx.Value(organizationCtxKey).(*Organization)
	return raw, ok && raw != nil
}

// GetRouterIdentity extracts the identity stored by the bearer middleware
func GetRouterIdentity(c router.Context, key string) (*UserIdentity, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	raw, ok := c.Locals(key).(*UserIdentity)
	return raw, ok && raw != nil
}

// GetRouterOrganization extracts the organization stored by the API key middleware
func GetRouterOrganization(c router.Context, key string) (*Organization, bool) {
	if key == "" {
		key = DefaultOrganizationContextKey
	}
	raw, ok := c.Locals(key).(*Organization)
	return raw, ok && raw != nil
}
