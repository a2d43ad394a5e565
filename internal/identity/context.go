package identity

import (
	"context"

	"example.com/wearsync/internal/domain"
)

type contextKey string

const principalKey contextKey = "wearsync-principal"

// WithPrincipal stores the principal on the context.
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// FromContext retrieves the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(principalKey).(*Principal)
	return principal, ok
}

// ContextProvider resolves the principal from the request context, falling
// back to a base provider. Lets the companion API act as the caller while
// background jobs act as the configured account.
type ContextProvider struct {
	Base Provider
}

// CurrentPrincipal prefers the context principal over the base provider's.
func (p ContextProvider) CurrentPrincipal(ctx context.Context) (*Principal, error) {
	if principal, ok := FromContext(ctx); ok && principal != nil {
		return principal, nil
	}
	if p.Base == nil {
		return nil, domain.ErrUnauthenticated
	}
	return p.Base.CurrentPrincipal(ctx)
}
