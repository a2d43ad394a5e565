// Package identity resolves the acting principal for cloud operations and
// the companion API.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"example.com/wearsync/internal/domain"
)

// Principal identifies the user owning the data being synced.
type Principal struct {
	ID    string
	Email string
}

// Provider yields the current principal. Implementations fail with
// domain.ErrUnauthenticated when nobody is signed in.
type Provider interface {
	CurrentPrincipal(ctx context.Context) (*Principal, error)
}

// ErrInvalidToken wraps parsing/validation errors.
var ErrInvalidToken = errors.New("invalid bearer token")

// Config holds verification parameters for token-backed providers.
type Config struct {
	Secret string
	Issuer string
}

// ParseToken validates a JWT and returns the principal it asserts.
func ParseToken(token string, cfg Config) (*Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)

	return &Principal{ID: subject, Email: email}, nil
}

// TokenProvider resolves the principal from a signed token handed to the
// process at startup (or replaced later on re-auth). Fails closed when no
// valid token is held.
type TokenProvider struct {
	cfg Config

	mu    sync.RWMutex
	token string
}

// NewTokenProvider constructs a TokenProvider with an optional initial token.
func NewTokenProvider(cfg Config, token string) *TokenProvider {
	return &TokenProvider{cfg: cfg, token: token}
}

// SetToken replaces the held token after a re-authentication.
func (p *TokenProvider) SetToken(token string) {
	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
}

// CurrentPrincipal parses the held token on every call so expiry is honoured.
func (p *TokenProvider) CurrentPrincipal(context.Context) (*Principal, error) {
	p.mu.RLock()
	token := p.token
	p.mu.RUnlock()

	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	principal, err := ParseToken(token, p.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	return principal, nil
}

// StaticProvider always returns the same principal. Used in tests and on the
// wearable, which has no credential flow of its own.
type StaticProvider struct {
	Principal *Principal
}

// CurrentPrincipal returns the fixed principal, or fails when none is set.
func (p StaticProvider) CurrentPrincipal(context.Context) (*Principal, error) {
	if p.Principal == nil {
		return nil, domain.ErrUnauthenticated
	}
	return p.Principal, nil
}
