package identity

import (
	"net/http"
	"strings"
)

// Skipper allows callers to bypass authentication for specific requests.
type Skipper func(r *http.Request) bool

// Middleware validates bearer tokens on incoming requests and stores the
// asserted principal on the request context.
type Middleware struct {
	cfg     Config
	skipper Skipper
}

// NewMiddleware constructs a Middleware with an optional skipper.
func NewMiddleware(cfg Config, skipper Skipper) Middleware {
	return Middleware{cfg: cfg, skipper: skipper}
}

// Wrap attaches authentication handling to an http.Handler.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipper != nil && m.skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		principal, err := ParseToken(strings.TrimSpace(header[len("Bearer "):]), m.cfg)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}
