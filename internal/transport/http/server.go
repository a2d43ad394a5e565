// Package httptransport builds the device HTTP servers with a shared timeout
// policy.
package httptransport

import (
	"net/http"
	"time"
)

// ServerConfig contains tunables for the HTTP server. Zero values fall back
// to defaults suited to the device APIs, where request bodies are small and
// bulk work runs off the request path.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer creates an *http.Server for handler with the configured timeouts.
func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// The companion's upload endpoint pushes a full sample set through in
		// one request; give it room.
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
