// Package middleware provides HTTP middleware for the control API.
package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"
)

// HeaderToken carries the shared API token.
const HeaderToken = "X-Lnstack-Token"

// =============================================================================
// Token Configuration
// =============================================================================

// TokenConfig holds configuration for the token middleware.
type TokenConfig struct {
	// Token is the shared secret every request must present. Empty disables
	// the check.
	Token string

	// Exempt lists paths served without a token, e.g. "/health".
	Exempt []string

	Logger *slog.Logger
}

// =============================================================================
// Token Middleware
// =============================================================================

// RequireToken rejects requests whose X-Lnstack-Token header does not match
// the configured token.
func RequireToken(cfg TokenConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	exempt := make(map[string]bool, len(cfg.Exempt))
	for _, p := range cfg.Exempt {
		exempt[p] = true
	}

	return func(next http.Handler) http.Handler {
		if cfg.Token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get(HeaderToken)
			if subtle.ConstantTimeCompare([]byte(got), []byte(cfg.Token)) != 1 {
				cfg.Logger.Warn("rejected request with invalid token",
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
				)
				writeJSONError(w, http.StatusUnauthorized, "invalid or missing API token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// JSON Error Response
// =============================================================================

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message, Code: "unauthorized"})
}
