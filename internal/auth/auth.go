package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

// Config holds authentication configuration.
type Config struct {
	Enabled bool
	// Future: TokenValidator, APIKeyStore, etc.
}

// Middleware wraps an http.Handler with bearer-token authentication. When
// auth is disabled (default for local use), all requests pass through.
func Middleware(cfg Config, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				logger.Warn("auth: missing authorization header", "path", r.URL.Path)
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				logger.Warn("auth: malformed authorization header", "path", r.URL.Path)
				http.Error(w, "malformed authorization header", http.StatusUnauthorized)
				return
			}

			// TODO: implement actual token validation. For now, reject all
			// auth attempts when enabled rather than silently accepting them.
			logger.Warn("auth: token validation not yet implemented",
				"path", r.URL.Path,
				"token_prefix", truncateToken(token),
			)
			http.Error(w, "auth not yet implemented - disable auth for local use", http.StatusNotImplemented)
		})
	}
}

func truncateToken(token string) string {
	if len(token) > 10 {
		return token[:10] + "..."
	}
	return token
}
