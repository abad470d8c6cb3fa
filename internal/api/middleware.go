package api

import (
	"net/http"
	"strings"
	"time"

	"vinylbook/internal/auth"
	"vinylbook/internal/models"
)

var (
	rolesAdmin    = []string{models.RoleAdmin}
	rolesDispatch = []string{models.RoleAdmin, models.RoleCoordinator}
)

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requireAuth rejects requests without a valid token. A missing token is
// unauthenticated (401); a token that fails verification, including expiry,
// is forbidden (403).
func (s *HTTPServer) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Access Denied: No Token Provided")
			return
		}

		session, err := auth.ParseToken(s.cfg.Auth.JWTSecret, token)
		if err != nil {
			writeError(w, http.StatusForbidden, "Invalid Token")
			return
		}

		next(w, r.WithContext(auth.WithSession(r.Context(), session)))
	}
}

// optionalAuth attaches a session when a valid token is present and lets
// anonymous requests through. A token that is present but invalid is still
// rejected rather than silently treated as anonymous.
func (s *HTTPServer) optionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next(w, r)
			return
		}

		session, err := auth.ParseToken(s.cfg.Auth.JWTSecret, token)
		if err != nil {
			writeError(w, http.StatusForbidden, "Invalid Token")
			return
		}

		next(w, r.WithContext(auth.WithSession(r.Context(), session)))
	}
}

// requireRoles layers a role allow-list on top of requireAuth.
func (s *HTTPServer) requireRoles(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		session := auth.SessionFrom(r.Context())
		for _, role := range roles {
			if session.Role == role {
				next(w, r)
				return
			}
		}
		writeError(w, http.StatusForbidden, "Access Denied: Insufficient Permissions")
	})
}

// tokenTTL returns the configured token lifetime.
func (s *HTTPServer) tokenTTL() time.Duration {
	return time.Duration(s.cfg.Auth.TokenTTLSec) * time.Second
}
