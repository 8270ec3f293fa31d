package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type contextKey string

const (
	PrincipalKey contextKey = "principal"
)

// Roles
const (
	RoleCompany = "company"
	RoleAuditor = "auditor"
	RoleAdmin   = "admin"
)

// Principal is the authenticated caller behind an API key.
type Principal struct {
	Name           string `json:"name"`
	Role           string `json:"role"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// Anonymous is used when no API keys are configured (local runs).
var Anonymous = Principal{Name: "anonymous", Role: RoleAdmin}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func isPublic(path string) bool {
	return strings.HasPrefix(path, "/health") || path == "/metrics"
}

// APIKeyAuth validates the API key from the Authorization header.
// keys maps API key -> principal. With no keys every request runs as Anonymous.
func APIKeyAuth(keys map[string]Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if len(keys) == 0 {
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), Anonymous)))
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				auth = r.Header.Get("X-API-Key")
			}
			if auth == "" {
				writeError(w, http.StatusUnauthorized, "missing Authorization header")
				return
			}

			// Support both "Bearer <key>" and "<key>" formats
			apiKey := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "invalid Authorization header format")
				return
			}

			// constant-time compare against every key
			var found *Principal
			for key, p := range keys {
				if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
					p := p
					found = &p
				}
			}
			if found == nil {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), *found)))
		})
	}
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFrom extracts the principal from context
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(Principal)
	return p, ok
}

// RequireRole rejects callers whose role is not listed. Admin always passes.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			if p.Role == RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "role "+p.Role+" is not allowed here")
		})
	}
}

// RequireOwnOrganization restricts company principals to the organization in URL param.
func RequireOwnOrganization(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			orgID := chi.URLParam(r, param)
			if err := ValidateID(orgID); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			if p.Role == RoleCompany && p.OrganizationID != orgID {
				writeError(w, http.StatusForbidden, "company keys may only access their own organization")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
