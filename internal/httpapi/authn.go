package httpapi

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"dokuai.org/internal/auth"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "
)

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearerPrefix)) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// Authenticate resolves the bearer token to a live user record and attaches
// the identity to the request context. Terminal states: missing token (401),
// bad token (403), user deleted since issuance (404). Resolution bumps
// last_active.
func (a *API) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeMessage(w, http.StatusUnauthorized, false, "Access token required")
			return
		}

		u, err := a.svc.ResolveToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				writeMessage(w, http.StatusForbidden, false, "Invalid or expired token")
			case errors.Is(err, auth.ErrNotFound):
				writeMessage(w, http.StatusNotFound, false, "User not found")
			default:
				a.fail(w, r, http.StatusInternalServerError, "Internal Server Error", err)
			}
			return
		}

		ctx := auth.ContextWithIdentity(r.Context(), auth.Identity{
			ID:         u.ID,
			Email:      u.Email,
			Role:       u.Role,
			IsVerified: u.IsVerified,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireVerified rejects identities that have not confirmed their email.
func RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok || !id.IsVerified {
			writeMessage(w, http.StatusForbidden, false, "Email verification required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits only identities whose role is in the allowed set.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				writeMessage(w, http.StatusUnauthorized, false, "Authentication required")
				return
			}
			if !slices.Contains(roles, id.Role) {
				writeMessage(w, http.StatusForbidden, false, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
