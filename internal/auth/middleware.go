package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/magnetacademy/tma-server/internal/models"
	pkghttp "github.com/magnetacademy/tma-server/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

// SessionContextKey is the key for storing the verified session in context
const SessionContextKey contextKey = "session"

const (
	adminPrefix    = "/admin"
	loginRoute     = "/admin"
	dashboardRoute = "/admin/dashboard"
)

// SessionFromRequest verifies the session cookie. Missing cookie, bad
// signature, and malformed token all yield nil; an expired-but-authentic
// token yields a Session with IsValid=false.
func SessionFromRequest(codec *TokenCodec, r *http.Request) *models.Session {
	token, err := GetSessionToken(r)
	if err != nil || token == "" {
		return nil
	}
	return codec.Verify(token)
}

// AdminPageGuard gates every admin page route. It runs before any page
// handler:
//
//   - the bare login route redirects already-authenticated visitors to
//     the dashboard
//   - every other admin route requires a valid session, else redirects
//     to the login route
//   - user-management and settings routes additionally require at least
//     the admin role; an under-privileged session is sent back to the
//     dashboard rather than shown an error
func AdminPageGuard(codec *TokenCodec) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if !strings.HasPrefix(path, adminPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			session := SessionFromRequest(codec, r)

			if path == loginRoute || path == loginRoute+"/" {
				if session != nil && session.IsValid {
					http.Redirect(w, r, dashboardRoute, http.StatusFound)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if session == nil || !session.IsValid {
				http.Redirect(w, r, loginRoute, http.StatusFound)
				return
			}

			if isSensitiveRoute(path) && !models.RoleAtLeast(session.Role, models.RoleAdmin) {
				// Soft authorization failure: back to the dashboard.
				http.Redirect(w, r, dashboardRoute, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession guards API endpoints: absent or invalid sessions get a
// 401 instead of a redirect.
func RequireSession(codec *TokenCodec) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFromRequest(codec, r)
			if session == nil || !session.IsValid {
				pkghttp.WriteUnauthorized(w, "Not authenticated")
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionFromContext extracts the verified session placed by the
// guard middleware.
func GetSessionFromContext(r *http.Request) *models.Session {
	session, ok := r.Context().Value(SessionContextKey).(*models.Session)
	if !ok {
		return nil
	}
	return session
}

// isSensitiveRoute matches routes that require elevated privileges.
func isSensitiveRoute(path string) bool {
	return strings.HasPrefix(path, "/admin/users") || strings.Contains(path, "/settings")
}
