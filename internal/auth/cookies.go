package auth

import (
	"net/http"
)

// SessionCookieName is the single cookie carrying the signed session
// token. No other session-identifying state exists on either side.
const SessionCookieName = "admin-session"

// CookieConfig holds cookie attributes shared by set and clear.
type CookieConfig struct {
	Secure bool // true in production (HTTPS only)
}

// SetSessionCookie attaches the session token to the response. HttpOnly
// and SameSite=Strict always; maxAge matches the token's expiry.
func SetSessionCookie(w http.ResponseWriter, token string, maxAge int, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie removes the session cookie. Safe to call for a
// client that has no session; clearing twice is a no-op.
func ClearSessionCookie(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // writes Max-Age=0, deleting the cookie
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// GetSessionToken reads the raw session token from the request.
func GetSessionToken(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
