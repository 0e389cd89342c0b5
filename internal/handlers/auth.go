package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/magnetacademy/tma-server/internal/auth"
	"github.com/magnetacademy/tma-server/internal/metrics"
	"github.com/magnetacademy/tma-server/internal/models"
	"github.com/magnetacademy/tma-server/internal/services"
	pkghttp "github.com/magnetacademy/tma-server/pkg/http"
)

// AuthServiceInterface defines the interface for the credential validator
type AuthServiceInterface interface {
	Validate(ctx context.Context, username, password string, reqCtx services.RequestContext) (*models.AdminUser, error)
}

// AuthHandler handles the login, logout and session-introspection endpoints
type AuthHandler struct {
	service AuthServiceInterface
	codec   *auth.TokenCodec
	cookies auth.CookieConfig
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewAuthHandler creates a new AuthHandler. ttl is the session lifetime;
// it sets both the token expiry and the cookie Max-Age.
func NewAuthHandler(service AuthServiceInterface, codec *auth.TokenCodec, cookies auth.CookieConfig, ttl time.Duration, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		service: service,
		codec:   codec,
		cookies: cookies,
		ttl:     ttl,
		metrics: m,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

// LoginResponse is the success body for login and session introspection.
type LoginResponse struct {
	Success bool               `json:"success"`
	User    *models.PublicUser `json:"user"`
}

// Login handles POST /api/auth/login. Failure responses use a small fixed
// message set so the body never reveals whether the username exists, the
// password was wrong, or which limiter tripped.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Username = strings.TrimSpace(req.Username)

	reqCtx := services.RequestContext{
		NetworkOrigin: pkghttp.ExtractClientIP(r),
		ClientAgent:   pkghttp.ClientAgent(r),
	}

	user, err := h.service.Validate(r.Context(), req.Username, req.Password, reqCtx)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrRateLimitExceeded):
			pkghttp.WriteTooManyRequests(w, "Too many login attempts. Please try again later.")
		case errors.Is(err, models.ErrAccountLocked):
			pkghttp.WriteUnauthorized(w, "Account is temporarily locked. Please try again later.")
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Invalid username or password")
		default:
			pkghttp.WriteInternalError(w, "An error occurred during login")
		}
		return
	}

	token, err := h.codec.Issue(user, reqCtx.NetworkOrigin, reqCtx.ClientAgent)
	if err != nil {
		pkghttp.WriteInternalError(w, "An error occurred during login")
		return
	}

	auth.SetSessionCookie(w, token, int(h.ttl.Seconds()), h.cookies)
	if h.metrics != nil {
		h.metrics.SessionsIssued.Inc()
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{Success: true, User: user.Public()})
}

// Logout handles POST /api/auth/logout. Clearing the cookie is the whole
// operation; there is no server-side session to destroy. Safe to call
// without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookies)
	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me handles GET /api/auth/me, reporting the identity behind the current
// session cookie.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromRequest(h.codec, r)
	if session == nil || !session.IsValid {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{Success: true, User: &models.PublicUser{
		ID:              session.UserID,
		Username:        session.Username,
		Email:           session.Email,
		FullName:        session.FullName,
		Role:            session.Role,
		ProfileImageRef: session.ProfileImageRef,
	}})
}
