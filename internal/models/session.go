package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Session is the server-side view of a verified session token. It is
// derived entirely from the signed token; nothing is persisted.
//
// IsValid is true only while the token is unexpired and its signature
// verified. A correctly-signed but expired token still yields a Session
// (with IsValid=false) so audit tooling can see who it belonged to, but
// it must never be treated as authenticated.
type Session struct {
	UserID          string `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	FullName        string `json:"fullName"`
	Role            string `json:"role"`
	ProfileImageRef string `json:"profileImage,omitempty"`
	SessionID       string `json:"sessionId"`
	NetworkOrigin   string `json:"ipAddress"`
	ClientAgent     string `json:"userAgent"`
	IssuedAtMs      int64  `json:"loginTime"`
	ExpiresAtMs     int64  `json:"-"`
	IsValid         bool   `json:"-"`
}

// SessionClaims is the JWT payload carried by the admin-session cookie.
// NetworkOrigin and ClientAgent are provenance claims captured at
// issuance; they are not compared against the current request at verify
// time (mobile clients change addresses mid-session).
type SessionClaims struct {
	UserID          string `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	FullName        string `json:"fullName"`
	Role            string `json:"role"`
	ProfileImageRef string `json:"profileImage,omitempty"`
	SessionID       string `json:"sessionId"`
	NetworkOrigin   string `json:"ipAddress"`
	ClientAgent     string `json:"userAgent"`
	IssuedAtMs      int64  `json:"loginTime"`
	jwt.RegisteredClaims
}
