package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/magnetacademy/tma-server/internal/models"
)

// TokenCodec issues and verifies the signed session tokens carried by
// the admin-session cookie. Tokens are self-contained; the server keeps
// no session table.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec creates a codec. The secret is the startup-validated
// session signing secret; ttl is the session lifetime (24h by default).
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a fresh session token for a user. Every issuance gets a
// new random session ID, so two logins by the same user produce
// unlinkable tokens. origin and agent are recorded as provenance claims.
func (c *TokenCodec) Issue(user *models.AdminUser, origin, agent string) (string, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return "", err
	}

	now := c.now()
	claims := &models.SessionClaims{
		UserID:          user.ID,
		Username:        user.Username,
		Email:           user.Email,
		FullName:        user.FullName,
		Role:            user.Role,
		ProfileImageRef: user.ProfileImageRef,
		SessionID:       sessionID,
		NetworkOrigin:   origin,
		ClientAgent:     agent,
		IssuedAtMs:      now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks a token's signature and expiry.
//
//   - valid and unexpired: Session with IsValid=true
//   - correctly signed but expired: Session with IsValid=false, identity
//     preserved for audit; never to be treated as authenticated
//   - bad signature or malformed: nil, indistinguishable from no session
//
// Origin/agent claims are deliberately not compared against the current
// request; mobile clients change addresses mid-session.
func (c *TokenCodec) Verify(tokenString string) *models.Session {
	claims := &models.SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))

	if err != nil {
		// Signature verification happens before claim validation, so an
		// expiry error means the token is authentic, just stale.
		if errors.Is(err, jwt.ErrTokenExpired) && claims.UserID != "" {
			return sessionFromClaims(claims, false)
		}
		return nil
	}
	if !token.Valid {
		return nil
	}

	return sessionFromClaims(claims, true)
}

func sessionFromClaims(claims *models.SessionClaims, valid bool) *models.Session {
	s := &models.Session{
		UserID:          claims.UserID,
		Username:        claims.Username,
		Email:           claims.Email,
		FullName:        claims.FullName,
		Role:            claims.Role,
		ProfileImageRef: claims.ProfileImageRef,
		SessionID:       claims.SessionID,
		NetworkOrigin:   claims.NetworkOrigin,
		ClientAgent:     claims.ClientAgent,
		IssuedAtMs:      claims.IssuedAtMs,
		IsValid:         valid,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAtMs = claims.ExpiresAt.UnixMilli()
	}
	return s
}

// generateSessionID returns 256 bits of hex-encoded randomness.
func generateSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
