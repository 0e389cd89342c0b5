package models

import "time"

// Audit failure reasons recorded with login attempts. External responses
// never carry these; they exist for the audit trail only.
const (
	ReasonRateLimited     = "Rate limit exceeded"
	ReasonUserNotFound    = "User not found or inactive"
	ReasonAccountLocked   = "Account locked"
	ReasonInvalidPassword = "Invalid password"
	ReasonSystemError     = "System error"
)

// LoginAttempt is one append-only audit record per processed login POST,
// written regardless of outcome and including attempts against usernames
// that never resolve to a real account. Records are never mutated.
type LoginAttempt struct {
	ID            string    `json:"_id,omitempty"`
	Username      string    `json:"username"` // as submitted
	NetworkOrigin string    `json:"ipAddress"`
	ClientAgent   string    `json:"userAgent"`
	Success       bool      `json:"success"`
	Timestamp     time.Time `json:"timestamp"`
	FailureReason string    `json:"failureReason,omitempty"`

	// ExpiresAt lets the store side expire old records; the service itself
	// never deletes them.
	ExpiresAt time.Time `json:"expiresAt"`
}
