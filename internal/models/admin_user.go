package models

import (
	"time"
)

// AdminUser is an admin-panel account stored in the content store as an
// "adminUser" document. PasswordHash must never leave the auth service.
type AdminUser struct {
	ID              string     `json:"_id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	FullName        string     `json:"fullName"`
	Role            string     `json:"role"` // "super_admin", "admin", "editor"
	PasswordHash    string     `json:"password"`
	IsActive        bool       `json:"isActive"`
	ProfileImageRef string     `json:"profileImage,omitempty"`
	LastLoginAt     *time.Time `json:"lastLogin,omitempty"`
	FailedAttempts  int        `json:"loginAttempts,omitempty"` // absent/zero = no failures
	LockedUntil     *time.Time `json:"lockedUntil,omitempty"`

	// MFA schema fields exist in the store but are not used anywhere yet.
	TwoFactorSecret  string `json:"twoFactorSecret,omitempty"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled,omitempty"`
}

// IsLockedOut reports whether a temporary lock is currently active.
// Checked strictly before any password comparison, so a correct password
// cannot unlock an account early.
func (u *AdminUser) IsLockedOut() bool {
	return u.LockedUntil != nil && u.LockedUntil.After(time.Now())
}

// PublicUser is the caller-facing projection of an AdminUser. The password
// hash and lockout bookkeeping are deliberately absent.
type PublicUser struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	FullName        string `json:"fullName"`
	Role            string `json:"role"`
	ProfileImageRef string `json:"profileImage,omitempty"`
}

// Public strips the secret and security state from a user record.
func (u *AdminUser) Public() *PublicUser {
	return &PublicUser{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		FullName:        u.FullName,
		Role:            u.Role,
		ProfileImageRef: u.ProfileImageRef,
	}
}
