package models

import "errors"

// Sentinel errors for common failure conditions. Handlers collapse the
// authentication-flavored ones into generic messages so responses never
// reveal which check failed.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	ErrRateLimitExceeded = errors.New("too many login attempts")
	ErrAccountLocked     = errors.New("account is temporarily locked")
)
