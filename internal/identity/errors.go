package identity

import "errors"

// Repository errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
	ErrStorage      = errors.New("storage unavailable")
)

// Service errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")
	ErrInvalidRole        = errors.New("invalid role")
)
