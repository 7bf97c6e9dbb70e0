package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Access token errors. All of them collapse to a single UNAUTHORIZED
	// response; the distinction exists for internal logging only.
	ErrMalformedToken = errors.New("malformed token")
	ErrUntrustedToken = errors.New("untrusted token signature")
	ErrTokenInvalid   = errors.New("token expired or invalid")

	// Refresh token errors
	ErrTokenNotFound = errors.New("refresh token not found")
	ErrTokenExpired  = errors.New("refresh token expired")

	// Generic errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
)
