package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidInput       = errors.New("invalid input")
	ErrSessionExpired     = errors.New("session expired")
	ErrRateLimited        = errors.New("too many sign-in attempts")
)
