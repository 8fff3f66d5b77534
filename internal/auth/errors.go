package auth

import "errors"

var (
	ErrNotFound           = errors.New("auth: user not found")
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrWeakPassword       = errors.New("auth: password too short")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrNotVerified        = errors.New("auth: email not verified")
	ErrInvalidToken       = errors.New("auth: invalid or expired token")
	ErrTokenExpired       = errors.New("auth: token expired")
)
