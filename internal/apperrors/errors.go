package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrInvalidCredentials = errors.New("invalid username or password")

	// Umbrella error for every "caller has no usable identity" case.
	// Finer grained errors below wrap it, so errors.Is(err, ErrUnauthorized) holds for them too
	ErrUnauthorized = errors.New("unauthorized")

	ErrInvalidSignature = fmt.Errorf("token signature is invalid: %w", ErrUnauthorized)
	ErrTokenMalformed   = fmt.Errorf("token is malformed: %w", ErrUnauthorized)
	ErrTokenExpired     = fmt.Errorf("token is expired: %w", ErrUnauthorized)
	ErrTokenRevoked     = fmt.Errorf("token is revoked: %w", ErrUnauthorized)

	ErrNoAccessToken  = fmt.Errorf("access token not provided: %w", ErrUnauthorized)
	ErrNoRefreshToken = fmt.Errorf("refresh token not provided: %w", ErrUnauthorized)

	ErrRefreshTokenNotFound = fmt.Errorf("refresh token not found: %w", ErrUnauthorized)
	ErrRefreshTokenMismatch = fmt.Errorf("refresh token is not the current one: %w", ErrUnauthorized)
)
