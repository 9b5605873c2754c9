package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/campusauth/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create active user
	// If user with username exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, username string, hashedPassword string) (models.User, error)

	// Get user by it's id or username
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)

	// Activate or deactivate user. Inactive users can't login
	SetActive(ctx context.Context, userID uuid.UUID, active bool) error
}

// RefreshToken repository interface
// The repository keeps at most one token per user
type RefreshTokenRepo interface {
	// Create or replace the user token
	// The previous user token (if any) becomes unknown to the repository
	Put(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Return current user token
	// If user has no token must return apperrors.ErrRefreshTokenNotFound
	Get(ctx context.Context, userID uuid.UUID) (models.RefreshToken, error)

	// Replace user token only if the stored one equals 'previous'
	// If user has no token must return apperrors.ErrRefreshTokenNotFound
	// If the stored token is not 'previous' must return apperrors.ErrRefreshTokenMismatch
	Rotate(ctx context.Context, previous string, next models.RefreshToken) (models.RefreshToken, error)

	// Delete user token. Deleting not existed token is not an error
	Delete(ctx context.Context, userID uuid.UUID) error

	// Delete tokens expired at 'now' or earlier, return how many were deleted
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Registry of access tokens revoked before their natural expiry
type RevocationRegistry interface {
	// Mark token revoked until expiresAt. Revoking twice is not an error
	// If the token is already expired (expiresAt <= now) nothing has to be stored
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error

	// Return true if the token is revoked and revocation is not expired yet
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Repositories sharing one connection pool
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
}
