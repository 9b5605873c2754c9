package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/campusauth/internal/apperrors"
	"github.com/nkiryanov/campusauth/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const putToken = `-- name: Put refresh token, replace the existed one
INSERT INTO refresh_tokens (user_id, token, issued_at, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (user_id) DO UPDATE
SET token      = EXCLUDED.token,
    issued_at  = EXCLUDED.issued_at,
    expires_at = EXCLUDED.expires_at,
    updated_at = EXCLUDED.updated_at
RETURNING user_id, token, issued_at, expires_at, created_at, updated_at
`

// Put create or replace user token in one statement
// So concurrent puts for the same user never result in two rows
func (r *RefreshTokenRepo) Put(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, putToken, token.UserID, token.Token, token.IssuedAt, token.ExpiresAt, time.Now())
	saved, err := pgx.CollectOneRow(rows, rowToRefreshToken)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

const getToken = `-- name: Get current user refresh token
SELECT user_id, token, issued_at, expires_at, created_at, updated_at
FROM refresh_tokens
WHERE user_id = $1
`

// Get token
// It should return result even it expired already
func (r *RefreshTokenRepo) Get(ctx context.Context, userID uuid.UUID) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getToken, userID)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const rotateToken = `-- name: Replace refresh token if it is the current one
UPDATE refresh_tokens
SET token      = $3,
    issued_at  = $4,
    expires_at = $5,
    updated_at = $6
WHERE user_id = $1 AND token = $2
RETURNING user_id, token, issued_at, expires_at, created_at, updated_at
`

// Rotate replaces the token only if the stored one is 'previous'
// The check and the write is a single statement: of two concurrent rotations with the same previous token only one succeeds
func (r *RefreshTokenRepo) Rotate(ctx context.Context, previous string, next models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, rotateToken, next.UserID, previous, next.Token, next.IssuedAt, next.ExpiresAt, time.Now())
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Nothing updated: either user has no token at all or it is some other token
		if _, err := r.Get(ctx, next.UserID); err != nil {
			return token, err
		}
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenMismatch)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const deleteToken = `-- name: Delete user refresh token
DELETE FROM refresh_tokens
WHERE user_id = $1
`

func (r *RefreshTokenRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.DB.Exec(ctx, deleteToken, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const deleteExpiredTokens = `-- name: Delete expired refresh tokens
DELETE FROM refresh_tokens
WHERE expires_at <= $1
`

func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpiredTokens, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func rowToRefreshToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(&t.UserID, &t.Token, &t.IssuedAt, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
