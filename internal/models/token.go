package models

import (
	"time"

	"github.com/google/uuid"
)

type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Claims decoded from a verified token
type Claims struct {
	ID        string // jti, unique per issued token
	Subject   uuid.UUID
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issues by TokenManager, AuthService
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// The only refresh token record of the user
// There is at most one record per user, new record replaces the previous one
type RefreshToken struct {
	UserID    uuid.UUID
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity resolved from a bearer access token
type Identity struct {
	UserID uuid.UUID
	Access string
	Claims Claims
}
