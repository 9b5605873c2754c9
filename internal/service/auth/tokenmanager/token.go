package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/campusauth/internal/apperrors"
	"github.com/nkiryanov/campusauth/internal/models"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultSigningMethod   = "HS256"
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

type tokenClaims struct {
	jwt.RegisteredClaims
	Kind models.TokenKind `json:"typ"`
}

// Token manager with sensible default
type Config struct {
	// Secret key to sign tokens
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm, one of HS256, HS384, HS512
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used. Access lifetime must be shorter than refresh one
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenManager issues and parses signed self-contained tokens
// It has no state except configuration, so it is safe for concurrent use
type TokenManager struct {
	key []byte
	alg jwt.SigningMethod

	accessTTL  time.Duration
	refreshTTL time.Duration
}

func New(cfg Config) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg, ok := jwt.GetSigningMethod(cfg.Alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("signing method %q is not supported, use one of HS256, HS384, HS512", cfg.Alg)
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	if cfg.AccessTTL < 0 || cfg.AccessTTL >= cfg.RefreshTTL {
		return nil, fmt.Errorf("access token ttl (%s) must be positive and shorter than refresh token ttl (%s)", cfg.AccessTTL, cfg.RefreshTTL)
	}

	return &TokenManager{
		key:        []byte(cfg.SecretKey),
		alg:        alg,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

// TTL returns lifetime of the token kind
func (m *TokenManager) TTL(kind models.TokenKind) time.Duration {
	if kind == models.TokenKindRefresh {
		return m.refreshTTL
	}
	return m.accessTTL
}

// Issue signed token for the subject
// Token times has second precision, so 'now' is truncated to seconds
func (m *TokenManager) Issue(subject uuid.UUID, kind models.TokenKind, now time.Time) (models.IssuedToken, models.Claims, error) {
	now = now.Truncate(time.Second)
	claims := models.Claims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Kind:      kind,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.TTL(kind)),
	}

	token := jwt.NewWithClaims(
		m.alg,
		tokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        claims.ID,
				Subject:   subject.String(),
				IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
				ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
			},
			Kind: kind,
		},
	)

	signed, err := token.SignedString(m.key)
	if err != nil {
		return models.IssuedToken{}, models.Claims{}, fmt.Errorf("error while signing %s token. Err: %w", kind, err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: claims.ExpiresAt}, claims, nil
}

// Parse verifies token signature, then decodes claims and checks that now < expiresAt
// There is no leeway: token is expired starting exactly at its expiry second
func (m *TokenManager) Parse(token string, kind models.TokenKind, now time.Time) (models.Claims, error) {
	now = now.Truncate(time.Second)
	tc := &tokenClaims{}

	_, err := jwt.ParseWithClaims(
		token,
		tc,
		func(t *jwt.Token) (any, error) {
			return m.key, nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return models.Claims{}, fmt.Errorf("error while parsing token. Err: %w", apperrors.ErrInvalidSignature)
	case errors.Is(err, jwt.ErrTokenExpired):
		return models.Claims{}, fmt.Errorf("error while parsing token. Err: %w", apperrors.ErrTokenExpired)
	default:
		return models.Claims{}, fmt.Errorf("error while parsing token: %v. Err: %w", err, apperrors.ErrTokenMalformed)
	}

	if tc.Kind != kind {
		return models.Claims{}, fmt.Errorf("expected %s token, got %q. Err: %w", kind, tc.Kind, apperrors.ErrTokenMalformed)
	}

	subject, err := uuid.Parse(tc.Subject)
	if err != nil || tc.ID == "" || tc.IssuedAt == nil {
		return models.Claims{}, fmt.Errorf("token claims incomplete. Err: %w", apperrors.ErrTokenMalformed)
	}

	return models.Claims{
		ID:        tc.ID,
		Subject:   subject,
		Kind:      tc.Kind,
		IssuedAt:  tc.IssuedAt.Time,
		ExpiresAt: tc.ExpiresAt.Time,
	}, nil
}
