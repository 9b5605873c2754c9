package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nkiryanov/campusauth/internal/apperrors"
	"github.com/nkiryanov/campusauth/internal/logger"
	"github.com/nkiryanov/campusauth/internal/models"
	"github.com/nkiryanov/campusauth/internal/repository"
	"github.com/nkiryanov/campusauth/internal/service/auth/tokenmanager"
)

const (
	defaultAccessHeaderName  = "Authorization"
	defaultAccessAuthScheme  = "Bearer"
	defaultRefreshCookieName = "refreshtoken"
)

// Auth service configuration, every field is optional
type Config struct {
	// Header to read and write access token, "Authorization" by default
	AccessHeaderName string

	// Scheme of access token header value, "Bearer" by default
	AccessAuthScheme string

	// Cookie to transfer refresh token, "refreshtoken" by default
	RefreshCookieName string

	// Clock, time.Now by default
	Now func() time.Time
}

// Users source: create and verify credentials
type UserService interface {
	CreateUser(ctx context.Context, username string, password string) (models.User, error)

	// Has to return apperrors.ErrUserNotFound, apperrors.ErrUserInactive or apperrors.ErrInvalidCredentials
	// if user can't be authenticated
	Verify(ctx context.Context, username string, password string) (models.User, error)
}

type AuthService struct {
	accessHeaderName  string
	accessAuthScheme  string
	refreshCookieName string
	now               func() time.Time

	tokens  *tokenmanager.TokenManager
	users   UserService
	refresh repository.RefreshTokenRepo
	revoked repository.RevocationRegistry
	logger  logger.Logger
}

func NewService(
	cfg Config,
	tokens *tokenmanager.TokenManager,
	users UserService,
	refresh repository.RefreshTokenRepo,
	revoked repository.RevocationRegistry,
	l logger.Logger,
) (*AuthService, error) {
	if tokens == nil || users == nil || refresh == nil || revoked == nil {
		return nil, errors.New("token manager, user service and token stores must not be nil")
	}

	setDefault := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefault(&cfg.AccessHeaderName, defaultAccessHeaderName)
	setDefault(&cfg.AccessAuthScheme, defaultAccessAuthScheme)
	setDefault(&cfg.RefreshCookieName, defaultRefreshCookieName)

	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &AuthService{
		accessHeaderName:  cfg.AccessHeaderName,
		accessAuthScheme:  cfg.AccessAuthScheme,
		refreshCookieName: cfg.RefreshCookieName,
		now:               cfg.Now,

		tokens:  tokens,
		users:   users,
		refresh: refresh,
		revoked: revoked,
		logger:  l,
	}, nil
}

// Register creates active user and logs it in
// Has to return apperrors.ErrUserAlreadyExists if username is taken
func (s *AuthService) Register(ctx context.Context, username string, password string) (models.TokenPair, error) {
	user, err := s.users.CreateUser(ctx, username, password)
	if err != nil {
		return models.TokenPair{}, err
	}

	return s.issuePair(ctx, user)
}

// Login verifies credentials and issues new token pair
// The user refresh token issued before (if any) is replaced by the new one
func (s *AuthService) Login(ctx context.Context, username string, password string) (models.TokenPair, error) {
	user, err := s.users.Verify(ctx, username, password)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrUserNotFound),
		errors.Is(err, apperrors.ErrUserInactive),
		errors.Is(err, apperrors.ErrInvalidCredentials):
		return models.TokenPair{}, fmt.Errorf("login failed: %v. Err: %w", err, apperrors.ErrInvalidCredentials)
	default:
		return models.TokenPair{}, fmt.Errorf("can't verify credentials. Err: %w", err)
	}

	return s.issuePair(ctx, user)
}

// Refresh exchanges the current refresh token for a new pair
// The presented token becomes unusable if refresh succeeded
func (s *AuthService) Refresh(ctx context.Context, presented string) (models.TokenPair, error) {
	if presented == "" {
		return models.TokenPair{}, apperrors.ErrNoRefreshToken
	}

	now := s.now()
	claims, err := s.tokens.Parse(presented, models.TokenKindRefresh, now)
	if err != nil {
		return models.TokenPair{}, err
	}

	current, err := s.refresh.Get(ctx, claims.Subject)
	if err != nil {
		return models.TokenPair{}, err
	}

	if current.Token != presented {
		s.logger.Warn("not current refresh token presented", "user_id", claims.Subject)
		return models.TokenPair{}, fmt.Errorf("refresh of user %s failed. Err: %w", claims.Subject, apperrors.ErrRefreshTokenMismatch)
	}

	access, _, err := s.tokens.Issue(claims.Subject, models.TokenKindAccess, now)
	if err != nil {
		return models.TokenPair{}, err
	}
	next, nextClaims, err := s.tokens.Issue(claims.Subject, models.TokenKindRefresh, now)
	if err != nil {
		return models.TokenPair{}, err
	}

	_, err = s.refresh.Rotate(ctx, presented, models.RefreshToken{
		UserID:    claims.Subject,
		Token:     next.Value,
		IssuedAt:  nextClaims.IssuedAt,
		ExpiresAt: nextClaims.ExpiresAt,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrRefreshTokenMismatch) {
			s.logger.Warn("concurrent refresh lost the race", "user_id", claims.Subject)
		}
		return models.TokenPair{}, err
	}

	return models.TokenPair{Access: access, Refresh: next}, nil
}

// Logout revokes the presented access token and drops the user refresh token
// Access token stays revoked even if dropping refresh token failed
func (s *AuthService) Logout(ctx context.Context, access string, identity models.Identity) error {
	if access == "" {
		return apperrors.ErrNoAccessToken
	}

	claims, err := s.tokens.Parse(access, models.TokenKindAccess, s.now())
	if err != nil {
		return err
	}
	if claims.Subject != identity.UserID {
		return fmt.Errorf("access token belongs to other user. Err: %w", apperrors.ErrUnauthorized)
	}

	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("can't revoke access token. Err: %w", err)
	}

	_, err = s.refresh.Get(ctx, identity.UserID)
	switch {
	case errors.Is(err, apperrors.ErrRefreshTokenNotFound):
		s.logger.Warn("logout without refresh token", "user_id", identity.UserID)
		return fmt.Errorf("user %s has no refresh token on record. Err: %w", identity.UserID, err)
	case err != nil:
		return err
	}

	return s.refresh.Delete(ctx, identity.UserID)
}

// ResolveIdentity returns identity of valid not revoked access token
func (s *AuthService) ResolveIdentity(ctx context.Context, access string) (models.Identity, error) {
	if access == "" {
		return models.Identity{}, apperrors.ErrNoAccessToken
	}

	claims, err := s.tokens.Parse(access, models.TokenKindAccess, s.now())
	if err != nil {
		return models.Identity{}, err
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	switch {
	case err != nil:
		return models.Identity{}, fmt.Errorf("can't check token revocation. Err: %w", err)
	case revoked:
		return models.Identity{}, apperrors.ErrTokenRevoked
	}

	return models.Identity{UserID: claims.Subject, Access: access, Claims: claims}, nil
}

// Issue access and refresh tokens and save refresh one as the only user token
func (s *AuthService) issuePair(ctx context.Context, user models.User) (models.TokenPair, error) {
	now := s.now()

	access, _, err := s.tokens.Issue(user.ID, models.TokenKindAccess, now)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, claims, err := s.tokens.Issue(user.ID, models.TokenKindRefresh, now)
	if err != nil {
		return models.TokenPair{}, err
	}

	_, err = s.refresh.Put(ctx, models.RefreshToken{
		UserID:    user.ID,
		Token:     refresh.Value,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("can't save refresh token. Err: %w", err)
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

// Set access token header and refresh token cookie
func (s *AuthService) SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair) {
	s.SetAccessToResponse(w, pair.Access.Value)

	http.SetCookie(w, &http.Cookie{
		Name:     s.refreshCookieName,
		Value:    pair.Refresh.Value,
		Path:     "/",
		Expires:  pair.Refresh.ExpiresAt,
		MaxAge:   int(s.tokens.TTL(models.TokenKindRefresh).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *AuthService) SetAccessToResponse(w http.ResponseWriter, access string) {
	w.Header().Set(s.accessHeaderName, s.accessAuthScheme+" "+access)
}

// Drop access token header, the middleware may have echoed it already
func (s *AuthService) ClearAccess(w http.ResponseWriter) {
	w.Header().Del(s.accessHeaderName)
}

// Expire refresh token cookie on client
func (s *AuthService) ClearRefresh(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// Get refresh token from request cookie
func (s *AuthService) GetRefreshString(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.refreshCookieName)
	if err != nil || cookie.Value == "" {
		return "", apperrors.ErrNoRefreshToken
	}
	return cookie.Value, nil
}

// Get access token from request header
// Returns apperrors.ErrNoAccessToken if header is absent, apperrors.ErrTokenMalformed if scheme is not expected one
func (s *AuthService) GetAccessString(r *http.Request) (string, error) {
	header := r.Header.Get(s.accessHeaderName)
	if header == "" {
		return "", apperrors.ErrNoAccessToken
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, s.accessAuthScheme) || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("expected %q scheme. Err: %w", s.accessAuthScheme, apperrors.ErrTokenMalformed)
	}

	return strings.TrimSpace(token), nil
}
