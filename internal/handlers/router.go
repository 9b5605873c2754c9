package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/campusauth/internal/handlers/middleware"
	"github.com/nkiryanov/campusauth/internal/logger"
	"github.com/nkiryanov/campusauth/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	userService userService,
	logger logger.Logger,
	timeout time.Duration,
) http.Handler {
	withUser := middleware.RequireUser

	apiuser := http.NewServeMux()

	apiuser.Handle("POST /register", handleRegister(authService, logger))
	apiuser.Handle("POST /login", handleLogin(authService, logger))
	apiuser.Handle("POST /refresh", handleTokenRefresh(authService, logger))
	apiuser.Handle("POST /logout", withUser(handleLogout(authService, logger)))
	apiuser.Handle("GET /me", withUser(handleUserMe(userService, logger)))

	root := http.NewServeMux()
	root.Handle("/api/user/", http.StripPrefix("/api/user", apiuser))

	handler := chain(root,
		middleware.Recover(logger),
		middleware.LoggerMiddleware(logger),
		middleware.Timeout(timeout),
		middleware.Authenticate(authService, logger),
	)

	return handler
}

type authService interface {
	// Register user with username and password
	// Has to return apperrors.ErrUserAlreadyExists if user already exists
	Register(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Login user with username and password
	// Has to return apperrors.ErrInvalidCredentials if user can't be authenticated
	Login(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Exchange current refresh token for new pair
	// Every authentication failure has to wrap apperrors.ErrUnauthorized
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	// Revoke access token and drop refresh token of the identity
	Logout(ctx context.Context, access string, identity models.Identity) error

	// Resolve access token to identity
	ResolveIdentity(ctx context.Context, access string) (models.Identity, error)

	// Set auth tokens (access, refresh) to response
	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)
	SetAccessToResponse(w http.ResponseWriter, access string)
	ClearAccess(w http.ResponseWriter)
	ClearRefresh(w http.ResponseWriter)

	// Get tokens from request
	GetRefreshString(r *http.Request) (string, error)
	GetAccessString(r *http.Request) (string, error)
}

type userService interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
}
