package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/nkiryanov/campusauth/internal/apperrors"
	"github.com/nkiryanov/campusauth/internal/handlers/render"
	"github.com/nkiryanov/campusauth/internal/handlers/userctx"
	"github.com/nkiryanov/campusauth/internal/models"
)

type authService interface {
	// Read access token from request
	GetAccessString(r *http.Request) (string, error)

	// Resolve access token to identity
	ResolveIdentity(ctx context.Context, access string) (models.Identity, error)

	// Write access token to response
	SetAccessToResponse(w http.ResponseWriter, access string)
}

// Authenticate resolves bearer token to identity and puts it into request context
// It never rejects request: on failure identity stays unset and failure reason is put into context instead,
// so handlers requiring identity decide what to respond
func Authenticate(as authService, l logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			access, err := as.GetAccessString(r)
			if err == nil {
				var identity models.Identity
				identity, err = as.ResolveIdentity(ctx, access)
				if err == nil {
					as.SetAccessToResponse(w, access)
					ctx = userctx.New(ctx, identity)
				}
			}

			if err != nil {
				if !errors.Is(err, apperrors.ErrUnauthorized) {
					l.Error("can't resolve identity", "error", err)
				}
				ctx = userctx.WithFailure(ctx, err)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests without identity
// Authentication failures get 401 with the failure reason, other failures (like store is unreachable) get 500
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userctx.FromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		err := userctx.FailureFromContext(r.Context())
		if err != nil && !errors.Is(err, apperrors.ErrUnauthorized) {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.AuthError(w, err)
	})
}
