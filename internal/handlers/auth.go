package handlers

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/campusauth/internal/apperrors"
	"github.com/nkiryanov/campusauth/internal/handlers/render"
	"github.com/nkiryanov/campusauth/internal/handlers/userctx"
	"github.com/nkiryanov/campusauth/internal/logger"
)

type credentialsRequest struct {
	Login    string `json:"login" validate:"required,min=2,max=50"`
	Password string `json:"password" validate:"required,min=8"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func handleRegister(authService authService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[credentialsRequest](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Register(r.Context(), data.Login, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserAlreadyExists):
				render.ServiceError(w, "User already exists", http.StatusConflict)
			default:
				logger.Error("registration failed", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		authService.SetTokenPairToResponse(w, pair)
		render.JSONWithStatus(w, messageResponse{Message: "User registered successfully"}, http.StatusCreated)
	})
}

func handleLogin(authService authService, logger logger.Logger) http.Handler {
	type loginRequest struct {
		Login    string `json:"login" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[loginRequest](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Login(r.Context(), data.Login, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrInvalidCredentials):
				render.AuthError(w, err)
			default:
				logger.Error("login failed", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		authService.SetTokenPairToResponse(w, pair)
		render.JSONWithStatus(w, messageResponse{Message: "User logged in successfully"}, http.StatusCreated)
	})
}

func handleTokenRefresh(authService authService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh, err := authService.GetRefreshString(r)
		if err != nil {
			render.AuthError(w, err)
			return
		}

		pair, err := authService.Refresh(r.Context(), refresh)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUnauthorized):
				render.AuthError(w, err)
			default:
				logger.Error("token refresh failed", "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		authService.SetTokenPairToResponse(w, pair)
		render.JSON(w, messageResponse{Message: "Tokens refreshed successfully"})
	})
}

func handleLogout(authService authService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := userctx.FromContext(r.Context())

		err := authService.Logout(r.Context(), identity.Access, identity)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUnauthorized):
				render.AuthError(w, err)
			default:
				logger.Error("logout failed", "error", err, "user_id", identity.UserID)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		// Token was echoed by authentication middleware, it's revoked now
		authService.ClearAccess(w)
		authService.ClearRefresh(w)
		render.JSON(w, messageResponse{Message: "User logged out successfully"})
	})
}
