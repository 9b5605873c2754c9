package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/campusauth/internal/apperrors"
	"github.com/nkiryanov/campusauth/internal/handlers/render"
	"github.com/nkiryanov/campusauth/internal/handlers/userctx"
	"github.com/nkiryanov/campusauth/internal/logger"
)

func handleUserMe(userService userService, logger logger.Logger) http.Handler {
	type response struct {
		ID       uuid.UUID `json:"id"`
		Username string    `json:"username"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := userctx.FromContext(r.Context())

		user, err := userService.GetUserByID(r.Context(), identity.UserID)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "User not found", http.StatusNotFound)
			default:
				logger.Error("can't get user", "error", err, "user_id", identity.UserID)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{ID: user.ID, Username: user.Username})
	})
}
