package render

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/campusauth/internal/apperrors"
)

// Stable machine readable reasons of authentication failures
const (
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonInvalidSignature   = "invalid_signature"
	ReasonTokenMalformed     = "token_malformed"
	ReasonTokenExpired       = "token_expired"
	ReasonTokenRevoked       = "token_revoked"
	ReasonRefreshNotCurrent  = "refresh_token_not_current"
	ReasonNoAccessToken      = "no_access_token"
	ReasonNoRefreshToken     = "no_refresh_token"
	ReasonNoRefreshRecord    = "no_refresh_record"
	ReasonUnauthenticated    = "unauthenticated"
)

var reasons = []struct {
	err     error
	reason  string
	message string
}{
	{apperrors.ErrInvalidCredentials, ReasonInvalidCredentials, "Invalid username or password"},
	{apperrors.ErrInvalidSignature, ReasonInvalidSignature, "Token signature is invalid"},
	{apperrors.ErrTokenMalformed, ReasonTokenMalformed, "Token is malformed"},
	{apperrors.ErrTokenExpired, ReasonTokenExpired, "Token is expired"},
	{apperrors.ErrTokenRevoked, ReasonTokenRevoked, "Token is revoked"},
	{apperrors.ErrRefreshTokenMismatch, ReasonRefreshNotCurrent, "Refresh token is not current"},
	{apperrors.ErrRefreshTokenNotFound, ReasonNoRefreshRecord, "No active refresh token on record"},
	{apperrors.ErrNoAccessToken, ReasonNoAccessToken, "Access token not provided"},
	{apperrors.ErrNoRefreshToken, ReasonNoRefreshToken, "Refresh token not provided"},
}

// Reason returns machine readable reason of authentication failure
// Any other error (nil included) is reported as "unauthenticated"
func Reason(err error) string {
	reason, _ := describe(err)
	return reason
}

func describe(err error) (string, string) {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason, r.message
		}
	}
	return ReasonUnauthenticated, "Unauthorized"
}

// Render authentication failure as 401 with the failure reason
func AuthError(w http.ResponseWriter, err error) {
	reason, message := describe(err)
	response := ErrorResponse{
		Error:   ServiceErrorType,
		Message: message,
		Reason:  reason,
	}

	JSONWithStatus(w, response, http.StatusUnauthorized)
}
