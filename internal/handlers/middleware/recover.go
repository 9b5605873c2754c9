package middleware

import (
	"net/http"

	"github.com/nkiryanov/campusauth/internal/handlers/render"
)

// Recover turns handler panic into 500 response, panic details are logged only
func Recover(l logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				l.Error("panic while serving request", "method", r.Method, "path", r.URL.Path, "panic", rec)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
