package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecover(t *testing.T) {
	t.Run("panic to 500", func(t *testing.T) {
		l := &fakeLogger{}
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		})

		w := httptest.NewRecorder()
		Recover(l)(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.JSONEq(t, `{"error": "service_error", "message": "Internal server error"}`, w.Body.String())
		require.NotContains(t, w.Body.String(), "boom", "panic details must not leak")

		records := l.all()
		require.Len(t, records, 1)
		require.Equal(t, "error", records[0].level)
		require.Contains(t, records[0].args, "boom")
	})

	t.Run("no panic", func(t *testing.T) {
		l := &fakeLogger{}
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		w := httptest.NewRecorder()
		Recover(l)(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		require.Equal(t, http.StatusNoContent, w.Code)
		require.Empty(t, l.all())
	})

	t.Run("abort handler panic passes through", func(t *testing.T) {
		l := &fakeLogger{}
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		})

		require.PanicsWithValue(t, http.ErrAbortHandler, func() {
			Recover(l)(h).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
		})
	})
}
