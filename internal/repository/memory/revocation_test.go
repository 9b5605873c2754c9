package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRevocationRegistry(t *testing.T) {
	t0 := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)

	// Registry with the clock the test controls
	newRegistry := func() (*RevocationRegistry, *time.Time) {
		now := t0
		return NewRevocationRegistry(func() time.Time { return now }), &now
	}

	t.Run("revoked until expiry", func(t *testing.T) {
		r, now := newRegistry()

		err := r.Revoke(t.Context(), "jti", t0.Add(time.Minute))
		require.NoError(t, err)

		revoked, err := r.IsRevoked(t.Context(), "jti")
		require.NoError(t, err)
		require.True(t, revoked)

		*now = t0.Add(time.Minute)
		revoked, err = r.IsRevoked(t.Context(), "jti")
		require.NoError(t, err)
		require.False(t, revoked, "revocation is irrelevant starting at token expiry")
	})

	t.Run("unknown token", func(t *testing.T) {
		r, _ := newRegistry()

		revoked, err := r.IsRevoked(t.Context(), "jti")

		require.NoError(t, err)
		require.False(t, revoked)
	})

	t.Run("expired token not stored", func(t *testing.T) {
		r, _ := newRegistry()

		err := r.Revoke(t.Context(), "jti", t0)

		require.NoError(t, err)
		require.Zero(t, r.Len())
	})

	t.Run("revoke twice", func(t *testing.T) {
		r, _ := newRegistry()

		require.NoError(t, r.Revoke(t.Context(), "jti", t0.Add(time.Minute)))
		require.NoError(t, r.Revoke(t.Context(), "jti", t0.Add(time.Minute)))

		require.Equal(t, 1, r.Len())
	})

	t.Run("purge expired", func(t *testing.T) {
		r, _ := newRegistry()
		require.NoError(t, r.Revoke(t.Context(), "short", t0.Add(time.Minute)))
		require.NoError(t, r.Revoke(t.Context(), "long", t0.Add(time.Hour)))

		purged, err := r.Purge(t.Context(), t0.Add(time.Minute))

		require.NoError(t, err)
		require.EqualValues(t, 1, purged)
		require.Equal(t, 1, r.Len())
		revoked, err := r.IsRevoked(t.Context(), "long")
		require.NoError(t, err)
		require.True(t, revoked)
	})
}
