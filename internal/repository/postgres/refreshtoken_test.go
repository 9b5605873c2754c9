package postgres

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/campusauth/internal/apperrors"
	"github.com/nkiryanov/campusauth/internal/models"
	"github.com/nkiryanov/campusauth/internal/testutil"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func Test_RefreshTokenRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Run test in transaction with existed user, refresh token has to have an owner
	withUser := func(t *testing.T, fn func(repo *RefreshTokenRepo, user models.User)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			user, err := (&UserRepo{DB: tx}).CreateUser(t.Context(), "alice", "hashed")
			require.NoError(t, err)

			fn(&RefreshTokenRepo{DB: tx}, user)
		})
	}

	newToken := func(userID uuid.UUID, value string) models.RefreshToken {
		return models.RefreshToken{
			UserID:    userID,
			Token:     value,
			IssuedAt:  mustParseTime("2024-01-01 19:00:01Z"),
			ExpiresAt: mustParseTime("2200-01-01 03:00:02Z"),
		}
	}

	t.Run("put token ok", func(t *testing.T) {
		withUser(t, func(repo *RefreshTokenRepo, user models.User) {
			token := newToken(user.ID, "secret-token")

			got, err := repo.Put(t.Context(), token)

			require.NoError(t, err)
			require.Equal(t, token.UserID, got.UserID)
			require.Equal(t, token.Token, got.Token)
			require.WithinDuration(t, token.IssuedAt, got.IssuedAt, 0)
			require.WithinDuration(t, token.ExpiresAt, got.ExpiresAt, 0)
			require.WithinDuration(t, time.Now(), got.CreatedAt, time.Second)
			require.WithinDuration(t, got.CreatedAt, got.UpdatedAt, 0, "new row created and updated at the same time")
		})
	})

	t.Run("put replaces previous token", func(t *testing.T) {
		withUser(t, func(repo *RefreshTokenRepo, user models.User) {
			first, err := repo.Put(t.Context(), newToken(user.ID, "first"))
			require.NoError(t, err)

			second := newToken(user.ID, "second")
			second.ExpiresAt = mustParseTime("2300-01-01 00:00:00Z")
			_, err = repo.Put(t.Context(), second)
			require.NoError(t, err)

			got, err := repo.Get(t.Context(), user.ID)

			require.NoError(t, err)
			require.Equal(t, "second", got.Token, "stored token has to be the latest one")
			require.WithinDuration(t, second.ExpiresAt, got.ExpiresAt, 0)
			require.WithinDuration(t, first.CreatedAt, got.CreatedAt, 0, "replace keeps row creation time")

			var count int
			err = repo.DB.QueryRow(t.Context(), "SELECT count(*) FROM refresh_tokens WHERE user_id = $1", user.ID).Scan(&count)
			require.NoError(t, err)
			require.Equal(t, 1, count, "user must have exactly one refresh token row")
		})
	})

	t.Run("get not existed token", func(t *testing.T) {
		withUser(t, func(repo *RefreshTokenRepo, user models.User) {
			_, err := repo.Get(t.Context(), user.ID)

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("rotate current token", func(t *testing.T) {
		withUser(t, func(repo *RefreshTokenRepo, user models.User) {
			_, err := repo.Put(t.Context(), newToken(user.ID, "first"))
			require.NoError(t, err)

			got, err := repo.Rotate(t.Context(), "first", newToken(user.ID, "second"))

			require.NoError(t, err)
			require.Equal(t, "second", got.Token)
		})
	})

	t.Run("rotate not current token", func(t *testing.T) {
		withUser(t, func(repo *RefreshTokenRepo, user models.User) {
			_, err := repo.Put(t.Context(), newToken(user.ID, "first"))
			require.NoError(t, err)
			_, err = repo.Rotate(t.Context(), "first", newToken(user.ID, "second"))
			require.NoError(t, err)

			_, err = repo.Rotate(t.Context(), "first", newToken(user.ID, "third"))

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenMismatch)

			got, err := repo.Get(t.Context(), user.ID)
			require.NoError(t, err)
			require.Equal(t, "second", got.Token, "failed rotation must not change stored token")
		})
	})

	t.Run("rotate without token", func(t *testing.T) {
		withUser(t, func(repo *RefreshTokenRepo, user models.User) {
			_, err := repo.Rotate(t.Context(), "first", newToken(user.ID, "second"))

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("delete token", func(t *testing.T) {
		withUser(t, func(repo *RefreshTokenRepo, user models.User) {
			_, err := repo.Put(t.Context(), newToken(user.ID, "first"))
			require.NoError(t, err)

			err = repo.Delete(t.Context(), user.ID)
			require.NoError(t, err)

			_, err = repo.Get(t.Context(), user.ID)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)

			err = repo.Delete(t.Context(), user.ID)
			require.NoError(t, err, "delete has to be idempotent")
		})
	})

	t.Run("delete expired", func(t *testing.T) {
		withUser(t, func(repo *RefreshTokenRepo, user models.User) {
			other, err := (&UserRepo{DB: repo.DB}).CreateUser(t.Context(), "bob", "hashed")
			require.NoError(t, err)

			expired := newToken(user.ID, "expired")
			expired.ExpiresAt = mustParseTime("2024-01-02 00:00:00Z")
			_, err = repo.Put(t.Context(), expired)
			require.NoError(t, err)
			_, err = repo.Put(t.Context(), newToken(other.ID, "alive"))
			require.NoError(t, err)

			deleted, err := repo.DeleteExpired(t.Context(), mustParseTime("2024-01-02 00:00:00Z"))

			require.NoError(t, err)
			require.EqualValues(t, 1, deleted, "token expired exactly at 'now' has to be deleted")
			_, err = repo.Get(t.Context(), user.ID)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
			_, err = repo.Get(t.Context(), other.ID)
			require.NoError(t, err)
		})
	})
}

// Concurrent rotations can't share transaction, so the test commits and cleans up by itself
func Test_RefreshTokenRepo_ConcurrentRotate(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	user, err := (&UserRepo{DB: pg.Pool}).CreateUser(t.Context(), "alice", "hashed")
	require.NoError(t, err)

	repo := &RefreshTokenRepo{DB: pg.Pool}
	_, err = repo.Put(t.Context(), models.RefreshToken{
		UserID:    user.ID,
		Token:     "first",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = repo.Rotate(t.Context(), "first", models.RefreshToken{
				UserID:    user.ID,
				Token:     uuid.NewString(),
				IssuedAt:  time.Now(),
				ExpiresAt: time.Now().Add(time.Hour),
			})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, apperrors.ErrRefreshTokenMismatch)
	}
	require.Equal(t, 1, succeeded, "only one rotation of the same token may succeed")
}
