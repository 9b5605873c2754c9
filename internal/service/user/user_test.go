package user

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/campusauth/internal/apperrors"
	"github.com/nkiryanov/campusauth/internal/repository"
	"github.com/nkiryanov/campusauth/internal/repository/postgres"
	"github.com/nkiryanov/campusauth/internal/service/auth"
	"github.com/nkiryanov/campusauth/internal/testutil"
)

func TestUser(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Helper function to create UserService within transaction
	inTx := func(t *testing.T, fn func(s *UserService, storage repository.Storage)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			userService := NewService(auth.BcryptHasher{Cost: bcrypt.MinCost}, storage.User())
			fn(userService, storage)
		})
	}

	t.Run("CreateUser", func(t *testing.T) {
		t.Run("create ok", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage) {
				user, err := s.CreateUser(t.Context(), "test-user", "password123")

				require.NoError(t, err, "creating new user should be ok")
				require.NotEmpty(t, user.ID, "user ID should not be empty")
				require.Equal(t, "test-user", user.Username, "username should match")
				require.NotEmpty(t, user.HashedPassword, "password hash should not be empty")
				require.NotEqual(t, "password123", user.HashedPassword, "password should be hashed")
				require.NotZero(t, user.CreatedAt, "created at should be set")
				require.True(t, user.IsActive, "new user is active")
			})
		})

		t.Run("empty password fail", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage) {
				_, err := s.CreateUser(t.Context(), "test-user", "")

				require.Error(t, err, "creating user with empty password should fail")
			})
		})

		t.Run("create duplicate user fail", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage) {
				_, err := s.CreateUser(t.Context(), "test-user", "password123")
				require.NoError(t, err, "first user creation should succeed")

				_, err = s.CreateUser(t.Context(), "test-user", "different_password")

				require.Error(t, err, "creating duplicate user should fail")
				require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
			})
		})
	})

	t.Run("Verify", func(t *testing.T) {
		t.Run("verify ok", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage) {
				createdUser, err := s.CreateUser(t.Context(), "test-user", "password123")
				require.NoError(t, err)

				user, err := s.Verify(t.Context(), "test-user", "password123")

				require.NoError(t, err, "correct credentials should pass")
				require.Equal(t, createdUser.ID, user.ID, "user ID should match")
				require.Equal(t, createdUser.Username, user.Username, "username should match")
			})
		})

		t.Run("invalid password fail", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage) {
				_, err := s.CreateUser(t.Context(), "test-user", "password123")
				require.NoError(t, err)

				_, err = s.Verify(t.Context(), "test-user", "wrong-password")

				require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
			})
		})

		t.Run("inactive user fail", func(t *testing.T) {
			inTx(t, func(s *UserService, storage repository.Storage) {
				user, err := s.CreateUser(t.Context(), "test-user", "password123")
				require.NoError(t, err)
				err = storage.User().SetActive(t.Context(), user.ID, false)
				require.NoError(t, err)

				_, err = s.Verify(t.Context(), "test-user", "password123")

				require.ErrorIs(t, err, apperrors.ErrUserInactive)
			})
		})

		t.Run("inactive user with wrong password fail", func(t *testing.T) {
			inTx(t, func(s *UserService, storage repository.Storage) {
				user, err := s.CreateUser(t.Context(), "test-user", "password123")
				require.NoError(t, err)
				err = storage.User().SetActive(t.Context(), user.ID, false)
				require.NoError(t, err)

				_, err = s.Verify(t.Context(), "test-user", "wrong-password")

				require.ErrorIs(t, err, apperrors.ErrInvalidCredentials, "account state is not disclosed without password")
			})
		})

		t.Run("not existed user fail", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage) {
				_, err := s.Verify(t.Context(), "non-existed-user", "password123")

				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})

	t.Run("GetUserByID", func(t *testing.T) {
		t.Run("existed ok", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage) {
				createdUser, err := s.CreateUser(t.Context(), "test-user", "password123")
				require.NoError(t, err)

				user, err := s.GetUserByID(t.Context(), createdUser.ID)

				require.NoError(t, err, "getting existing user by ID should succeed")
				require.Equal(t, createdUser.ID, user.ID, "user ID should match")
				require.Equal(t, createdUser.Username, user.Username, "username should match")
				require.Equal(t, createdUser.HashedPassword, user.HashedPassword, "password hash should match")
				require.Equal(t, createdUser.CreatedAt, user.CreatedAt, "created at should match")
			})
		})

		t.Run("not existed fail", func(t *testing.T) {
			inTx(t, func(s *UserService, _ repository.Storage) {
				_, err := s.GetUserByID(t.Context(), uuid.New()) // Non-existent ID

				require.Error(t, err, "getting non-existent user should fail")
				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})
}
