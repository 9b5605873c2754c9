package user

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nkiryanov/campusauth/internal/apperrors"
	"github.com/nkiryanov/campusauth/internal/models"
	"github.com/nkiryanov/campusauth/internal/repository"
	"github.com/nkiryanov/campusauth/internal/service/auth"
)

type UserService struct {
	hasher   auth.PasswordHasher
	userRepo repository.UserRepo

	// Hash compared against when user not found, so missed and existed users take same time
	dummyOnce sync.Once
	dummyHash string
}

func NewService(hasher auth.PasswordHasher, userRepo repository.UserRepo) *UserService {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	return &UserService{
		hasher:   hasher,
		userRepo: userRepo,
	}
}

func (s *UserService) CreateUser(ctx context.Context, username string, password string) (models.User, error) {
	var user models.User
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	user, err = s.userRepo.CreateUser(ctx, username, hash)
	if err != nil {
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

// Verify checks username and password pair
// Returns apperrors.ErrUserNotFound, apperrors.ErrUserInactive or apperrors.ErrInvalidCredentials on failure
func (s *UserService) Verify(ctx context.Context, username string, password string) (models.User, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			_ = s.hasher.Compare(s.dummy(), password)
		}
		return models.User{}, fmt.Errorf("can't verify user %q. Err: %w", username, err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.User{}, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return models.User{}, apperrors.ErrUserInactive
	}

	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return user, fmt.Errorf("can't get user. Err: %w", err)
	}
	return user, nil
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(uuid.NewString())
	})
	return s.dummyHash
}
