package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"go.uber.org/zap"
)

var ErrCannotDeleteSelf = errors.New("admins cannot delete their own account")

// UserService defines the admin operations on accounts
type UserService interface {
	List(ctx context.Context) ([]*domain.User, error)
	Approve(ctx context.Context, userID int64) (*domain.User, error)
	Delete(ctx context.Context, actorID, userID int64) error
}

type userService struct {
	userRepo repository.UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new instance of UserService
func NewUserService(userRepo repository.UserRepository, logger *zap.Logger) UserService {
	return &userService{userRepo: userRepo, logger: logger}
}

func (s *userService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Approve lets an account log in
func (s *userService) Approve(ctx context.Context, userID int64) (*domain.User, error) {
	if err := s.userRepo.SetApproved(ctx, userID, true); err != nil {
		return nil, fmt.Errorf("failed to approve user: %w", err)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	s.logger.Info("User approved", zap.Int64("user_id", userID))
	return user, nil
}

// Delete removes an account together with its cart, wishlist, orders and
// sessions
func (s *userService) Delete(ctx context.Context, actorID, userID int64) error {
	if actorID == userID {
		return ErrCannotDeleteSelf
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.Info("User deleted", zap.Int64("user_id", userID), zap.Int64("deleted_by", actorID))
	return nil
}
