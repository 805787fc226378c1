package service

import (
	"context"
	"fmt"
	"strings"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/repository"
)

// ProfileUpdate holds the editable profile fields; nil leaves a field as is.
type ProfileUpdate struct {
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phone_number"`
	Address     *string `json:"address"`
	Bio         *string `json:"bio"`
	AvatarURL   *string `json:"avatar_url"`
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *userService) GetPublicProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*domain.User, error) {
	logger.EnterMethod("userService.UpdateProfile", "userID", userID)
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		logger.ExitMethodWithError("userService.UpdateProfile", err, "userID", userID)
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidInput)
		}
		user.Name = name
	}
	if update.PhoneNumber != nil {
		user.PhoneNumber = *update.PhoneNumber
	}
	if update.Address != nil {
		user.Address = *update.Address
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	if update.AvatarURL != nil {
		user.AvatarURL = *update.AvatarURL
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		logger.ExitMethodWithError("userService.UpdateProfile", err, "userID", userID)
		return nil, err
	}
	logger.ExitMethod("userService.UpdateProfile", "userID", userID)
	return user, nil
}
