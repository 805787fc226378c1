package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/repository"
	"rentloop-backend/internal/security"
)

const minPasswordLength = 8

var ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)

type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

type authService struct {
	userRepo repository.UserRepository
	tokens   security.TokenManager
}

func NewAuthService(userRepo repository.UserRepository, tokens security.TokenManager) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*domain.User, *AuthTokens, error) {
	logger.EnterMethod("authService.Register", "email", input.Email)

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, nil, fmt.Errorf("%w: email is not valid", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if len(input.Password) < minPasswordLength {
		return nil, nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.ExitMethodWithError("authService.Register", err)
		return nil, nil, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(input.Name),
		PhoneNumber:  input.PhoneNumber,
		Address:      input.Address,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		logger.ExitMethodWithError("authService.Register", err, "email", email)
		return nil, nil, err
	}

	tokens, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	logger.ExitMethod("authService.Register", "userID", user.ID)
	return user, tokens, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, *AuthTokens, error) {
	logger.EnterMethod("authService.Login", "email", email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.ExitMethodWithError("authService.Login", ErrInvalidCredentials, "email", email)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logger.ExitMethodWithError("authService.Login", ErrInvalidCredentials, "userID", user.ID)
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	logger.ExitMethod("authService.Login", "userID", user.ID)
	return user, tokens, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	claims, err := s.tokens.ValidateToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if claims.Type != security.TokenTypeRefresh {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, security.ErrWrongTokenType)
	}
	user, err := s.userRepo.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", domain.ErrUnauthorized)
		}
		return nil, err
	}
	return s.issue(user)
}

func (s *authService) issue(user *domain.User) (*AuthTokens, error) {
	access, err := s.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}
