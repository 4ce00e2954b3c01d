package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/communityweb/strtracker/internal/common"
	"github.com/communityweb/strtracker/internal/domain"
	"github.com/communityweb/strtracker/internal/repository"
	"github.com/communityweb/strtracker/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// AuthService authentication business logic
type AuthService interface {
	Login(ctx context.Context, username, password string) (*domain.LoginResponse, error)
	// CreateUser provisions an account (used by the migrate command)
	CreateUser(ctx context.Context, name, email, password string, level int) (*domain.User, error)
}

type authService struct {
	userRepo   repository.UserRepository
	jwtManager *jwt.Manager
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, jwtManager *jwt.Manager) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
	}
}

// Login authenticates a user and returns a session token
func (s *authService) Login(ctx context.Context, username, password string) (*domain.LoginResponse, error) {
	user, err := s.userRepo.FindByName(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	// disabled accounts look exactly like unknown ones
	if !user.IsPublished {
		return nil, common.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Hash), []byte(password)) != nil {
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.jwtManager.GenerateToken(user.Name, user.Email, user.Level)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &domain.LoginResponse{
		AccessToken: token,
		ExpiresIn:   s.jwtManager.ExpiresIn(),
		Username:    user.Name,
		Level:       user.Level,
	}, nil
}

func (s *authService) CreateUser(ctx context.Context, name, email, password string, level int) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return nil, common.ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:        name,
		Email:       strings.TrimSpace(email),
		Level:       level,
		Hash:        string(hash),
		IsPublished: true,
		CreateUser:  "admin",
		ModifyUser:  "admin",
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
