package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"manion_server/internal/common"
	"manion_server/internal/common/security"
	"manion_server/internal/domain/model"
	"manion_server/internal/domain/repository"
	"manion_server/internal/platform/config"

	"github.com/google/uuid"
)

type AuthService struct {
	userRepo repository.UserRepository
}

func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session mirrors the token payload the web client stores after signin.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*model.User, error) {
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return nil, common.Errorf("email, password, and name are required: %w", common.ErrValidation)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Email:          req.Email,
		Name:           req.Name,
		HashedPassword: hashedPassword,
		Role:           model.RoleUser,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.HashedPassword = ""
	return user, nil
}

func (s *AuthService) Signin(ctx context.Context, req SigninRequest) (*model.User, *Session, error) {
	if req.Email == "" || req.Password == "" {
		return nil, nil, common.Errorf("email and password are required: %w", common.ErrValidation)
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrUnauthorized // Generic message for security
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, nil, common.ErrUnauthorized
	}

	token, err := security.GenerateToken(user.ID, user.Email, user.Name, user.Role)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate token: %w", err)
	}
	user.HashedPassword = ""
	session := &Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(config.AppConfig.JWTExp.Seconds()),
	}
	return user, session, nil
}

// OAuthURL returns the configured authorize URL for a provider kickoff.
func (s *AuthService) OAuthURL(provider string) (string, error) {
	var url string
	switch provider {
	case "google":
		url = config.AppConfig.GoogleAuthURL
	case "kakao":
		url = config.AppConfig.KakaoAuthURL
	default:
		return "", common.Errorf("unknown oauth provider %q: %w", provider, common.ErrBadRequest)
	}
	if url == "" {
		return "", common.Errorf("oauth provider %s is not configured: %w", provider, common.ErrBadRequest)
	}
	return url, nil
}

// SeedAdmin ensures the configured admin account exists. The admin is a
// regular user row carrying the admin role claim.
func (s *AuthService) SeedAdmin(ctx context.Context) error {
	email := config.AppConfig.AdminEmail
	password := config.AppConfig.AdminPassword
	if email == "" || password == "" {
		slog.Warn("admin account not seeded, ADMIN_EMAIL/ADMIN_PASSWORD unset")
		return nil
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("failed to look up admin account: %w", err)
	}

	hashedPassword, err := security.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := &model.User{
		ID:             uuid.NewString(),
		Email:          email,
		Name:           config.AppConfig.AdminName,
		HashedPassword: hashedPassword,
		Role:           model.RoleAdmin,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil // Raced with another instance
		}
		return fmt.Errorf("failed to seed admin account: %w", err)
	}
	slog.Info("admin account seeded", "email", email)
	return nil
}
