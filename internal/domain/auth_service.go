package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/auth"
)

// AuthService handles authentication business logic
type AuthService struct {
	users IdentityStore
	jwt   *auth.JWTManager
}

// NewAuthService creates a new auth service
func NewAuthService(users IdentityStore, jwt *auth.JWTManager) *AuthService {
	return &AuthService{
		users: users,
		jwt:   jwt,
	}
}

// RegisterInput carries the fields accepted at sign-up
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Title    string
	Company  string
	Industry string
}

// AuthResult is returned by register and login
type AuthResult struct {
	User         *User     `json:"user"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Register creates a new member with email/password
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || strings.TrimSpace(in.Name) == "" {
		return nil, Validation("name and email are required")
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, Validation("%s", err.Error())
		}
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, CreateUserParams{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		Title:        in.Title,
		Company:      in.Company,
		Industry:     in.Industry,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return s.issue(user)
}

// Login authenticates a member with email/password
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Best effort; a failed touch must not block login.
	_ = s.users.TouchLastActive(ctx, user.ID, time.Now().UTC())

	return s.issue(user)
}

// Refresh exchanges a valid refresh token for a new token pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	return s.issue(user)
}

// Me returns the current member
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, "user")
	}
	return user, nil
}

func (s *AuthService) issue(user *User) (*AuthResult, error) {
	pair, err := s.jwt.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	}, nil
}
