package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Service implements user account operations.
type Service struct {
	repo   Repository
	jwt    *JWTManager
	logger *zap.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, jwt *JWTManager, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		jwt:    jwt,
		logger: logger,
	}
}

// Register creates a new account and returns it with a token pair.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = RoleClient
	}

	u := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         role,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.String("user_id", u.ID.String()),
		zap.String("role", string(u.Role)))
	return &AuthResponse{User: u, Tokens: tokens}, nil
}

// Login authenticates an account and returns a token pair.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(ctx, u)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{User: u, Tokens: tokens}, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The used
// token is revoked (single use).
func (s *Service) Refresh(ctx context.Context, rawToken string) (*TokenPair, error) {
	stored, err := s.repo.GetRefreshToken(ctx, s.jwt.HashRefreshToken(rawToken))
	if err != nil {
		return nil, err
	}
	if !stored.Valid() {
		return nil, ErrTokenExpired
	}

	u, err := s.repo.GetUser(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RevokeRefreshToken(ctx, stored.TokenHash); err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}

	return s.issueTokens(ctx, u)
}

// Logout revokes all refresh tokens for the user.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.repo.RevokeUserRefreshTokens(ctx, userID)
}

// GetProfile returns the user's profile.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.repo.GetUser(ctx, userID)
}

// UpdateProfile applies a partial profile update.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*User, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		u.FullName = *req.FullName
	}
	if req.Phone != nil {
		u.Phone = *req.Phone
	}
	if req.AvatarURL != nil {
		u.AvatarURL = *req.AvatarURL
	}

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *Service) issueTokens(ctx context.Context, u *User) (*TokenPair, error) {
	access, expiresAt, err := s.jwt.GenerateAccessToken(u)
	if err != nil {
		return nil, err
	}

	raw, hash, refreshExpiry, err := s.jwt.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateRefreshToken(ctx, &RefreshToken{
		ID:        uuid.New(),
		UserID:    u.ID,
		TokenHash: hash,
		ExpiresAt: refreshExpiry,
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresAt:    expiresAt,
	}, nil
}
