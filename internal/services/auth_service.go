package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/logging"
	"taskhub/internal/models"
	"taskhub/internal/repositories"
	"taskhub/internal/utils"
)

type TokenPair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	HashPassword(password string) (string, error)
}

type authService struct {
	users      repositories.UserRepository
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(users repositories.UserRepository, jwtSecret string, accessTTL, refreshTTL time.Duration) AuthService {
	return &authService{
		users:      users,
		secret:     []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (s *authService) HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (s *authService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	user := &models.User{
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.TrimSpace(req.Email),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		IsActive:  true,
	}
	if user.Username == "" {
		return nil, &models.ValidationError{Field: "username", Message: "this field is required"}
	}
	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	logging.Logger.Infof("[auth][register][ok] userID=%d username=%q", user.ID, user.Username)
	return user, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (*models.User, *TokenPair, error) {
	username = strings.TrimSpace(username)
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logging.Logger.Infof("[auth][login] unknown username=%q", username)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !user.IsActive || user.PasswordHash == "" {
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logging.Logger.Infof("[auth][login] bcrypt mismatch for userID=%d", user.ID)
		return nil, nil, ErrInvalidCredentials
	}

	access, _, err := utils.NewAccessToken(s.secret, user.ID, s.accessTTL)
	if err != nil {
		return nil, nil, err
	}
	// Refresh (opaque) -> хранится в БД
	rt, err := utils.NewRefreshToken(32)
	if err != nil {
		return nil, nil, err
	}
	if err := s.users.UpdateRefresh(ctx, user.ID, rt, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, nil, err
	}
	logging.Logger.Infof("[auth][login][ok] userID=%d", user.ID)
	return user, &TokenPair{AccessToken: access, RefreshToken: rt}, nil
}

// Refresh rotates the refresh token and issues a new access token.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	old := strings.TrimSpace(refreshToken)
	if old == "" {
		return nil, ErrInvalidRefreshToken
	}
	user, err := s.users.GetByRefreshToken(ctx, old)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if user.RefreshRevoked || user.RefreshExpiresAt == nil || !user.IsActive {
		return nil, ErrInvalidRefreshToken
	}
	if time.Now().After(*user.RefreshExpiresAt) {
		return nil, ErrRefreshTokenExpired
	}

	newRT, err := utils.NewRefreshToken(32)
	if err != nil {
		return nil, err
	}
	rotated, err := s.users.RotateRefresh(ctx, old, newRT, time.Now().Add(s.refreshTTL))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// уже ротирован параллельным запросом
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	access, _, err := utils.NewAccessToken(s.secret, rotated.ID, s.accessTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: newRT}, nil
}

func (s *authService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}
