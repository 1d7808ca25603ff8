package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for bcrypt hashing
const BcryptCost = 10

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountNotApproved = errors.New("account is awaiting admin approval")
	ErrInvalidRole        = errors.New("role must be buyer or admin")
)

// RegisterInput carries the fields accepted at signup
type RegisterInput struct {
	UserName string
	Email    string
	Password string
	Role     string
}

// Session is the result of a successful login
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         *domain.User
}

// AuthService defines the interface for account and session logic
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Logout(ctx context.Context, userID int64, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (accessToken string, expiresAt time.Time, err error)
	Profile(ctx context.Context, userID int64) (*domain.User, error)
	EnsureAdmin(ctx context.Context, email, password string) (*domain.User, error)
}

type authService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	tokens           *auth.TokenManager
	refreshTTL       time.Duration
	logger           *zap.Logger
	now              func() time.Time
}

// NewAuthService creates a new instance of AuthService
func NewAuthService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	tokens *auth.TokenManager,
	refreshTTL time.Duration,
	logger *zap.Logger,
) AuthService {
	return &authService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		tokens:           tokens,
		refreshTTL:       refreshTTL,
		logger:           logger,
		now:              time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new account. Buyers are approved immediately, admin
// sign-ups wait for an existing admin.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)

	role := in.Role
	if role == "" {
		role = domain.RoleBuyer
	}
	if role != domain.RoleBuyer && role != domain.RoleAdmin {
		return nil, ErrInvalidRole
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, repository.ErrUserAlreadyExists
	}

	hashedPassword, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userName := strings.TrimSpace(in.UserName)
	if userName == "" {
		userName = email[:strings.IndexByte(email+"@", '@')]
	}

	user := &domain.User{
		UserName:     userName,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         role,
		Approved:     role == domain.RoleBuyer,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", user.Role),
		zap.Bool("approved", user.Approved),
	)

	return user, nil
}

// Login authenticates a user and returns an access token and a refresh token
func (s *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := verifyPassword(user.PasswordHash, password); err != nil {
		s.logger.Info("Login rejected: wrong password", zap.Int64("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	if !user.Approved {
		return nil, ErrAccountNotApproved
	}

	accessToken, expiresAt, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.generateRefreshToken(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}

// Logout revokes one of the user's refresh tokens. Unknown tokens, and
// tokens of other users, are left alone.
func (s *authService) Logout(ctx context.Context, userID int64, refreshToken string) error {
	if err := s.refreshTokenRepo.Revoke(ctx, userID, refreshToken); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// Refresh issues a new access token for a live refresh token
func (s *authService) Refresh(ctx context.Context, refreshTokenString string) (string, time.Time, error) {
	refreshToken, err := s.refreshTokenRepo.FindByToken(ctx, refreshTokenString)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) || errors.Is(err, repository.ErrRefreshTokenRevoked) {
			return "", time.Time{}, auth.ErrInvalidToken
		}
		return "", time.Time{}, fmt.Errorf("failed to find refresh token: %w", err)
	}

	if s.now().After(refreshToken.ExpiresAt) {
		return "", time.Time{}, auth.ErrTokenExpired
	}

	user, err := s.userRepo.FindByID(ctx, refreshToken.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", time.Time{}, auth.ErrInvalidToken
		}
		return "", time.Time{}, fmt.Errorf("failed to find user: %w", err)
	}

	if !user.Approved {
		return "", time.Time{}, ErrAccountNotApproved
	}

	accessToken, expiresAt, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	return accessToken, expiresAt, nil
}

// Profile returns the account behind an authenticated request
func (s *authService) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// EnsureAdmin makes sure an approved admin account exists for email. An
// existing admin is approved if needed and its password is left unchanged.
func (s *authService) EnsureAdmin(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !user.IsAdmin() {
			return nil, fmt.Errorf("seed admin %s: %w", email, repository.ErrUserAlreadyExists)
		}
		if !user.Approved {
			if err := s.userRepo.SetApproved(ctx, user.ID, true); err != nil {
				return nil, fmt.Errorf("failed to approve seed admin: %w", err)
			}
			user.Approved = true
		}
		return user, nil

	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("failed to look up seed admin: %w", err)
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user = &domain.User{
		UserName:     "admin",
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         domain.RoleAdmin,
		Approved:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create seed admin: %w", err)
	}

	s.logger.Info("Seeded admin account", zap.Int64("user_id", user.ID), zap.String("email", email))
	return user, nil
}

func (s *authService) generateRefreshToken(ctx context.Context, user *domain.User) (string, error) {
	now := s.now()
	refreshToken := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}

	if err := s.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
		return "", err
	}

	return refreshToken.Token, nil
}

func hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
