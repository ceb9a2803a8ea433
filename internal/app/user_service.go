/**
 * @description
 * User accounts and session issuance for the api-service. Session tokens are
 * HS256 JWTs signed with the user-facing secret, which is separate key
 * material from the internal service-token secret: the two trust domains are
 * never unified.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: Session token encoding.
 * - golang.org/x/crypto/bcrypt: Password verification.
 * - internal/domain, internal/store.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vaultpay/payments-backend/internal/domain"
	"github.com/vaultpay/payments-backend/internal/store"
)

// UserService provides registration, login and user queries.
type UserService struct {
	repo          store.Repository
	sessionSecret []byte
	sessionTTL    time.Duration
	now           func() time.Time
}

// NewUserService creates a new user service instance. sessionSecret must be
// the user-facing signing secret, not the internal one.
func NewUserService(repo store.Repository, sessionSecret string, sessionTTL time.Duration) *UserService {
	return &UserService{
		repo:          repo,
		sessionSecret: []byte(sessionSecret),
		sessionTTL:    sessionTTL,
		now:           time.Now,
	}
}

// Register creates a new user account with the default user role.
func (s *UserService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:             uuid.New(),
		Email:          email,
		HashedPassword: string(hashed),
		Role:           domain.RoleUser,
		IsActive:       true,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a session token. Unknown emails,
// wrong passwords and inactive accounts are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, req domain.LoginRequest) (string, error) {
	user, err := s.repo.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !user.IsActive {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.mintSessionToken(user)
}

func (s *UserService) mintSessionToken(user *domain.User) (string, error) {
	now := s.now().UTC()
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(s.sessionTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.sessionSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// UpdateUser mutates a user account; admin only. A new password goes through
// the same strength check and hashing as registration.
func (s *UserService) UpdateUser(ctx context.Context, caller domain.UserContext, userID uuid.UUID, req domain.UpdateUserRequest) (*domain.User, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, ErrAccessDenied
	}

	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, ErrInvalidEmail
		}
		user.Email = email
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return nil, ErrWeakPassword
		}
		hashed, hashErr := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			return nil, fmt.Errorf("failed to hash password: %w", hashErr)
		}
		user.HashedPassword = string(hashed)
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	updatedAt := s.now().UTC()
	user.UpdatedAt = &updatedAt
	return user, nil
}

// DeleteUser soft-deletes a user account; admin only. A repeated delete
// reports not found.
func (s *UserService) DeleteUser(ctx context.Context, caller domain.UserContext, userID uuid.UUID) error {
	if caller.Role != domain.RoleAdmin {
		return ErrAccessDenied
	}
	return s.repo.SoftDeleteUser(ctx, userID)
}

// ChangePassword lets the caller rotate their own password after proving the
// current one.
func (s *UserService) ChangePassword(ctx context.Context, caller domain.UserContext, req domain.ChangePasswordRequest) (*domain.User, error) {
	user, err := s.repo.FindUserByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.CurrentPassword)); err != nil {
		return nil, ErrWrongPassword
	}
	if len(req.NewPassword) < 8 {
		return nil, ErrWeakPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = string(hashed)

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	updatedAt := s.now().UTC()
	user.UpdatedAt = &updatedAt
	return user, nil
}

// GetUser returns a user visible to the caller (self or admin).
func (s *UserService) GetUser(ctx context.Context, caller domain.UserContext, userID uuid.UUID) (*domain.User, error) {
	if !caller.CanAccess(userID) {
		return nil, ErrAccessDenied
	}
	return s.repo.FindUserByID(ctx, userID)
}

// ListUsers is admin only.
func (s *UserService) ListUsers(ctx context.Context, caller domain.UserContext) ([]domain.User, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, ErrAccessDenied
	}
	return s.repo.ListUsers(ctx)
}
