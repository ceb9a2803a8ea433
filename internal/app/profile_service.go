/**
 * @description
 * Profile management logic for the api-service. A user owns at most one live
 * profile; creation conflicts when one already exists, and the owner-or-admin
 * rule applies to every read and mutation.
 */

package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vaultpay/payments-backend/internal/domain"
	"github.com/vaultpay/payments-backend/internal/store"
)

// ProfileService provides profile CRUD scoped by the ownership rule.
type ProfileService struct {
	repo store.Repository
	now  func() time.Time
}

// NewProfileService creates a new profile service instance.
func NewProfileService(repo store.Repository) *ProfileService {
	return &ProfileService{repo: repo, now: time.Now}
}

// CreateProfile creates the caller's profile. A second live profile for the
// same user is a conflict; the partial unique index is the authoritative
// guard against the concurrent case.
func (s *ProfileService) CreateProfile(ctx context.Context, caller domain.UserContext, req domain.CreateProfileRequest) (*domain.Profile, error) {
	if _, err := s.repo.FindProfileByUserID(ctx, caller.UserID); err == nil {
		return nil, store.ErrProfileExists
	} else if !errors.Is(err, store.ErrProfileNotFound) {
		return nil, err
	}

	profile := &domain.Profile{
		ID:        uuid.New(),
		UserID:    caller.UserID,
		Name:      req.Name,
		LastName:  req.LastName,
		CI:        req.CI,
		Phone:     req.Phone,
		Address:   req.Address,
		Age:       req.Age,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// GetProfile returns the profile of the given user, visible to its owner or
// an admin.
func (s *ProfileService) GetProfile(ctx context.Context, caller domain.UserContext, userID uuid.UUID) (*domain.Profile, error) {
	if !caller.CanAccess(userID) {
		return nil, ErrAccessDenied
	}
	return s.repo.FindProfileByUserID(ctx, userID)
}

// ListProfiles is admin only.
func (s *ProfileService) ListProfiles(ctx context.Context, caller domain.UserContext) ([]domain.Profile, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, ErrAccessDenied
	}
	return s.repo.ListProfiles(ctx)
}

// UpdateProfile mutates the set fields of a user's profile.
func (s *ProfileService) UpdateProfile(ctx context.Context, caller domain.UserContext, userID uuid.UUID, req domain.UpdateProfileRequest) (*domain.Profile, error) {
	if !caller.CanAccess(userID) {
		return nil, ErrAccessDenied
	}

	profile, err := s.repo.FindProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		profile.Name = req.Name
	}
	if req.LastName != nil {
		profile.LastName = req.LastName
	}
	if req.CI != nil {
		profile.CI = req.CI
	}
	if req.Phone != nil {
		profile.Phone = req.Phone
	}
	if req.Address != nil {
		profile.Address = req.Address
	}
	if req.Age != nil {
		profile.Age = req.Age
	}

	if err := s.repo.UpdateProfile(ctx, profile); err != nil {
		return nil, err
	}
	updatedAt := s.now().UTC()
	profile.UpdatedAt = &updatedAt
	return profile, nil
}

// DeleteProfile soft-deletes a user's profile; a repeated delete reports not
// found.
func (s *ProfileService) DeleteProfile(ctx context.Context, caller domain.UserContext, userID uuid.UUID) error {
	if !caller.CanAccess(userID) {
		return ErrAccessDenied
	}
	return s.repo.SoftDeleteProfile(ctx, userID)
}
