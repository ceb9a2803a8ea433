package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/vaultpay/payments-backend/internal/domain"
	"github.com/vaultpay/payments-backend/internal/store"
)

type profileRepoStub struct {
	store.Repository

	profile *domain.Profile
	created *domain.Profile
	updated *domain.Profile

	createErr     error
	softDeleteErr error
	listedAll     bool
}

func (s *profileRepoStub) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = profile
	return nil
}

func (s *profileRepoStub) FindProfileByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	if s.profile == nil || s.profile.UserID != userID {
		return nil, store.ErrProfileNotFound
	}
	return s.profile, nil
}

func (s *profileRepoStub) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	s.listedAll = true
	return nil, nil
}

func (s *profileRepoStub) UpdateProfile(ctx context.Context, profile *domain.Profile) error {
	s.updated = profile
	return nil
}

func (s *profileRepoStub) SoftDeleteProfile(ctx context.Context, userID uuid.UUID) error {
	return s.softDeleteErr
}

func TestCreateProfile_BelongsToCaller(t *testing.T) {
	repo := &profileRepoStub{}
	svc := NewProfileService(repo)
	caller := domain.UserContext{UserID: uuid.New(), Role: domain.RoleUser}
	name := "Ada"

	profile, err := svc.CreateProfile(context.Background(), caller, domain.CreateProfileRequest{Name: &name})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.UserID != caller.UserID {
		t.Fatalf("profile must belong to the caller, got %s", profile.UserID)
	}
	if repo.created == nil {
		t.Fatal("profile was not persisted")
	}
	if profile.Name == nil || *profile.Name != "Ada" {
		t.Fatalf("name not stored, got %v", profile.Name)
	}
}

func TestCreateProfile_SecondLiveProfileConflicts(t *testing.T) {
	callerID := uuid.New()
	repo := &profileRepoStub{profile: &domain.Profile{ID: uuid.New(), UserID: callerID}}
	svc := NewProfileService(repo)

	_, err := svc.CreateProfile(context.Background(), domain.UserContext{UserID: callerID, Role: domain.RoleUser}, domain.CreateProfileRequest{})
	if !errors.Is(err, store.ErrProfileExists) {
		t.Fatalf("expected ErrProfileExists, got %v", err)
	}
	if repo.created != nil {
		t.Fatal("no second profile may be created")
	}
}

func TestCreateProfile_InsertRaceResolvesToSameConflict(t *testing.T) {
	repo := &profileRepoStub{createErr: store.ErrProfileExists}
	svc := NewProfileService(repo)

	_, err := svc.CreateProfile(context.Background(), domain.UserContext{UserID: uuid.New(), Role: domain.RoleUser}, domain.CreateProfileRequest{})
	if !errors.Is(err, store.ErrProfileExists) {
		t.Fatalf("a unique violation at insert time must surface as the same conflict, got %v", err)
	}
}

func TestGetProfile_OwnerOrAdminOnly(t *testing.T) {
	ownerID := uuid.New()
	repo := &profileRepoStub{profile: &domain.Profile{ID: uuid.New(), UserID: ownerID}}
	svc := NewProfileService(repo)

	if _, err := svc.GetProfile(context.Background(), domain.UserContext{UserID: uuid.New(), Role: domain.RoleUser}, ownerID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if _, err := svc.GetProfile(context.Background(), domain.UserContext{UserID: ownerID, Role: domain.RoleUser}, ownerID); err != nil {
		t.Fatalf("owner lookup must succeed, got %v", err)
	}
	if _, err := svc.GetProfile(context.Background(), domain.UserContext{UserID: uuid.New(), Role: domain.RoleAdmin}, ownerID); err != nil {
		t.Fatalf("admin lookup must succeed, got %v", err)
	}
}

func TestGetProfile_MissingIsNotFound(t *testing.T) {
	ownerID := uuid.New()
	svc := NewProfileService(&profileRepoStub{})

	_, err := svc.GetProfile(context.Background(), domain.UserContext{UserID: ownerID, Role: domain.RoleUser}, ownerID)
	if !errors.Is(err, store.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestListProfiles_AdminOnly(t *testing.T) {
	repo := &profileRepoStub{}
	svc := NewProfileService(repo)

	if _, err := svc.ListProfiles(context.Background(), domain.UserContext{UserID: uuid.New(), Role: domain.RoleUser}); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if _, err := svc.ListProfiles(context.Background(), domain.UserContext{UserID: uuid.New(), Role: domain.RoleAdmin}); err != nil {
		t.Fatalf("admin listing must succeed, got %v", err)
	}
	if !repo.listedAll {
		t.Fatal("admin listing must reach the repository")
	}
}

func TestUpdateProfile_OnlySetFieldsChange(t *testing.T) {
	ownerID := uuid.New()
	name, lastName := "Ada", "Lovelace"
	repo := &profileRepoStub{profile: &domain.Profile{ID: uuid.New(), UserID: ownerID, Name: &name, LastName: &lastName}}
	svc := NewProfileService(repo)
	newPhone := "555-0100"

	profile, err := svc.UpdateProfile(context.Background(), domain.UserContext{UserID: ownerID, Role: domain.RoleUser}, ownerID, domain.UpdateProfileRequest{Phone: &newPhone})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Phone == nil || *profile.Phone != "555-0100" {
		t.Fatalf("phone not updated, got %v", profile.Phone)
	}
	if profile.Name == nil || *profile.Name != "Ada" {
		t.Fatalf("unset fields must be untouched, got %v", profile.Name)
	}
	if profile.UpdatedAt == nil {
		t.Fatal("expected updated_at to be set")
	}
}

func TestDeleteProfile_RepeatedDeleteIsNotFound(t *testing.T) {
	ownerID := uuid.New()
	repo := &profileRepoStub{softDeleteErr: store.ErrProfileNotFound}
	svc := NewProfileService(repo)

	err := svc.DeleteProfile(context.Background(), domain.UserContext{UserID: ownerID, Role: domain.RoleUser}, ownerID)
	if !errors.Is(err, store.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}
