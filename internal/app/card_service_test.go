package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vaultpay/payments-backend/internal/cardnumber"
	"github.com/vaultpay/payments-backend/internal/domain"
	"github.com/vaultpay/payments-backend/internal/store"
)

type cardRepoStub struct {
	store.Repository

	card      *domain.Card
	duplicate *domain.Card
	created   *domain.Card
	updated   *domain.Card

	softDeleteErr error
	ownerListed   *uuid.UUID
	listedAll     bool
}

func (s *cardRepoStub) FindCardByID(ctx context.Context, cardID uuid.UUID) (*domain.Card, error) {
	if s.card == nil {
		return nil, store.ErrCardNotFound
	}
	return s.card, nil
}

func (s *cardRepoStub) FindActiveCardByOwnerAndLastFour(ctx context.Context, userID uuid.UUID, lastFour string) (*domain.Card, error) {
	if s.duplicate == nil {
		return nil, store.ErrCardNotFound
	}
	return s.duplicate, nil
}

func (s *cardRepoStub) CreateCard(ctx context.Context, card *domain.Card) error {
	s.created = card
	return nil
}

func (s *cardRepoStub) UpdateCard(ctx context.Context, card *domain.Card) error {
	s.updated = card
	return nil
}

func (s *cardRepoStub) SoftDeleteCard(ctx context.Context, cardID uuid.UUID) error {
	return s.softDeleteErr
}

func (s *cardRepoStub) ListCardsByOwner(ctx context.Context, userID uuid.UUID) ([]domain.Card, error) {
	s.ownerListed = &userID
	return nil, nil
}

func (s *cardRepoStub) ListCards(ctx context.Context) ([]domain.Card, error) {
	s.listedAll = true
	return nil, nil
}

func validCardRequest() domain.CreateCardRequest {
	year, month := futureExpiry()
	return domain.CreateCardRequest{
		CardHolderName:  "Ada Lovelace",
		CardNumber:      "4539 5787 6362 1486",
		ExpirationMonth: month,
		ExpirationYear:  year,
	}
}

func futureExpiry() (int, int) {
	t := time.Now().AddDate(2, 0, 0)
	return t.Year(), int(t.Month())
}

func TestCreateCard_StoresOnlyMaskedForm(t *testing.T) {
	repo := &cardRepoStub{}
	svc := NewCardService(repo)
	caller := domain.UserContext{UserID: uuid.New(), Role: domain.RoleUser}

	card, err := svc.CreateCard(context.Background(), caller, validCardRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card.Brand != domain.BrandVisa {
		t.Fatalf("expected visa, got %s", card.Brand)
	}
	if card.LastFour != "1486" {
		t.Fatalf("expected last four 1486, got %s", card.LastFour)
	}
	if card.MaskedNumber != "**** **** **** 1486" {
		t.Fatalf("unexpected masked number %q", card.MaskedNumber)
	}
	if repo.created == nil {
		t.Fatal("card was not persisted")
	}
	if repo.created.UserID != caller.UserID {
		t.Fatalf("card owner must default to the caller, got %s", repo.created.UserID)
	}
}

func TestCreateCard_RejectsBadNumbers(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.CreateCardRequest)
		want   error
	}{
		{
			name:   "checksum failure",
			mutate: func(r *domain.CreateCardRequest) { r.CardNumber = "4539578763621487" },
			want:   cardnumber.ErrChecksumFailed,
		},
		{
			name:   "unsupported brand",
			mutate: func(r *domain.CreateCardRequest) { r.CardNumber = "6011000990139424" },
			want:   cardnumber.ErrUnsupportedBrand,
		},
		{
			name:   "malformed number",
			mutate: func(r *domain.CreateCardRequest) { r.CardNumber = "4539-5787-6362-1486" },
			want:   cardnumber.ErrMalformedNumber,
		},
		{
			name: "expired card",
			mutate: func(r *domain.CreateCardRequest) {
				r.ExpirationYear = time.Now().Year() - 1
				r.ExpirationMonth = 1
			},
			want: cardnumber.ErrExpired,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &cardRepoStub{}
			svc := NewCardService(repo)
			req := validCardRequest()
			tc.mutate(&req)

			_, err := svc.CreateCard(context.Background(), domain.UserContext{UserID: uuid.New(), Role: domain.RoleUser}, req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if repo.created != nil {
				t.Fatal("invalid card must not be persisted")
			}
		})
	}
}

func TestCreateCard_DuplicateActiveCardConflicts(t *testing.T) {
	repo := &cardRepoStub{duplicate: &domain.Card{LastFour: "1486"}}
	svc := NewCardService(repo)

	_, err := svc.CreateCard(context.Background(), domain.UserContext{UserID: uuid.New(), Role: domain.RoleUser}, validCardRequest())
	if !errors.Is(err, store.ErrDuplicateCard) {
		t.Fatalf("expected ErrDuplicateCard, got %v", err)
	}
}

func TestCreateCard_NonAdminMayNotSetAnotherOwner(t *testing.T) {
	repo := &cardRepoStub{}
	svc := NewCardService(repo)
	otherID := uuid.New()
	req := validCardRequest()
	req.UserID = &otherID

	_, err := svc.CreateCard(context.Background(), domain.UserContext{UserID: uuid.New(), Role: domain.RoleUser}, req)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestCreateCard_AdminMaySetAnotherOwner(t *testing.T) {
	repo := &cardRepoStub{}
	svc := NewCardService(repo)
	ownerID := uuid.New()
	req := validCardRequest()
	req.UserID = &ownerID

	card, err := svc.CreateCard(context.Background(), domain.UserContext{UserID: uuid.New(), Role: domain.RoleAdmin}, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card.UserID != ownerID {
		t.Fatalf("expected owner %s, got %s", ownerID, card.UserID)
	}
}

func TestUpdateCard_NumberDerivedFieldsAreImmutable(t *testing.T) {
	ownerID := uuid.New()
	repo := &cardRepoStub{card: &domain.Card{ID: uuid.New(), UserID: ownerID}}
	svc := NewCardService(repo)
	lastFour := "9999"

	_, err := svc.UpdateCard(context.Background(), domain.UserContext{UserID: ownerID, Role: domain.RoleUser}, repo.card.ID, domain.UpdateCardRequest{LastFour: &lastFour})
	if !errors.Is(err, ErrForbiddenCardField) {
		t.Fatalf("expected ErrForbiddenCardField, got %v", err)
	}
	if repo.updated != nil {
		t.Fatal("forbidden update must not be persisted")
	}
}

func TestUpdateCard_RevalidatesExpiration(t *testing.T) {
	ownerID := uuid.New()
	year, month := futureExpiry()
	repo := &cardRepoStub{card: &domain.Card{ID: uuid.New(), UserID: ownerID, ExpirationMonth: month, ExpirationYear: year}}
	svc := NewCardService(repo)
	pastYear := time.Now().Year() - 1

	_, err := svc.UpdateCard(context.Background(), domain.UserContext{UserID: ownerID, Role: domain.RoleUser}, repo.card.ID, domain.UpdateCardRequest{ExpirationYear: &pastYear})
	if !errors.Is(err, cardnumber.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestUpdateCard_HolderNameOnly(t *testing.T) {
	ownerID := uuid.New()
	year, month := futureExpiry()
	repo := &cardRepoStub{card: &domain.Card{ID: uuid.New(), UserID: ownerID, CardHolderName: "Old Name", ExpirationMonth: month, ExpirationYear: year}}
	svc := NewCardService(repo)
	name := "New Name"

	card, err := svc.UpdateCard(context.Background(), domain.UserContext{UserID: ownerID, Role: domain.RoleUser}, repo.card.ID, domain.UpdateCardRequest{CardHolderName: &name})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card.CardHolderName != "New Name" {
		t.Fatalf("holder name not updated: %q", card.CardHolderName)
	}
	if card.UpdatedAt == nil {
		t.Fatal("expected updated_at to be set")
	}
}

func TestDeleteCard_RepeatedDeleteIsNotFound(t *testing.T) {
	ownerID := uuid.New()
	repo := &cardRepoStub{
		card:          &domain.Card{ID: uuid.New(), UserID: ownerID},
		softDeleteErr: store.ErrCardNotFound,
	}
	svc := NewCardService(repo)

	err := svc.DeleteCard(context.Background(), domain.UserContext{UserID: ownerID, Role: domain.RoleUser}, repo.card.ID)
	if !errors.Is(err, store.ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}

func TestListCards_NonAdminScopedToSelf(t *testing.T) {
	callerID := uuid.New()
	otherID := uuid.New()
	repo := &cardRepoStub{}
	svc := NewCardService(repo)

	if _, err := svc.ListCards(context.Background(), domain.UserContext{UserID: callerID, Role: domain.RoleUser}, &otherID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.ownerListed == nil || *repo.ownerListed != callerID {
		t.Fatalf("non-admin listing must be scoped to the caller, got %v", repo.ownerListed)
	}
}
