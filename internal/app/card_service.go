/**
 * @description
 * Card management logic for the api-service. Creation runs the full number
 * validation chain (normalize, Luhn, brand detection, expiration) and stores
 * only the masked form; the raw number never reaches the repository.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vaultpay/payments-backend/internal/cardnumber"
	"github.com/vaultpay/payments-backend/internal/domain"
	"github.com/vaultpay/payments-backend/internal/store"
)

// CardService provides card CRUD with the owner-or-admin rule applied to
// every operation.
type CardService struct {
	repo store.Repository
	now  func() time.Time
}

// NewCardService creates a new card service instance.
func NewCardService(repo store.Repository) *CardService {
	return &CardService{repo: repo, now: time.Now}
}

// CreateCard validates and registers a new card. The brand is always derived
// from the number; duplicate active cards for the same owner and last four
// are a conflict.
func (s *CardService) CreateCard(ctx context.Context, caller domain.UserContext, req domain.CreateCardRequest) (*domain.Card, error) {
	ownerID := caller.UserID
	if req.UserID != nil && *req.UserID != caller.UserID {
		if caller.Role != domain.RoleAdmin {
			return nil, ErrAccessDenied
		}
		ownerID = *req.UserID
	}

	digits, err := cardnumber.Normalize(req.CardNumber)
	if err != nil {
		return nil, err
	}
	if err := cardnumber.ValidateLuhn(digits); err != nil {
		return nil, err
	}
	brand, err := cardnumber.DetectBrand(digits)
	if err != nil {
		return nil, err
	}
	if err := cardnumber.ValidateExpiration(req.ExpirationMonth, req.ExpirationYear, s.now()); err != nil {
		return nil, err
	}
	lastFour, masked := cardnumber.Mask(digits)

	if _, err := s.repo.FindActiveCardByOwnerAndLastFour(ctx, ownerID, lastFour); err == nil {
		return nil, store.ErrDuplicateCard
	} else if !errors.Is(err, store.ErrCardNotFound) {
		return nil, fmt.Errorf("duplicate card lookup failed: %w", err)
	}

	card := &domain.Card{
		ID:              uuid.New(),
		UserID:          ownerID,
		CardHolderName:  req.CardHolderName,
		Brand:           brand,
		LastFour:        lastFour,
		MaskedNumber:    masked,
		ExpirationMonth: req.ExpirationMonth,
		ExpirationYear:  req.ExpirationYear,
		IsActive:        true,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.repo.CreateCard(ctx, card); err != nil {
		// The partial unique index is the authoritative duplicate guard.
		return nil, err
	}
	return card, nil
}

// GetCard returns a card visible to the caller.
func (s *CardService) GetCard(ctx context.Context, caller domain.UserContext, cardID uuid.UUID) (*domain.Card, error) {
	card, err := s.repo.FindCardByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(card.UserID) {
		return nil, ErrAccessDenied
	}
	return card, nil
}

// ListCards scopes non-admins to their own cards; admins may filter by owner
// or list everything.
func (s *CardService) ListCards(ctx context.Context, caller domain.UserContext, filterUserID *uuid.UUID) ([]domain.Card, error) {
	if caller.Role != domain.RoleAdmin {
		return s.repo.ListCardsByOwner(ctx, caller.UserID)
	}
	if filterUserID != nil {
		return s.repo.ListCardsByOwner(ctx, *filterUserID)
	}
	return s.repo.ListCards(ctx)
}

// UpdateCard mutates holder name and expiration. The number-derived fields
// are fixed at creation; attempting to touch them is a validation error.
// Expiration is re-validated whenever either of its fields changes.
func (s *CardService) UpdateCard(ctx context.Context, caller domain.UserContext, cardID uuid.UUID, req domain.UpdateCardRequest) (*domain.Card, error) {
	if req.LastFour != nil || req.MaskedNumber != nil {
		return nil, ErrForbiddenCardField
	}

	card, err := s.repo.FindCardByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(card.UserID) {
		return nil, ErrAccessDenied
	}

	if req.CardHolderName != nil {
		card.CardHolderName = *req.CardHolderName
	}
	if req.ExpirationMonth != nil || req.ExpirationYear != nil {
		if req.ExpirationMonth != nil {
			card.ExpirationMonth = *req.ExpirationMonth
		}
		if req.ExpirationYear != nil {
			card.ExpirationYear = *req.ExpirationYear
		}
		if err := cardnumber.ValidateExpiration(card.ExpirationMonth, card.ExpirationYear, s.now()); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateCard(ctx, card); err != nil {
		return nil, err
	}
	updatedAt := s.now().UTC()
	card.UpdatedAt = &updatedAt
	return card, nil
}

// DeleteCard soft-deletes a card; a repeated delete reports not found.
func (s *CardService) DeleteCard(ctx context.Context, caller domain.UserContext, cardID uuid.UUID) error {
	card, err := s.repo.FindCardByID(ctx, cardID)
	if err != nil {
		return err
	}
	if !caller.CanAccess(card.UserID) {
		return ErrAccessDenied
	}
	return s.repo.SoftDeleteCard(ctx, cardID)
}
