/**
 * @description
 * Card domain model for the api-service. A card row never holds the raw card
 * number: only the last four digits and the masked display form are persisted.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// CardBrand is the card network detected from the number prefix.
type CardBrand string

const (
	BrandVisa       CardBrand = "visa"
	BrandMastercard CardBrand = "mastercard"
	BrandAmex       CardBrand = "amex"
	BrandDiscover   CardBrand = "discover"
)

// Card maps directly to the `cards` table.
type Card struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	CardHolderName  string     `json:"card_holder_name"`
	Brand           CardBrand  `json:"brand"`
	LastFour        string     `json:"last_four"`
	MaskedNumber    string     `json:"masked_number"`
	ExpirationMonth int        `json:"expiration_month"`
	ExpirationYear  int        `json:"expiration_year"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
	DeletedAt       *time.Time `json:"-"`
}

// CreateCardRequest is the DTO for registering a card. CardNumber is consumed
// during validation and masking and is never stored or logged. UserID may
// only differ from the caller when the caller is an administrator.
type CreateCardRequest struct {
	UserID          *uuid.UUID `json:"user_id,omitempty"`
	CardHolderName  string     `json:"card_holder_name"`
	CardNumber      string     `json:"card_number"`
	ExpirationMonth int        `json:"expiration_month"`
	ExpirationYear  int        `json:"expiration_year"`
}

// UpdateCardRequest is the DTO for mutating a card. Only the holder name and
// expiration are mutable; the number-derived fields are fixed at creation.
type UpdateCardRequest struct {
	CardHolderName  *string `json:"card_holder_name,omitempty"`
	ExpirationMonth *int    `json:"expiration_month,omitempty"`
	ExpirationYear  *int    `json:"expiration_year,omitempty"`
	LastFour        *string `json:"last_four,omitempty"`
	MaskedNumber    *string `json:"masked_number,omitempty"`
}
