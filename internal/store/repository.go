/**
 * @description
 * This file defines the repository interfaces for the api-service's data
 * access. The application layer depends only on these contracts, which keeps
 * the business logic testable with hand-written stubs and independent of the
 * PostgreSQL implementation.
 *
 * Soft deletion is enforced inside this boundary: every read and update
 * filters out soft-deleted rows by construction, so callers never re-check
 * deleted_at themselves.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: Entity identifiers.
 * - internal/domain: Domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vaultpay/payments-backend/internal/domain"
)

// UserRepository is the data access contract for user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	SoftDeleteUser(ctx context.Context, userID uuid.UUID) error
}

// ProfileRepository is the data access contract for user profiles. A user
// owns at most one live profile; the partial unique index on live rows is
// the authoritative guard.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile *domain.Profile) error
	FindProfileByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
	UpdateProfile(ctx context.Context, profile *domain.Profile) error
	SoftDeleteProfile(ctx context.Context, userID uuid.UUID) error
}

// CardRepository is the data access contract for stored cards. All reads
// filter soft-deleted rows.
type CardRepository interface {
	CreateCard(ctx context.Context, card *domain.Card) error
	FindCardByID(ctx context.Context, cardID uuid.UUID) (*domain.Card, error)
	ListCardsByOwner(ctx context.Context, userID uuid.UUID) ([]domain.Card, error)
	ListCards(ctx context.Context) ([]domain.Card, error)
	FindActiveCardByOwnerAndLastFour(ctx context.Context, userID uuid.UUID, lastFour string) (*domain.Card, error)
	UpdateCard(ctx context.Context, card *domain.Card) error
	SoftDeleteCard(ctx context.Context, cardID uuid.UUID) error
}

// PaymentRepository is the data access contract for payments. All reads
// filter soft-deleted rows; idempotency-key lookups consider live rows only.
type PaymentRepository interface {
	// CreatePayment inserts a new pending payment. A uniqueness violation on
	// the live idempotency key is reported as ErrDuplicateIdempotencyKey so
	// concurrent duplicate submissions collapse into the same conflict.
	CreatePayment(ctx context.Context, payment *domain.Payment) error
	FindPaymentByID(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error)
	FindPaymentByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error)
	ListPaymentsByOwner(ctx context.Context, userID uuid.UUID) ([]domain.Payment, error)
	ListPayments(ctx context.Context) ([]domain.Payment, error)
	// FinalizePayment applies a terminal outcome with an optimistic guard:
	// the update only takes effect while the row is still pending, so a
	// duplicate finalize can never overwrite a terminal status.
	FinalizePayment(ctx context.Context, paymentID uuid.UUID, final domain.PaymentFinalization) (*domain.Payment, error)
	SoftDeletePayment(ctx context.Context, paymentID uuid.UUID) error
	// ListPendingOlderThan is the query shape an external reconciliation
	// process uses to find payments stuck in pending past a threshold.
	ListPendingOlderThan(ctx context.Context, threshold time.Duration) ([]domain.Payment, error)
}

// Repository aggregates the full data access surface of the api-service.
type Repository interface {
	UserRepository
	ProfileRepository
	CardRepository
	PaymentRepository
}
