/**
 * @description
 * This file contains the payment orchestration logic for the api-service.
 * `PaymentService` coordinates input validation, card ownership, idempotency,
 * durable persistence of the pending record, the wire call to the
 * payment-processor, and finalization of the terminal status.
 *
 * Key properties:
 * - The pending row is persisted before the external call, so a crash
 *   mid-flight leaves a recoverable record rather than losing the attempt.
 * - A processor failure leaves the payment pending and propagates the typed
 *   error; reconciliation of stuck payments is an external process fed by
 *   the repository's pending-older-than query.
 * - Finalization goes through the repository's optimistic pending guard, so
 *   a duplicate finalize can never overwrite a terminal status.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid, github.com/shopspring/decimal.
 * - internal/domain, internal/store, pkg/processorclient, pkg/rabbitmq.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vaultpay/payments-backend/internal/domain"
	"github.com/vaultpay/payments-backend/internal/store"
	"github.com/vaultpay/payments-backend/pkg/processorclient"
	"github.com/vaultpay/payments-backend/pkg/rabbitmq"
)

// DefaultRejectionReason is recorded when the processor rejects without
// supplying a reason of its own.
const DefaultRejectionReason = "rejected by processor"

const defaultCurrency = "USD"

// ProcessorGateway is the slice of the processor client the orchestrator
// needs. Tests stub it the same way repository stubs work.
type ProcessorGateway interface {
	ProcessPayment(ctx context.Context, amount decimal.Decimal) (*processorclient.Decision, error)
}

// RateLimiter gates payment creation per user. A nil limiter disables the gate.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// PaymentService provides the payment pipeline and payment queries.
type PaymentService struct {
	repo      store.Repository
	processor ProcessorGateway
	events    rabbitmq.Publisher

	limiter     RateLimiter
	createLimit int

	now func() time.Time
}

// NewPaymentService creates a new payment service instance.
func NewPaymentService(repo store.Repository, processor ProcessorGateway, events rabbitmq.Publisher) *PaymentService {
	return &PaymentService{
		repo:      repo,
		processor: processor,
		events:    events,
		now:       time.Now,
	}
}

// SetRateLimiter enables per-user rate limiting on payment creation.
func (s *PaymentService) SetRateLimiter(limiter RateLimiter, perMinute int) {
	s.limiter = limiter
	s.createLimit = perMinute
}

// CreatePayment runs the full pipeline for one payment attempt.
func (s *PaymentService) CreatePayment(ctx context.Context, caller domain.UserContext, req domain.CreatePaymentRequest) (*domain.Payment, error) {
	// 1. Validate the amount before anything touches storage.
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	if s.limiter != nil && s.createLimit > 0 {
		count, retryAfter, err := s.limiter.ConsumeRateLimit(ctx, "payments:create", caller.UserID.String(), s.createLimit, time.Minute)
		if err != nil {
			log.Printf("level=warn component=payments msg=\"rate limiter unavailable; allowing request\" err=%v", err)
		} else if count > s.createLimit {
			return nil, &RateLimitedError{RetryAfterSeconds: retryAfter}
		}
	}

	// 2. Load the card; soft-deleted cards are invisible here.
	card, err := s.repo.FindCardByID(ctx, req.CardID)
	if err != nil {
		return nil, err
	}

	// 3. The card's owner or an administrator may charge it; nobody else.
	if !caller.CanAccess(card.UserID) {
		return nil, ErrAccessDenied
	}

	// 4. Idempotency lookup. A hit is a conflict carrying the prior payment,
	// never a silent replay.
	if req.IdempotencyKey != nil && *req.IdempotencyKey != "" {
		existing, err := s.repo.FindPaymentByIdempotencyKey(ctx, *req.IdempotencyKey)
		switch {
		case err == nil:
			return nil, &DuplicatePaymentError{PaymentID: existing.ID, Status: existing.Status}
		case errors.Is(err, store.ErrPaymentNotFound):
			// free to proceed
		default:
			return nil, fmt.Errorf("idempotency lookup failed: %w", err)
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	// 5. Persist the pending record before the network call.
	payment := &domain.Payment{
		ID:             uuid.New(),
		UserID:         card.UserID,
		CardID:         card.ID,
		Amount:         req.Amount,
		Currency:       currency,
		Status:         domain.PaymentPending,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, store.ErrDuplicateIdempotencyKey) {
			// Lost the check-then-insert race; the unique index is the
			// authoritative guard, so resolve to the same conflict.
			if req.IdempotencyKey != nil {
				if existing, lookupErr := s.repo.FindPaymentByIdempotencyKey(ctx, *req.IdempotencyKey); lookupErr == nil {
					return nil, &DuplicatePaymentError{PaymentID: existing.ID, Status: existing.Status}
				}
			}
			return nil, &DuplicatePaymentError{}
		}
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}
	s.publishEvent(ctx, "payment.created", payment)

	// 6. One bounded-timeout call to the processor; a failure here leaves the
	// payment pending for reconciliation and surfaces the typed error.
	decision, err := s.processor.ProcessPayment(ctx, payment.Amount)
	if err != nil {
		log.Printf("level=warn component=payments msg=\"processor call failed; payment left pending\" payment_id=%s err=%v", payment.ID, err)
		return nil, err
	}

	// 7. Map the decision onto the terminal state.
	final := domain.PaymentFinalization{}
	processedAt := s.now().UTC()
	if decision.ProcessedAt != nil {
		processedAt = *decision.ProcessedAt
	}
	if decision.Status == "approved" {
		final.Status = domain.PaymentApproved
		final.ProcessorReference = decision.Reference
		final.ProcessedAt = &processedAt
	} else {
		final.Status = domain.PaymentRejected
		reason := DefaultRejectionReason
		if decision.Reason != nil && *decision.Reason != "" {
			reason = *decision.Reason
		}
		final.StatusReason = &reason
	}

	// 8. Finalize under the optimistic pending guard and return the stored view.
	finalized, err := s.repo.FinalizePayment(ctx, payment.ID, final)
	if err != nil {
		if errors.Is(err, store.ErrPaymentAlreadyFinal) {
			// Someone already finalized this payment; the terminal row wins.
			return s.repo.FindPaymentByID(ctx, payment.ID)
		}
		return nil, fmt.Errorf("failed to finalize payment %s: %w", payment.ID, err)
	}
	s.publishEvent(ctx, "payment.finalized", finalized)

	return finalized, nil
}

// GetPayment returns a payment visible to the caller.
func (s *PaymentService) GetPayment(ctx context.Context, caller domain.UserContext, paymentID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.repo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(payment.UserID) {
		return nil, ErrAccessDenied
	}
	return payment, nil
}

// ListPayments returns the payments the caller may see. Non-admins are always
// scoped to their own payments, regardless of any requested filter; admins
// may filter by any user id or list everything.
func (s *PaymentService) ListPayments(ctx context.Context, caller domain.UserContext, filterUserID *uuid.UUID) ([]domain.Payment, error) {
	if caller.Role != domain.RoleAdmin {
		return s.repo.ListPaymentsByOwner(ctx, caller.UserID)
	}
	if filterUserID != nil {
		return s.repo.ListPaymentsByOwner(ctx, *filterUserID)
	}
	return s.repo.ListPayments(ctx)
}

// DeletePayment soft-deletes a payment. Deleting an already-deleted id
// reports not found, never a second successful delete.
func (s *PaymentService) DeletePayment(ctx context.Context, caller domain.UserContext, paymentID uuid.UUID) error {
	payment, err := s.repo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if !caller.CanAccess(payment.UserID) {
		return ErrAccessDenied
	}
	return s.repo.SoftDeletePayment(ctx, paymentID)
}

// ListPendingOlderThan exposes the reconciliation query shape: payments stuck
// in pending past the threshold. Admin only.
func (s *PaymentService) ListPendingOlderThan(ctx context.Context, caller domain.UserContext, threshold time.Duration) ([]domain.Payment, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, ErrAccessDenied
	}
	return s.repo.ListPendingOlderThan(ctx, threshold)
}

func (s *PaymentService) publishEvent(ctx context.Context, routingKey string, payment *domain.Payment) {
	if s.events == nil {
		return
	}
	event := domain.PaymentEvent{
		PaymentID: payment.ID,
		UserID:    payment.UserID,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		Status:    payment.Status,
		Timestamp: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, rabbitmq.Exchange, routingKey, event); err != nil {
		log.Printf("level=warn component=payments msg=\"event publish failed\" routing_key=%s payment_id=%s err=%v", routingKey, payment.ID, err)
	}
}
