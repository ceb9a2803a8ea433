/**
 * @description
 * Application-level errors for the api-service. Handlers translate these into
 * HTTP statuses; nothing in this package retries on them.
 */

package app

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vaultpay/payments-backend/internal/domain"
)

var (
	ErrInvalidAmount      = errors.New("payment amount must be greater than zero")
	ErrAccessDenied       = errors.New("access denied")
	ErrForbiddenCardField = errors.New("last_four and masked_number cannot be updated directly")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidEmail       = errors.New("a valid email address is required")
)

// DuplicatePaymentError is returned when an idempotency key has already been
// used. It carries the existing payment's identity and status so the caller
// can retrieve the prior result instead of double-charging.
type DuplicatePaymentError struct {
	PaymentID uuid.UUID
	Status    domain.PaymentStatus
}

func (e *DuplicatePaymentError) Error() string {
	return fmt.Sprintf("payment with this idempotency key already exists: id=%s status=%s", e.PaymentID, e.Status)
}

// RateLimitedError is returned when a caller exceeds the payment creation
// rate limit. RetryAfterSeconds feeds the Retry-After response header.
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %ds", e.RetryAfterSeconds)
}
