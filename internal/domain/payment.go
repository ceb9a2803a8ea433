/**
 * @description
 * Payment domain model for the api-service. A payment starts out `pending`,
 * is finalized exactly once to `approved` or `rejected`, and never leaves a
 * terminal state afterwards.
 *
 * @notes
 * - Amounts use shopspring/decimal to avoid floating-point drift on money.
 * - Pointer fields are nullable columns; status_reason is set only on
 *   rejection and processor_reference only on approval.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the payment state machine: pending is initial, the other
// two are terminal.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

// Terminal reports whether a payment in this status can never transition again.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentApproved || s == PaymentRejected
}

// Payment maps directly to the `payments` table.
type Payment struct {
	ID                 uuid.UUID       `json:"id"`
	UserID             uuid.UUID       `json:"user_id"`
	CardID             uuid.UUID       `json:"card_id"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Status             PaymentStatus   `json:"status"`
	StatusReason       *string         `json:"status_reason,omitempty"`
	ProcessorReference *string         `json:"processor_reference,omitempty"`
	IdempotencyKey     *string         `json:"idempotency_key,omitempty"`
	ProcessedAt        *time.Time      `json:"processed_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          *time.Time      `json:"updated_at,omitempty"`
	DeletedAt          *time.Time      `json:"-"`
}

// CreatePaymentRequest is the DTO for initiating a payment against a stored card.
type CreatePaymentRequest struct {
	CardID         uuid.UUID       `json:"card_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	IdempotencyKey *string         `json:"idempotency_key,omitempty"`
}

// PaymentFinalization carries the terminal outcome applied to a pending payment.
type PaymentFinalization struct {
	Status             PaymentStatus
	StatusReason       *string
	ProcessorReference *string
	ProcessedAt        *time.Time
}

// PaymentEvent is the message payload published to RabbitMQ when a payment is
// created or finalized.
type PaymentEvent struct {
	PaymentID uuid.UUID       `json:"payment_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    PaymentStatus   `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
}
