/**
 * @description
 * Decision logic for the payment-processor. The engine models an upstream
 * card network: non-positive amounts are rejected outright, everything else
 * is approved at a configured rate, and approvals carry a processor
 * reference derived from the decision time.
 */

package app

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// Rejection reasons returned to the api-service.
const (
	ReasonInvalidAmount     = "invalid_amount"
	ReasonInsufficientFunds = "insufficient_funds"
)

// Decision is the outcome of evaluating a single payment request.
type Decision struct {
	Status      string     `json:"status"`
	Reference   *string    `json:"reference,omitempty"`
	Reason      *string    `json:"reason,omitempty"`
	ProcessedAt *time.Time `json:"processed_at"`
}

// DecisionEngine evaluates payment amounts. The random source and clock are
// injectable so tests can pin the outcome.
type DecisionEngine struct {
	approvalRate float64
	randFloat    func() float64
	now          func() time.Time
}

// NewDecisionEngine creates an engine approving at the given rate in [0, 1].
func NewDecisionEngine(approvalRate float64) *DecisionEngine {
	return &DecisionEngine{
		approvalRate: approvalRate,
		randFloat:    rand.Float64,
		now:          time.Now,
	}
}

// Evaluate decides a single payment. It never returns an error: every
// well-formed request maps onto an approved or rejected decision.
func (e *DecisionEngine) Evaluate(amount decimal.Decimal) Decision {
	processedAt := e.now().UTC()

	if !amount.IsPositive() {
		reason := ReasonInvalidAmount
		return Decision{Status: "rejected", Reason: &reason, ProcessedAt: &processedAt}
	}

	if e.randFloat() < e.approvalRate {
		reference := fmt.Sprintf("REF-%d", processedAt.Unix())
		return Decision{Status: "approved", Reference: &reference, ProcessedAt: &processedAt}
	}

	reason := ReasonInsufficientFunds
	return Decision{Status: "rejected", Reason: &reason, ProcessedAt: &processedAt}
}
