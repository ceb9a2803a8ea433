/**
 * @description
 * This package provides the wire client the api-service uses to ask the
 * payment-processor for an approve/reject decision. Every call mints a fresh
 * service token, performs exactly one bounded-timeout HTTP request, and maps
 * transport and protocol failures to typed errors. Retry policy, if any,
 * belongs to the caller.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, io, net/http, time: Standard Go libraries.
 * - github.com/shopspring/decimal: Decimal payment amounts.
 * - pkg/servicetoken: Fresh token per call for the internal trust domain.
 */

package processorclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vaultpay/payments-backend/pkg/servicetoken"
)

// CallTimeout bounds each outbound call. There is exactly one attempt per call.
const CallTimeout = 10 * time.Second

var (
	// ErrUnavailable means the processor could not be reached at all
	// (connection failure or timeout). The underlying cause is wrapped.
	ErrUnavailable = errors.New("payment processor unreachable")
	// ErrGateway means the processor answered with a non-success status.
	// The upstream body is included in the wrapped error.
	ErrGateway = errors.New("payment processor error")
	// ErrInvalidResponse means the processor answered 2xx but the body was
	// missing the required status field or was not decodable.
	ErrInvalidResponse = errors.New("invalid response from payment processor")
)

// Decision is the structured approve/reject outcome returned by the processor.
type Decision struct {
	Status      string     `json:"status"`
	Reference   *string    `json:"reference"`
	Reason      *string    `json:"reason"`
	ProcessedAt *time.Time `json:"processed_at"`
}

type processRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Client is a client for the payment-processor service.
type Client struct {
	baseURL     string
	serviceName string
	tokens      *servicetoken.Issuer
	httpClient  *http.Client
}

// NewClient creates a new processor client. serviceName identifies this
// caller inside the minted service tokens.
func NewClient(baseURL, serviceName string, tokens *servicetoken.Issuer) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		serviceName: serviceName,
		tokens:      tokens,
		httpClient:  &http.Client{Timeout: CallTimeout},
	}
}

// ProcessPayment submits the amount for a decision. Tokens are not cached or
// reused: a fresh one is minted for this single call.
func (c *Client) ProcessPayment(ctx context.Context, amount decimal.Decimal) (*Decision, error) {
	body, err := json.Marshal(processRequest{Amount: amount})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal process-payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process-payment", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create process-payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	token, err := c.tokens.Mint(c.serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to mint service token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrGateway, resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var decision Decision
	if err := json.Unmarshal(bodyBytes, &decision); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if decision.Status == "" {
		return nil, fmt.Errorf("%w: missing status field", ErrInvalidResponse)
	}

	return &decision, nil
}
