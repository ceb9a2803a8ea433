/**
 * @description
 * This file contains the HTTP handlers for the payment-processor's API
 * endpoints. The single processing endpoint parses the amount, runs the
 * decision engine, and writes the structured decision back.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/shopspring/decimal: Exact amount parsing.
 * - internal/processor/app: The decision engine.
 */

package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/vaultpay/payments-backend/internal/processor/app"
)

// ProcessorHandlers holds the decision engine that handlers will use.
type ProcessorHandlers struct {
	engine *app.DecisionEngine
}

// NewProcessorHandlers creates a new instance of ProcessorHandlers.
func NewProcessorHandlers(engine *app.DecisionEngine) *ProcessorHandlers {
	return &ProcessorHandlers{engine: engine}
}

type processRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// writeJSON is a helper for writing JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// ProcessPaymentHandler evaluates a single payment request.
func (h *ProcessorHandlers) ProcessPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	decision := h.engine.Evaluate(req.Amount)

	caller, _ := GetServiceName(r.Context())
	log.Printf("level=info component=processor msg=\"payment evaluated\" caller=%s amount=%s status=%s", caller, req.Amount, decision.Status)

	writeJSON(w, http.StatusOK, decision)
}
