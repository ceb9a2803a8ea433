/**
 * @description
 * This file contains the HTTP handlers for the api-service's endpoints.
 * Handlers parse incoming requests, call the appropriate application service
 * method, and translate service-level errors into the HTTP status table. They
 * are the bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain, internal/store: Service logic, models, and
 *   custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vaultpay/payments-backend/internal/app"
	"github.com/vaultpay/payments-backend/internal/cardnumber"
	"github.com/vaultpay/payments-backend/internal/domain"
	"github.com/vaultpay/payments-backend/internal/store"
	"github.com/vaultpay/payments-backend/pkg/processorclient"
)

// Handlers holds the application services the HTTP layer dispatches to.
type Handlers struct {
	users    *app.UserService
	profiles *app.ProfileService
	cards    *app.CardService
	payments *app.PaymentService
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(users *app.UserService, profiles *app.ProfileService, cards *app.CardService, payments *app.PaymentService) *Handlers {
	return &Handlers{users: users, profiles: profiles, cards: cards, payments: payments}
}

// duplicatePaymentResponse is the conflict body for a replayed idempotency
// key. It points the client at the payment created by the first request.
type duplicatePaymentResponse struct {
	Error     string `json:"error"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

// writeJSON is a helper for writing JSON responses. Bodiless replies (204)
// carry no Content-Type.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	if data == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError is a helper for writing JSON error responses.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps a service-level error onto the HTTP status table.
// Validation failures are 400, authorization failures 403, missing or
// soft-deleted records 404, conflicts 409, and processor failures 503 or 502
// depending on whether the processor was reachable.
func writeServiceError(w http.ResponseWriter, err error) {
	var dup *app.DuplicatePaymentError
	var limited *app.RateLimitedError

	switch {
	case errors.As(err, &dup):
		writeJSON(w, http.StatusConflict, duplicatePaymentResponse{
			Error:     "a payment with this idempotency key already exists",
			PaymentID: dup.PaymentID.String(),
			Status:    string(dup.Status),
		})
	case errors.As(err, &limited):
		w.Header().Set("Retry-After", strconv.Itoa(limited.RetryAfterSeconds))
		writeError(w, http.StatusTooManyRequests, "Too many payment requests. Please retry later.")
	case errors.Is(err, cardnumber.ErrMalformedNumber),
		errors.Is(err, cardnumber.ErrChecksumFailed),
		errors.Is(err, cardnumber.ErrUnsupportedBrand),
		errors.Is(err, cardnumber.ErrInvalidMonth),
		errors.Is(err, cardnumber.ErrExpired),
		errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrForbiddenCardField),
		errors.Is(err, app.ErrInvalidEmail),
		errors.Is(err, app.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, app.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "You do not have access to this resource")
	case errors.Is(err, app.ErrWrongPassword):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrProfileNotFound),
		errors.Is(err, store.ErrCardNotFound),
		errors.Is(err, store.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrEmailTaken),
		errors.Is(err, store.ErrProfileExists),
		errors.Is(err, store.ErrDuplicateCard):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, processorclient.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Payment processor is unavailable")
	case errors.Is(err, processorclient.ErrGateway),
		errors.Is(err, processorclient.ErrInvalidResponse):
		writeError(w, http.StatusBadGateway, "Payment processor returned an invalid response")
	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// callerFromRequest fetches the authenticated caller or writes a 500 when the
// middleware did not run.
func callerFromRequest(w http.ResponseWriter, r *http.Request) (domain.UserContext, bool) {
	caller, ok := GetUserContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not get caller from context")
	}
	return caller, ok
}

// pathID parses the {id} URL parameter as a UUID.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id format")
		return uuid.Nil, false
	}
	return id, true
}

// userFilter reads the optional ?user_id= query parameter used by admin
// listings.
func userFilter(w http.ResponseWriter, r *http.Request) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user_id format")
		return nil, false
	}
	return &id, true
}

// RegisterHandler handles new account creation.
func (h *Handlers) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// LoginHandler exchanges credentials for a session token.
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.users.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.LoginResponse{AccessToken: token, TokenType: "bearer"})
}

// GetUserHandler returns a single user visible to the caller.
func (h *Handlers) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetUser(r.Context(), caller, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ListUsersHandler returns all users; admin only.
func (h *Handlers) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	users, err := h.users.ListUsers(r.Context(), caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ChangePasswordHandler rotates the caller's password after verifying the
// current one.
func (h *Handlers) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	var req domain.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.ChangePassword(r.Context(), caller, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateUserHandler mutates a user account; admin only.
func (h *Handlers) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req domain.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.UpdateUser(r.Context(), caller, userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteUserHandler soft-deletes a user account; admin only.
func (h *Handlers) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.users.DeleteUser(r.Context(), caller, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// CreateProfileHandler creates the caller's profile.
func (h *Handlers) CreateProfileHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	var req domain.CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := h.profiles.CreateProfile(r.Context(), caller, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// MyProfileHandler returns the caller's own profile.
func (h *Handlers) MyProfileHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), caller, caller.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// GetProfileHandler returns another user's profile, visible to its owner or
// an admin. The path parameter is the owning user's id.
func (h *Handlers) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), caller, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// ListProfilesHandler returns all profiles; admin only.
func (h *Handlers) ListProfilesHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	profiles, err := h.profiles.ListProfiles(r.Context(), caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if profiles == nil {
		profiles = []domain.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

// UpdateProfileHandler mutates a user's profile.
func (h *Handlers) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := h.profiles.UpdateProfile(r.Context(), caller, userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// DeleteProfileHandler soft-deletes a user's profile.
func (h *Handlers) DeleteProfileHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.profiles.DeleteProfile(r.Context(), caller, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// CreateCardHandler registers a card. The validated number is reduced to its
// masked form before the service returns; only that form appears in the
// response.
func (h *Handlers) CreateCardHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	var req domain.CreateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	card, err := h.cards.CreateCard(r.Context(), caller, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

// GetCardHandler returns a single card visible to the caller.
func (h *Handlers) GetCardHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	cardID, ok := pathID(w, r)
	if !ok {
		return
	}

	card, err := h.cards.GetCard(r.Context(), caller, cardID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// ListCardsHandler lists the caller's cards, or any owner's for admins.
func (h *Handlers) ListCardsHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	filter, ok := userFilter(w, r)
	if !ok {
		return
	}

	cards, err := h.cards.ListCards(r.Context(), caller, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if cards == nil {
		cards = []domain.Card{}
	}
	writeJSON(w, http.StatusOK, cards)
}

// UpdateCardHandler mutates a card's holder name or expiration.
func (h *Handlers) UpdateCardHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	cardID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req domain.UpdateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	card, err := h.cards.UpdateCard(r.Context(), caller, cardID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// DeleteCardHandler soft-deletes a card.
func (h *Handlers) DeleteCardHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	cardID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.cards.DeleteCard(r.Context(), caller, cardID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// CreatePaymentHandler runs the payment pipeline. On success the terminal
// payment is returned; when the processor is unreachable the payment stays
// pending and the client sees 503.
func (h *Handlers) CreatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	var req domain.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	// Idempotency-Key header takes precedence over the body field.
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		req.IdempotencyKey = &key
	}

	payment, err := h.payments.CreatePayment(r.Context(), caller, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

// GetPaymentHandler returns a single payment visible to the caller.
func (h *Handlers) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	paymentID, ok := pathID(w, r)
	if !ok {
		return
	}

	payment, err := h.payments.GetPayment(r.Context(), caller, paymentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// ListPaymentsHandler lists the caller's payments, or any owner's for admins.
func (h *Handlers) ListPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	filter, ok := userFilter(w, r)
	if !ok {
		return
	}

	payments, err := h.payments.ListPayments(r.Context(), caller, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if payments == nil {
		payments = []domain.Payment{}
	}
	writeJSON(w, http.StatusOK, payments)
}

// DeletePaymentHandler soft-deletes a payment record.
func (h *Handlers) DeletePaymentHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	paymentID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.payments.DeletePayment(r.Context(), caller, paymentID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// ListStalePendingPaymentsHandler returns payments stuck in pending longer
// than the given threshold. Admin only; used by reconciliation tooling.
func (h *Handlers) ListStalePendingPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	thresholdSeconds := 300
	if raw := r.URL.Query().Get("older_than_seconds"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "Invalid older_than_seconds")
			return
		}
		thresholdSeconds = parsed
	}

	payments, err := h.payments.ListPendingOlderThan(r.Context(), caller, time.Duration(thresholdSeconds)*time.Second)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if payments == nil {
		payments = []domain.Payment{}
	}
	writeJSON(w, http.StatusOK, payments)
}
