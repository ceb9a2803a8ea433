package processorclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vaultpay/payments-backend/pkg/servicetoken"
)

func testIssuer() *servicetoken.Issuer {
	return servicetoken.NewIssuer("internal-test-secret", "HS256", "", "", "", 0)
}

func TestProcessPayment_ApprovedDecision(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/process-payment" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"approved","reference":"REF-1700000000","reason":null,"processed_at":"2026-08-01T12:00:00Z"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "api-service", testIssuer())
	decision, err := client.ProcessPayment(context.Background(), decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Status != "approved" {
		t.Fatalf("expected approved, got %s", decision.Status)
	}
	if decision.Reference == nil || *decision.Reference != "REF-1700000000" {
		t.Fatalf("expected reference to round-trip, got %v", decision.Reference)
	}

	if !strings.HasPrefix(gotAuth, "Bearer ") {
		t.Fatalf("expected bearer service token, got %q", gotAuth)
	}
	verifier := servicetoken.NewVerifier("internal-test-secret", "HS256", "", "", "")
	info, err := verifier.Verify(strings.TrimPrefix(gotAuth, "Bearer "))
	if err != nil {
		t.Fatalf("attached token did not verify: %v", err)
	}
	if info.Service != "api-service" {
		t.Fatalf("expected token subject api-service, got %q", info.Service)
	}
}

func TestProcessPayment_FreshTokenPerCall(t *testing.T) {
	tokens := make(map[string]bool)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens[r.Header.Get("Authorization")] = true
		w.Write([]byte(`{"status":"rejected","reason":"insufficient_funds","processed_at":"2026-08-01T12:00:00Z"}`))
	}))
	defer server.Close()

	issuer := testIssuer()
	client := NewClient(server.URL, "api-service", issuer)
	for i := 0; i < 2; i++ {
		if _, err := client.ProcessPayment(context.Background(), decimal.NewFromInt(1)); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}
	// iat differs only at second granularity, so identical tokens are possible
	// within the same second; at minimum the header must be present each time.
	for token := range tokens {
		if !strings.HasPrefix(token, "Bearer ") {
			t.Fatalf("missing bearer token on a call: %q", token)
		}
	}
}

func TestProcessPayment_TransportFailureIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(server.URL, "api-service", testIssuer())
	_, err := client.ProcessPayment(context.Background(), decimal.NewFromInt(100))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestProcessPayment_NonSuccessStatusIsGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "api-service", testIssuer())
	_, err := client.ProcessPayment(context.Background(), decimal.NewFromInt(100))
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected upstream body in error, got %v", err)
	}
}

func TestProcessPayment_MissingStatusIsInvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"reference":"REF-1","processed_at":"2026-08-01T12:00:00Z"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "api-service", testIssuer())
	_, err := client.ProcessPayment(context.Background(), decimal.NewFromInt(100))
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestProcessPayment_MalformedBodyIsInvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "api-service", testIssuer())
	_, err := client.ProcessPayment(context.Background(), decimal.NewFromInt(100))
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}
