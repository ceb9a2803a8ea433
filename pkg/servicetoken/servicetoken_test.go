package servicetoken

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "internal-test-secret"

func newTestIssuer() *Issuer {
	return NewIssuer(testSecret, "HS256", "", "", "", 0)
}

func newTestVerifier() *Verifier {
	return NewVerifier(testSecret, "HS256", "", "", "")
}

func TestMintAndVerify(t *testing.T) {
	token, err := newTestIssuer().Mint("api-service")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	info, err := newTestVerifier().Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if info.Issuer != DefaultIssuer || info.Audience != DefaultAudience || info.Scope != DefaultScope {
		t.Fatalf("unexpected token info: %+v", info)
	}
	if info.Service != "api-service" {
		t.Fatalf("expected service name to round-trip, got %q", info.Service)
	}
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	token, err := newTestIssuer().Mint("api-service")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	verifier := NewVerifier("a-different-secret", "HS256", "", "", "")
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for forged signature, got %v", err)
	}
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	issuer := newTestIssuer()
	issuer.now = func() time.Time { return time.Now().Add(-5 * time.Minute) }

	token, err := issuer.Mint("api-service")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if _, err := newTestVerifier().Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerify_RejectsGarbage(t *testing.T) {
	if _, err := newTestVerifier().Verify("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_RejectsWrongIssuer(t *testing.T) {
	issuer := NewIssuer(testSecret, "HS256", "some-other-service", "", "", 0)
	token, err := issuer.Mint("some-other-service")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if _, err := newTestVerifier().Verify(token); !errors.Is(err, ErrInvalidIssuer) {
		t.Fatalf("expected ErrInvalidIssuer, got %v", err)
	}
}

func TestVerify_RejectsWrongAudience(t *testing.T) {
	issuer := NewIssuer(testSecret, "HS256", "", "billing-service", "", 0)
	token, err := issuer.Mint("api-service")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if _, err := newTestVerifier().Verify(token); !errors.Is(err, ErrInvalidAudience) {
		t.Fatalf("expected ErrInvalidAudience, got %v", err)
	}
}

func TestVerify_RejectsWrongScope(t *testing.T) {
	issuer := NewIssuer(testSecret, "HS256", "", "", "payments:read", 0)
	token, err := issuer.Mint("api-service")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if _, err := newTestVerifier().Verify(token); !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
}

// Issuer mismatch must be reported as an issuer failure even when the
// audience and scope are also wrong: checks run in a fixed order.
func TestVerify_CheckOrdering(t *testing.T) {
	issuer := NewIssuer(testSecret, "HS256", "rogue", "rogue-aud", "rogue:scope", 0)
	token, err := issuer.Mint("rogue")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if _, err := newTestVerifier().Verify(token); !errors.Is(err, ErrInvalidIssuer) {
		t.Fatalf("expected issuer check to run first, got %v", err)
	}
}
