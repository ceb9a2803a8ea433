package cardnumber

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vaultpay/payments-backend/internal/domain"
)

func TestValidateLuhn_KnownGoodNumber(t *testing.T) {
	if err := ValidateLuhn("4539578763621486"); err != nil {
		t.Fatalf("expected valid checksum, got %v", err)
	}
}

func TestValidateLuhn_AnySingleDigitFlipFails(t *testing.T) {
	const valid = "4539578763621486"
	for i := 0; i < len(valid); i++ {
		for repl := byte('0'); repl <= '9'; repl++ {
			if repl == valid[i] {
				continue
			}
			flipped := valid[:i] + string(repl) + valid[i+1:]
			if err := ValidateLuhn(flipped); err == nil {
				t.Fatalf("expected checksum failure for flip at %d to %c", i, repl)
			}
		}
	}
}

func TestValidateLuhn_RejectsNonDigits(t *testing.T) {
	if err := ValidateLuhn("4539a78763621486"); !errors.Is(err, ErrChecksumFailed) {
		t.Fatalf("expected ErrChecksumFailed, got %v", err)
	}
	if err := ValidateLuhn(""); !errors.Is(err, ErrChecksumFailed) {
		t.Fatalf("expected ErrChecksumFailed for empty input, got %v", err)
	}
}

func TestDetectBrand(t *testing.T) {
	cases := []struct {
		digits string
		brand  domain.CardBrand
	}{
		{"4111111111111111", domain.BrandVisa},
		{"5500000000000004", domain.BrandMastercard},
		{"340000000000009", domain.BrandAmex},
		{"370000000000002", domain.BrandAmex},
	}
	for _, tc := range cases {
		brand, err := DetectBrand(tc.digits)
		if err != nil {
			t.Fatalf("DetectBrand(%s): unexpected error %v", tc.digits, err)
		}
		if brand != tc.brand {
			t.Fatalf("DetectBrand(%s): expected %s, got %s", tc.digits, tc.brand, brand)
		}
	}
}

func TestDetectBrand_UnsupportedPrefix(t *testing.T) {
	for _, digits := range []string{"6011000000000004", "5600000000000000", "3000000000000000", ""} {
		if _, err := DetectBrand(digits); !errors.Is(err, ErrUnsupportedBrand) {
			t.Fatalf("DetectBrand(%q): expected ErrUnsupportedBrand, got %v", digits, err)
		}
	}
}

func TestNormalize(t *testing.T) {
	digits, err := Normalize(" 4539 5787 6362 1486 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if digits != "4539578763621486" {
		t.Fatalf("unexpected digits %q", digits)
	}

	for _, input := range []string{"453957876362148", "45395787636214861", "4539-5787-6362-1486", "453957876362148x"} {
		if _, err := Normalize(input); !errors.Is(err, ErrMalformedNumber) {
			t.Fatalf("Normalize(%q): expected ErrMalformedNumber, got %v", input, err)
		}
	}
}

func TestMask(t *testing.T) {
	lastFour, masked := Mask("1234567890123456")
	if lastFour != "3456" {
		t.Fatalf("expected last four 3456, got %s", lastFour)
	}
	if !strings.HasSuffix(masked, "3456") {
		t.Fatalf("masked string must end in the last four, got %s", masked)
	}
	if strings.ContainsAny(strings.TrimSuffix(masked, "3456"), "0123456789") {
		t.Fatalf("masked string leaks digits before the last four: %s", masked)
	}
}

func TestValidateExpiration(t *testing.T) {
	now := time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC)

	// Current month is still valid.
	if err := ValidateExpiration(8, 2026, now); err != nil {
		t.Fatalf("card expiring this month must be valid, got %v", err)
	}
	if err := ValidateExpiration(1, 2030, now); err != nil {
		t.Fatalf("future card must be valid, got %v", err)
	}

	if err := ValidateExpiration(7, 2026, now); !errors.Is(err, ErrExpired) {
		t.Fatalf("previous month must be expired, got %v", err)
	}
	if err := ValidateExpiration(12, 2025, now); !errors.Is(err, ErrExpired) {
		t.Fatalf("previous year must be expired, got %v", err)
	}
	if err := ValidateExpiration(13, 2030, now); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("month out of range must fail, got %v", err)
	}
}
