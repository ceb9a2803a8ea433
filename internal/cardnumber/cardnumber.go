// Package cardnumber holds the pure card-number checks used when a card is
// registered: normalization, Luhn checksum, brand detection, masking, and
// expiration validation. Nothing in here performs I/O.
package cardnumber

import (
	"errors"
	"strings"
	"time"

	"github.com/vaultpay/payments-backend/internal/domain"
)

var (
	ErrMalformedNumber  = errors.New("card number must be exactly 16 digits")
	ErrChecksumFailed   = errors.New("card number failed checksum validation")
	ErrUnsupportedBrand = errors.New("unsupported card brand")
	ErrInvalidMonth     = errors.New("expiration month must be between 1 and 12")
	ErrExpired          = errors.New("card is expired")
)

// MaskPrefix is the fixed display pattern that replaces all digits before the
// last four.
const MaskPrefix = "**** **** **** "

// Normalize strips whitespace from input and rejects anything that is not
// exactly 16 numeric digits. All other checks operate on its output.
func Normalize(input string) (string, error) {
	var b strings.Builder
	for _, r := range input {
		switch {
		case r == ' ' || r == '\t':
			continue
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			return "", ErrMalformedNumber
		}
	}
	digits := b.String()
	if len(digits) != 16 {
		return "", ErrMalformedNumber
	}
	return digits, nil
}

// ValidateLuhn runs the Luhn checksum over a numeric string: every second
// digit counting from the rightmost is doubled, doubles above 9 drop 9, and
// the total must be divisible by 10.
func ValidateLuhn(digits string) error {
	if digits == "" {
		return ErrChecksumFailed
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return ErrChecksumFailed
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	if sum%10 != 0 {
		return ErrChecksumFailed
	}
	return nil
}

// DetectBrand identifies the card network from the number prefix. Only visa,
// mastercard and amex prefixes are supported.
func DetectBrand(digits string) (domain.CardBrand, error) {
	switch {
	case strings.HasPrefix(digits, "4"):
		return domain.BrandVisa, nil
	case len(digits) >= 2 && digits[0] == '5' && digits[1] >= '1' && digits[1] <= '5':
		return domain.BrandMastercard, nil
	case strings.HasPrefix(digits, "34") || strings.HasPrefix(digits, "37"):
		return domain.BrandAmex, nil
	default:
		return "", ErrUnsupportedBrand
	}
}

// Mask returns the last four digits and the display string with every
// preceding digit replaced by the fixed mask pattern.
func Mask(digits string) (lastFour, masked string) {
	if len(digits) < 4 {
		return digits, MaskPrefix + digits
	}
	lastFour = digits[len(digits)-4:]
	return lastFour, MaskPrefix + lastFour
}

// ValidateExpiration fails when (year, month) is strictly before the current
// (year, month) of now. A card expiring in the current month is still valid.
func ValidateExpiration(month, year int, now time.Time) error {
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	if year < now.Year() || (year == now.Year() && month < int(now.Month())) {
		return ErrExpired
	}
	return nil
}
