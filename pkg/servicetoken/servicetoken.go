/**
 * @description
 * This package mints and verifies the short-lived, narrowly-scoped tokens
 * used for the api-service → payment-processor call. The signing secret is
 * internal key material, deliberately disjoint from the secret behind user
 * session tokens: compromise of one trust domain must not compromise the
 * other.
 *
 * A token asserts issuer, audience, scope, the calling service name, and a
 * seconds-scale expiry. Tokens are minted fresh for every processor call and
 * never cached.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: HMAC-signed JWT encoding and decoding.
 */

package servicetoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Defaults for the internal trust domain. Deployments can override them via
// configuration but both sides must agree.
const (
	DefaultIssuer   = "api-service"
	DefaultAudience = "payment-processor"
	DefaultScope    = "payments:write"
	DefaultTTL      = 60 * time.Second
)

var (
	// ErrInvalidToken covers a bad signature, a malformed token, and expiry.
	ErrInvalidToken    = errors.New("invalid or expired service token")
	ErrInvalidIssuer   = errors.New("invalid service token issuer")
	ErrInvalidAudience = errors.New("invalid service token audience")
	ErrInvalidScope    = errors.New("invalid service token scope")
)

// Issuer mints service tokens for outbound internal calls.
type Issuer struct {
	secret   []byte
	method   jwt.SigningMethod
	issuer   string
	audience string
	scope    string
	ttl      time.Duration

	now func() time.Time
}

// NewIssuer creates an Issuer. Empty issuer/audience/scope fall back to the
// package defaults; a zero ttl falls back to DefaultTTL. The algorithm must
// name an HMAC method (HS256/HS384/HS512); anything else falls back to HS256.
func NewIssuer(secret, algorithm, issuer, audience, scope string, ttl time.Duration) *Issuer {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if audience == "" {
		audience = DefaultAudience
	}
	if scope == "" {
		scope = DefaultScope
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		secret:   []byte(secret),
		method:   hmacMethod(algorithm),
		issuer:   issuer,
		audience: audience,
		scope:    scope,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Mint produces a signed token asserting the internal claim set for the named
// calling service.
func (i *Issuer) Mint(serviceName string) (string, error) {
	now := i.now().UTC()
	claims := jwt.MapClaims{
		"iss":     i.issuer,
		"aud":     i.audience,
		"scope":   i.scope,
		"service": serviceName,
		"iat":     now.Unix(),
		"exp":     now.Add(i.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}
	return signed, nil
}

// TokenInfo is the verified claim set handed to the processor's handlers.
type TokenInfo struct {
	Issuer   string
	Audience string
	Scope    string
	Service  string
}

// Verifier checks inbound service tokens on the processor side.
type Verifier struct {
	secret   []byte
	method   jwt.SigningMethod
	issuer   string
	audience string
	scope    string
}

// NewVerifier creates a Verifier with the expected claim values. Empty
// expectations fall back to the package defaults.
func NewVerifier(secret, algorithm, issuer, audience, scope string) *Verifier {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if audience == "" {
		audience = DefaultAudience
	}
	if scope == "" {
		scope = DefaultScope
	}
	return &Verifier{
		secret:   []byte(secret),
		method:   hmacMethod(algorithm),
		issuer:   issuer,
		audience: audience,
		scope:    scope,
	}
}

// Verify decodes the token and checks, in order: signature and expiry,
// issuer, audience, scope. All four checks are mandatory; the first failure
// wins so a forged token is never reported as a scope problem.
func (v *Verifier) Verify(tokenString string) (*TokenInfo, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != v.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if iss, _ := claims["iss"].(string); iss != v.issuer {
		return nil, ErrInvalidIssuer
	}
	if aud, _ := claims["aud"].(string); aud != v.audience {
		return nil, ErrInvalidAudience
	}
	scope, _ := claims["scope"].(string)
	if scope != v.scope {
		return nil, ErrInvalidScope
	}

	service, _ := claims["service"].(string)
	return &TokenInfo{
		Issuer:   v.issuer,
		Audience: v.audience,
		Scope:    scope,
		Service:  service,
	}, nil
}

func hmacMethod(algorithm string) jwt.SigningMethod {
	switch algorithm {
	case "HS384":
		return jwt.SigningMethodHS384
	case "HS512":
		return jwt.SigningMethodHS512
	default:
		return jwt.SigningMethodHS256
	}
}
