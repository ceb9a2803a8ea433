/**
 * @description
 * Service-to-service authentication middleware for the payment-processor.
 * Every request must carry a short-lived bearer token minted by the
 * api-service; signature, expiry, issuer, and audience failures are 401 and
 * an insufficient scope is 403.
 *
 * @dependencies
 * - net/http, strings: Standard Go libraries.
 * - pkg/servicetoken: Shared claim rules for internal tokens.
 */

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vaultpay/payments-backend/pkg/servicetoken"
)

type callerContextKey string

const serviceNameKey callerContextKey = "serviceName"

// ServiceAuthMiddleware validates the internal bearer token on every request.
func ServiceAuthMiddleware(verifier *servicetoken.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			info, err := verifier.Verify(tokenString)
			if err != nil {
				if errors.Is(err, servicetoken.ErrInvalidScope) {
					writeError(w, http.StatusForbidden, "Token lacks the required scope")
					return
				}
				writeError(w, http.StatusUnauthorized, "Invalid service token")
				return
			}

			ctx := context.WithValue(r.Context(), serviceNameKey, info.Service)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetServiceName retrieves the calling service's name from the request context.
func GetServiceName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(serviceNameKey).(string)
	return name, ok
}
