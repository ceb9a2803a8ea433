/**
 * @description
 * This file contains custom middleware for the HTTP router. The session
 * middleware validates the HS256 token minted at login, resolves the caller's
 * identity and role, and stores a UserContext on the request context for the
 * handlers downstream.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: Token parsing and validation.
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vaultpay/payments-backend/internal/domain"
)

// userContextKey is a custom type for the context key to avoid collisions.
type userContextKey string

const callerKey userContextKey = "caller"

// SessionAuthMiddleware creates a middleware that validates session JWTs
// issued by the login endpoint.
func SessionAuthMiddleware(sessionSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			// Extract the token from "Bearer <token>"
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(sessionSecret), nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "Invalid or expired session token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Invalid token claims")
				return
			}

			sub, ok := claims["sub"].(string)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Subject not found in token")
				return
			}
			userID, err := uuid.Parse(sub)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid subject format")
				return
			}

			role := domain.RoleUser
			if raw, ok := claims["role"].(string); ok {
				role = domain.Role(raw)
			}
			if !role.Valid() {
				writeError(w, http.StatusUnauthorized, "Invalid role claim")
				return
			}

			caller := domain.UserContext{UserID: userID, Role: role}
			ctx := context.WithValue(r.Context(), callerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserContext retrieves the authenticated caller from the request context.
func GetUserContext(ctx context.Context) (domain.UserContext, bool) {
	caller, ok := ctx.Value(callerKey).(domain.UserContext)
	return caller, ok
}
