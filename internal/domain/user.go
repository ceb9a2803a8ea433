/**
 * @description
 * This file defines the user model and the role type used for authorization
 * decisions across the api-service. Role checks are centralized here so that
 * every operation enforces the same owner-or-admin rule instead of comparing
 * raw strings at each call site.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the set of roles a user can hold. There are exactly two.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User maps directly to the `users` table.
type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	Role           Role       `json:"role"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
	DeletedAt      *time.Time `json:"-"`
}

// UserContext is the caller identity attached to every request by the
// session-auth middleware. It is the only input authorization decisions use.
type UserContext struct {
	UserID uuid.UUID
	Role   Role
}

// CanAccess is the single authorization boundary for owner-scoped resources:
// a caller may act on a resource they own, and admins may act on anything.
func (c UserContext) CanAccess(ownerID uuid.UUID) bool {
	return c.Role == RoleAdmin || c.UserID == ownerID
}

// RegisterRequest is the DTO for creating a new user account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserRequest is the DTO for the admin user-update endpoint. Unset
// fields are left untouched; a new password is re-hashed before storage.
type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// ChangePasswordRequest is the DTO for the self-service password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// LoginRequest is the DTO for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
