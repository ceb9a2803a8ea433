/**
 * @description
 * Profile model for the api-service. Each user owns at most one live
 * profile; all personal fields are optional and the record is soft-deleted
 * alongside the rest of the schema.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Profile maps directly to the `profiles` table. One live row per user.
type Profile struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Name      *string    `json:"name,omitempty"`
	LastName  *string    `json:"last_name,omitempty"`
	CI        *string    `json:"ci,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	Address   *string    `json:"address,omitempty"`
	Age       *int       `json:"age,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	DeletedAt *time.Time `json:"-"`
}

// CreateProfileRequest is the DTO for creating the caller's profile.
type CreateProfileRequest struct {
	Name     *string `json:"name,omitempty"`
	LastName *string `json:"last_name,omitempty"`
	CI       *string `json:"ci,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Address  *string `json:"address,omitempty"`
	Age      *int    `json:"age,omitempty"`
}

// UpdateProfileRequest is the DTO for mutating a profile. Unset fields are
// left untouched.
type UpdateProfileRequest struct {
	Name     *string `json:"name,omitempty"`
	LastName *string `json:"last_name,omitempty"`
	CI       *string `json:"ci,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Address  *string `json:"address,omitempty"`
	Age      *int    `json:"age,omitempty"`
}
