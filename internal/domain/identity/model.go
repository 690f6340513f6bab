package identity

import (
	"time"

	"github.com/google/uuid"
)

// Roles supported by the platform.
const (
	RolePatient = "patient"
	RoleBuyer   = "buyer"
	RoleAdmin   = "admin"
)

// ValidRole reports whether role is one of the supported roles.
func ValidRole(role string) bool {
	switch role {
	case RolePatient, RoleBuyer, RoleAdmin:
		return true
	}
	return false
}

// User maps to the users table.
type User struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	FullName      string    `db:"full_name" json:"full_name"`
	Role          string    `db:"role" json:"role"`
	Phone         *string   `db:"phone" json:"phone,omitempty"`
	Organization  *string   `db:"organization" json:"organization,omitempty"`
	// ResearchInterests is free text used for marketplace matching (buyers).
	ResearchInterests *string `db:"research_interests" json:"research_interests,omitempty"`
	TotalEarnings     float64 `db:"total_earnings" json:"total_earnings"`
	TotalSpent    float64   `db:"total_spent" json:"total_spent"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterRequest is the payload for account creation.
type RegisterRequest struct {
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	FullName     string  `json:"full_name"`
	Role         string  `json:"role"`
	Organization *string `json:"organization,omitempty"`
}

// UpdateProfileRequest carries the self-editable profile fields.
type UpdateProfileRequest struct {
	FullName          *string `json:"full_name,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	Organization      *string `json:"organization,omitempty"`
	ResearchInterests *string `json:"research_interests,omitempty"`
}

// LoginRequest is the payload for credential login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries an issued access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
