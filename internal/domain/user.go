package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleBuyer = "buyer"
	RoleAdmin = "admin"
)

// User is a storefront account. Admin sign-ups stay unapproved until an
// existing admin approves them.
type User struct {
	ID           int64     `json:"id" db:"id"`
	UserName     string    `json:"userName" db:"user_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	Approved     bool      `json:"approved" db:"approved"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RefreshToken is an opaque, revocable token exchanged for new access tokens.
type RefreshToken struct {
	ID        uuid.UUID `db:"id"`
	UserID    int64     `db:"user_id"`
	Token     string    `db:"token"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	Revoked   bool      `db:"revoked"`
}
