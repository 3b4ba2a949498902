package model

import "time"

// Roles stored in users.role.
const (
	RoleTenant   = "TENANT"
	RoleLandlord = "LANDLORD"
)

// User represents an application user record as stored in the `users`
// table.  Handlers define their own response types; this struct is for
// the repository layer.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role (TENANT or LANDLORD)
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models a row of `refresh_tokens`.  Only the SHA-256 hash of
// the token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
