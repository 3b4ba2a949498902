package model

import "time"

// Property is a rentable place owned by a landlord.  Its seat inventory
// lives in the seats table.
type Property struct {
	ID        uint64    // properties.id
	OwnerID   uint64    // properties.owner_id
	Title     string    // properties.title
	Address   *string   // properties.address (nullable)
	CreatedAt time.Time // properties.created_at
	UpdatedAt time.Time // properties.updated_at
}
