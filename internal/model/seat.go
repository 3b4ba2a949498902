package model

import "time"

// SeatStatus is the occupancy state of a seat.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatOccupied  SeatStatus = "OCCUPIED"
)

// Seat is one bed (or other rentable slot) of a property.  Seats are
// interchangeable: allocation picks any AVAILABLE one.  Only the seat
// allocator writes Status.
//
// Fields:
//
//	ID            – primary key identifier.
//	PropertyID    – property the seat belongs to.
//	Label         – human readable name, e.g. "Bed 1".
//	Status        – AVAILABLE or OCCUPIED.
//	LastVacatedAt – last time the seat was released (nil if never).
type Seat struct {
	ID            uint64     // seats.id
	PropertyID    uint64     // seats.property_id
	Label         string     // seats.label
	Status        SeatStatus // seats.status
	LastVacatedAt *time.Time // seats.last_vacated_at (nullable)
	CreatedAt     time.Time  // seats.created_at
	UpdatedAt     time.Time  // seats.updated_at
}

// Occupied reports whether the seat is currently held by a booking.
func (s Seat) Occupied() bool { return s.Status == SeatOccupied }
