package model

import (
	"fmt"
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending    BookingStatus = "PENDING"
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingRejected   BookingStatus = "REJECTED"
	BookingCancelled  BookingStatus = "CANCELLED"
	BookingCheckedIn  BookingStatus = "CHECKED_IN"
	BookingCheckedOut BookingStatus = "CHECKED_OUT"
	BookingCompleted  BookingStatus = "COMPLETED"
)

// bookingTransitions lists the statuses reachable from each status.
// CHECKED_OUT may later become COMPLETED through batch processing; that
// step never touches seats and is not driven by the booking service.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:    {BookingConfirmed, BookingRejected, BookingCancelled},
	BookingConfirmed:  {BookingCheckedIn, BookingRejected, BookingCancelled},
	BookingCheckedIn:  {BookingCheckedOut},
	BookingCheckedOut: {},
	BookingCompleted:  {},
	BookingRejected:   {},
	BookingCancelled:  {},
}

// ParseBookingStatus converts s (case-insensitive) into a BookingStatus.
func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := bookingTransitions[st]; !ok {
		return "", fmt.Errorf("invalid booking status: %q", s)
	}
	return st, nil
}

// CanTransitionTo reports whether target is reachable from s in one step.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range bookingTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave s.
func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

// HoldsSeat reports whether a booking in s must own an OCCUPIED seat.
func (s BookingStatus) HoldsSeat() bool {
	return s == BookingConfirmed || s == BookingCheckedIn
}

func (s BookingStatus) String() string { return string(s) }

// Booking is a tenant's request to occupy a seat in a landlord's property.
// SeatID is set exactly while Status.HoldsSeat() is true.  Start and end
// dates are informational; the allocator ignores them.
type Booking struct {
	ID           uint64        // bookings.id
	TenantID     uint64        // bookings.tenant_id
	LandlordID   uint64        // bookings.landlord_id
	PropertyID   uint64        // bookings.property_id
	StartDate    time.Time     // bookings.start_date
	EndDate      time.Time     // bookings.end_date
	Message      *string       // bookings.message (nullable)
	Status       BookingStatus // bookings.status
	SeatID       *uint64       // bookings.seat_id (nullable)
	CheckedInAt  *time.Time    // bookings.checked_in_at (nullable)
	CheckedOutAt *time.Time    // bookings.checked_out_at (nullable)
	CreatedAt    time.Time     // bookings.created_at
	UpdatedAt    time.Time     // bookings.updated_at
}

// IsParticipant reports whether userID is the tenant or the landlord.
func (b Booking) IsParticipant(userID uint64) bool {
	return userID != 0 && (userID == b.TenantID || userID == b.LandlordID)
}

// CounterParty returns the other participant of the booking.
func (b Booking) CounterParty(userID uint64) uint64 {
	if userID == b.TenantID {
		return b.LandlordID
	}
	return b.TenantID
}
