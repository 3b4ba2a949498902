// Package notify carries booking notifications from the booking service to
// the message broker.  Dispatch happens after the booking transaction has
// committed and never reports failure back to the caller.
package notify

import (
	"time"

	"github.com/iliyamo/roommate-booking/internal/model"
)

// Kind is the closed set of notifications the system emits.
type Kind string

const (
	KindBookingRequested  Kind = "BOOKING_REQUESTED"
	KindBookingConfirmed  Kind = "BOOKING_CONFIRMED"
	KindBookingRejected   Kind = "BOOKING_REJECTED"
	KindBookingCancelled  Kind = "BOOKING_CANCELLED"
	KindBookingCheckedIn  Kind = "BOOKING_CHECKED_IN"
	KindBookingCheckedOut Kind = "BOOKING_CHECKED_OUT"
)

// KindForStatus returns the notification sent when a booking enters st.
func KindForStatus(st model.BookingStatus) (Kind, bool) {
	switch st {
	case model.BookingPending:
		return KindBookingRequested, true
	case model.BookingConfirmed:
		return KindBookingConfirmed, true
	case model.BookingRejected:
		return KindBookingRejected, true
	case model.BookingCancelled:
		return KindBookingCancelled, true
	case model.BookingCheckedIn:
		return KindBookingCheckedIn, true
	case model.BookingCheckedOut:
		return KindBookingCheckedOut, true
	}
	return "", false
}

// Event is the message body published to the broker.  It contains enough
// information for consumers to log or notify without querying the
// primary database.
type Event struct {
	Kind        Kind      `json:"kind"`
	RecipientID uint64    `json:"recipient_id"`
	ActorID     uint64    `json:"actor_id"`
	BookingID   uint64    `json:"booking_id"`
	PropertyID  uint64    `json:"property_id"`
	Status      string    `json:"status"`
	SeatID      *uint64   `json:"seat_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewBookingEvent builds the event for b addressed to the participant
// that did not act.
func NewBookingEvent(kind Kind, actorID uint64, b *model.Booking) Event {
	ev := Event{
		Kind:        kind,
		RecipientID: b.CounterParty(actorID),
		ActorID:     actorID,
		BookingID:   b.ID,
		PropertyID:  b.PropertyID,
		Status:      b.Status.String(),
		OccurredAt:  time.Now().UTC(),
	}
	if b.SeatID != nil {
		id := *b.SeatID
		ev.SeatID = &id
	}
	return ev
}
