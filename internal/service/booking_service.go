package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/roommate-booking/internal/database"
	"github.com/iliyamo/roommate-booking/internal/metrics"
	"github.com/iliyamo/roommate-booking/internal/model"
	"github.com/iliyamo/roommate-booking/internal/notify"
)

// MaxMessageLen bounds the optional message a tenant attaches to a request.
const MaxMessageLen = 1000

// Pagination limits for booking lists.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// BookingStore persists bookings.  *repository.BookingRepo implements it.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	GetForUpdateTx(ctx context.Context, tx database.Tx, id uint64) (*model.Booking, error)
	UpdateTx(ctx context.Context, tx database.Tx, b *model.Booking) error
	DeleteTx(ctx context.Context, tx database.Tx, id uint64) error
	ListByTenant(ctx context.Context, tenantID uint64, limit, offset int) ([]model.Booking, error)
	ListByLandlord(ctx context.Context, landlordID uint64, limit, offset int) ([]model.Booking, error)
}

// PropertyReader looks up properties.
type PropertyReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Property, error)
}

// Notifier receives events after a transition has committed.  It must not
// block.
type Notifier interface {
	Notify(ev notify.Event)
}

// CreateBookingInput is a tenant's booking request.  ReceiverID, when set,
// must be the owner of the property.
type CreateBookingInput struct {
	PropertyID uint64
	ReceiverID uint64
	StartDate  time.Time
	EndDate    time.Time
	Message    *string
}

// BookingService drives the booking state machine.  Every transition loads
// the booking under a row lock, checks the caller and the transition,
// applies the seat effect and writes the new status in one transaction.
type BookingService struct {
	tx         database.Transactor
	bookings   BookingStore
	properties PropertyReader
	seats      *SeatAllocator
	notifier   Notifier
	log        logrus.FieldLogger
	now        func() time.Time
}

func NewBookingService(
	tx database.Transactor,
	bookings BookingStore,
	properties PropertyReader,
	seats *SeatAllocator,
	notifier Notifier,
	log logrus.FieldLogger,
) *BookingService {
	return &BookingService{
		tx:         tx,
		bookings:   bookings,
		properties: properties,
		seats:      seats,
		notifier:   notifier,
		log:        log,
		now:        time.Now,
	}
}

// Create records a PENDING booking from tenantID for a property.
func (s *BookingService) Create(ctx context.Context, tenantID uint64, in CreateBookingInput) (*model.Booking, error) {
	if tenantID == 0 {
		return nil, ErrUnauthorized
	}
	if in.PropertyID == 0 {
		return nil, validationf("property_id is required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, validationf("start_date and end_date are required")
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, validationf("end_date must not precede start_date")
	}
	if in.Message != nil && utf8.RuneCountInString(*in.Message) > MaxMessageLen {
		return nil, validationf("message longer than %d characters", MaxMessageLen)
	}

	prop, err := s.properties.GetByID(ctx, in.PropertyID)
	if err != nil {
		return nil, translate(err)
	}
	if in.ReceiverID != 0 && in.ReceiverID != prop.OwnerID {
		return nil, validationf("receiver is not the owner of property %d", prop.ID)
	}
	if prop.OwnerID == tenantID {
		return nil, validationf("cannot book your own property")
	}

	b := &model.Booking{
		TenantID:   tenantID,
		LandlordID: prop.OwnerID,
		PropertyID: prop.ID,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		Message:    in.Message,
		Status:     model.BookingPending,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		err = translate(err)
		metrics.RecordTransition(model.BookingPending.String(), resultOf(err))
		return nil, err
	}
	metrics.RecordTransition(model.BookingPending.String(), metrics.ResultOK)
	s.dispatch(model.BookingPending, tenantID, b)
	return b, nil
}

// UpdateStatus applies an owner or tenant decision: CONFIRMED, REJECTED or
// CANCELLED.  Check-in and check-out have their own methods.
func (s *BookingService) UpdateStatus(ctx context.Context, callerID, bookingID uint64, target model.BookingStatus) (*model.Booking, error) {
	switch target {
	case model.BookingConfirmed, model.BookingRejected, model.BookingCancelled:
	default:
		return nil, fmt.Errorf("%w: %s cannot be requested directly", ErrInvalidTransition, target)
	}
	return s.transition(ctx, callerID, bookingID, target)
}

// CheckIn moves a CONFIRMED booking to CHECKED_IN.
func (s *BookingService) CheckIn(ctx context.Context, callerID, bookingID uint64) (*model.Booking, error) {
	return s.transition(ctx, callerID, bookingID, model.BookingCheckedIn)
}

// CheckOut moves a CHECKED_IN booking to CHECKED_OUT and frees its seat.
func (s *BookingService) CheckOut(ctx context.Context, callerID, bookingID uint64) (*model.Booking, error) {
	return s.transition(ctx, callerID, bookingID, model.BookingCheckedOut)
}

func (s *BookingService) transition(ctx context.Context, callerID, bookingID uint64, target model.BookingStatus) (*model.Booking, error) {
	var updated *model.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx database.Tx) error {
		b, err := s.bookings.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if err := authorize(b, callerID, target); err != nil {
			return err
		}
		if !b.Status.CanTransitionTo(target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, target)
		}

		now := s.now().UTC()
		switch {
		case target.HoldsSeat() && !b.Status.HoldsSeat():
			seat, err := s.seats.AllocateSeat(ctx, tx, b.PropertyID)
			if err != nil {
				return err
			}
			b.SeatID = &seat.ID
		case b.Status.HoldsSeat() && !target.HoldsSeat():
			if err := s.seats.ReleaseSeat(ctx, tx, b.SeatID); err != nil {
				return err
			}
			b.SeatID = nil
		}
		switch target {
		case model.BookingCheckedIn:
			b.CheckedInAt = &now
		case model.BookingCheckedOut:
			b.CheckedOutAt = &now
		}
		b.Status = target
		b.UpdatedAt = now

		if err := s.bookings.UpdateTx(ctx, tx, b); err != nil {
			return fmt.Errorf("update booking %d: %w", b.ID, err)
		}
		updated = b
		return nil
	})

	fields := logrus.Fields{"booking_id": bookingID, "caller_id": callerID, "to": target}
	if err != nil {
		err = translate(err)
		metrics.RecordTransition(target.String(), resultOf(err))
		if isBusiness(err) {
			s.log.WithFields(fields).WithError(err).Info("booking transition refused")
		} else {
			s.log.WithFields(fields).WithError(err).Error("booking transition failed")
		}
		return nil, err
	}
	metrics.RecordTransition(target.String(), metrics.ResultOK)
	s.log.WithFields(fields).Info("booking transitioned")

	s.dispatch(target, callerID, updated)
	return updated, nil
}

// authorize checks that callerID may move b to target, independent of the
// current status.
func authorize(b *model.Booking, callerID uint64, target model.BookingStatus) error {
	if !b.IsParticipant(callerID) {
		return fmt.Errorf("%w: user %d is not a party to booking %d", ErrUnauthorized, callerID, b.ID)
	}
	switch target {
	case model.BookingConfirmed, model.BookingRejected:
		if callerID != b.LandlordID {
			return fmt.Errorf("%w: only the landlord may set %s", ErrUnauthorized, target)
		}
	case model.BookingCancelled:
		if callerID != b.TenantID {
			return fmt.Errorf("%w: only the tenant may cancel", ErrUnauthorized)
		}
	}
	return nil
}

// Delete removes a booking.  A held seat is released in the same
// transaction.
func (s *BookingService) Delete(ctx context.Context, callerID, bookingID uint64) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx database.Tx) error {
		b, err := s.bookings.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if !b.IsParticipant(callerID) {
			return fmt.Errorf("%w: user %d is not a party to booking %d", ErrUnauthorized, callerID, b.ID)
		}
		if b.Status.HoldsSeat() {
			if err := s.seats.ReleaseSeat(ctx, tx, b.SeatID); err != nil {
				return err
			}
		}
		return s.bookings.DeleteTx(ctx, tx, b.ID)
	})
	if err != nil {
		return translate(err)
	}
	s.log.WithFields(logrus.Fields{"booking_id": bookingID, "caller_id": callerID}).Info("booking deleted")
	return nil
}

// Get returns a booking visible to callerID.
func (s *BookingService) Get(ctx context.Context, callerID, bookingID uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, translate(err)
	}
	if !b.IsParticipant(callerID) {
		return nil, ErrUnauthorized
	}
	return b, nil
}

// ListSent returns the bookings tenantID has requested, newest first.
func (s *BookingService) ListSent(ctx context.Context, tenantID uint64, page, size int) ([]model.Booking, error) {
	limit, offset := PageBounds(page, size)
	return s.bookings.ListByTenant(ctx, tenantID, limit, offset)
}

// ListReceived returns the bookings addressed to landlordID, newest first.
func (s *BookingService) ListReceived(ctx context.Context, landlordID uint64, page, size int) ([]model.Booking, error) {
	limit, offset := PageBounds(page, size)
	return s.bookings.ListByLandlord(ctx, landlordID, limit, offset)
}

// PageBounds converts a 1-based page and a page size into LIMIT/OFFSET,
// clamping out-of-range values.
func PageBounds(page, size int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return size, (page - 1) * size
}

func (s *BookingService) dispatch(st model.BookingStatus, actorID uint64, b *model.Booking) {
	if s.notifier == nil {
		return
	}
	kind, ok := notify.KindForStatus(st)
	if !ok {
		return
	}
	s.notifier.Notify(notify.NewBookingEvent(kind, actorID, b))
}
