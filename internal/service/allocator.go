package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/roommate-booking/internal/database"
	"github.com/iliyamo/roommate-booking/internal/metrics"
	"github.com/iliyamo/roommate-booking/internal/model"
	"github.com/iliyamo/roommate-booking/internal/repository"
)

// SeatLedger is the seat storage the allocator works against.
// *repository.SeatRepo implements it.
type SeatLedger interface {
	LockAvailableTx(ctx context.Context, tx database.Tx, propertyID uint64) (*model.Seat, error)
	GetByIDForUpdateTx(ctx context.Context, tx database.Tx, id uint64) (*model.Seat, error)
	UpdateStatusTx(ctx context.Context, tx database.Tx, s *model.Seat) error
	CountAvailable(ctx context.Context, propertyID uint64) (int, error)
}

// SeatAllocator claims and frees seats.  AllocateSeat and ReleaseSeat only
// run inside a transaction owned by the caller; they never begin, commit
// or roll back.
type SeatAllocator struct {
	seats SeatLedger
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewSeatAllocator(seats SeatLedger, log logrus.FieldLogger) *SeatAllocator {
	return &SeatAllocator{seats: seats, log: log, now: time.Now}
}

// AllocateSeat locks one AVAILABLE seat of the property and marks it
// OCCUPIED.  Which seat is chosen is unspecified.  Concurrent callers on
// the same row block on the lock; the loser re-reads the row after the
// winner commits and moves on or fails with ErrNoSeatAvailable.
func (a *SeatAllocator) AllocateSeat(ctx context.Context, tx database.Tx, propertyID uint64) (*model.Seat, error) {
	if tx == nil {
		return nil, ErrNoTransaction
	}
	start := time.Now()

	seat, err := a.seats.LockAvailableTx(ctx, tx, propertyID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSeatNotFound):
			metrics.RecordAllocation(metrics.ResultNoSeat, time.Since(start))
			return nil, ErrNoSeatAvailable
		case database.IsLockTimeout(err):
			metrics.RecordAllocation(metrics.ResultLockTimeout, time.Since(start))
			return nil, fmt.Errorf("%w: %v", ErrLockTimeout, err)
		}
		metrics.RecordAllocation(metrics.ResultError, time.Since(start))
		return nil, fmt.Errorf("lock available seat: %w", err)
	}

	seat.Status = model.SeatOccupied
	if err := a.seats.UpdateStatusTx(ctx, tx, seat); err != nil {
		metrics.RecordAllocation(metrics.ResultError, time.Since(start))
		return nil, fmt.Errorf("occupy seat %d: %w", seat.ID, err)
	}
	metrics.RecordAllocation(metrics.ResultOK, time.Since(start))

	a.log.WithFields(logrus.Fields{
		"property_id": propertyID,
		"seat_id":     seat.ID,
	}).Debug("seat allocated")
	return seat, nil
}

// ReleaseSeat marks the seat AVAILABLE and stamps LastVacatedAt.  Releasing
// an AVAILABLE seat only refreshes the timestamp.  A nil id or a seat that
// no longer exists is logged and ignored.
func (a *SeatAllocator) ReleaseSeat(ctx context.Context, tx database.Tx, seatID *uint64) error {
	if tx == nil {
		return ErrNoTransaction
	}
	if seatID == nil {
		a.log.Warn("release requested without a seat; nothing to do")
		return nil
	}

	seat, err := a.seats.GetByIDForUpdateTx(ctx, tx, *seatID)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			a.log.WithField("seat_id", *seatID).Warn("release requested for missing seat")
			return nil
		}
		return fmt.Errorf("lock seat %d: %w", *seatID, err)
	}

	now := a.now().UTC()
	seat.Status = model.SeatAvailable
	seat.LastVacatedAt = &now
	if err := a.seats.UpdateStatusTx(ctx, tx, seat); err != nil {
		return fmt.Errorf("release seat %d: %w", seat.ID, err)
	}
	metrics.RecordRelease()

	a.log.WithFields(logrus.Fields{
		"property_id": seat.PropertyID,
		"seat_id":     seat.ID,
	}).Debug("seat released")
	return nil
}

// AvailableSeatCount returns how many seats of the property are free.  It
// takes no locks and is only suitable for display.
func (a *SeatAllocator) AvailableSeatCount(ctx context.Context, propertyID uint64) (int, error) {
	return a.seats.CountAvailable(ctx, propertyID)
}

// HasAvailableSeats reports whether AvailableSeatCount is positive.
func (a *SeatAllocator) HasAvailableSeats(ctx context.Context, propertyID uint64) (bool, error) {
	n, err := a.AvailableSeatCount(ctx, propertyID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
