// Package service implements the seat allocator and the booking state
// machine on top of the repositories.  Errors returned from this package
// wrap one of the sentinels below so handlers can map them with errors.Is.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/roommate-booking/internal/database"
	"github.com/iliyamo/roommate-booking/internal/metrics"
	"github.com/iliyamo/roommate-booking/internal/repository"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("not allowed for this user")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNoSeatAvailable   = errors.New("no seat available")
	ErrValidation        = errors.New("validation failed")

	// ErrNoTransaction is a programming error: the allocator was called
	// without a caller-owned transaction.
	ErrNoTransaction = errors.New("seat allocator requires an open transaction")

	// ErrLockTimeout means a row lock could not be taken in time.  The
	// transaction was rolled back and the whole request may be retried.
	ErrLockTimeout = database.ErrLockTimeout
)

// translate maps repository and driver errors onto the sentinels above.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrLockTimeout):
		return err
	case errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrPropertyNotFound),
		errors.Is(err, repository.ErrSeatNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case database.IsLockTimeout(err):
		return fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}
	return err
}

// resultOf names err for the metrics result label.
func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrNoSeatAvailable):
		return metrics.ResultNoSeat
	case errors.Is(err, ErrUnauthorized):
		return metrics.ResultDenied
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotFound), errors.Is(err, ErrValidation):
		return metrics.ResultInvalid
	case errors.Is(err, ErrLockTimeout):
		return metrics.ResultLockTimeout
	}
	return metrics.ResultError
}

// isBusiness reports whether err is an expected outcome rather than an
// infrastructure failure.
func isBusiness(err error) bool {
	return resultOf(err) != metrics.ResultError
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
