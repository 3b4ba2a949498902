package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/roommate-booking/internal/repository"
	"github.com/iliyamo/roommate-booking/internal/service"
)

// lockRetryAfter is sent with 503 responses caused by lock timeouts.
const lockRetryAfter = "1"

// writeError maps a service error to its HTTP status and a stable error
// code.  "no_seat_available" and "invalid_transition" are distinct so the
// landlord UI can tell a full property from a stale booking.
func writeError(c echo.Context, err error) error {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrUnauthorized):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrInvalidTransition):
		status, code = http.StatusBadRequest, "invalid_transition"
	case errors.Is(err, service.ErrValidation):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, service.ErrNoSeatAvailable):
		status, code = http.StatusConflict, "no_seat_available"
	case errors.Is(err, repository.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrLockTimeout):
		status, code = http.StatusServiceUnavailable, "lock_timeout"
		c.Response().Header().Set("Retry-After", lockRetryAfter)
	}
	if status == http.StatusInternalServerError {
		// internal details stay in the logs
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(status, echo.Map{"error": code, "message": err.Error()})
}
