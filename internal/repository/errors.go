// Package repository holds the SQL data access for users, properties, the
// seat ledger and bookings.  Methods suffixed with Tx run inside a caller
// owned transaction and never commit it.  Not-found conditions are
// reported with the sentinel errors below so that services can map them
// without importing database/sql.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot proceed because of
// conflicting state, such as a duplicate seat label.
var ErrConflict = errors.New("conflict")

var (
	ErrSeatNotFound     = errors.New("seat not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrPropertyNotFound = errors.New("property not found")
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
