package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/roommate-booking/internal/database"
	"github.com/iliyamo/roommate-booking/internal/model"
)

// BookingRepo provides persistence for bookings.  Status changes are only
// written through UpdateTx, inside the transaction that also touched the
// seat ledger.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, tenant_id, landlord_id, property_id, start_date, end_date, message,
                        status, seat_id, checked_in_at, checked_out_at, created_at, updated_at`

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b                   model.Booking
		status              string
		message             sql.NullString
		seatID              sql.NullInt64
		checkedIn, checkOut sql.NullTime
	)
	if err := row.Scan(
		&b.ID, &b.TenantID, &b.LandlordID, &b.PropertyID, &b.StartDate, &b.EndDate, &message,
		&status, &seatID, &checkedIn, &checkOut, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	if message.Valid {
		m := message.String
		b.Message = &m
	}
	if seatID.Valid {
		id := uint64(seatID.Int64)
		b.SeatID = &id
	}
	b.CheckedInAt = nullTimePtr(checkedIn)
	b.CheckedOutAt = nullTimePtr(checkOut)
	return &b, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func seatArg(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}

// Create inserts a PENDING booking and reads the row back so that
// defaults and timestamps are populated on b.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (tenant_id, landlord_id, property_id, start_date, end_date, message, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	var msg any
	if b.Message != nil {
		msg = *b.Message
	}
	res, err := r.db.ExecContext(ctx, q,
		b.TenantID, b.LandlordID, b.PropertyID,
		b.StartDate.UTC().Format("2006-01-02"), b.EndDate.UTC().Format("2006-01-02"),
		msg, string(model.BookingPending))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*b = *created
	return nil
}

// GetByID loads a booking without locking.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// GetForUpdateTx loads a booking and locks its row so that two transitions
// of the same booking are serialized.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx database.Tx, id uint64) (*model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// UpdateTx writes the lifecycle fields of b: status, seat link and the
// check-in/check-out timestamps.
func (r *BookingRepo) UpdateTx(ctx context.Context, tx database.Tx, b *model.Booking) error {
	const q = `UPDATE bookings
	           SET status = ?, seat_id = ?, checked_in_at = ?, checked_out_at = ?, updated_at = ?
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q,
		string(b.Status), seatArg(b.SeatID), timeArg(b.CheckedInAt), timeArg(b.CheckedOutAt),
		b.UpdatedAt.UTC(), b.ID)
	return err
}

// DeleteTx removes a booking row.
func (r *BookingRepo) DeleteTx(ctx context.Context, tx database.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// ListByTenant returns bookings sent by a tenant, newest first.
func (r *BookingRepo) ListByTenant(ctx context.Context, tenantID uint64, limit, offset int) ([]model.Booking, error) {
	return r.list(ctx, `tenant_id = ?`, tenantID, limit, offset)
}

// ListByLandlord returns bookings received by a landlord, newest first.
func (r *BookingRepo) ListByLandlord(ctx context.Context, landlordID uint64, limit, offset int) ([]model.Booking, error) {
	return r.list(ctx, `landlord_id = ?`, landlordID, limit, offset)
}

func (r *BookingRepo) list(ctx context.Context, where string, userID uint64, limit, offset int) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
