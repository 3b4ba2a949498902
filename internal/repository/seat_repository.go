package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/roommate-booking/internal/database"
	"github.com/iliyamo/roommate-booking/internal/model"
)

// SeatRepo is the seat ledger: the durable record of every seat of every
// property and its occupancy.  Writes always go through a transaction.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

const seatColumns = `id, property_id, label, status, last_vacated_at, created_at, updated_at`

func scanSeat(row rowScanner) (*model.Seat, error) {
	var (
		s       model.Seat
		status  string
		vacated sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.PropertyID, &s.Label, &status, &vacated, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Status = model.SeatStatus(status)
	if vacated.Valid {
		t := vacated.Time
		s.LastVacatedAt = &t
	}
	return &s, nil
}

// LockAvailableTx selects one AVAILABLE seat of the property and takes an
// exclusive row lock on it (SELECT ... FOR UPDATE).  A concurrent caller
// targeting the same row blocks until this transaction ends and then
// re-reads the committed row.  ErrSeatNotFound means no seat is available.
func (r *SeatRepo) LockAvailableTx(ctx context.Context, tx database.Tx, propertyID uint64) (*model.Seat, error) {
	const q = `SELECT ` + seatColumns + `
	           FROM seats
	           WHERE property_id = ? AND status = 'AVAILABLE'
	           ORDER BY id
	           LIMIT 1
	           FOR UPDATE`
	s, err := scanSeat(tx.QueryRowContext(ctx, q, propertyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return s, nil
}

// GetByIDForUpdateTx loads a seat by id and locks its row.
func (r *SeatRepo) GetByIDForUpdateTx(ctx context.Context, tx database.Tx, id uint64) (*model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE id = ? FOR UPDATE`
	s, err := scanSeat(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return s, nil
}

// UpdateStatusTx persists Status and LastVacatedAt of the given seat.  The
// caller must have loaded the row under lock first; MySQL reports zero
// affected rows for a no-op update, so the row count is not checked.
func (r *SeatRepo) UpdateStatusTx(ctx context.Context, tx database.Tx, s *model.Seat) error {
	const q = `UPDATE seats SET status = ?, last_vacated_at = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	var vacated any
	if s.LastVacatedAt != nil {
		vacated = s.LastVacatedAt.UTC()
	}
	_, err := tx.ExecContext(ctx, q, string(s.Status), vacated, s.ID)
	return err
}

// CreateBulkTx inserts seats with the given labels for a property.  A
// duplicate label is reported as ErrConflict.
func (r *SeatRepo) CreateBulkTx(ctx context.Context, tx database.Tx, propertyID uint64, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO seats (property_id, label, status) VALUES `)
	args := make([]any, 0, len(labels)*2)
	for i, l := range labels {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, 'AVAILABLE')")
		args = append(args, propertyID, l)
	}
	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return fmt.Errorf("%w: duplicate seat label", ErrConflict)
		}
		return err
	}
	return nil
}

// CountByPropertyTx returns how many seats a property has, read inside tx.
func (r *SeatRepo) CountByPropertyTx(ctx context.Context, tx database.Tx, propertyID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM seats WHERE property_id = ?`, propertyID).Scan(&n)
	return n, err
}

// ListByProperty returns all seats of a property ordered by id.
func (r *SeatRepo) ListByProperty(ctx context.Context, propertyID uint64) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE property_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Seat, 0)
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CountAvailable returns the number of AVAILABLE seats without locking.
// The value is for display only and may be stale by the time it is read.
func (r *SeatRepo) CountAvailable(ctx context.Context, propertyID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seats WHERE property_id = ? AND status = 'AVAILABLE'`, propertyID).Scan(&n)
	return n, err
}
