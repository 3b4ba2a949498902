package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/roommate-booking/internal/database"
	"github.com/iliyamo/roommate-booking/internal/model"
)

// PropertyRepo provides methods to create and retrieve properties.
type PropertyRepo struct {
	db *sql.DB
}

// NewPropertyRepo constructs a PropertyRepo with the given DB handle.
func NewPropertyRepo(db *sql.DB) *PropertyRepo {
	return &PropertyRepo{db: db}
}

const propertyColumns = `id, owner_id, title, address, created_at, updated_at`

func scanProperty(row rowScanner) (*model.Property, error) {
	var (
		p    model.Property
		addr sql.NullString
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &addr, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	if addr.Valid {
		a := addr.String
		p.Address = &a
	}
	return &p, nil
}

// CreateTx inserts a property inside tx and reads it back so that the
// generated ID and timestamps are populated.
func (r *PropertyRepo) CreateTx(ctx context.Context, tx database.Tx, p *model.Property) error {
	var addr any
	if p.Address != nil {
		addr = *p.Address
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO properties (owner_id, title, address) VALUES (?, ?, ?)`,
		p.OwnerID, p.Title, addr)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := scanProperty(tx.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id))
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

// GetByID retrieves a property regardless of owner.
func (r *PropertyRepo) GetByID(ctx context.Context, id uint64) (*model.Property, error) {
	return scanProperty(r.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id))
}

// GetForUpdateTx loads a property and locks its row.  Seat provisioning
// takes this lock so that concurrent additions number labels consistently.
func (r *PropertyRepo) GetForUpdateTx(ctx context.Context, tx database.Tx, id uint64) (*model.Property, error) {
	return scanProperty(tx.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ? FOR UPDATE`, id))
}
