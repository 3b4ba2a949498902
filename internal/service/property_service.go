package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/roommate-booking/internal/database"
	"github.com/iliyamo/roommate-booking/internal/model"
)

// MaxSeatsPerRequest caps how many seats one provisioning call creates.
const MaxSeatsPerRequest = 50

// PropertyStore persists properties.  *repository.PropertyRepo implements it.
type PropertyStore interface {
	CreateTx(ctx context.Context, tx database.Tx, p *model.Property) error
	GetByID(ctx context.Context, id uint64) (*model.Property, error)
	GetForUpdateTx(ctx context.Context, tx database.Tx, id uint64) (*model.Property, error)
}

// SeatInventory provisions and lists seats.  *repository.SeatRepo
// implements it.
type SeatInventory interface {
	CreateBulkTx(ctx context.Context, tx database.Tx, propertyID uint64, labels []string) error
	CountByPropertyTx(ctx context.Context, tx database.Tx, propertyID uint64) (int, error)
	ListByProperty(ctx context.Context, propertyID uint64) ([]model.Seat, error)
}

// CreatePropertyInput describes a new listing and its initial seat count.
type CreatePropertyInput struct {
	Title      string
	Address    *string
	TotalSeats int
}

// Availability is the display-only seat summary of a property.
type Availability struct {
	PropertyID   uint64 `json:"property_id"`
	Available    int    `json:"available_seats"`
	HasAvailable bool   `json:"has_available_seats"`
}

// PropertyService provisions property seat inventory.  Seats are created
// AVAILABLE and are never deleted; only the allocator changes their status.
type PropertyService struct {
	tx         database.Transactor
	properties PropertyStore
	seats      SeatInventory
	alloc      *SeatAllocator
	log        logrus.FieldLogger
}

func NewPropertyService(tx database.Transactor, properties PropertyStore, seats SeatInventory, alloc *SeatAllocator, log logrus.FieldLogger) *PropertyService {
	return &PropertyService{tx: tx, properties: properties, seats: seats, alloc: alloc, log: log}
}

// Create inserts a property owned by ownerID together with TotalSeats
// seats labelled "Bed 1".."Bed N".
func (s *PropertyService) Create(ctx context.Context, ownerID uint64, in CreatePropertyInput) (*model.Property, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationf("title is required")
	}
	if in.TotalSeats < 1 || in.TotalSeats > MaxSeatsPerRequest {
		return nil, validationf("total_seats must be between 1 and %d", MaxSeatsPerRequest)
	}

	p := &model.Property{OwnerID: ownerID, Title: title, Address: in.Address}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx database.Tx) error {
		if err := s.properties.CreateTx(ctx, tx, p); err != nil {
			return fmt.Errorf("create property: %w", err)
		}
		return s.seats.CreateBulkTx(ctx, tx, p.ID, seatLabels(0, in.TotalSeats))
	})
	if err != nil {
		return nil, translate(err)
	}
	s.log.WithFields(logrus.Fields{"property_id": p.ID, "owner_id": ownerID, "seats": in.TotalSeats}).Info("property created")
	return p, nil
}

// AddSeats appends count seats to a property owned by ownerID.  The
// property row is locked so concurrent calls continue the numbering.
func (s *PropertyService) AddSeats(ctx context.Context, ownerID, propertyID uint64, count int) ([]model.Seat, error) {
	if count < 1 || count > MaxSeatsPerRequest {
		return nil, validationf("count must be between 1 and %d", MaxSeatsPerRequest)
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx database.Tx) error {
		p, err := s.properties.GetForUpdateTx(ctx, tx, propertyID)
		if err != nil {
			return err
		}
		if p.OwnerID != ownerID {
			return fmt.Errorf("%w: property %d belongs to another user", ErrUnauthorized, propertyID)
		}
		existing, err := s.seats.CountByPropertyTx(ctx, tx, propertyID)
		if err != nil {
			return err
		}
		return s.seats.CreateBulkTx(ctx, tx, propertyID, seatLabels(existing, count))
	})
	if err != nil {
		return nil, translate(err)
	}
	return s.seats.ListByProperty(ctx, propertyID)
}

// ListSeats returns every seat of a property with its status.
func (s *PropertyService) ListSeats(ctx context.Context, propertyID uint64) ([]model.Seat, error) {
	if _, err := s.properties.GetByID(ctx, propertyID); err != nil {
		return nil, translate(err)
	}
	return s.seats.ListByProperty(ctx, propertyID)
}

// Availability reports the unlocked free-seat count of a property.
func (s *PropertyService) Availability(ctx context.Context, propertyID uint64) (Availability, error) {
	if _, err := s.properties.GetByID(ctx, propertyID); err != nil {
		return Availability{}, translate(err)
	}
	n, err := s.alloc.AvailableSeatCount(ctx, propertyID)
	if err != nil {
		return Availability{}, err
	}
	return Availability{PropertyID: propertyID, Available: n, HasAvailable: n > 0}, nil
}

func seatLabels(existing, count int) []string {
	labels := make([]string, count)
	for i := range labels {
		labels[i] = fmt.Sprintf("Bed %d", existing+i+1)
	}
	return labels
}
