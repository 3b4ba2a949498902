package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/roommate-booking/internal/database"
	"github.com/iliyamo/roommate-booking/internal/model"
	"github.com/iliyamo/roommate-booking/internal/notify"
	"github.com/iliyamo/roommate-booking/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL tables used by the
// services.  It keeps committed rows separate from each transaction's
// pending writes and emulates FOR UPDATE with one mutex per row, held
// until commit or rollback.
type memStore struct {
	mu         sync.Mutex
	seats      map[uint64]model.Seat
	bookings   map[uint64]model.Booking
	properties map[uint64]model.Property
	rowLocks   map[string]*sync.Mutex
	nextID     uint64

	// lockErr, when set, is returned by LockAvailableTx.
	lockErr error
}

func newMemStore() *memStore {
	return &memStore{
		seats:      map[uint64]model.Seat{},
		bookings:   map[uint64]model.Booking{},
		properties: map[uint64]model.Property{},
		rowLocks:   map[string]*sync.Mutex{},
	}
}

func (m *memStore) id() uint64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) rowLock(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rowLocks[key]
	if !ok {
		l = &sync.Mutex{}
		m.rowLocks[key] = l
	}
	return l
}

// seed helpers write committed rows directly.

func (m *memStore) addProperty(ownerID uint64, seats int) (model.Property, []uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := model.Property{ID: m.id(), OwnerID: ownerID, Title: "Flat"}
	m.properties[p.ID] = p
	ids := make([]uint64, 0, seats)
	for i := 0; i < seats; i++ {
		s := model.Seat{ID: m.id(), PropertyID: p.ID, Label: fmt.Sprintf("Bed %d", i+1), Status: model.SeatAvailable}
		m.seats[s.ID] = s
		ids = append(ids, s.ID)
	}
	return p, ids
}

func (m *memStore) addBooking(p model.Property, tenantID uint64) model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := model.Booking{
		ID:         m.id(),
		TenantID:   tenantID,
		LandlordID: p.OwnerID,
		PropertyID: p.ID,
		StartDate:  time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2027, 4, 30, 0, 0, 0, 0, time.UTC),
		Status:     model.BookingPending,
	}
	m.bookings[b.ID] = b
	return b
}

func (m *memStore) seat(id uint64) model.Seat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seats[id]
}

func (m *memStore) booking(id uint64) model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings[id]
}

func (m *memStore) occupied(propertyID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.seats {
		if s.PropertyID == propertyID && s.Status == model.SeatOccupied {
			n++
		}
	}
	return n
}

// WithinTx implements database.Transactor.
func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx database.Tx) error) error {
	tx := &memTx{
		store:    m,
		held:     map[string]*sync.Mutex{},
		seats:    map[uint64]model.Seat{},
		bookings: map[uint64]model.Booking{},
		props:    map[uint64]model.Property{},
		deleted:  map[uint64]bool{},
	}
	if err := fn(ctx, tx); err != nil {
		tx.finish(false)
		return err
	}
	tx.finish(true)
	return nil
}

type memTx struct {
	store    *memStore
	held     map[string]*sync.Mutex
	seats    map[uint64]model.Seat
	bookings map[uint64]model.Booking
	props    map[uint64]model.Property
	deleted  map[uint64]bool
}

var errRawSQL = errors.New("memTx: raw SQL is not supported")

func (t *memTx) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errRawSQL
}

func (t *memTx) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errRawSQL
}

func (t *memTx) QueryRowContext(context.Context, string, ...any) *sql.Row { return nil }

func (t *memTx) lock(key string) {
	if _, ok := t.held[key]; ok {
		return
	}
	l := t.store.rowLock(key)
	l.Lock()
	t.held[key] = l
}

func (t *memTx) finish(commit bool) {
	if commit {
		t.store.mu.Lock()
		for id, s := range t.seats {
			t.store.seats[id] = s
		}
		for id, p := range t.props {
			t.store.properties[id] = p
		}
		for id, b := range t.bookings {
			t.store.bookings[id] = b
		}
		for id := range t.deleted {
			delete(t.store.bookings, id)
		}
		t.store.mu.Unlock()
	}
	for _, l := range t.held {
		l.Unlock()
	}
}

// seatView returns the row as this transaction sees it.
func (t *memTx) seatView(id uint64) (model.Seat, bool) {
	if s, ok := t.seats[id]; ok {
		return s, true
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	s, ok := t.store.seats[id]
	return s, ok
}

func asMemTx(tx database.Tx) *memTx {
	mt, ok := tx.(*memTx)
	if !ok {
		panic("memStore used with a foreign transaction")
	}
	return mt
}

// SeatLedger

func (m *memStore) LockAvailableTx(_ context.Context, tx database.Tx, propertyID uint64) (*model.Seat, error) {
	if m.lockErr != nil {
		return nil, m.lockErr
	}
	t := asMemTx(tx)

	m.mu.Lock()
	ids := make([]uint64, 0)
	for id, s := range m.seats {
		if s.PropertyID == propertyID {
			ids = append(ids, id)
		}
	}
	for id, s := range t.seats {
		if _, ok := m.seats[id]; !ok && s.PropertyID == propertyID {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if s, _ := t.seatView(id); s.Status != model.SeatAvailable {
			continue
		}
		t.lock(fmt.Sprintf("seat:%d", id))
		// re-read the latest committed version once the lock is ours
		if s, _ := t.seatView(id); s.Status == model.SeatAvailable {
			return &s, nil
		}
	}
	return nil, repository.ErrSeatNotFound
}

func (m *memStore) GetByIDForUpdateTx(_ context.Context, tx database.Tx, id uint64) (*model.Seat, error) {
	t := asMemTx(tx)
	t.lock(fmt.Sprintf("seat:%d", id))
	s, ok := t.seatView(id)
	if !ok {
		return nil, repository.ErrSeatNotFound
	}
	return &s, nil
}

func (m *memStore) UpdateStatusTx(_ context.Context, tx database.Tx, s *model.Seat) error {
	t := asMemTx(tx)
	cur, ok := t.seatView(s.ID)
	if !ok {
		return repository.ErrSeatNotFound
	}
	cur.Status = s.Status
	cur.LastVacatedAt = s.LastVacatedAt
	t.seats[s.ID] = cur
	return nil
}

func (m *memStore) CountAvailable(_ context.Context, propertyID uint64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.seats {
		if s.PropertyID == propertyID && s.Status == model.SeatAvailable {
			n++
		}
	}
	return n, nil
}

// SeatInventory

func (m *memStore) CreateBulkTx(_ context.Context, tx database.Tx, propertyID uint64, labels []string) error {
	t := asMemTx(tx)
	m.mu.Lock()
	defer m.mu.Unlock()
	taken := map[string]bool{}
	for _, s := range m.seats {
		if s.PropertyID == propertyID {
			taken[s.Label] = true
		}
	}
	for _, s := range t.seats {
		if s.PropertyID == propertyID {
			taken[s.Label] = true
		}
	}
	for _, l := range labels {
		if taken[l] {
			return fmt.Errorf("%w: duplicate seat label", repository.ErrConflict)
		}
		taken[l] = true
		s := model.Seat{ID: m.id(), PropertyID: propertyID, Label: l, Status: model.SeatAvailable}
		t.seats[s.ID] = s
	}
	return nil
}

func (m *memStore) CountByPropertyTx(_ context.Context, tx database.Tx, propertyID uint64) (int, error) {
	t := asMemTx(tx)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.seats {
		if s.PropertyID == propertyID {
			n++
		}
	}
	for id, s := range t.seats {
		if _, ok := m.seats[id]; !ok && s.PropertyID == propertyID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListByProperty(_ context.Context, propertyID uint64) ([]model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Seat, 0)
	for _, s := range m.seats {
		if s.PropertyID == propertyID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PropertyStore

func (m *memStore) CreateTx(_ context.Context, tx database.Tx, p *model.Property) error {
	t := asMemTx(tx)
	m.mu.Lock()
	p.ID = m.id()
	m.mu.Unlock()
	t.props[p.ID] = *p
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uint64) (*model.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[id]
	if !ok {
		return nil, repository.ErrPropertyNotFound
	}
	return &p, nil
}

func (m *memStore) GetForUpdateTx(_ context.Context, tx database.Tx, id uint64) (*model.Property, error) {
	t := asMemTx(tx)
	t.lock(fmt.Sprintf("property:%d", id))
	if p, ok := t.props[id]; ok {
		return &p, nil
	}
	return m.GetByID(context.Background(), id)
}

// memBookings exposes the booking table; its method names clash with the
// property ones on memStore.
type memBookings struct{ *memStore }

func (m memBookings) Create(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.id()
	b.Status = model.BookingPending
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	m.bookings[b.ID] = *b
	return nil
}

func (m memBookings) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return &b, nil
}

func (m memBookings) GetForUpdateTx(_ context.Context, tx database.Tx, id uint64) (*model.Booking, error) {
	t := asMemTx(tx)
	t.lock(fmt.Sprintf("booking:%d", id))
	if t.deleted[id] {
		return nil, repository.ErrBookingNotFound
	}
	if b, ok := t.bookings[id]; ok {
		return &b, nil
	}
	return m.GetByID(context.Background(), id)
}

func (m memBookings) UpdateTx(_ context.Context, tx database.Tx, b *model.Booking) error {
	asMemTx(tx).bookings[b.ID] = *b
	return nil
}

func (m memBookings) DeleteTx(_ context.Context, tx database.Tx, id uint64) error {
	t := asMemTx(tx)
	delete(t.bookings, id)
	t.deleted[id] = true
	return nil
}

func (m memBookings) ListByTenant(_ context.Context, tenantID uint64, limit, offset int) ([]model.Booking, error) {
	return m.list(func(b model.Booking) bool { return b.TenantID == tenantID }, limit, offset), nil
}

func (m memBookings) ListByLandlord(_ context.Context, landlordID uint64, limit, offset int) ([]model.Booking, error) {
	return m.list(func(b model.Booking) bool { return b.LandlordID == landlordID }, limit, offset), nil
}

func (m memBookings) list(keep func(model.Booking) bool, limit, offset int) []model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Booking, 0)
	for _, b := range m.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return []model.Booking{}
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// recordingNotifier captures dispatched events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Kind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}
