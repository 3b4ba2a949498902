package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/roommate-booking/internal/config"
	"github.com/iliyamo/roommate-booking/internal/middleware"
	"github.com/iliyamo/roommate-booking/internal/model"
	"github.com/iliyamo/roommate-booking/internal/repository"
	"github.com/iliyamo/roommate-booking/internal/service"
	"github.com/iliyamo/roommate-booking/internal/utils"
)

type mockBookings struct{ mock.Mock }

func (m *mockBookings) Create(ctx context.Context, tenantID uint64, in service.CreateBookingInput) (*model.Booking, error) {
	args := m.Called(ctx, tenantID, in)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) UpdateStatus(ctx context.Context, callerID, bookingID uint64, target model.BookingStatus) (*model.Booking, error) {
	args := m.Called(ctx, callerID, bookingID, target)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) CheckIn(ctx context.Context, callerID, bookingID uint64) (*model.Booking, error) {
	args := m.Called(ctx, callerID, bookingID)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) CheckOut(ctx context.Context, callerID, bookingID uint64) (*model.Booking, error) {
	args := m.Called(ctx, callerID, bookingID)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) Delete(ctx context.Context, callerID, bookingID uint64) error {
	return m.Called(ctx, callerID, bookingID).Error(0)
}

func (m *mockBookings) Get(ctx context.Context, callerID, bookingID uint64) (*model.Booking, error) {
	args := m.Called(ctx, callerID, bookingID)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) ListSent(ctx context.Context, tenantID uint64, page, size int) ([]model.Booking, error) {
	args := m.Called(ctx, tenantID, page, size)
	bs, _ := args.Get(0).([]model.Booking)
	return bs, args.Error(1)
}

func (m *mockBookings) ListReceived(ctx context.Context, landlordID uint64, page, size int) ([]model.Booking, error) {
	args := m.Called(ctx, landlordID, page, size)
	bs, _ := args.Get(0).([]model.Booking)
	return bs, args.Error(1)
}

// serve routes one request through a fresh echo with the caller id set.
func serve(t *testing.T, method, route, target, body string, uid uint64, h echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Add(method, route, h, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if uid != 0 {
				c.Set(middleware.CtxUserID, uid)
			}
			return next(c)
		}
	})
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sampleBooking(status model.BookingStatus) *model.Booking {
	seat := uint64(3)
	return &model.Booking{
		ID: 9, TenantID: 2, LandlordID: 1, PropertyID: 5,
		StartDate: time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
		Status:    status, SeatID: &seat,
	}
}

func TestUpdateStatusErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"no seat", service.ErrNoSeatAvailable, http.StatusConflict, "no_seat_available"},
		{"invalid transition", service.ErrInvalidTransition, http.StatusBadRequest, "invalid_transition"},
		{"unauthorized", service.ErrUnauthorized, http.StatusForbidden, "forbidden"},
		{"not found", service.ErrNotFound, http.StatusNotFound, "not_found"},
		{"lock timeout", service.ErrLockTimeout, http.StatusServiceUnavailable, "lock_timeout"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockBookings)
			svc.On("UpdateStatus", mock.Anything, uint64(1), uint64(9), model.BookingConfirmed).Return(nil, tt.err)
			h := NewBookingHandler(svc)

			rec := serve(t, http.MethodPatch, "/api/bookings/:id/status", "/api/bookings/9/status?status=confirmed", "", 1, h.UpdateStatus)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error":"`+tt.code+`"`)
			if tt.status == http.StatusServiceUnavailable {
				assert.Equal(t, lockRetryAfter, rec.Header().Get("Retry-After"))
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestUpdateStatusSuccess(t *testing.T) {
	svc := new(mockBookings)
	svc.On("UpdateStatus", mock.Anything, uint64(1), uint64(9), model.BookingConfirmed).
		Return(sampleBooking(model.BookingConfirmed), nil)
	h := NewBookingHandler(svc)

	rec := serve(t, http.MethodPatch, "/api/bookings/:id/status", "/api/bookings/9/status?status=CONFIRMED", "", 1, h.UpdateStatus)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"CONFIRMED"`)
	assert.Contains(t, rec.Body.String(), `"seat_id":3`)
	assert.Contains(t, rec.Body.String(), `"start_date":"2026-11-01"`)
}

func TestUpdateStatusRejectsBadInput(t *testing.T) {
	svc := new(mockBookings)
	h := NewBookingHandler(svc)

	rec := serve(t, http.MethodPatch, "/api/bookings/:id/status", "/api/bookings/9/status?status=bogus", "", 1, h.UpdateStatus)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, http.MethodPatch, "/api/bookings/:id/status", "/api/bookings/x/status?status=CONFIRMED", "", 1, h.UpdateStatus)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, http.MethodPatch, "/api/bookings/:id/status", "/api/bookings/9/status?status=CONFIRMED", "", 0, h.UpdateStatus)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	svc.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBooking(t *testing.T) {
	svc := new(mockBookings)
	want := service.CreateBookingInput{
		PropertyID: 5,
		StartDate:  time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
	}
	svc.On("Create", mock.Anything, uint64(2), want).Return(sampleBooking(model.BookingPending), nil)
	h := NewBookingHandler(svc)

	rec := serve(t, http.MethodPost, "/api/bookings", "/api/bookings",
		`{"property_id":5,"start_date":"2026-11-01","end_date":"2026-12-01"}`, 2, h.Create)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"PENDING"`)

	rec = serve(t, http.MethodPost, "/api/bookings", "/api/bookings",
		`{"property_id":5,"start_date":"01/11/2026","end_date":"2026-12-01"}`, 2, h.Create)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNumberOfCalls(t, "Create", 1)
}

func TestCheckInCheckOutAndDelete(t *testing.T) {
	svc := new(mockBookings)
	svc.On("CheckIn", mock.Anything, uint64(2), uint64(9)).Return(sampleBooking(model.BookingCheckedIn), nil)
	svc.On("CheckOut", mock.Anything, uint64(2), uint64(9)).Return(nil, service.ErrInvalidTransition)
	svc.On("Delete", mock.Anything, uint64(2), uint64(9)).Return(nil)
	h := NewBookingHandler(svc)

	rec := serve(t, http.MethodPost, "/api/bookings/:id/check-in", "/api/bookings/9/check-in", "", 2, h.CheckIn)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = serve(t, http.MethodPost, "/api/bookings/:id/check-out", "/api/bookings/9/check-out", "", 2, h.CheckOut)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = serve(t, http.MethodDelete, "/api/bookings/:id", "/api/bookings/9", "", 2, h.Delete)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestListReceivedPaging(t *testing.T) {
	svc := new(mockBookings)
	svc.On("ListReceived", mock.Anything, uint64(1), 2, 5).Return([]model.Booking{*sampleBooking(model.BookingPending)}, nil)
	h := NewBookingHandler(svc)

	rec := serve(t, http.MethodGet, "/api/bookings/received", "/api/bookings/received?page=2&size=5", "", 1, h.ListReceived)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"page":2`)
	assert.Contains(t, rec.Body.String(), `"size":5`)
	assert.Contains(t, rec.Body.String(), `"id":9`)
}

type mockProperties struct{ mock.Mock }

func (m *mockProperties) Create(ctx context.Context, ownerID uint64, in service.CreatePropertyInput) (*model.Property, error) {
	args := m.Called(ctx, ownerID, in)
	p, _ := args.Get(0).(*model.Property)
	return p, args.Error(1)
}

func (m *mockProperties) AddSeats(ctx context.Context, ownerID, propertyID uint64, count int) ([]model.Seat, error) {
	args := m.Called(ctx, ownerID, propertyID, count)
	s, _ := args.Get(0).([]model.Seat)
	return s, args.Error(1)
}

func (m *mockProperties) ListSeats(ctx context.Context, propertyID uint64) ([]model.Seat, error) {
	args := m.Called(ctx, propertyID)
	s, _ := args.Get(0).([]model.Seat)
	return s, args.Error(1)
}

func (m *mockProperties) Availability(ctx context.Context, propertyID uint64) (service.Availability, error) {
	args := m.Called(ctx, propertyID)
	return args.Get(0).(service.Availability), args.Error(1)
}

func TestPropertyEndpoints(t *testing.T) {
	svc := new(mockProperties)
	svc.On("Create", mock.Anything, uint64(1), service.CreatePropertyInput{Title: "Loft", TotalSeats: 2}).
		Return(&model.Property{ID: 5, OwnerID: 1, Title: "Loft"}, nil)
	svc.On("AddSeats", mock.Anything, uint64(7), uint64(5), 1).Return(nil, service.ErrUnauthorized)
	svc.On("Availability", mock.Anything, uint64(5)).
		Return(service.Availability{PropertyID: 5, Available: 1, HasAvailable: true}, nil)
	svc.On("ListSeats", mock.Anything, uint64(5)).
		Return([]model.Seat{{ID: 1, Label: "Bed 1", Status: model.SeatOccupied}}, nil)
	h := NewPropertyHandler(svc)

	rec := serve(t, http.MethodPost, "/api/properties", "/api/properties", `{"title":"Loft","total_seats":2}`, 1, h.Create)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(t, http.MethodPost, "/api/properties/:id/seats", "/api/properties/5/seats", `{"count":1}`, 7, h.AddSeats)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, http.MethodGet, "/api/properties/:id/availability", "/api/properties/5/availability", "", 0, h.Availability)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"property_id":5,"available_seats":1,"has_available_seats":true}`, rec.Body.String())

	rec = serve(t, http.MethodGet, "/api/properties/:id/seats", "/api/properties/5/seats", "", 0, h.ListSeats)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"OCCUPIED"`)
	svc.AssertExpectations(t)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	args := m.Called(ctx, email, password, role, cost)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	return m.Called(ctx, userID, tokenHash, exp).Error(0)
}

func (m *mockTokens) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockTokens) RevokeByHash(ctx context.Context, tokenHash string) error {
	return m.Called(ctx, tokenHash).Error(0)
}

func (m *mockTokens) RevokeAllForUser(ctx context.Context, userID uint64) error {
	return m.Called(ctx, userID).Error(0)
}

func newAuth(users *mockUsers, tokens *mockTokens) *AuthHandler {
	log, _ := logtest.NewNullLogger()
	cfg := config.Config{JWTSecret: "s", AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: bcrypt.MinCost}
	return NewAuthHandler(cfg, users, tokens, log)
}

func TestRegister(t *testing.T) {
	users, tokens := new(mockUsers), new(mockTokens)
	users.On("Create", mock.Anything, "a@b.io", "longenough", model.RoleLandlord, bcrypt.MinCost).Return(uint64(3), nil)
	users.On("Create", mock.Anything, "dup@b.io", "longenough", model.RoleTenant, bcrypt.MinCost).Return(uint64(0), repository.ErrEmailExists)
	tokens.On("StoreRefresh", mock.Anything, uint64(3), mock.Anything, mock.Anything).Return(nil)
	h := newAuth(users, tokens)

	rec := serve(t, http.MethodPost, "/r", "/r", `{"email":" A@b.io ","password":"longenough","role":"landlord"}`, 0, h.Register)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"LANDLORD"`)

	rec = serve(t, http.MethodPost, "/r", "/r", `{"email":"dup@b.io","password":"longenough"}`, 0, h.Register)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(t, http.MethodPost, "/r", "/r", `{"email":"x@b.io","password":"short"}`, 0, h.Register)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	users.AssertExpectations(t)
}

func TestLogin(t *testing.T) {
	hash, err := utils.HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	users, tokens := new(mockUsers), new(mockTokens)
	users.On("GetByEmail", mock.Anything, "t@b.io").
		Return(model.User{ID: 4, Email: "t@b.io", PasswordHash: hash, Role: model.RoleTenant, IsActive: true}, nil)
	users.On("GetByEmail", mock.Anything, "nobody@b.io").Return(model.User{}, repository.ErrUserNotFound)
	tokens.On("StoreRefresh", mock.Anything, uint64(4), mock.Anything, mock.Anything).Return(nil)
	h := newAuth(users, tokens)

	rec := serve(t, http.MethodPost, "/l", "/l", `{"email":"t@b.io","password":"correct horse"}`, 0, h.Login)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, http.MethodPost, "/l", "/l", `{"email":"t@b.io","password":"wrong"}`, 0, h.Login)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, http.MethodPost, "/l", "/l", `{"email":"nobody@b.io","password":"x"}`, 0, h.Login)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	rec := serve(t, http.MethodGet, "/healthz", "/healthz", "", 0, Health(pinger{}))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = serve(t, http.MethodGet, "/healthz", "/healthz", "", 0, Health(pinger{err: errors.New("down")}))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
