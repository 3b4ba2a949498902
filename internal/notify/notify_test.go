package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/roommate-booking/internal/model"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, ev Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func TestNewBookingEventAddressesCounterParty(t *testing.T) {
	seat := uint64(9)
	b := &model.Booking{ID: 1, TenantID: 10, LandlordID: 20, PropertyID: 3, Status: model.BookingConfirmed, SeatID: &seat}

	ev := NewBookingEvent(KindBookingConfirmed, 20, b)
	assert.Equal(t, uint64(10), ev.RecipientID)
	assert.Equal(t, "CONFIRMED", ev.Status)
	require.NotNil(t, ev.SeatID)
	assert.Equal(t, seat, *ev.SeatID)

	ev = NewBookingEvent(KindBookingRequested, 10, b)
	assert.Equal(t, uint64(20), ev.RecipientID)
}

func TestKindForStatus(t *testing.T) {
	k, ok := KindForStatus(model.BookingCheckedOut)
	assert.True(t, ok)
	assert.Equal(t, KindBookingCheckedOut, k)

	_, ok = KindForStatus(model.BookingCompleted)
	assert.False(t, ok)
}

func TestDispatcherPublishes(t *testing.T) {
	pub := new(mockPublisher)
	ev := Event{Kind: KindBookingCancelled, BookingID: 4}
	pub.On("Publish", mock.Anything, ev).Return(nil).Once()

	log, hook := logtest.NewNullLogger()
	d := NewDispatcher(pub, log, time.Second)
	d.Notify(ev)
	d.Wait()

	pub.AssertExpectations(t)
	assert.Empty(t, hook.AllEntries())
}

func TestDispatcherLogsFailures(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	log, hook := logtest.NewNullLogger()
	d := NewDispatcher(pub, log, time.Second)
	d.Notify(Event{Kind: KindBookingConfirmed, BookingID: 7})
	d.Wait()

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, uint64(7), hook.LastEntry().Data["booking_id"])
}

func TestConsumerHandleAppendsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "notifications.log")
	log, _ := logtest.NewNullLogger()
	c := &Consumer{LogPath: path, Log: log}

	body := []byte(`{"kind":"BOOKING_CHECKED_IN","recipient_id":2,"actor_id":1,"booking_id":5,"property_id":3,"status":"CHECKED_IN","seat_id":8,"occurred_at":"2024-05-01T10:00:00Z"}`)
	require.NoError(t, c.handle(body))
	require.NoError(t, c.handle(body))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2024-05-01T10:00:00Z] BOOKING_CHECKED_IN | booking_id=5 | property_id=3 | recipient=2 | actor=1 | status=CHECKED_IN | seat=8", lines[0])
}

func TestConsumerHandleRejectsBadPayload(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	c := &Consumer{LogPath: filepath.Join(t.TempDir(), "n.log"), Log: log}
	assert.Error(t, c.handle([]byte("not json")))
	assert.Error(t, c.handle([]byte(`{"kind":""}`)))
}
