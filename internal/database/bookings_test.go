package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"staybook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedRoom(t *testing.T, db *DB, num string) *models.Room {
	t.Helper()
	ctx := context.Background()

	rt, err := db.GetRoomTypes(ctx)
	require.NoError(t, err)
	var typeID int64
	if len(rt) == 0 {
		created := &models.RoomType{Name: "Standard", Price: 100, Capacity: 2}
		require.NoError(t, db.CreateRoomType(ctx, created))
		typeID = created.ID
	} else {
		typeID = rt[0].ID
	}

	room := &models.Room{RoomTypeID: typeID, RoomNum: num, Description: "seeded"}
	require.NoError(t, db.CreateRoom(ctx, room))
	loaded, err := db.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	return loaded
}

func testDate(offset int) time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func testBookingFor(room *models.Room, userID string, in, out time.Time) *models.Booking {
	return &models.Booking{
		RoomID:        room.ID,
		RoomNum:       room.RoomNum,
		UserID:        userID,
		CheckIn:       in,
		CheckOut:      out,
		TotalPrice:    200,
		PaymentStatus: models.PaymentPending,
		Status:        models.StatusPending,
	}
}

func TestCountRoomOverlaps(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := seedRoom(t, db, "101")

	_, err := db.CommitBookings(ctx, []*models.Booking{
		testBookingFor(room, "guest-1", testDate(10), testDate(13)),
	}, "")
	require.NoError(t, err)

	cases := []struct {
		name     string
		in, out  time.Time
		expected int
	}{
		{"ExactMatch", testDate(10), testDate(13), 1},
		{"PartialOverlap", testDate(12), testDate(15), 1},
		{"Contained", testDate(11), testDate(12), 1},
		{"BackToBackAfter", testDate(13), testDate(15), 0},
		{"BackToBackBefore", testDate(8), testDate(10), 0},
		{"Disjoint", testDate(20), testDate(22), 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			count, err := db.CountRoomOverlaps(ctx, room.ID, tc.in, tc.out)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, count)
		})
	}
}

func TestCountRoomOverlapsIgnoresCanceled(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := seedRoom(t, db, "101")

	ids, err := db.CommitBookings(ctx, []*models.Booking{
		testBookingFor(room, "guest-1", testDate(10), testDate(13)),
	}, "")
	require.NoError(t, err)
	require.NoError(t, db.CancelBooking(ctx, ids[0]))

	count, err := db.CountRoomOverlaps(ctx, room.ID, testDate(10), testDate(13))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCountUserOverlapsExcludesBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := seedRoom(t, db, "101")

	ids, err := db.CommitBookings(ctx, []*models.Booking{
		testBookingFor(room, "guest-1", testDate(10), testDate(13)),
	}, "")
	require.NoError(t, err)

	count, err := db.CountUserOverlaps(ctx, "guest-1", testDate(11), testDate(14), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = db.CountUserOverlaps(ctx, "guest-1", testDate(11), testDate(14), ids[0])
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCommitBookingsAtomicity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room1 := seedRoom(t, db, "101")
	room2 := seedRoom(t, db, "102")

	_, err := db.CommitBookings(ctx, []*models.Booking{
		testBookingFor(room2, "guest-0", testDate(10), testDate(12)),
	}, "")
	require.NoError(t, err)

	// Вторая строка конфликтует — не должна пройти ни одна.
	_, err = db.CommitBookings(ctx, []*models.Booking{
		testBookingFor(room1, "guest-1", testDate(10), testDate(12)),
		testBookingFor(room2, "guest-1", testDate(11), testDate(13)),
	}, "")
	require.ErrorIs(t, err, ErrNotAvailable)

	bookings, err := db.GetRoomBookings(ctx, room1.ID)
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestCommitBookingsUserOverlap(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room1 := seedRoom(t, db, "101")
	room2 := seedRoom(t, db, "102")

	_, err := db.CommitBookings(ctx, []*models.Booking{
		testBookingFor(room1, "guest-1", testDate(10), testDate(13)),
	}, "")
	require.NoError(t, err)

	_, err = db.CommitBookings(ctx, []*models.Booking{
		testBookingFor(room2, "guest-1", testDate(12), testDate(14)),
	}, "")
	assert.ErrorIs(t, err, ErrUserOverlap)
}

func TestCommitBookingsEmpty(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.CommitBookings(context.Background(), nil, "")
	assert.Error(t, err)
}

func TestCommitBookingsFinalizesEvent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := seedRoom(t, db, "101")

	_, err := db.ClaimEvent(ctx, "evt_commit_1")
	require.NoError(t, err)

	ids, err := db.CommitBookings(ctx, []*models.Booking{
		testBookingFor(room, "guest-1", testDate(10), testDate(12)),
	}, "evt_commit_1")
	require.NoError(t, err)
	require.Len(t, ids, 1)

	ev, err := db.GetEvent(ctx, "evt_commit_1")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeBooked, ev.Outcome)
	assert.NotEmpty(t, ev.BookingIDs)
}

func TestUpdateBookingPaymentVersioning(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := seedRoom(t, db, "101")

	ids, err := db.CommitBookings(ctx, []*models.Booking{
		testBookingFor(room, "guest-1", testDate(10), testDate(12)),
	}, "")
	require.NoError(t, err)
	id := ids[0]

	require.NoError(t, db.UpdateBookingPayment(ctx, id, 1, models.PaymentPaid, models.StatusApproved))

	booking, err := db.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, booking.PaymentStatus)
	assert.Equal(t, int64(2), booking.Version)

	// Старая версия больше не проходит.
	err = db.UpdateBookingPayment(ctx, id, 1, models.PaymentNotPaid, models.StatusPending)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestCancelBookingNotFound(t *testing.T) {
	db := setupTestDB(t)
	err := db.CancelBooking(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelBookingFreesInterval(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := seedRoom(t, db, "101")

	ids, err := db.CommitBookings(ctx, []*models.Booking{
		testBookingFor(room, "guest-1", testDate(10), testDate(13)),
	}, "")
	require.NoError(t, err)
	require.NoError(t, db.CancelBooking(ctx, ids[0]))

	_, err = db.CommitBookings(ctx, []*models.Booking{
		testBookingFor(room, "guest-2", testDate(10), testDate(13)),
	}, "")
	assert.NoError(t, err)
}

func TestGetBookingsByDateRange(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room1 := seedRoom(t, db, "101")
	room2 := seedRoom(t, db, "102")

	_, err := db.CommitBookings(ctx, []*models.Booking{
		testBookingFor(room1, "guest-1", testDate(10), testDate(12)),
		testBookingFor(room2, "guest-1", testDate(30), testDate(32)),
	}, "")
	require.NoError(t, err)

	got, err := db.GetBookingsByDateRange(ctx, testDate(9), testDate(15))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, room1.ID, got[0].RoomID)
}

func TestConcurrentCommitSameRoom(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := seedRoom(t, db, "101")

	const goroutines = 10
	var wg sync.WaitGroup
	wg.Add(goroutines)
	results := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		go func(n int) {
			defer wg.Done()
			booking := testBookingFor(room, "guest-"+string(rune('a'+n)), testDate(10), testDate(12))
			_, err := db.CommitBookings(ctx, []*models.Booking{booking}, "")
			results <- err
		}(i)
	}

	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		if err == nil {
			success++
		}
	}
	assert.Equal(t, 1, success, "exactly one concurrent commit must win")
}
