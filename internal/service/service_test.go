package service

import (
	"context"
	"io"
	"testing"
	"time"

	"staybook/internal/database"
	"staybook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testLogger = zerolog.New(io.Discard)

// day returns midnight UTC offset days from now; keeps dates in the
// validator's allowed window regardless of when the tests run.
func day(offset int) time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

type testEnv struct {
	db        *database.DB
	oracle    *AvailabilityOracle
	validator *BookingValidator
	bookings  *BookingService
	rooms     []*models.Room
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewDB(":memory:", &testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()

	rt := &models.RoomType{Name: "Standard", Price: 100, Capacity: 2}
	require.NoError(t, db.CreateRoomType(ctx, rt))

	var rooms []*models.Room
	for _, num := range []string{"101", "102"} {
		room := &models.Room{RoomTypeID: rt.ID, RoomNum: num, Description: "test room"}
		require.NoError(t, db.CreateRoom(ctx, room))
		loaded, err := db.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		rooms = append(rooms, loaded)
	}

	oracle := NewAvailabilityOracle(db, &testLogger)
	validator := NewBookingValidator(db, oracle, models.DefaultMaxAdvanceDays)

	return &testEnv{
		db:        db,
		oracle:    oracle,
		validator: validator,
		bookings:  NewBookingService(db, validator, nil, nil, false, &testLogger),
		rooms:     rooms,
	}
}

func line(room *models.Room, checkIn, checkOut time.Time) models.CartLine {
	l := models.CartLine{
		RoomID:        room.ID,
		RoomNum:       room.RoomNum,
		Title:         room.TypeName,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		PricePerNight: room.Price,
	}
	l.TotalPrice = l.PricePerNight * float64(l.Nights())
	return l
}
