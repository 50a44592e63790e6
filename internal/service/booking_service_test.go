package service

import (
	"context"
	"testing"

	"staybook/internal/database"
	"staybook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckout(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	t.Run("HappyPath", func(t *testing.T) {
		lines := []models.CartLine{
			line(env.rooms[0], day(10), day(13)),
			line(env.rooms[1], day(20), day(22)),
		}

		bookings, err := env.bookings.Checkout(ctx, "guest-1", lines)
		require.NoError(t, err)
		require.Len(t, bookings, 2)

		for _, b := range bookings {
			assert.NotZero(t, b.ID)
			assert.Equal(t, models.StatusPending, b.Status)
			assert.Equal(t, models.PaymentNotPaid, b.PaymentStatus)
			assert.Equal(t, int64(1), b.Version)
		}
		assert.Equal(t, float64(300), bookings[0].TotalPrice)
		assert.Equal(t, float64(200), bookings[1].TotalPrice)
	})

	t.Run("EmptyCart", func(t *testing.T) {
		_, err := env.bookings.Checkout(ctx, "guest-2", nil)
		rej := AsRejection(err)
		require.NotNil(t, rej)
		assert.Equal(t, RejectEmptyCart, rej.Code)
	})

	t.Run("RoomTaken", func(t *testing.T) {
		_, err := env.bookings.Checkout(ctx, "guest-2", []models.CartLine{
			line(env.rooms[0], day(12), day(14)),
		})
		rej := AsRejection(err)
		require.NotNil(t, rej)
		assert.Equal(t, RejectRoomUnavailable, rej.Code)
	})

	t.Run("BackToBackAllowed", func(t *testing.T) {
		bookings, err := env.bookings.Checkout(ctx, "guest-2", []models.CartLine{
			line(env.rooms[0], day(13), day(15)),
		})
		require.NoError(t, err)
		require.Len(t, bookings, 1)
	})

	t.Run("UserOverlapAcrossRooms", func(t *testing.T) {
		// guest-2 holds room 101 for days 13..15; room 102 is free then
		// but the guest himself is not.
		_, err := env.bookings.Checkout(ctx, "guest-2", []models.CartLine{
			line(env.rooms[1], day(14), day(16)),
		})
		rej := AsRejection(err)
		require.NotNil(t, rej)
		assert.Equal(t, RejectUserOverlap, rej.Code)
	})

	t.Run("CartOverlapWithinCart", func(t *testing.T) {
		_, err := env.bookings.Checkout(ctx, "guest-3", []models.CartLine{
			line(env.rooms[0], day(20), day(23)),
			line(env.rooms[0], day(22), day(25)),
		})
		rej := AsRejection(err)
		require.NotNil(t, rej)
		assert.Equal(t, RejectCartOverlap, rej.Code)
	})

	t.Run("CartOverlapAcrossRooms", func(t *testing.T) {
		// Разные номера, пересекающиеся даты: гость не может жить в двух
		// номерах одновременно.
		_, err := env.bookings.Checkout(ctx, "guest-5", []models.CartLine{
			line(env.rooms[0], day(30), day(32)),
			line(env.rooms[1], day(31), day(33)),
		})
		rej := AsRejection(err)
		require.NotNil(t, rej)
		assert.Equal(t, RejectCartOverlap, rej.Code)

		got, err := env.db.GetUserBookings(ctx, "guest-5")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("AtomicityNothingPersistedOnRejection", func(t *testing.T) {
		// First cart line is fine on its own; the second collides with an
		// existing booking. Neither may survive.
		_, err := env.bookings.Checkout(ctx, "guest-4", []models.CartLine{
			line(env.rooms[1], day(24), day(26)),
			line(env.rooms[0], day(11), day(12)),
		})
		rej := AsRejection(err)
		require.NotNil(t, rej)
		assert.Equal(t, RejectRoomUnavailable, rej.Code)

		got, err := env.db.GetUserBookings(ctx, "guest-4")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestCancelFreesRoom(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	bookings, err := env.bookings.Checkout(ctx, "guest-1", []models.CartLine{
		line(env.rooms[0], day(5), day(8)),
	})
	require.NoError(t, err)

	_, err = env.bookings.Checkout(ctx, "guest-2", []models.CartLine{
		line(env.rooms[0], day(6), day(9)),
	})
	require.Error(t, err)

	require.NoError(t, env.bookings.CancelBooking(ctx, bookings[0].ID))

	canceled, err := env.db.GetBooking(ctx, bookings[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, canceled.Status)

	// Отмененная бронь больше не держит номер
	_, err = env.bookings.Checkout(ctx, "guest-2", []models.CartLine{
		line(env.rooms[0], day(6), day(9)),
	})
	assert.NoError(t, err)
}

func TestCommitPaid(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.db.ClaimEvent(ctx, "evt_test_1")
	require.NoError(t, err)

	bookings, err := env.bookings.CommitPaid(ctx, "guest-1", []models.CartLine{
		line(env.rooms[0], day(5), day(7)),
	}, "evt_test_1")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, models.StatusApproved, bookings[0].Status)
	assert.Equal(t, models.PaymentPaid, bookings[0].PaymentStatus)

	ev, err := env.db.GetEvent(ctx, "evt_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeBooked, ev.Outcome)
	assert.NotEmpty(t, ev.BookingIDs)
}

func TestUpdatePaymentStatus(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	bookings, err := env.bookings.Checkout(ctx, "guest-1", []models.CartLine{
		line(env.rooms[0], day(5), day(7)),
	})
	require.NoError(t, err)
	id := bookings[0].ID

	t.Run("Success", func(t *testing.T) {
		err := env.bookings.UpdatePaymentStatus(ctx, id, 1, models.PaymentPaid, models.StatusApproved, "admin")
		require.NoError(t, err)

		got, err := env.db.GetBooking(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
		assert.Equal(t, models.StatusApproved, got.Status)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("StaleVersion", func(t *testing.T) {
		err := env.bookings.UpdatePaymentStatus(ctx, id, 1, models.PaymentPending, models.StatusPending, "admin")
		assert.ErrorIs(t, err, database.ErrConcurrentModification)
	})

	t.Run("NotFound", func(t *testing.T) {
		err := env.bookings.UpdatePaymentStatus(ctx, 99999, 1, models.PaymentPaid, models.StatusApproved, "admin")
		assert.ErrorIs(t, err, database.ErrNotFound)
	})
}
