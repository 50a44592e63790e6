package database

import (
	"context"
	"testing"

	"staybook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimEvent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	existing, err := db.ClaimEvent(ctx, "evt_1")
	require.NoError(t, err)
	assert.Nil(t, existing)

	ev, err := db.GetEvent(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeProcessing, ev.Outcome)
}

func TestClaimEventDuplicate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.ClaimEvent(ctx, "evt_1")
	require.NoError(t, err)
	require.NoError(t, db.FinalizeEvent(ctx, "evt_1", models.OutcomeBooked, []int64{7, 8}))

	existing, err := db.ClaimEvent(ctx, "evt_1")
	require.ErrorIs(t, err, ErrDuplicateEvent)
	require.NotNil(t, existing)
	assert.Equal(t, models.OutcomeBooked, existing.Outcome)
	assert.Equal(t, "[7,8]", existing.BookingIDs)
}

func TestReleaseEvent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.ClaimEvent(ctx, "evt_1")
	require.NoError(t, err)
	require.NoError(t, db.ReleaseEvent(ctx, "evt_1"))

	// После освобождения событие можно заявить снова.
	existing, err := db.ClaimEvent(ctx, "evt_1")
	require.NoError(t, err)
	assert.Nil(t, existing)
}

func TestReleaseEventKeepsFinalized(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.ClaimEvent(ctx, "evt_1")
	require.NoError(t, err)
	require.NoError(t, db.FinalizeEvent(ctx, "evt_1", models.OutcomeDiscrepancy, nil))

	// Release не трогает завершённые записи.
	require.NoError(t, db.ReleaseEvent(ctx, "evt_1"))
	ev, err := db.GetEvent(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeDiscrepancy, ev.Outcome)
}

func TestFinalizeEventNotFound(t *testing.T) {
	db := setupTestDB(t)
	err := db.FinalizeEvent(context.Background(), "missing", models.OutcomeBooked, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiscrepancyLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	d := &models.Discrepancy{
		EventID: "evt_1",
		UserID:  "guest-1",
		Reason:  "room_unavailable: room 101 is booked",
		Lines:   `{"user_id":"guest-1"}`,
	}
	require.NoError(t, db.CreateDiscrepancy(ctx, d))
	require.NotZero(t, d.ID)

	open, err := db.GetOpenDiscrepancies(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "guest-1", open[0].UserID)
	assert.False(t, open[0].Resolved)

	require.NoError(t, db.ResolveDiscrepancy(ctx, d.ID))

	open, err = db.GetOpenDiscrepancies(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	assert.ErrorIs(t, db.ResolveDiscrepancy(ctx, 999), ErrNotFound)
}
