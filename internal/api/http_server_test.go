package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/config"
	"staybook/internal/database"
	"staybook/internal/models"
	"staybook/internal/repository"
	"staybook/internal/service"
)

var testLogger = zerolog.New(io.Discard)

func day(offset int) time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

type apiEnv struct {
	ts    *httptest.Server
	db    *database.DB
	rooms []*models.Room
}

func setupAPI(t *testing.T, cfg config.APIConfig) *apiEnv {
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

	oracle := service.NewAvailabilityOracle(db, &testLogger)
	validator := service.NewBookingValidator(db, oracle, models.DefaultMaxAdvanceDays)
	bookings := service.NewBookingService(db, validator, nil, nil, false, &testLogger)
	carts := service.NewCartService(repository.NewMemoryCartRepository(time.Hour), db, validator, &testLogger)
	roomSvc, err := service.NewRoomService(ctx, db, &testLogger)
	require.NoError(t, err)
	profiles := service.NewProfileService(db, &testLogger)

	srv := NewHTTPServer(cfg, Deps{
		Store:    db,
		Rooms:    roomSvc,
		Carts:    carts,
		Bookings: bookings,
		Oracle:   oracle,
		Profiles: profiles,
	}, &testLogger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &apiEnv{ts: ts, db: db, rooms: rooms}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func guestHeaders(userID string) map[string]string {
	return map[string]string{"x-user-id": userID}
}

func dateStr(t time.Time) string {
	return t.Format(models.DateLayout)
}

func TestRoomsList(t *testing.T) {
	env := setupAPI(t, config.APIConfig{})

	resp := env.do(t, http.MethodGet, "/api/v1/rooms", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Rooms []*models.Room `json:"rooms"`
	}
	decodeBody(t, resp, &body)
	assert.Len(t, body.Rooms, 2)
	assert.Equal(t, "Standard", body.Rooms[0].TypeName)
}

func TestRoomAvailability(t *testing.T) {
	env := setupAPI(t, config.APIConfig{})
	room := env.rooms[0]

	path := fmt.Sprintf("/api/v1/rooms/%d/availability?check_in=%s&check_out=%s",
		room.ID, dateStr(day(10)), dateStr(day(12)))

	resp := env.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Available bool `json:"available"`
	}
	decodeBody(t, resp, &body)
	assert.True(t, body.Available)

	booking := &models.Booking{
		RoomID: room.ID, RoomNum: room.RoomNum, UserID: "guest-1",
		CheckIn: day(10), CheckOut: day(12), TotalPrice: 200,
		PaymentStatus: models.PaymentPending, Status: models.StatusPending,
	}
	_, err := env.db.CommitBookings(context.Background(), []*models.Booking{booking}, "")
	require.NoError(t, err)

	resp = env.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &body)
	assert.False(t, body.Available)
}

func TestRoomAvailabilityBadRange(t *testing.T) {
	env := setupAPI(t, config.APIConfig{})

	path := fmt.Sprintf("/api/v1/rooms/%d/availability?check_in=%s&check_out=%s",
		env.rooms[0].ID, dateStr(day(12)), dateStr(day(10)))
	resp := env.do(t, http.MethodGet, path, nil, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/rooms/999/availability?check_in="+dateStr(day(10))+"&check_out="+dateStr(day(12)), nil, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCartRequiresIdentity(t *testing.T) {
	env := setupAPI(t, config.APIConfig{})

	resp := env.do(t, http.MethodGet, "/api/v1/cart", nil, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCartFlow(t *testing.T) {
	env := setupAPI(t, config.APIConfig{})
	room := env.rooms[0]
	headers := guestHeaders("guest-1")

	addBody := map[string]any{
		"room_id":   room.ID,
		"check_in":  dateStr(day(10)),
		"check_out": dateStr(day(12)),
	}
	resp := env.do(t, http.MethodPost, "/api/v1/cart/items", addBody, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cart struct {
		Count int     `json:"count"`
		Total float64 `json:"total"`
	}
	decodeBody(t, resp, &cart)
	assert.Equal(t, 1, cart.Count)
	assert.Equal(t, 200.0, cart.Total)

	resp = env.do(t, http.MethodGet, "/api/v1/cart", nil, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &cart)
	assert.Equal(t, 1, cart.Count)

	resp = env.do(t, http.MethodDelete, "/api/v1/cart/items", addBody, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &cart)
	assert.Equal(t, 0, cart.Count)
}

func TestCartMerge(t *testing.T) {
	env := setupAPI(t, config.APIConfig{})
	sessionHeaders := map[string]string{"x-session-id": "sess-1"}

	addBody := map[string]any{
		"room_id":   env.rooms[0].ID,
		"check_in":  dateStr(day(10)),
		"check_out": dateStr(day(12)),
	}
	resp := env.do(t, http.MethodPost, "/api/v1/cart/items", addBody, sessionHeaders)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	mergeHeaders := map[string]string{"x-user-id": "guest-1", "x-session-id": "sess-1"}
	resp = env.do(t, http.MethodPost, "/api/v1/cart/merge", nil, mergeHeaders)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cart struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &cart)
	assert.Equal(t, 1, cart.Count)

	// Сессионная корзина после слияния пуста.
	resp = env.do(t, http.MethodGet, "/api/v1/cart", nil, sessionHeaders)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &cart)
	assert.Equal(t, 0, cart.Count)
}

func TestCheckoutDirect(t *testing.T) {
	env := setupAPI(t, config.APIConfig{})
	room := env.rooms[0]
	headers := guestHeaders("guest-1")

	addBody := map[string]any{
		"room_id":   room.ID,
		"check_in":  dateStr(day(10)),
		"check_out": dateStr(day(13)),
	}
	resp := env.do(t, http.MethodPost, "/api/v1/cart/items", addBody, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/v1/checkout", map[string]string{"method": "direct"}, headers)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Bookings []*models.Booking `json:"bookings"`
	}
	decodeBody(t, resp, &body)
	require.Len(t, body.Bookings, 1)
	assert.Equal(t, models.StatusPending, body.Bookings[0].Status)
	assert.Equal(t, models.PaymentNotPaid, body.Bookings[0].PaymentStatus)
	assert.Equal(t, 300.0, body.Bookings[0].TotalPrice)

	// Корзина очищена после успешного оформления.
	resp = env.do(t, http.MethodGet, "/api/v1/cart", nil, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cart struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &cart)
	assert.Equal(t, 0, cart.Count)

	// Номер занят для второго гостя.
	resp = env.do(t, http.MethodPost, "/api/v1/cart/items", addBody, guestHeaders("guest-2"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCheckoutEmptyCart(t *testing.T) {
	env := setupAPI(t, config.APIConfig{})

	resp := env.do(t, http.MethodPost, "/api/v1/checkout", map[string]string{"method": "direct"}, guestHeaders("guest-1"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "empty_cart", body.Code)
}

func TestUserBookingsAndCancel(t *testing.T) {
	env := setupAPI(t, config.APIConfig{})
	headers := guestHeaders("guest-1")

	addBody := map[string]any{
		"room_id":   env.rooms[0].ID,
		"check_in":  dateStr(day(10)),
		"check_out": dateStr(day(12)),
	}
	resp := env.do(t, http.MethodPost, "/api/v1/cart/items", addBody, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = env.do(t, http.MethodPost, "/api/v1/checkout", nil, headers)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/v1/bookings", nil, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Bookings []*models.Booking `json:"bookings"`
	}
	decodeBody(t, resp, &list)
	require.Len(t, list.Bookings, 1)
	id := list.Bookings[0].ID

	// Чужая бронь не видна.
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", id), nil, guestHeaders("guest-2"))
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/cancel", id), nil, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	booking, err := env.db.GetBooking(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, booking.Status)
}

func TestAdminPaymentUpdate(t *testing.T) {
	env := setupAPI(t, config.APIConfig{})
	headers := guestHeaders("guest-1")

	addBody := map[string]any{
		"room_id":   env.rooms[0].ID,
		"check_in":  dateStr(day(10)),
		"check_out": dateStr(day(12)),
	}
	resp := env.do(t, http.MethodPost, "/api/v1/cart/items", addBody, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = env.do(t, http.MethodPost, "/api/v1/checkout", nil, headers)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Bookings []*models.Booking `json:"bookings"`
	}
	decodeBody(t, resp, &created)
	id := created.Bookings[0].ID

	update := map[string]any{
		"payment_status": models.PaymentPaid,
		"status":         models.StatusApproved,
		"from_version":   1,
	}
	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/bookings/%d/payment", id), update, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Booking
	decodeBody(t, resp, &updated)
	assert.Equal(t, models.PaymentPaid, updated.PaymentStatus)
	assert.Equal(t, int64(2), updated.Version)

	// Повторное обновление со старой версией отклоняется.
	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/bookings/%d/payment", id), update, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestProfileRoundTrip(t *testing.T) {
	env := setupAPI(t, config.APIConfig{})
	headers := guestHeaders("guest-1")

	resp := env.do(t, http.MethodGet, "/api/v1/profile", nil, headers)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	profile := map[string]string{"name": "Ann", "email": "Ann@Example.com", "phone": "+100"}
	resp = env.do(t, http.MethodPut, "/api/v1/profile", profile, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/v1/profile", nil, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got models.UserProfile
	decodeBody(t, resp, &got)
	assert.Equal(t, "Ann", got.Name)
	assert.Equal(t, "ann@example.com", got.Email)
}

func authConfig() config.APIConfig {
	return config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{Key: "admin-key", Name: "ops", Permissions: []string{"admin", "read:rooms", "book"}},
				{Key: "guest-key", Name: "site", Permissions: []string{"read:rooms", "book"}},
			},
		},
	}
}

func TestAuthRequired(t *testing.T) {
	env := setupAPI(t, authConfig())

	resp := env.do(t, http.MethodGet, "/api/v1/rooms", nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/rooms", nil, map[string]string{"x-api-key": "wrong"})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/rooms", nil, map[string]string{"x-api-key": "guest-key"})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthPermissions(t *testing.T) {
	env := setupAPI(t, authConfig())

	resp := env.do(t, http.MethodGet, "/api/v1/admin/bookings", nil, map[string]string{"x-api-key": "guest-key"})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/admin/bookings", nil, map[string]string{"x-api-key": "admin-key"})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	cfg := authConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 0.001, Burst: 1}
	env := setupAPI(t, cfg)

	headers := map[string]string{"x-api-key": "guest-key"}
	resp := env.do(t, http.MethodGet, "/api/v1/rooms", nil, headers)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/rooms", nil, headers)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestWebhookNotConfigured(t *testing.T) {
	env := setupAPI(t, authConfig())

	// Вебхук не требует API-ключа.
	resp := env.do(t, http.MethodPost, "/api/v1/webhooks/stripe", map[string]string{}, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/api/v1/bookings/:id/cancel", normalizePath("/api/v1/bookings/17/cancel"))
	assert.Equal(t, "/api/v1/rooms", normalizePath("/api/v1/rooms"))
}
