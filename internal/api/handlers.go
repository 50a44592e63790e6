package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"staybook/internal/database"
	"staybook/internal/models"
	"staybook/internal/payment"
	"staybook/internal/service"
)

const maxWebhookBody = 64 << 10

func (s *HTTPServer) userID(r *http.Request) string {
	header := strings.TrimSpace(strings.ToLower(s.cfg.UserIDHeader))
	if header == "" {
		header = "x-user-id"
	}
	return strings.TrimSpace(r.Header.Get(header))
}

// cartKey resolves the cart identity: an authenticated user owns a user
// cart, otherwise the caller must present a session id.
func (s *HTTPServer) cartKey(r *http.Request) (string, bool) {
	if userID := s.userID(r); userID != "" {
		return service.CartKeyForUser(userID), true
	}
	if session := strings.TrimSpace(r.Header.Get("x-session-id")); session != "" {
		return "session:" + session, true
	}
	return "", false
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(models.DateLayout, strings.TrimSpace(raw))
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

// writeServiceError maps domain failures onto HTTP statuses. Validation
// rejections carry their code so clients can branch without parsing text.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	if rej := service.AsRejection(err); rej != nil {
		status := http.StatusConflict
		switch rej.Code {
		case "invalid_range", "past_checkin", "too_far_ahead", "empty_cart":
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": rej.Message, "code": rej.Code})
		return
	}

	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrRestricted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrNotAvailable), errors.Is(err, database.ErrUserOverlap):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rooms, err := s.rooms.GetRooms(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *HTTPServer) handleRoomByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/rooms/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := parseID(idPart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	switch action {
	case "":
		room, err := s.rooms.GetRoom(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	case "availability":
		s.handleRoomAvailability(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleRoomAvailability(w http.ResponseWriter, r *http.Request, roomID int64) {
	checkIn, err := parseDate(r.URL.Query().Get("check_in"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_in; expected YYYY-MM-DD")
		return
	}
	checkOut, err := parseDate(r.URL.Query().Get("check_out"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_out; expected YYYY-MM-DD")
		return
	}
	if !checkOut.After(checkIn) {
		writeError(w, http.StatusBadRequest, "check_out must be after check_in")
		return
	}

	if _, err := s.rooms.GetRoom(r.Context(), roomID); err != nil {
		s.writeServiceError(w, err)
		return
	}

	available, err := s.oracle.IsRoomAvailable(r.Context(), roomID, checkIn, checkOut)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"room_id":   roomID,
		"check_in":  checkIn.Format(models.DateLayout),
		"check_out": checkOut.Format(models.DateLayout),
		"available": available,
	})
}

func (s *HTTPServer) handleRoomTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	types, err := s.rooms.GetRoomTypes(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room_types": types})
}

func (s *HTTPServer) handleCart(w http.ResponseWriter, r *http.Request) {
	key, ok := s.cartKey(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user or session id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		cart, err := s.carts.Get(r.Context(), key)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cartResponse(cart))
	case http.MethodDelete:
		if err := s.carts.Clear(r.Context(), key); err != nil {
			s.writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type cartLineRequest struct {
	RoomID   int64  `json:"room_id"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

func (s *HTTPServer) handleCartItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	key, ok := s.cartKey(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user or session id is required")
		return
	}

	var body cartLineRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	checkIn, err := parseDate(body.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_in; expected YYYY-MM-DD")
		return
	}
	checkOut, err := parseDate(body.CheckOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_out; expected YYYY-MM-DD")
		return
	}

	var cart *models.Cart
	if r.Method == http.MethodPost {
		cart, err = s.carts.Add(r.Context(), key, body.RoomID, checkIn, checkOut)
	} else {
		cart, err = s.carts.Remove(r.Context(), key, body.RoomID, checkIn, checkOut)
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(cart))
}

func (s *HTTPServer) handleCartMerge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := s.userID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "user id is required")
		return
	}
	session := strings.TrimSpace(r.Header.Get("x-session-id"))
	if session == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	cart, err := s.carts.Merge(r.Context(), "session:"+session, service.CartKeyForUser(userID))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(cart))
}

func cartResponse(cart *models.Cart) map[string]any {
	return map[string]any{
		"lines": cart.Lines,
		"count": cart.Count(),
		"total": cart.Total(),
	}
}

func (s *HTTPServer) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := s.userID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "user id is required")
		return
	}

	var body struct {
		Method string `json:"method"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	key := service.CartKeyForUser(userID)
	cart, err := s.carts.Get(r.Context(), key)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	switch body.Method {
	case "stripe":
		if s.gateway == nil {
			writeError(w, http.StatusServiceUnavailable, "online payment is not configured")
			return
		}
		if cart.Count() == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cart is empty", "code": "empty_cart"})
			return
		}
		url, err := s.gateway.CreateCheckoutSession(r.Context(), userID, cart.Lines)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		// Корзина очищается только после подтверждённого платежа.
		writeJSON(w, http.StatusOK, map[string]string{"checkout_url": url})
	case "", "direct":
		bookings, err := s.bookings.Checkout(r.Context(), userID, cart.Lines)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if err := s.carts.Clear(r.Context(), key); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to clear cart after checkout")
		}
		writeJSON(w, http.StatusCreated, map[string]any{"bookings": bookings})
	default:
		writeError(w, http.StatusBadRequest, "unknown checkout method")
	}
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := s.userID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "user id is required")
		return
	}

	bookings, err := s.bookings.GetUserBookings(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "user id is required")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := parseID(idPart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if booking.UserID != userID {
		// Не раскрываем чужие брони.
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, booking)
	case action == "cancel" && r.Method == http.MethodPost:
		if err := s.bookings.CancelBooking(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": models.StatusCanceled})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "user id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		profile, err := s.profiles.GetProfile(r.Context(), userID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case http.MethodPut:
		var body models.UserProfile
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		body.UserID = userID
		if err := s.profiles.SaveProfile(r.Context(), &body); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, body)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.gateway == nil || s.reconciler == nil {
		writeError(w, http.StatusServiceUnavailable, "online payment is not configured")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	event, err := s.gateway.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	// Нечитаемые метаданные отбиваются как 4xx; ошибка инфраструктуры
	// отдаёт 5xx, чтобы провайдер повторил доставку.
	if err := s.reconciler.HandleEvent(r.Context(), event); err != nil {
		s.logger.Error().Err(err).Str("event_id", event.ID).Msg("webhook processing failed")
		if errors.Is(err, payment.ErrBadMetadata) {
			writeError(w, http.StatusBadRequest, "malformed event metadata")
			return
		}
		writeError(w, http.StatusInternalServerError, "event processing failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (s *HTTPServer) handleAdminBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	startRaw := r.URL.Query().Get("start")
	endRaw := r.URL.Query().Get("end")
	if startRaw != "" || endRaw != "" {
		start, err := parseDate(startRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start; expected YYYY-MM-DD")
			return
		}
		end, err := parseDate(endRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end; expected YYYY-MM-DD")
			return
		}
		bookings, err := s.bookings.GetBookingsByDateRange(r.Context(), start, end)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
		return
	}

	bookings, err := s.bookings.GetBookings(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleAdminBookingByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/admin/bookings/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := parseID(idPart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		booking, err := s.bookings.GetBooking(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	case action == "payment" && r.Method == http.MethodPost:
		s.handleAdminPaymentUpdate(w, r, id)
	case action == "cancel" && r.Method == http.MethodPost:
		if err := s.bookings.CancelBooking(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": models.StatusCanceled})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleAdminPaymentUpdate(w http.ResponseWriter, r *http.Request, id int64) {
	var body struct {
		PaymentStatus string `json:"payment_status"`
		Status        string `json:"status"`
		FromVersion   int64  `json:"from_version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !validPaymentStatus(body.PaymentStatus) {
		writeError(w, http.StatusBadRequest, "invalid payment_status")
		return
	}
	if !validStatus(body.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if body.FromVersion <= 0 {
		writeError(w, http.StatusBadRequest, "from_version is required")
		return
	}

	changedBy := s.userID(r)
	if changedBy == "" {
		changedBy = "admin"
	}

	err := s.bookings.UpdatePaymentStatus(r.Context(), id, body.FromVersion, body.PaymentStatus, body.Status, changedBy)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func validPaymentStatus(status string) bool {
	switch status {
	case models.PaymentPaid, models.PaymentPending, models.PaymentNotPaid:
		return true
	}
	return false
}

func validStatus(status string) bool {
	switch status {
	case models.StatusPending, models.StatusApproved, models.StatusCanceled:
		return true
	}
	return false
}

func (s *HTTPServer) handleAdminRooms(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleRooms(w, r)
	case http.MethodPost:
		var room models.Room
		if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if room.RoomTypeID == 0 || strings.TrimSpace(room.RoomNum) == "" {
			writeError(w, http.StatusBadRequest, "room_type_id and room_num are required")
			return
		}
		if err := s.rooms.CreateRoom(r.Context(), &room); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, room)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleAdminRoomByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(strings.TrimPrefix(r.URL.Path, "/api/v1/admin/rooms/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var room models.Room
		if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		room.ID = id
		if err := s.rooms.UpdateRoom(r.Context(), &room); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	case http.MethodDelete:
		if err := s.rooms.DeleteRoom(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleAdminRoomTypes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleRoomTypes(w, r)
	case http.MethodPost:
		var rt models.RoomType
		if err := json.NewDecoder(r.Body).Decode(&rt); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(rt.Name) == "" || rt.Price <= 0 {
			writeError(w, http.StatusBadRequest, "name and positive price are required")
			return
		}
		if err := s.rooms.CreateRoomType(r.Context(), &rt); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rt)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleAdminRoomTypeByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(strings.TrimPrefix(r.URL.Path, "/api/v1/admin/room-types/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room type id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var rt models.RoomType
		if err := json.NewDecoder(r.Body).Decode(&rt); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		rt.ID = id
		if err := s.rooms.UpdateRoomType(r.Context(), &rt); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rt)
	case http.MethodDelete:
		if err := s.rooms.DeleteRoomType(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleDiscrepancies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	open, err := s.store.GetOpenDiscrepancies(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"discrepancies": open})
}

func (s *HTTPServer) handleDiscrepancyByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/admin/discrepancies/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := parseID(idPart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid discrepancy id")
		return
	}

	if action != "resolve" || r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.store.ResolveDiscrepancy(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"resolved": true})
}

type exportRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (s *HTTPServer) parseExportRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	var body exportRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return time.Time{}, time.Time{}, false
	}
	start, err := parseDate(body.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	end, err := parseDate(body.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end; expected YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end must not be before start")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start, end, ok := s.parseExportRange(w, r)
	if !ok {
		return
	}

	file, err := s.exporter.ExportBookings(r.Context(), start, end)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": file})
}

func (s *HTTPServer) handleExportOccupancy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start, end, ok := s.parseExportRange(w, r)
	if !ok {
		return
	}

	file, err := s.exporter.ExportOccupancy(r.Context(), start, end)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": file})
}
