package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"staybook/internal/config"
	"staybook/internal/domain"
	"staybook/internal/export"
	"staybook/internal/metrics"
	"staybook/internal/payment"
	"staybook/internal/service"
)

// HTTPServer exposes the guest-facing booking API plus the admin surface.
type HTTPServer struct {
	cfg        config.APIConfig
	store      domain.Store
	rooms      *service.RoomService
	carts      *service.CartService
	bookings   *service.BookingService
	oracle     *service.AvailabilityOracle
	profiles   *service.ProfileService
	gateway    *payment.StripeGateway
	reconciler *payment.Reconciler
	exporter   *export.Excelizer
	server     *http.Server
	auth       *HTTPAuth
	logger     *zerolog.Logger
}

type Deps struct {
	Store      domain.Store
	Rooms      *service.RoomService
	Carts      *service.CartService
	Bookings   *service.BookingService
	Oracle     *service.AvailabilityOracle
	Profiles   *service.ProfileService
	Gateway    *payment.StripeGateway
	Reconciler *payment.Reconciler
	Exporter   *export.Excelizer
}

func NewHTTPServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:        cfg,
		store:      deps.Store,
		rooms:      deps.Rooms,
		carts:      deps.Carts,
		bookings:   deps.Bookings,
		oracle:     deps.Oracle,
		profiles:   deps.Profiles,
		gateway:    deps.Gateway,
		reconciler: deps.Reconciler,
		exporter:   deps.Exporter,
		logger:     logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/rooms", srv.handleRooms)
	mux.HandleFunc("/api/v1/rooms/", srv.handleRoomByID)
	mux.HandleFunc("/api/v1/room-types", srv.handleRoomTypes)
	mux.HandleFunc("/api/v1/cart", srv.handleCart)
	mux.HandleFunc("/api/v1/cart/items", srv.handleCartItems)
	mux.HandleFunc("/api/v1/cart/merge", srv.handleCartMerge)
	mux.HandleFunc("/api/v1/checkout", srv.handleCheckout)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingByID)
	mux.HandleFunc("/api/v1/profile", srv.handleProfile)
	mux.HandleFunc("/api/v1/webhooks/stripe", srv.handleStripeWebhook)
	mux.HandleFunc("/api/v1/admin/bookings", srv.handleAdminBookings)
	mux.HandleFunc("/api/v1/admin/bookings/", srv.handleAdminBookingByID)
	mux.HandleFunc("/api/v1/admin/rooms", srv.handleAdminRooms)
	mux.HandleFunc("/api/v1/admin/rooms/", srv.handleAdminRoomByID)
	mux.HandleFunc("/api/v1/admin/room-types", srv.handleAdminRoomTypes)
	mux.HandleFunc("/api/v1/admin/room-types/", srv.handleAdminRoomTypeByID)
	mux.HandleFunc("/api/v1/admin/discrepancies", srv.handleDiscrepancies)
	mux.HandleFunc("/api/v1/admin/discrepancies/", srv.handleDiscrepancyByID)
	mux.HandleFunc("/api/v1/admin/exports/bookings", srv.handleExportBookings)
	mux.HandleFunc("/api/v1/admin/exports/occupancy", srv.handleExportOccupancy)
	mux.Handle("/metrics", promhttp.Handler())

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the fully wrapped handler, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// HTTPAuth provides API-key auth and per-key rate limiting.
type HTTPAuth struct {
	cfg      config.APIConfig
	clients  map[string]config.APIClientKey
	limiters sync.Map // map[string]*rate.Limiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Вебхук аутентифицируется подписью провайдера, а не API-ключом.
		if skipAuth(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.Auth.Enabled {
			if err := a.checkAuth(r); err != nil {
				statusCode := http.StatusUnauthorized
				if err == errPermissionDenied {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func skipAuth(path string) bool {
	return strings.HasPrefix(path, "/api/v1/webhooks/") || path == "/metrics"
}

var errPermissionDenied = fmt.Errorf("permission denied")

func (a *HTTPAuth) checkAuth(r *http.Request) error {
	apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader()))
	if apiKey == "" {
		return fmt.Errorf("missing api key header")
	}

	client, ok := a.lookupClient(apiKey)
	if !ok {
		return fmt.Errorf("invalid api key")
	}

	return a.checkPermissions(client, r)
}

// lookupClient compares keys in constant time to avoid leaking prefix
// matches through response timing.
func (a *HTTPAuth) lookupClient(apiKey string) (config.APIClientKey, bool) {
	for key, client := range a.clients {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			return client, true
		}
	}
	return config.APIClientKey{}, false
}

func (a *HTTPAuth) checkPermissions(client config.APIClientKey, r *http.Request) error {
	required := requiredPermission(r)
	if required == "" {
		return nil
	}
	if len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func requiredPermission(r *http.Request) string {
	path := r.URL.Path
	if strings.HasPrefix(path, "/api/v1/admin/") {
		return "admin"
	}
	if strings.HasPrefix(path, "/api/v1/rooms") || path == "/api/v1/room-types" {
		return "read:rooms"
	}
	if strings.HasPrefix(path, "/api/v1/cart") ||
		path == "/api/v1/checkout" ||
		strings.HasPrefix(path, "/api/v1/bookings") ||
		path == "/api/v1/profile" {
		return "book"
	}
	return ""
}

func (a *HTTPAuth) checkRateLimit(r *http.Request) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}

	key := a.clientKey(r)
	lim := a.getLimiter(key)
	if !lim.Allow() {
		return fmt.Errorf("rate limit exceeded")
	}
	return nil
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader())); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *HTTPAuth) apiKeyHeader() string {
	h := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if h == "" {
		h = "x-api-key"
	}
	return h
}

func (a *HTTPAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		metrics.IncHTTP(normalizePath(r.URL.Path))
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// normalizePath collapses numeric path segments so the per-endpoint
// counter does not explode on entity ids.
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if isDigits(p) {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
