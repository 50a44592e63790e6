package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"staybook/internal/api"
	"staybook/internal/config"
	"staybook/internal/database"
	"staybook/internal/domain"
	"staybook/internal/events"
	"staybook/internal/export"
	"staybook/internal/google"
	"staybook/internal/logging"
	"staybook/internal/metrics"
	"staybook/internal/notify"
	"staybook/internal/payment"
	"staybook/internal/repository"
	"staybook/internal/service"
	"staybook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	cartRepo := initCartRepository(cfg, redisClient, &logger)

	sheetsService := initGoogleSheets(cfg, &logger)

	var sheetsWorker *worker.SheetsWorker
	if sheetsService != nil {
		retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
		workerLog := log.New(os.Stdout, "sheets-worker: ", log.LstdFlags)
		sheetsWorker = worker.NewSheetsWorker(db, sheetsService, redisClient, retryPolicy, workerLog)
		go sheetsWorker.Start(ctx)
	}

	eventBus := events.NewEventBus()
	subscribeBookingEvents(eventBus, &logger)

	oracle := service.NewAvailabilityOracle(db, &logger)
	validator := service.NewBookingValidator(db, oracle, cfg.Booking.MaxAdvanceDays)

	var syncWorker domain.SyncWorker
	if sheetsWorker != nil {
		syncWorker = sheetsWorker
	}
	bookingService := service.NewBookingService(db, validator, eventBus, syncWorker, cfg.Booking.AllowPastEdits, &logger)
	cartService := service.NewCartService(cartRepo, db, validator, &logger)
	roomService, err := service.NewRoomService(ctx, db, &logger)
	if err != nil {
		return fmt.Errorf("init room service: %w", err)
	}
	profileService := service.NewProfileService(db, &logger)

	notifier := initNotifier(cfg, &logger)

	var gateway *payment.StripeGateway
	var reconciler *payment.Reconciler
	if cfg.Stripe.SecretKey != "" {
		gateway = payment.NewStripeGateway(cfg.Stripe, &logger)
		reconciler = payment.NewReconciler(db, bookingService, cartService, notifier, eventBus, &logger)
	} else {
		logger.Warn().Msg("stripe is not configured, online payments disabled")
	}

	exporter := export.NewExcelizer(db, cfg.Exports.Path, &logger)

	httpServer := api.NewHTTPServer(cfg.API, api.Deps{
		Store:      db,
		Rooms:      roomService,
		Carts:      cartService,
		Bookings:   bookingService,
		Oracle:     oracle,
		Profiles:   profileService,
		Gateway:    gateway,
		Reconciler: reconciler,
		Exporter:   exporter,
	}, &logger)

	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "server").Logger()

	return cfg, logger, closer, nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}
	return db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initCartRepository prefers redis with an in-memory fallback; without
// redis carts live only in process memory.
func initCartRepository(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.CartRepository {
	ttl := time.Duration(cfg.Booking.CartTTLSeconds) * time.Second
	memory := repository.NewMemoryCartRepository(ttl)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisCartRepository(redisClient, ttl)
	return repository.NewFailoverCartRepository(primary, memory, logger)
}

func initGoogleSheets(cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSimpleSheetsService(cfg.Google.CredentialsFile, cfg.Google.BookingSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

func initNotifier(cfg *config.Config, logger *zerolog.Logger) domain.Notifier {
	if cfg.Telegram.BotToken == "" || len(cfg.Telegram.AlertChatIDs) == 0 {
		return nil
	}

	notifier, err := notify.NewTelegramNotifier(cfg.Telegram, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without alerts")
		return nil
	}

	logger.Info().Msg("telegram notifier connected")
	return notifier
}

func subscribeBookingEvents(bus *events.EventBus, logger *zerolog.Logger) {
	logEvent := func(event *events.Event) error {
		logger.Info().
			Str("event_type", event.Type).
			RawJSON("payload", event.Payload).
			Msg("domain event")
		return nil
	}
	bus.Subscribe(events.EventBookingCreated, logEvent)
	bus.Subscribe(events.EventBookingPaid, logEvent)
	bus.Subscribe(events.EventBookingCanceled, logEvent)
	bus.Subscribe(events.EventPaymentDiscrepancy, logEvent)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}

	logger.Info().Msg("server stopped")
	return nil
}
