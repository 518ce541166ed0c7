package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"supperclub/internal/api"
	"supperclub/internal/audit"
	"supperclub/internal/config"
	"supperclub/internal/domain"
	"supperclub/internal/events"
	"supperclub/internal/export"
	"supperclub/internal/ledger"
	"supperclub/internal/logging"
	"supperclub/internal/metrics"
	"supperclub/internal/models"
	"supperclub/internal/notify"
	"supperclub/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, base, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := base.With().Str("component", "api-main").Logger()

	store, err := ledger.NewSQLiteStore(cfg.Database.Path, logging.Component(base, "ledger"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init ledger store")
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	queue := initQueue(cfg, redisClient, base)
	inbox := notify.NewInboxSink(store)
	startWorkers(ctx, cfg, queue, inbox, base)

	auditor, err := initAuditor(cfg, store, base)
	if err != nil {
		return err
	}

	bus := initEventBus(base)
	hooks := service.NewHooks(
		notify.NewDispatcher(queue, logging.Component(base, "notify")),
		auditor,
		bus,
		logging.Component(base, "hooks"),
	)

	bookingCfg := service.BookingConfig{
		MaxAdvanceDays:              cfg.Booking.MaxAdvanceDays,
		AllowRescheduleAfterDecline: cfg.Booking.AllowRescheduleAfterDecline,
	}
	svc := api.Services{
		Bookings:     service.NewBookingService(store, hooks, bookingCfg, logging.Component(base, "bookings")),
		Reschedules:  service.NewRescheduleService(store, hooks, bookingCfg, logging.Component(base, "reschedules")),
		Applications: service.NewApplicationService(store, hooks, logging.Component(base, "applications")),
		Coupons:      service.NewCouponService(store, hooks, logging.Component(base, "coupons")),
		Inbox:        inbox,
		Exporter:     export.NewExporter(cfg.Exports.Path, logging.Component(base, "export")),
	}

	if err := seedCoupons(ctx, cfg, svc.Coupons, &logger); err != nil {
		return err
	}

	go ledger.NewBackupService(store, cfg.Backup, logging.Component(base, "backup")).Start(ctx)

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, cfg, svc, base)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, baseLogger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := notify.NewRedisClient(cfg.Redis)
	if err := notify.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, notifications stay in memory")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initQueue prefers Redis and falls back to a bounded in-memory queue.
func initQueue(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) notify.Queue {
	memory := notify.NewMemoryQueue(cfg.Notifications.BufferSize)
	if redisClient == nil {
		return memory
	}
	primary := notify.NewRedisQueue(redisClient, cfg.Notifications.QueueKey, cfg.Notifications.DeadLetterKey)
	return notify.NewFailoverQueue(primary, memory, logging.Component(logger, "notify-queue"))
}

func startWorkers(ctx context.Context, cfg *config.Config, queue notify.Queue, sink notify.Sink, logger *zerolog.Logger) {
	retry := notify.RetryPolicyFromConfig(cfg.Notifications.Retry)
	for i := 0; i < cfg.Notifications.Workers; i++ {
		workerLogger := logger.With().Str("component", "notify-worker").Int("worker", i).Logger()
		w := notify.NewWorker(queue, sink, retry, cfg.Notifications.PopTimeout, &workerLogger)
		go w.Start(ctx)
	}
}

func initAuditor(cfg *config.Config, store *ledger.SQLiteStore, logger *zerolog.Logger) (domain.Auditor, error) {
	if !cfg.Audit.Enabled {
		return audit.NopRecorder{}, nil
	}
	recorder, err := audit.NewSQLRecorder(store.DB, logging.Component(logger, "audit"))
	if err != nil {
		logger.Error().Err(err).Msg("init audit recorder")
		return nil, err
	}
	return recorder, nil
}

func initEventBus(logger *zerolog.Logger) *events.EventBus {
	bus := events.NewEventBus()
	eventLogger := logging.Component(logger, "events")
	bus.Subscribe(events.AllEvents, func(event *events.Event) error {
		metrics.IncEvent(event.Type)
		eventLogger.Debug().Str("type", event.Type).RawJSON("payload", event.Payload).Msg("domain event")
		return nil
	})
	return bus
}

func seedCoupons(ctx context.Context, cfg *config.Config, coupons *service.CouponService, logger *zerolog.Logger) error {
	path := os.Getenv("COUPONS_PATH")
	if path == "" {
		path = cfg.Seed.CouponsFile
	}
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn().Str("coupons_path", path).Msg("coupon seed file not found, skipping")
		return nil
	}
	if err != nil {
		logger.Error().Err(err).Str("coupons_path", path).Msg("read coupons")
		return err
	}

	var seed struct {
		Coupons []models.Coupon `yaml:"coupons"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		logger.Error().Err(err).Str("coupons_path", path).Msg("parse coupons")
		return err
	}

	if _, err := coupons.SeedCoupons(ctx, seed.Coupons); err != nil {
		logger.Error().Err(err).Msg("seed coupons")
		return err
	}
	return nil
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	metrics.Register()
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(ctx context.Context, cfg *config.Config, svc api.Services, base *zerolog.Logger) error {
	logger := logging.Component(base, "api-main")

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		var err error
		grpcServer, err = api.NewGRPCServer(cfg.API, cfg.App.Name, base)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	httpServer := api.NewHTTPServer(cfg.API, svc, base)
	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().
		Bool("http", cfg.API.HTTP.Enabled).
		Int("http_port", cfg.API.HTTP.Port).
		Bool("grpc", cfg.API.GRPC.Enabled).
		Int("grpc_port", cfg.API.GRPC.Port).
		Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
