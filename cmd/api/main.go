package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-restaurant-booking/internal/api"
	"github.com/sanosuguru/go-restaurant-booking/internal/api/handler"
	"github.com/sanosuguru/go-restaurant-booking/internal/api/middleware"
	"github.com/sanosuguru/go-restaurant-booking/internal/application"
	"github.com/sanosuguru/go-restaurant-booking/internal/config"
	"github.com/sanosuguru/go-restaurant-booking/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-restaurant-booking/internal/infrastructure/rabbitmq"
	redisinfra "github.com/sanosuguru/go-restaurant-booking/internal/infrastructure/redis"
	"github.com/sanosuguru/go-restaurant-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-restaurant-booking/internal/pkg/metrics"
	"github.com/sanosuguru/go-restaurant-booking/internal/worker"
)

func main() {
	if err := run(); err != nil {
		logger.Fatal("サーバー起動エラー", zap.Error(err))
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Set(logger.NewLogger(cfg.App.Env, cfg.App.LogLevel))
	defer func() { _ = logger.Sync() }()

	m := metrics.Init()

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.RunMigrations(db.DB, cfg.App.MigrationsPath); err != nil {
		return err
	}
	logger.Info("マイグレーション完了", zap.String("path", cfg.App.MigrationsPath))

	checks := map[string]handler.HealthCheck{
		"postgres": func(ctx context.Context) error { return postgres.Ping(ctx, db) },
	}

	// 未設定の依存は nil インターフェースのまま渡す
	var cache application.AvailabilityCache
	if cfg.Redis.Enabled {
		client := redisinfra.NewClient(&cfg.Redis)
		defer client.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisinfra.Ping(ctx, client)
		cancel()
		if err != nil {
			return err
		}
		cache = redisinfra.NewAvailabilityCache(client, cfg.Redis.AvailabilityTTL)
		checks["redis"] = func(ctx context.Context) error { return redisinfra.Ping(ctx, client) }
		logger.Info("空き状況キャッシュ有効", zap.Duration("ttl", cfg.Redis.AvailabilityTTL))
	}

	var publisher application.EventPublisher
	if cfg.RabbitMQ.Enabled {
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
		logger.Info("予約イベント配信有効", zap.String("exchange", cfg.RabbitMQ.Exchange))
	}

	storeRepo := postgres.NewStoreRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	slotRepo := postgres.NewSlotReservationRepository(db)

	bookingService := application.NewBookingService(
		postgres.NewTxManager(db),
		bookingRepo,
		slotRepo,
		postgres.NewAdvisoryLocker(m),
		storeRepo,
		cache,
		publisher,
		m,
	)
	availabilityService := application.NewAvailabilityService(slotRepo, storeRepo, cache, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reconciler *worker.SlotReconciler
	if cfg.Reconciler.Interval > 0 {
		reconciler = worker.NewSlotReconciler(slotRepo, cfg.Reconciler.Interval, m)
		go reconciler.Start(ctx)
	}

	e := newServer(cfg, m, bookingService, availabilityService, checks)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("サーバー起動", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("サーバー起動に失敗しました: %w", err)
	}

	logger.Info("サーバーをシャットダウンしています...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if reconciler != nil {
		reconciler.Stop()
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("サーバーシャットダウンに失敗しました: %w", err)
	}

	logger.Info("サーバーが正常にシャットダウンしました")
	return nil
}

func newServer(
	cfg *config.Config,
	m *metrics.Metrics,
	bookings handler.BookingServiceInterface,
	availability handler.AvailabilityServiceInterface,
	checks map[string]handler.HealthCheck,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	e.Validator = api.NewValidator()
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	middleware.SetupMiddleware(e, m)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(&cfg.Metrics))
	handler.RegisterRoutes(e,
		handler.NewBookingHandler(bookings),
		handler.NewAvailabilityHandler(availability),
		handler.NewHealthHandler(checks),
	)

	return e
}
