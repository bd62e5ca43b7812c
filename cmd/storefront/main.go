package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/andreasstove999/labtest-storefront/internal/auth"
	"github.com/andreasstove999/labtest-storefront/internal/authz"
	"github.com/andreasstove999/labtest-storefront/internal/cache"
	"github.com/andreasstove999/labtest-storefront/internal/cart"
	"github.com/andreasstove999/labtest-storefront/internal/catalog"
	"github.com/andreasstove999/labtest-storefront/internal/checkout"
	"github.com/andreasstove999/labtest-storefront/internal/config"
	"github.com/andreasstove999/labtest-storefront/internal/db"
	"github.com/andreasstove999/labtest-storefront/internal/events"
	"github.com/andreasstove999/labtest-storefront/internal/httpapi"
	"github.com/andreasstove999/labtest-storefront/internal/logging"
	"github.com/andreasstove999/labtest-storefront/internal/metrics"
	"github.com/andreasstove999/labtest-storefront/internal/order"
	"github.com/andreasstove999/labtest-storefront/internal/promo"
	"github.com/andreasstove999/labtest-storefront/internal/tracing"
	"github.com/andreasstove999/labtest-storefront/internal/user"
	"github.com/andreasstove999/labtest-storefront/internal/validation"
)

// eventSink is what the order and checkout services publish through.
type eventSink interface {
	order.Notifier
	checkout.RedemptionNotifier
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Env: cfg.LogEnv()})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: "storefront",
		Env:         cfg.Env,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	sqlDB, err := db.Open(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if cfg.Postgres.RunMigrations {
		if err := db.RunMigrations(sqlDB, logger); err != nil {
			return err
		}
	}

	pool, err := db.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	probes := []httpapi.Probe{
		{Name: "postgres", Check: sqlDB.PingContext},
		{Name: "postgres_pool", Check: pool.Ping},
	}

	var kv cache.Cache = cache.NewMemory()
	if cfg.Redis.Enabled {
		rdb, err := cache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		kv = cache.NewRedisCache(rdb)
		probes = append(probes, httpapi.Probe{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		logger.Info("redis cache enabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		logger.Info("redis disabled, using in-process cache")
	}

	var sink eventSink = events.Noop{Logger: logger}
	if cfg.RabbitMQ.Enabled {
		conn, err := events.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer conn.Close()

		pub, err := events.NewPublisher(conn, events.NewSequenceRepository(sqlDB), events.PublisherOptions{}, logger)
		if err != nil {
			return fmt.Errorf("create publisher: %w", err)
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("publisher close", zap.Error(err))
			}
		}()
		sink = pub
		probes = append(probes, httpapi.Probe{Name: "rabbitmq", Check: rabbitProbe(conn)})
	}

	m := metrics.New()
	validate := validation.New()

	catalogRepo := catalog.NewCachedRepository(catalog.NewPostgresRepository(pool), kv, cfg.Redis.CatalogTTL, logger)
	catalogSvc := catalog.NewService(catalogRepo, validate, logger)
	promoSvc := promo.NewService(promo.NewPostgresRepository(pool), validate, m, logger)
	cartSvc := cart.NewService(cart.NewRepository(sqlDB), promoSvc, catalogSvc)
	orderSvc := order.NewService(order.NewRepository(sqlDB), sink, m, logger)
	checkoutSvc := checkout.NewService(cartSvc, promoSvc, orderSvc, sink, validate, m, logger)
	userSvc := user.NewService(user.NewPostgresRepository(pool), validate, logger)

	authSvc := auth.NewService(
		userSvc,
		auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL),
		auth.NewOTPStore(kv, cfg.Auth.OTPTTL, cfg.Auth.OTPLength),
		auth.LogSender{Logger: logger},
		logger,
	)

	enforcer, err := authz.New()
	if err != nil {
		return fmt.Errorf("init authz: %w", err)
	}

	handler := httpapi.NewRouter(httpapi.Deps{
		Logger:         logger,
		Metrics:        m,
		Cart:           cartSvc,
		Promos:         promoSvc,
		Catalog:        catalogSvc,
		Checkout:       checkoutSvc,
		Orders:         orderSvc,
		Users:          userSvc,
		Auth:           authSvc,
		Authz:          enforcer,
		Probes:         probes,
		AllowOrigins:   cfg.CORS.AllowOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("storefront listening", zap.String("addr", cfg.HTTP.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown", zap.Error(err))
	}
	return nil
}

func rabbitProbe(conn *amqp.Connection) func(context.Context) error {
	return func(context.Context) error {
		if conn.IsClosed() {
			return errors.New("connection closed")
		}
		return nil
	}
}
