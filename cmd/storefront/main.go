package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/contact"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/storefront-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/notify"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

func main() {
	cfg, cfgErr := config.Load()

	logger, err := newLogger(cfg.LogDevelopment)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfgErr != nil {
		logger.Fatal("load config", zap.Error(cfgErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatal("run migrations", zap.Error(err))
		}
	}

	database, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer database.Close()

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("open pgx pool", zap.Error(err))
	}
	defer pool.Close()

	var summaries cart.SummaryCache = cart.NoopCache{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("parse REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable", zap.Error(err))
		}
		summaries = cart.NewRedisCache(rdb)
	} else {
		logger.Info("REDIS_URL not set, cart summary cache disabled")
	}

	var (
		publisher   *events.Publisher
		orderEvents order.Publisher
	)
	if cfg.RabbitURL != "" {
		conn, err := events.Dial(cfg.RabbitURL)
		if err != nil {
			logger.Fatal("dial rabbitmq", zap.Error(err))
		}
		defer conn.Close()

		publisher, err = events.NewPublisher(conn, logger)
		if err != nil {
			logger.Fatal("create publisher", zap.Error(err))
		}
		orderEvents = publisher
	} else {
		logger.Info("RABBITMQ_URL not set, order events disabled")
	}

	var sender notify.Sender = notify.NewLogSender(logger)
	if cfg.SendGridAPIKey != "" {
		sender, err = notify.NewSendGridSender(cfg.SendGridAPIKey, logger)
		if err != nil {
			logger.Fatal("create sendgrid sender", zap.Error(err))
		}
	}

	products := catalog.NewPostgresRepository(pool)
	carts := cart.NewService(cart.NewRepository(database), products, summaries, logger)
	orders := order.NewService(
		order.NewRepository(database, order.NewNumberGenerator(cfg.OrderNumberPrefix)),
		carts,
		notify.NewOrderNotifier(sender, cfg.MailFrom),
		orderEvents,
		logger,
	)
	if n, err := orders.RepublishPending(ctx); err != nil {
		logger.Warn("republish pending OrderPlaced events", zap.Int("published", n), zap.Error(err))
	}
	contacts := contact.NewService(sender, cfg.MailFrom, cfg.ContactRecipient, logger)

	router := httpapi.NewRouter(httpapi.Deps{
		Catalog:          products,
		Carts:            carts,
		Orders:           orders,
		Contact:          contacts,
		Sessions:         middleware.Sessions{CookieName: cfg.SessionCookieName, Secure: cfg.SessionCookieSecure},
		Logger:           logger,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		RequestTimeout:   cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(router, "storefront"),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("storefront listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown error", zap.Error(err))
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Warn("publisher close error", zap.Error(err))
		}
	}
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
