package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v78"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/address"
	"github.com/jafarshop/storefront-checkout/internal/api"
	"github.com/jafarshop/storefront-checkout/internal/config"
	"github.com/jafarshop/storefront-checkout/internal/continuation"
	"github.com/jafarshop/storefront-checkout/internal/geo"
	"github.com/jafarshop/storefront-checkout/internal/metrics"
	"github.com/jafarshop/storefront-checkout/internal/orderservice"
	"github.com/jafarshop/storefront-checkout/internal/payment"
	"github.com/jafarshop/storefront-checkout/internal/placement"
	"github.com/jafarshop/storefront-checkout/internal/repository/postgres"
	"github.com/jafarshop/storefront-checkout/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting storefront checkout server",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
	)

	// Initialize database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migration := filepath.Join("migrations", "000001_init_schema.up.sql")
	if err := postgres.RunMigrations(context.Background(), db, migration); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	logger.Info("Schema is up to date", zap.String("migration", migration))

	repos := postgres.NewRepositories(db, logger)

	store := continuationStore(cfg, logger)

	// Upstream clients
	orders := orderservice.NewClient(cfg.OrderService.BaseURL, cfg.OrderService.ServiceKey, cfg.OrderService.Timeout, logger)
	directory := geo.NewClient(cfg.Geography.BaseURL, cfg.Geography.Timeout, cfg.Geography.CacheTTL, logger)

	addrValidator, err := address.NewValidator(directory, cfg.Checkout.PhonePattern)
	if err != nil {
		logger.Fatal("Invalid phone pattern", zap.Error(err))
	}

	gateway, err := payment.NewStripeGateway(cfg.Stripe.SecretKey, stripe.NewBackends(&http.Client{Timeout: cfg.Stripe.Timeout}), logger)
	if err != nil {
		logger.Fatal("Failed to configure payment gateway", zap.Error(err))
	}
	converter, err := payment.NewConverter(cfg.Stripe.Currency, cfg.Stripe.MinorExponent, cfg.Stripe.BaseUnitsPerMajor)
	if err != nil {
		logger.Fatal("Invalid currency conversion", zap.Error(err))
	}

	checkoutMetrics := metrics.New(prometheus.DefaultRegisterer)
	payments := payment.NewService(gateway, orders, store, repos.CheckoutEvent, converter, logger)
	engine := placement.NewEngine(orders, addrValidator, repos.CheckoutEvent, logger)

	sessions := service.NewSessions(orders, directory, logger)
	sessions.OnEvict(payments.Forget)

	deps := api.Dependencies{
		Sessions:  sessions,
		Checkout:  service.NewCheckoutService(sessions, engine, payments, orders, repos, checkoutMetrics, cfg.Checkout.SupportWebhookURL, logger),
		Orders:    service.NewOrderQueryService(orders, logger),
		Addresses: orders,
		Validator: addrValidator,
		Repos:     repos,
		Metrics:   checkoutMetrics,
	}
	router := api.NewRouter(cfg, deps, logger)

	// Create HTTP server. No write timeout: the cart stream is long-lived.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Province cache warm-up and idle session eviction
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go service.RunHousekeepingLoop(bgCtx, cfg.Checkout.DirectoryWarmEvery, directory, sessions, cfg.Checkout.SessionIdleTimeout, logger)
	logger.Info("Housekeeping job started",
		zap.Duration("interval", cfg.Checkout.DirectoryWarmEvery),
		zap.Duration("session_idle_timeout", cfg.Checkout.SessionIdleTimeout),
	)

	logger.Info("Server started successfully", zap.String("address", srv.Addr))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = level
	}
	return zapCfg.Build()
}

// continuationStore returns the Redis store. Outside production an
// unreachable Redis falls back to process memory.
func continuationStore(cfg *config.Config, logger *zap.Logger) continuation.Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		if cfg.Environment == "production" {
			logger.Fatal("Failed to connect to Redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		logger.Warn("Redis unavailable, checkout continuations are kept in memory", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		client.Close()
		return continuation.NewMemoryStore()
	}
	return continuation.NewRedisStore(client, cfg.Checkout.ContinuationTTL)
}
