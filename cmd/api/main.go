package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/absolutastore/storefront-backend/api/routes"
	"github.com/absolutastore/storefront-backend/internal/cart"
	"github.com/absolutastore/storefront-backend/internal/catalog"
	"github.com/absolutastore/storefront-backend/internal/checkout"
	"github.com/absolutastore/storefront-backend/internal/payments"
	"github.com/absolutastore/storefront-backend/pkg/config"
	"github.com/absolutastore/storefront-backend/pkg/db"
	"github.com/absolutastore/storefront-backend/pkg/instance"
	"github.com/absolutastore/storefront-backend/pkg/logger"
	"github.com/absolutastore/storefront-backend/pkg/mercadopago"
	"github.com/absolutastore/storefront-backend/pkg/metrics"
	"github.com/absolutastore/storefront-backend/pkg/migrate"
	"github.com/absolutastore/storefront-backend/pkg/redis"
	"github.com/absolutastore/storefront-backend/pkg/storage"
	"github.com/absolutastore/storefront-backend/pkg/storage/bolt"
)

const (
	shutdownTimeout   = 15 * time.Second
	webhookDedupeTTL  = 72 * time.Hour
	readHeaderTimeout = 10 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		var closeErr error
		for i := len(closers) - 1; i >= 0; i-- {
			closeErr = multierr.Append(closeErr, closers[i].Close())
		}
		if closeErr != nil {
			logg.Error(context.Background(), "error releasing resources", closeErr)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storefrontMetrics := metrics.NewStorefront(reg)

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		closers = append(closers, redisClient)
	}

	cartStorage, err := newCartStorage(cfg.Cart, redisClient, &closers)
	if err != nil {
		logg.Error(ctx, "failed to open cart storage", err)
		os.Exit(1)
	}
	carts, err := cart.NewCarts(cartStorage, logg)
	if err != nil {
		logg.Error(ctx, "failed to create cart store", err)
		os.Exit(1)
	}

	catalogStore, err := catalog.NewStore(catalog.StoreParams{
		Source:  catalog.NewSource(cfg.Catalog.Source, cfg.Catalog.Timeout),
		Logger:  logg,
		Metrics: storefrontMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create catalog store", err)
		os.Exit(1)
	}
	// A failed first load is served as an empty catalog until a reload succeeds.
	_, _ = catalogStore.Load(ctx)

	prefParams := payments.PreferenceParams{
		SiteURL:                 cfg.Site.BaseURL(),
		FallbackNotificationURL: cfg.MercadoPago.FallbackWebhookURL,
		StatementDescriptor:     cfg.MercadoPago.StatementDescriptor,
		ReferencePrefix:         cfg.MercadoPago.ReferencePrefix,
		Logger:                  logg,
	}
	recorder, dbClient, err := newRecorder(ctx, cfg.DB, logg, &closers)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap payment recorder", err)
		os.Exit(1)
	}
	webhookParams := payments.WebhookParams{
		Recorder: recorder,
		Logger:   logg,
		Metrics:  storefrontMetrics,
	}

	if cfg.MercadoPago.AccessToken != "" {
		mpClient, err := mercadopago.NewClient(cfg.MercadoPago.AccessToken, mercadopago.WithBaseURL(cfg.MercadoPago.BaseURL))
		if err != nil {
			logg.Error(ctx, "failed to create mercado pago client", err)
			os.Exit(1)
		}
		prefParams.Client = mpClient
		webhookParams.Client = mpClient
	} else {
		logg.Warn(ctx, "STOREFRONT_MP_ACCESS_TOKEN not set; preference and webhook endpoints will fail")
	}

	preferenceService, err := payments.NewPreferenceService(prefParams)
	if err != nil {
		logg.Error(ctx, "failed to create preference service", err)
		os.Exit(1)
	}

	if redisClient != nil {
		webhookParams.Guard, err = payments.NewIdempotencyGuard(redisClient, webhookDedupeTTL, "mercadopago_webhook")
		if err != nil {
			logg.Error(ctx, "failed to create webhook idempotency guard", err)
			os.Exit(1)
		}
	}
	webhookService, err := payments.NewWebhookService(webhookParams)
	if err != nil {
		logg.Error(ctx, "failed to create webhook service", err)
		os.Exit(1)
	}

	localPreferences, err := payments.NewInProcessClient(preferenceService)
	if err != nil {
		logg.Error(ctx, "failed to create preference client", err)
		os.Exit(1)
	}
	checkoutService, err := newCheckoutService(cfg.Checkout, localPreferences, redisClient, logg, storefrontMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	deps := routes.Dependencies{
		Catalog:     catalogStore,
		Carts:       carts,
		Checkout:    checkoutService,
		Preferences: preferenceService,
		Webhooks:    webhookService,
		Redis:       redisClient,
		Gatherer:    reg,
	}
	if dbClient != nil {
		deps.DB = dbClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"instance":     instance.GetID(),
		"cart_storage": cfg.Cart.Backend(),
	})
	logg.Info(serverCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "graceful shutdown failed", err)
		}
	}
}

func newCartStorage(cfg config.CartConfig, redisClient *redis.Client, closers *[]io.Closer) (storage.Storage, error) {
	switch cfg.Backend() {
	case config.CartStorageRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("%s=%s requires redis to be configured", config.EnvCartStorage, config.CartStorageRedis)
		}
		return redisClient.Storage(cfg.RedisExpiry), nil
	case config.CartStorageBolt:
		store, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, store)
		return store, nil
	default:
		return storage.NewMemory(), nil
	}
}

// newRecorder always logs notifications and additionally persists them when a
// database is configured.
func newRecorder(ctx context.Context, cfg config.DBConfig, logg *logger.Logger, closers *[]io.Closer) (payments.Recorder, *db.Client, error) {
	logRecorder := payments.NewLogRecorder(logg)
	if !cfg.Enabled() {
		return logRecorder, nil, nil
	}

	dbClient, err := db.New(ctx, cfg, logg)
	if err != nil {
		return nil, nil, err
	}
	*closers = append(*closers, dbClient)

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		return nil, nil, err
	}

	gormRecorder, err := payments.NewGormRecorder(dbClient.DB())
	if err != nil {
		return nil, nil, err
	}
	return payments.MultiRecorder{logRecorder, gormRecorder}, dbClient, nil
}

// newCheckoutService posts to an external preference endpoint when one is
// configured and calls the in-process preference service otherwise.
func newCheckoutService(cfg config.CheckoutConfig, local checkout.PreferenceClient, redisClient *redis.Client, logg *logger.Logger, m *metrics.Storefront) (*checkout.Service, error) {
	client := local
	if cfg.PreferenceEndpoint != "" {
		httpClient, err := checkout.NewHTTPPreferenceClient(cfg.PreferenceEndpoint)
		if err != nil {
			return nil, err
		}
		client = httpClient
	}

	params := checkout.ServiceParams{Client: client, Logger: logg, Metrics: m}
	if redisClient != nil {
		tracker, err := checkout.NewRedisTracker(redisClient, cfg.SubmitTTL)
		if err != nil {
			return nil, err
		}
		params.Tracker = tracker
	}
	return checkout.NewService(params)
}
