package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/aquafindr/aquafindr-backend/api/controllers"
	"github.com/aquafindr/aquafindr-backend/api/routes"
	"github.com/aquafindr/aquafindr-backend/internal/bookings"
	"github.com/aquafindr/aquafindr-backend/internal/catalog"
	"github.com/aquafindr/aquafindr-backend/internal/invoices"
	"github.com/aquafindr/aquafindr-backend/internal/notifications"
	"github.com/aquafindr/aquafindr-backend/internal/pricing"
	"github.com/aquafindr/aquafindr-backend/internal/reassignment"
	"github.com/aquafindr/aquafindr-backend/internal/settlement"
	"github.com/aquafindr/aquafindr-backend/internal/wallet"
	"github.com/aquafindr/aquafindr-backend/pkg/config"
	"github.com/aquafindr/aquafindr-backend/pkg/db"
	"github.com/aquafindr/aquafindr-backend/pkg/gateway"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
	"github.com/aquafindr/aquafindr-backend/pkg/migrate"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox/idempotency"
	"github.com/aquafindr/aquafindr-backend/pkg/redis"
	"github.com/aquafindr/aquafindr-backend/pkg/storage/gcs"
)

const shutdownGrace = 10 * time.Second

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gatewayClient, err := gateway.NewClient(context.Background(), cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap payment gateway", err)
		os.Exit(1)
	}

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Warn(logg.WithField(context.Background(), "error", err.Error()), "gcs unavailable, signed URLs disabled")
		gcsClient = nil
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	bookingsRepo := bookings.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	walletRepo := wallet.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	invoicesRepo := invoices.NewRepository(dbClient.DB())

	calc := pricing.NewCalculator(cfg.Pricing)

	catalogSvc, err := catalog.NewService(catalogRepo)
	exitOn(logg, "catalog service", err)

	walletSvc, err := wallet.NewService(walletRepo, dbClient, outboxSvc, logg)
	exitOn(logg, "wallet service", err)

	settlementSvc, err := settlement.NewService(bookingsRepo, dbClient, outboxSvc, gatewayClient, walletSvc, logg)
	exitOn(logg, "settlement service", err)

	creditRecovery, err := settlement.NewCreditRecovery(bookingsRepo, dbClient, walletSvc, logg)
	exitOn(logg, "credit recovery", err)

	reassignEngine, err := reassignment.NewEngine(bookingsRepo, catalogRepo, dbClient, outboxSvc, calc, logg)
	exitOn(logg, "reassignment engine", err)

	bookingsSvc, err := bookings.NewService(bookingsRepo, catalogRepo, dbClient, outboxSvc, calc, gatewayClient, reassignEngine, settlementSvc, logg)
	exitOn(logg, "bookings service", err)

	notificationsSvc, err := notifications.NewService(notificationsRepo)
	exitOn(logg, "notifications service", err)

	var signer invoices.URLSigner
	if gcsClient != nil {
		signer = gcsClient
	}
	invoicesSvc, err := invoices.NewService(invoicesRepo, signer, logg)
	exitOn(logg, "invoices service", err)

	webhookGuard, err := idempotency.NewManager(redisClient, cfg.Eventing.WebhookIdempotencyTTL)
	exitOn(logg, "webhook idempotency guard", err)

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}
	if gcsClient != nil {
		readiness["storage"] = gcsClient
	}

	handler := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		Redis:          redisClient,
		Gateway:        gatewayClient,
		WebhookGuard:   webhookGuard,
		Readiness:      readiness,
		Bookings:       bookingsSvc,
		Catalog:        catalogSvc,
		Wallet:         walletSvc,
		Notifications:  notificationsSvc,
		Settlement:     settlementSvc,
		CreditRecovery: creditRecovery,
		Invoices:       invoicesSvc,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}

func exitOn(logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}
