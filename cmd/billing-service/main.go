package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crewfleet/billing-service/api"
	"github.com/crewfleet/billing-service/config"
	"github.com/crewfleet/billing-service/domain/service"
	"github.com/crewfleet/billing-service/infrastructure/database/mongodb"
	"github.com/crewfleet/billing-service/infrastructure/email"
	"github.com/crewfleet/billing-service/infrastructure/pdf"
	"github.com/crewfleet/billing-service/infrastructure/storage"
	"github.com/crewfleet/billing-service/usecase"
)

func main() {
	configPath := flag.String("config", "", "directory containing billing.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("billing service failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongodb.NewClient(ctx, cfg.Mongo, logger)
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	defer mongoClient.Close(context.Background())

	placements := mongodb.NewPlacementRepository(mongoClient)
	invoices := mongodb.NewInvoiceRepository(mongoClient)
	companies := mongodb.NewCompanyRepository(mongoClient)
	invoiceStatuses := mongodb.NewInvoiceStatusRepository(mongoClient)
	placementStatuses := mongodb.NewPlacementStatusRepository(mongoClient)
	users := mongodb.NewUserRepository(mongoClient)
	ships := mongodb.NewShipRepository(mongoClient)
	positions := mongodb.NewPositionRepository(mongoClient)
	countries := mongodb.NewCountryRepository(mongoClient)
	outbox := mongodb.NewOutboxRepository(mongoClient)

	statuses, err := service.LoadStatuses(ctx, invoiceStatuses, placementStatuses)
	if err != nil {
		return fmt.Errorf("load status lookup tables: %w", err)
	}

	objectStorage, err := storage.NewS3Storage(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}
	notifier, err := email.NewSESNotifier(ctx, cfg.Email, objectStorage, logger)
	if err != nil {
		return fmt.Errorf("init notifier: %w", err)
	}
	renderer, err := pdf.NewInvoiceRenderer(&pdf.WKHTMLEngine{}, objectStorage, cfg.PDF, logger)
	if err != nil {
		return fmt.Errorf("init pdf renderer: %w", err)
	}

	notify := usecase.NotificationConfig{
		OpsAddress:   cfg.Notifications.OpsAddress,
		ProductionCc: cfg.Notifications.ProductionCc,
		TestingInbox: cfg.Notifications.TestingInbox,
		Production:   cfg.Email.Production,
		PresignTTL:   cfg.Notifications.PresignTTL,
	}

	enricher := usecase.NewEnricher(placements, users, companies, placementStatuses,
		invoiceStatuses, ships, positions, countries, logger)
	resolver := service.NewEligibilityResolver(placements, companies, statuses, logger)
	pricing := service.NewPricingCalculator(statuses)

	generator := usecase.NewInvoiceGenerator(resolver, pricing, statuses, invoices,
		companies, positions, outbox, renderer, enricher, notify, logger)
	lifecycle := usecase.NewLifecycleManager(invoices, placements, companies, positions,
		invoiceStatuses, statuses, enricher, renderer, objectStorage, outbox, notify, logger)

	dispatcher := usecase.NewOutboxDispatcher(outbox, invoices, companies, notifier,
		cfg.Outbox.Interval, cfg.Outbox.BatchSize, cfg.Outbox.MaxAttempts, logger)
	go dispatcher.Run(ctx)

	handler := api.NewHandler(generator, lifecycle, logger)
	router := api.NewRouter(handler, api.AuthConfig{
		Secret: cfg.Auth.Secret,
		Issuer: cfg.Auth.Issuer,
	}, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("billing service listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapCfg.Build()
}
