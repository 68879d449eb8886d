package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/hopeworks/giving/config"
	"github.com/hopeworks/giving/infra"
	infraprovider "github.com/hopeworks/giving/infra/provider"
	infrarepo "github.com/hopeworks/giving/infra/repository"
	"github.com/hopeworks/giving/pkg/audit"
	"github.com/hopeworks/giving/pkg/ratelimit"
	donationsvc "github.com/hopeworks/giving/pkg/service/donation"
	reconcilesvc "github.com/hopeworks/giving/pkg/service/reconcile"
	"github.com/hopeworks/giving/webapi"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	logger := slog.Default()
	cfg, err := config.LoadAppConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}
	logger = setupLogger(cfg.Log)

	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&infrarepo.Donation{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	auditLog, err := audit.New(cfg.Audit.Dir)
	if err != nil {
		return fmt.Errorf("failed to open audit trail: %w", err)
	}
	defer auditLog.Close() //nolint: errcheck

	repo := infrarepo.New(db)
	gateway := infraprovider.NewStripeGateway(&cfg.Stripe, logger)

	paymentLimiter := ratelimit.New(
		ratelimit.NewMemoryStore(),
		cfg.RateLimit.Payment.MaxRequests,
		cfg.RateLimit.Payment.Window,
	)
	readLimiter := ratelimit.New(
		ratelimit.NewMemoryStore(),
		cfg.RateLimit.Read.MaxRequests,
		cfg.RateLimit.Read.Window,
	)

	donationSvc := donationsvc.NewService(repo, gateway, auditLog, cfg.Beneficiary, logger)
	reconcileSvc := reconcilesvc.NewService(repo, gateway, auditLog, logger)

	app := webapi.SetupApp(webapi.Deps{
		Config:         cfg,
		DonationSvc:    donationSvc,
		ReconcileSvc:   reconcileSvc,
		PaymentLimiter: paymentLimiter,
		ReadLimiter:    readLimiter,
		Logger:         logger,
	})

	// Graceful shutdown: stop accepting work, flush the audit handle.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logger.Info("Shutting down server")
		if err := app.Shutdown(); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	logger.Info("Starting server", "env", cfg.Env, "address", addr)
	return app.Listen(addr)
}
