// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"practice-payments/internal/config"
	pg "practice-payments/internal/infra/db/postgres"
	"practice-payments/internal/infra/gateway"
	"practice-payments/internal/infra/logging"
	"practice-payments/internal/infra/metrics"
	red "practice-payments/internal/infra/redis"
	"practice-payments/internal/infra/sched"
	"practice-payments/internal/infra/web"
	"practice-payments/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, verbose)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	planRepo := pg.NewPlanRepo(pool)
	couponRepo := pg.NewCouponRepo(pool)
	invoiceRepo := pg.NewInvoiceRepo(pool)
	userRepo := pg.NewUserRepo(pool)
	attemptRepo := pg.NewAttemptRepo(pool)
	settlementRepo := pg.NewSettlementRepo(pool)
	settingsRepo := pg.NewGatewaySettingsCacheDecorator(pg.NewGatewaySettingsRepo(pool), redisClient, cfg.Redis.TTL)
	tm := pg.NewTxManager(pool)

	// ---- Gateway adapters ----
	httpClient := &http.Client{Timeout: cfg.Payment.InitiateTimeout}
	registry := gateway.NewRegistry(
		gateway.NewPayTRAdapter(httpClient),
		gateway.NewMollieAdapter(httpClient),
		gateway.NewPayfastAdapter(),
	)

	// ---- Use cases ----
	tolerance, err := decimal.NewFromString(cfg.Payment.AmountTolerance)
	if err != nil {
		logger.Fatal().Err(err).Str("value", cfg.Payment.AmountTolerance).Msg("payment.amount_tolerance")
	}

	pricingUC := usecase.NewPricingUseCase(planRepo, invoiceRepo, couponRepo, logger)
	checkoutUC := usecase.NewCheckoutUseCase(
		pricingUC, attemptRepo, settingsRepo, registry, locker,
		cfg.Payment.CheckoutLockTTL, cfg.Payment.InitiateTimeout, logger,
	)
	settlementUC := usecase.NewSettlementUseCase(
		attemptRepo, settlementRepo, invoiceRepo, planRepo, userRepo, tm, tolerance, logger,
	)

	// ---- HTTP server ----
	tokens := web.NewPayTokenManager(cfg.Server.TokenSecret, cfg.Server.TokenTTL)
	server := web.NewServer(
		cfg, checkoutUC, settlementUC,
		attemptRepo, invoiceRepo, settlementRepo, settingsRepo,
		registry, tokens, logger,
	)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Reconciler ----
	reconciler := sched.NewAttemptReconciler(
		settlementUC, attemptRepo, settingsRepo, registry,
		cfg.Scheduler.ReconcileInterval, cfg.Scheduler.StaleAfter, cfg.Scheduler.ExpireAfter,
		logger,
	)
	go reconciler.Start(ctx)

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}
}
