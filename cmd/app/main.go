package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"karaoke-subscription/internal/config"
	"karaoke-subscription/internal/domain/ports/adapter"
	pg "karaoke-subscription/internal/infra/db/postgres"
	"karaoke-subscription/internal/infra/logging"
	"karaoke-subscription/internal/infra/mail"
	"karaoke-subscription/internal/infra/metrics"
	"karaoke-subscription/internal/infra/payment"
	red "karaoke-subscription/internal/infra/redis"
	"karaoke-subscription/internal/infra/sched"
	"karaoke-subscription/internal/infra/web"
	"karaoke-subscription/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateway/mailer)")
	flag.Parse()

	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis (optional: the DB constraint still dedupes without it) ----
	var locker usecase.InFlightLocker
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect failed")
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
	} else {
		logger.Warn().Msg("redis.url not set; running without in-flight payment locks")
	}

	// ---- Repositories ----
	accountRepo := pg.NewPostgresAccountRepo(pool)
	eventRepo := pg.NewPostgresPaymentEventRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Adapters ----
	var gateway adapter.PaymentGateway
	var mailer adapter.Mailer
	if cfg.Runtime.Dev {
		gateway = payment.NewNoopGateway()
		mailer = mail.NewNoopMailer(logger)
	} else {
		gateway = payment.NewMercadoPagoGateway(cfg.Gateway.AccessToken, cfg.Gateway.BaseURL, cfg.Gateway.Timeout)
		if cfg.SMTP.Host != "" {
			mailer = mail.NewSMTPMailer(cfg.SMTP)
		} else {
			logger.Warn().Msg("smtp.host not set; confirmation mails are suppressed")
			mailer = mail.NewNoopMailer(logger)
		}
	}
	logger.Info().Str("gateway", gateway.Name()).Msg("payment gateway ready")

	// ---- Use cases ----
	reconcileUC := usecase.NewReconcileUseCase(
		accountRepo, eventRepo, txManager, gateway, mailer, locker,
		cfg.Reconciler.LockTTL, logger,
	)
	accountUC := usecase.NewAccountUseCase(accountRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)

	// ---- HTTP server ----
	srv := web.NewServer(reconcileUC, accountUC, cfg.Gateway.WebhookSecret, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Redrive worker ----
	worker := sched.NewRedriveWorker(reconcileUC, eventRepo, cfg.Reconciler.RedriveInterval, cfg.Reconciler.StaleAfter, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}
