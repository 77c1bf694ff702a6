package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/Checker-Finance/trade-recon/internal/api"
	"github.com/Checker-Finance/trade-recon/internal/config"
	"github.com/Checker-Finance/trade-recon/internal/events"
	"github.com/Checker-Finance/trade-recon/internal/rabbitmq"
	"github.com/Checker-Finance/trade-recon/internal/recon"
	internalsecrets "github.com/Checker-Finance/trade-recon/internal/secrets"
	"github.com/Checker-Finance/trade-recon/internal/store"
	"github.com/Checker-Finance/trade-recon/internal/trade"
	"github.com/Checker-Finance/trade-recon/pkg/logger"
	"github.com/Checker-Finance/trade-recon/pkg/secrets"
	"github.com/Checker-Finance/trade-recon/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [trade-recon]...")

	// --- Optional AWS Secrets Manager credential resolution ---
	stopCleaner := make(chan struct{})
	if cfg.SecretID != "" {
		awsProvider, err := secrets.NewAWSProvider(cfg.AWSRegion)
		if err != nil {
			logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
		}
		secretCache := secrets.NewCache[map[string]string](cfg.SecretCacheTTL)
		go secretCache.StartCleaner(cfg.SecretCleanFreq, stopCleaner)

		resolver := internalsecrets.NewResolver(logger.L(), awsProvider, secretCache)
		if err := resolver.ApplyOverrides(ctx, cfg); err != nil {
			logg.Fatalw("failed to resolve runtime credentials", "error", err)
		}
	}
	logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))

	// --- Store (Redis + Postgres hybrid) ---
	st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisDB, cfg.RedisPass, cfg.DatabaseURL, cfg.StatusCacheTTL, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, logger.L())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}
	if err := st.Migrate(ctx); err != nil {
		logg.Fatalw("failed to run schema migration", "error", err)
	}

	// --- Connect to NATS ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logg.Fatalw("failed to connect to NATS", "error", err)
	}

	// --- Outcome event publisher ---
	pub, err := events.New(nc, cfg.EventSubject, cfg.ServiceName, logger.L())
	if err != nil {
		logg.Fatalw("failed to init event publisher", "error", err)
	}

	// --- Task queue publisher (AMQP) ---
	taskPub, err := rabbitmq.NewTaskPublisher(cfg.AMQPURL, cfg.TaskQueue, logger.L())
	if err != nil {
		logg.Fatalw("failed to init task publisher", "error", err)
	}

	// --- Reconciliation engine + task consumer ---
	engine := recon.NewEngine(st, st, pub, logger.L())
	consumer, err := rabbitmq.NewConsumer(cfg.AMQPURL, cfg.TaskQueue, cfg.Workers, engine, logger.L())
	if err != nil {
		logg.Fatalw("failed to init task consumer", "error", err)
	}
	if err := consumer.Start(ctx); err != nil {
		logg.Fatalw("failed to start task consumer", "error", err)
	}

	// --- Timeout sweeper ---
	sweeper := recon.NewTimeoutSweeper(st, pub, logger.L(), cfg.SweepInterval, cfg.Timeout())
	go sweeper.Start(ctx)

	// --- Trade submission service ---
	tradeSvc := trade.NewService(st, taskPub, logger.L())

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})
	handler := api.NewHandler(tradeSvc, st, logger.L())
	api.RegisterRoutes(app, handler, st, nc)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[trade-recon] running",
		"env", cfg.Env,
		"nats", cfg.NATSURL,
		"task_queue", cfg.TaskQueue,
		"workers", cfg.Workers,
		"timeout_minutes", cfg.TimeoutMinutes,
		"sweep_interval", cfg.SweepInterval)

	<-ctx.Done()
	logg.Info("shutting down [trade-recon]...")

	close(stopCleaner)
	if err := consumer.Close(); err != nil {
		logg.Warnw("consumer.close_failed", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := taskPub.Close(); err != nil {
		logg.Warnw("task_publisher.close_failed", "error", err)
	}
	if err := nc.Drain(); err != nil {
		logg.Warnw("nats.drain_failed", "error", err)
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}
