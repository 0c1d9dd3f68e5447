package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"tenantcore/internal/api"
	"tenantcore/internal/auth"
	"tenantcore/internal/config"
	"tenantcore/internal/consumer"
	"tenantcore/internal/logger"
	"tenantcore/internal/manager"
	"tenantcore/internal/messaging"
	"tenantcore/internal/metrics"
	"tenantcore/internal/storage"
	"tenantcore/internal/worker"
)

func main() {
	// Init Metrics
	metrics.Init()

	// Load Configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog := logger.New(cfg.LogLevel)
	defer zlog.Sync()
	zlog.Info("configuration loaded")

	// Setup JWT Secret
	auth.SetSecret(cfg.Auth.JWTSecret)

	// Init PostgreSQL
	db, err := storage.NewStorage(cfg.Database.URL)
	if err != nil {
		zlog.Fatalw("failed to init db", "error", err)
	}
	defer db.DB.Close()
	zlog.Info("postgres connected")

	// Schema and row-security setup. Both are idempotent; policy installation
	// tolerates per-table failures but a complete failure is fatal.
	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		zlog.Fatalw("migration failed", "error", err)
	}
	if err := db.InstallTenantPolicies(ctx, zlog); err != nil {
		zlog.Warnw("row security setup incomplete", "error", err)
	}

	// Startup inventory of registered tenants.
	tenants, err := db.ListTenants(ctx)
	if err != nil {
		zlog.Fatalw("failed to list tenants", "error", err)
	}
	zlog.Infow("tenants loaded", "count", len(tenants))

	// Init RabbitMQ
	rabbitClient, err := messaging.NewRabbitClient(cfg.RabbitMQ.URL)
	if err != nil {
		zlog.Fatalw("failed to connect to rabbitmq", "error", err)
	}
	defer rabbitClient.Close()
	if err := rabbitClient.DeclareEventQueue(); err != nil {
		zlog.Fatalw("failed to declare event queue", "error", err)
	}
	zlog.Info("rabbitmq connected")

	// Audit pipeline: tenant events drain into the audit_events table.
	pool := worker.NewPool(cfg.Workers, consumer.NewAuditHandler(db.DB, db, zlog), zlog)
	auditConsumer, err := consumer.StartConsumer(rabbitClient.GetConnection(), pool, zlog)
	if err != nil {
		zlog.Fatalw("failed to start consumer", "error", err)
	}

	// Queue depth gauge refresh loop.
	depthCtx, stopDepth := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-depthCtx.Done():
				return
			case <-ticker.C:
				if err := rabbitClient.UpdateQueueDepth(); err != nil {
					zlog.Warnw("queue depth update failed", "error", err)
				}
			}
		}
	}()

	// Init API
	mgr := manager.NewManager(db, rabbitClient, zlog)
	apiHandler := api.NewAPI(mgr, db, db, db.DB, zlog)
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: apiHandler.Router(),
	}

	// Graceful Shutdown Setup
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		zlog.Infow("starting api server", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatalw("server error", "error", err)
		}
	}()

	<-sigCtx.Done() // Wait for interrupt signal
	zlog.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Errorw("http shutdown error", "error", err)
	}

	stopDepth()
	auditConsumer.Stop()

	zlog.Info("graceful shutdown complete")
}
