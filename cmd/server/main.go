package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"warehouse-sync-agent/internal/auth"
	"warehouse-sync-agent/internal/cache"
	"warehouse-sync-agent/internal/config"
	"warehouse-sync-agent/internal/connectivity"
	"warehouse-sync-agent/internal/database"
	"warehouse-sync-agent/internal/gateway"
	"warehouse-sync-agent/internal/handlers"
	"warehouse-sync-agent/internal/ledger"
	"warehouse-sync-agent/internal/models"
	"warehouse-sync-agent/internal/outbox"
	"warehouse-sync-agent/internal/realtime"
	"warehouse-sync-agent/internal/remote"
	"warehouse-sync-agent/internal/routes"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("WAREHOUSE_CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	mirror, closeMirror, err := openMirror(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeMirror()

	respCache := cache.NewResponseCache(cache.Options{
		MaxBytes: cfg.Cache.MaxBytes,
		Mirror:   mirror,
		Logger:   logger.With("component", "cache"),
	})
	if err := respCache.Load(ctx); err != nil {
		// a cold cache is usable; the mirror is rewritten as entries are set
		logger.Warn("cache warm-up failed", "error", err)
	}

	client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Token, cfg.Remote.Timeout, nil)
	gw, err := gateway.New(gateway.Options{
		Remote:                 client,
		Cache:                  respCache,
		DefaultTTL:             cfg.Cache.DefaultTTL,
		WriteSensitivePrefixes: cfg.Invalidation.Prefixes,
		Logger:                 logger.With("component", "gateway"),
	})
	if err != nil {
		return err
	}

	monitor := connectivity.NewMonitor(cfg.Connectivity.InitialOnline)
	events := ledger.New()
	hub := realtime.NewHub(logger.With("component", "realtime"))
	events.Subscribe(func(e models.NotificationEntry) {
		hub.Publish(realtime.TypeNotification, e)
	})
	monitor.Subscribe(func(connectivity.Event) {
		hub.Publish(realtime.TypeConnectivity, monitor.Status())
	})

	ob, err := outbox.New(outbox.Options{
		Handlers:       outbox.NewHandlers(gw),
		Connectivity:   monitor,
		Ledger:         events,
		Logger:         logger.With("component", "outbox"),
		MaxAttempts:    cfg.Outbox.MaxAttempts,
		AttemptTimeout: cfg.Outbox.AttemptTimeout,
		SyncInterval:   cfg.Outbox.SyncInterval,
	})
	if err != nil {
		return err
	}
	monitor.Subscribe(ob.HandleConnectivity)

	h := &handlers.Handler{
		Tokens:       auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenTTL),
		PasswordHash: cfg.Auth.OperatorPasswordHash,
		Outbox:       ob,
		Ledger:       events,
		Monitor:      monitor,
		Cache:        respCache,
		Gateway:      gw,
		Hub:          hub,
		Logger:       logger.With("component", "http"),
	}
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           routes.SetupRoutes(h, logger.With("component", "http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	background := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}
	background(ob.Run)
	background(func(ctx context.Context) { respCache.Run(ctx, cfg.Cache.SweepInterval) })
	if cfg.Connectivity.ProbeInterval > 0 {
		prober := connectivity.NewProber(monitor, connectivity.ProberOptions{
			BaseURL:    cfg.Remote.BaseURL,
			HealthPath: cfg.Remote.HealthPath,
			Interval:   cfg.Connectivity.ProbeInterval,
			Timeout:    cfg.Connectivity.ProbeTimeout,
			Logger:     logger.With("component", "prober"),
		})
		background(prober.Run)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr, "remote", cfg.Remote.BaseURL, "cache_backend", cfg.Cache.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var listenErr error
	select {
	case listenErr = <-serveErr:
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	cancelRun()
	wg.Wait()

	if stats := ob.Stats(); stats.TotalCount > 0 {
		// the queue lives in memory only
		logger.Warn("unsynced operations discarded at shutdown",
			"pending", stats.PendingCount, "failed", stats.FailedCount)
	}
	if listenErr != nil {
		return fmt.Errorf("listen: %w", listenErr)
	}
	return nil
}

// openMirror builds the durable store selected by cache.backend.
func openMirror(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Mirror, func(), error) {
	switch cfg.Cache.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info("cache mirror: redis", "addr", cfg.Redis.Addr)
		return cache.NewRedisMirror(client, cfg.Redis.Prefix), func() { _ = client.Close() }, nil
	case "memory":
		logger.Info("cache mirror: memory")
		return cache.NewMemoryMirror(), func() {}, nil
	default:
		level := gormlogger.Warn
		if cfg.Log.Level == "debug" {
			level = gormlogger.Info
		}
		db, err := database.Open(cfg.Cache.SQLitePath, level)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("cache mirror: sqlite", "path", cfg.Cache.SQLitePath)
		return cache.NewGormMirror(db), func() {
			if err := database.Close(db); err != nil {
				logger.Warn("close sqlite", "error", err)
			}
		}, nil
	}
}
