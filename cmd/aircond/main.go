package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aircon-schedule-backend/config"
	"aircon-schedule-backend/internal/api"
	"aircon-schedule-backend/internal/db"
	"aircon-schedule-backend/internal/dispatch"
	"aircon-schedule-backend/internal/janitor"
	"aircon-schedule-backend/internal/logger"
	"aircon-schedule-backend/internal/sched"
	"aircon-schedule-backend/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.Infof("configuration loaded from %s", configPath)

	if cfg.Auth.JWTSecret == "" {
		logger.Errorf("auth.jwt_secret must be configured")
		os.Exit(1)
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Errorf("failed to initialize database: %v", err)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.Watcher.Timezone)
	if err != nil {
		logger.Errorf("invalid watcher timezone %q: %v", cfg.Watcher.Timezone, err)
		os.Exit(1)
	}

	appStore := store.NewGormStore(gormDB)
	vendor := dispatch.NewVendorClient(&cfg.Vendor, appStore)
	core := sched.NewCore(appStore, vendor, sched.SystemClock(), cfg.Watcher.Interval, loc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Re-arm all pending and active work before serving new requests.
	if err := core.BootRecovery(ctx); err != nil {
		logger.Errorf("boot recovery failed: %v", err)
		os.Exit(1)
	}

	if cfg.Watcher.Enabled {
		go core.Weekly.Run(ctx)
	} else {
		logger.Warnf("weekly watcher is disabled")
	}

	var sweeper *janitor.Janitor
	if cfg.Janitor.Enabled {
		sweeper = janitor.New(&cfg.Janitor, appStore)
		if err := sweeper.Start(); err != nil {
			logger.Errorf("failed to start janitor: %v", err)
			os.Exit(1)
		}
	}

	handler := api.NewHandler(core, appStore, vendor)
	router := api.NewRouter(cfg, handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("HTTP server: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Infof("shutdown signal received, stopping services")

	cancel()
	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown: %v", err)
		os.Exit(1)
	}
	logger.Infof("server gracefully stopped")
}
