package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcclellann/fredDebt/pkg/cache"
	"github.com/mcclellann/fredDebt/pkg/config"
	"github.com/mcclellann/fredDebt/pkg/planner"
	"github.com/mcclellann/fredDebt/pkg/store"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	storage, err := store.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatalf("Failed to initialize %s store: %v", cfg.DBDriver, err)
	}
	defer storage.Close()
	logger.WithField("driver", cfg.DBDriver).Info("Database connection established and schema migrated")

	simCache, closeCache, err := newCache(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize %s cache: %v", cfg.CacheBackend, err)
	}
	defer closeCache()

	p := planner.NewPlanner(storage, simCache, logger)
	if err := p.RefreshSimulations(context.Background()); err != nil {
		logger.WithError(err).Warn("Initial simulation refresh failed")
	}

	// Schedules are anchored on the day they are computed; recompute them on a schedule.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RefreshSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := p.RefreshSimulations(ctx); err != nil {
			logger.WithError(err).Error("Scheduled simulation refresh failed")
		}
	}); err != nil {
		logger.Fatalf("Invalid refresh schedule %q: %v", cfg.RefreshSchedule, err)
	}
	scheduler.Start()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      NewServer(p, logger).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Errorf("Server failed: %v", err)
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("Shutting down server...")
	}

	<-scheduler.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
	logger.Info("Server exited")
}

// newCache builds the configured simulation cache and a func releasing it.
func newCache(cfg *config.Config, logger *logrus.Logger) (cache.Cache, func(), error) {
	if cfg.CacheBackend == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.CacheTTL)
		if err != nil {
			return nil, nil, err
		}
		return rc, func() { rc.Close() }, nil
	}

	lru := cache.NewLRUCache(cfg.CacheSize, cfg.CacheTTL)
	manager := cache.NewManager(func(removed int) {
		if removed > 0 {
			logger.WithField("removed", removed).Debug("Expired simulations purged")
		}
	})
	manager.Register(lru)
	manager.StartCleanup(time.Hour)
	return lru, manager.Stop, nil
}
