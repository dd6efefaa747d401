package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cafecultura/cuppingd/internal/adapters/http/api"
	"github.com/cafecultura/cuppingd/internal/adapters/storage"
	"github.com/cafecultura/cuppingd/internal/adapters/storage/filestore"
	"github.com/cafecultura/cuppingd/internal/adapters/storage/sqlstore"
	"github.com/cafecultura/cuppingd/internal/app"
	"github.com/cafecultura/cuppingd/internal/config"
	"github.com/cafecultura/cuppingd/pkg/logger"
	"github.com/cafecultura/cuppingd/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openBackend(ctx, cfg)
	if err != nil {
		log.Error(ctx, "failed to open storage backend", logger.Error(err))
		return
	}

	svc := app.New(store,
		app.WithLogger(log),
		app.WithShareIDLength(cfg.ShareIDLength),
		app.WithShareIDMaxRetries(cfg.ShareIDMaxRetries),
		app.WithMaxAttributeScore(cfg.MaxAttributeScore),
	)
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error(context.Background(), "storage close failed", logger.Error(err))
		}
	}()

	log.Info(ctx, "cupping service ready",
		logger.String("backend", cfg.StorageBackend),
		logger.Int("shareIDLength", cfg.ShareIDLength),
	)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	apiServer := api.NewServer(svc,
		api.WithDefaultTrendBucket(time.Duration(cfg.DefaultBucketHours)*time.Hour),
	)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}

// openBackend selects the physical store per configuration.
func openBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		return sqlstore.New(ctx, cfg.SQLitePath)
	default:
		return filestore.New(cfg.DataDir)
	}
}
