package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/use-agent/regionscope/api"
	"github.com/use-agent/regionscope/cache"
	"github.com/use-agent/regionscope/config"
	"github.com/use-agent/regionscope/lookup"
	"github.com/use-agent/regionscope/metrics"
	"github.com/use-agent/regionscope/scraper"
)

// shutdownGrace covers one full lookup session so in-flight requests can
// finish before the process exits.
const shutdownGrace = 75 * time.Second

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("regionscope starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxSessions", cfg.Lookup.MaxSessions,
		"cache", cfg.Cache.Backend,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// ── 3. Metrics ──────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	metrics.Register(reg)

	// ── 4. Browser driver (one Chromium per lookup) ─────────────────
	launcher := scraper.NewRodLauncher(cfg.Browser, scraper.DefaultResolver(cfg.Browser))
	driver := scraper.NewDriver(launcher, nil, scraper.DefaultDriverConfig())

	// ── 5. Cache store ──────────────────────────────────────────────
	store, closeStore, err := newStore(ctx, cfg.Cache)
	if err != nil {
		slog.Error("failed to initialise cache", "backend", cfg.Cache.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// ── 6. Lookup service ───────────────────────────────────────────
	svc := lookup.NewService(driver, store, lookup.Options{
		MaxSessions:  cfg.Lookup.MaxSessions,
		QueueTimeout: cfg.Lookup.QueueTimeout,
		MaxBatch:     cfg.Lookup.MaxBatch,
	})

	// ── 7. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(ctx, svc, cfg, reg)

	// ── 8. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr, "source", scraper.TargetURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 9. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("regionscope stopped")
}

// newStore builds the configured cache backend. The returned func releases
// it.
func newStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, func(), error) {
	switch cfg.Backend {
	case "", "memory":
		return cache.NewMemory(cfg.TTL), func() {}, nil
	case "redis":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		r, err := cache.DialRedis(dialCtx, cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		return r, func() {
			if err := r.Close(); err != nil {
				slog.Warn("redis close failed", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
