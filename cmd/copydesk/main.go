// Package main is the entrypoint for the copydesk session process.
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

	"github.com/kiranshivaraju/copydesk/internal/api"
	"github.com/kiranshivaraju/copydesk/internal/api/handler"
	mw "github.com/kiranshivaraju/copydesk/internal/api/middleware"
	"github.com/kiranshivaraju/copydesk/internal/cache"
	"github.com/kiranshivaraju/copydesk/internal/config"
	"github.com/kiranshivaraju/copydesk/internal/journal"
	"github.com/kiranshivaraju/copydesk/internal/lifecycle"
	"github.com/kiranshivaraju/copydesk/internal/optimizer"
	"github.com/kiranshivaraju/copydesk/internal/poller"
	"github.com/kiranshivaraju/copydesk/internal/state"
	"github.com/kiranshivaraju/copydesk/pkg/models"
)

const (
	shutdownTimeout = 30 * time.Second
	primeTimeout    = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("copydesk failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Server.SlogLevel(),
	}))
	slog.SetDefault(logger)
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"optimizer", cfg.Optimizer.BaseURL,
		"cache_enabled", cfg.Redis.URL != "",
		"journal_enabled", cfg.Database.URL != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Optional lifecycle journal
	var jrnl journal.Journal = journal.Nop{}
	if cfg.Database.URL != "" {
		pool, err := journal.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		slog.Info("database connected")

		if err := journal.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		slog.Info("database migrations applied")
		jrnl = journal.NewPostgresJournal(pool)
	}

	// 3. Optional Redis cache
	var redisCache cache.Cache
	var snapshots *cache.Snapshots
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer rc.Close()

		if err := rc.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		slog.Info("redis connected")
		redisCache = rc
		snapshots = cache.NewSnapshots(rc, cache.DefaultSnapshotTTL)
	}

	// 4. Session state, coordinator and poller
	client := optimizer.NewHTTPClient(cfg.Optimizer.BaseURL, cfg.Optimizer.Timeout)
	st := state.New()

	opts := []lifecycle.Option{lifecycle.WithJournal(jrnl)}
	if snapshots != nil {
		opts = append(opts, lifecycle.WithSnapshots(snapshots))
		primeStore(ctx, st, snapshots)
	}
	coord := lifecycle.New(client, st, lifecycle.Config{HistoryLimit: cfg.Poll.HistoryLimit}, logger, opts...)

	poll := poller.New(client, st, coord, poller.Config{
		StatusInterval: cfg.Poll.StatusInterval,
		StatsInterval:  cfg.Poll.StatsInterval,
	}, logger)
	poll.Start(ctx)
	defer poll.Stop()

	// 5. Build router with dependencies
	router := newRouter(coord, mw.NewRateLimit(redisCache, cfg.Redis.RateLimitPerMinute),
		cfg.Server.CORSOrigins, healthChecks(client, redisCache, jrnl)...)

	// 6. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// session is everything the HTTP handlers need from the coordinator.
type session interface {
	handler.Refresher
	handler.Submitter
	handler.Selector
	handler.Deleter
	handler.EventLister
}

func newRouter(s session, rl *mw.RateLimit, corsOrigins []string, checks ...handler.HealthCheck) http.Handler {
	return api.NewRouter(api.Dependencies{
		RateLimit:   rl,
		CORSOrigins: corsOrigins,

		HealthHandler:  handler.NewHealthHandler(checks...),
		SessionHandler: handler.NewSessionHandler(s),
		SubmitHandler:  handler.NewSubmitHandler(s),
		SelectHandler:  handler.NewSelectHandler(s),
		DeleteHandler:  handler.NewDeleteHandler(s),
		RefreshHandler: handler.NewRefreshHandler(s),
		EventsHandler:  handler.NewEventsHandler(s),
	})
}

// healthChecks probes the optimizer and whichever optional backends are
// configured.
func healthChecks(client optimizer.Client, c cache.Cache, j journal.Journal) []handler.HealthCheck {
	checks := []handler.HealthCheck{{
		Name: "optimizer",
		Check: func(ctx context.Context) error {
			_, err := client.Info(ctx)
			return err
		},
	}}
	if c != nil {
		checks = append(checks, handler.HealthCheck{Name: "cache", Check: c.Ping})
	}
	if _, nop := j.(journal.Nop); !nop && j != nil {
		checks = append(checks, handler.HealthCheck{Name: "journal", Check: j.Ping})
	}
	return checks
}

type snapshotLoader interface {
	LoadHistory(ctx context.Context) ([]models.Job, bool, error)
	LoadStats(ctx context.Context) (*models.Stats, bool, error)
}

// primeStore seeds history and stats from the last saved snapshot so the
// session has something to render before the first refresh returns.
func primeStore(ctx context.Context, st *state.Store, l snapshotLoader) {
	ctx, cancel := context.WithTimeout(ctx, primeTimeout)
	defer cancel()

	jobs, found, err := l.LoadHistory(ctx)
	switch {
	case err != nil:
		slog.Warn("load history snapshot failed", "error", err)
	case found:
		st.ReplaceHistory(jobs)
		slog.Info("history primed from snapshot", "jobs", len(jobs))
	}

	stats, found, err := l.LoadStats(ctx)
	switch {
	case err != nil:
		slog.Warn("load stats snapshot failed", "error", err)
	case found:
		st.ReplaceStats(*stats)
	}
}
