// Package main wires together the events service binary: scheduler-driven
// scraping plus the HTTP query API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/oharris/sydney-events-crawler/internal/api"
	"github.com/oharris/sydney-events-crawler/internal/config"
	"github.com/oharris/sydney-events-crawler/internal/events"
	"github.com/oharris/sydney-events-crawler/internal/extract"
	"github.com/oharris/sydney-events-crawler/internal/fetcher/headless"
	"github.com/oharris/sydney-events-crawler/internal/logging"
	"github.com/oharris/sydney-events-crawler/internal/metrics"
	"github.com/oharris/sydney-events-crawler/internal/ratelimit"
	"github.com/oharris/sydney-events-crawler/internal/robots"
	"github.com/oharris/sydney-events-crawler/internal/scheduler"
	"github.com/oharris/sydney-events-crawler/internal/scraper"
	"github.com/oharris/sydney-events-crawler/internal/snapshot"
	"github.com/oharris/sydney-events-crawler/internal/store"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := events.SystemClock{}

	var st events.Store
	if cfg.DB.DSN != "" {
		pg, err := store.NewPostgres(ctx, store.PostgresConfig{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		}, clock)
		if err != nil {
			logger.Fatal("postgres init failed", zap.Error(err))
		}
		st = pg
	} else {
		logger.Warn("no db.dsn configured, using in-memory store")
		st = store.NewMemory(clock)
	}
	defer st.Close()

	snapshots, err := snapshot.New(ctx, snapshot.Config{
		Provider: cfg.Snapshot.Provider,
		BaseDir:  cfg.Snapshot.BaseDir,
		Bucket:   cfg.Snapshot.GCSBucket,
		Prefix:   cfg.Snapshot.Prefix,
	}, logger)
	if err != nil {
		logger.Fatal("snapshot store init failed", zap.Error(err))
	}

	var browser events.Browser
	if cfg.Scraper.Headless {
		b, err := headless.New(headless.Config{
			UserAgent:         cfg.Scraper.UserAgent,
			NavigationTimeout: cfg.NavigationTimeout(),
		})
		if err != nil {
			logger.Fatal("headless browser init failed", zap.Error(err))
		}
		defer b.Close()
		browser = b
	} else {
		browser = headless.NewNoop()
	}

	scrapers := buildScrapers(ctx, cfg, st, browser, snapshots, clock, logger)

	runners := make([]scheduler.Runner, len(scrapers))
	for i, s := range scrapers {
		runners[i] = s
	}
	sched := scheduler.New(ctx, cfg.Interval(), runners, logger)

	apiServer := api.NewServer(st, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := sched.Start(); err != nil {
			logger.Error("scheduler start failed", zap.Error(err))
			stop()
		}
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// buildScrapers assembles one scraper per supported source, each with its own
// robots policy and shared pacing.
func buildScrapers(
	ctx context.Context,
	cfg config.Config,
	st events.Store,
	browser events.Browser,
	snapshots events.Snapshotter,
	clock events.Clock,
	logger *zap.Logger,
) []*scraper.Scraper {
	limiter := ratelimit.New(cfg.Delay())
	extractors := []*extract.Engine{
		extract.NewEventbrite(cfg.Scraper.City, clock, logger),
		extract.NewMeetup(cfg.Scraper.City, clock, logger),
		extract.NewTimeOut(cfg.Scraper.City, clock, logger),
	}
	scrapers := make([]*scraper.Scraper, 0, len(extractors))
	for _, ex := range extractors {
		policy := robots.New(ctx, ex.BaseURL(), cfg.Scraper.UserAgent, logger)
		scrapers = append(scrapers, scraper.New(
			st,
			browser,
			ex,
			policy,
			limiter,
			snapshots,
			cfg.Snapshot.Prefix,
			clock,
			logger,
		))
	}
	return scrapers
}
