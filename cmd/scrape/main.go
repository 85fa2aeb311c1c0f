// Package main runs a single scrape cycle across all sources and exits. It is
// the manual counterpart of the scheduler inside eventsd.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/oharris/sydney-events-crawler/internal/config"
	"github.com/oharris/sydney-events-crawler/internal/events"
	"github.com/oharris/sydney-events-crawler/internal/extract"
	"github.com/oharris/sydney-events-crawler/internal/fetcher/headless"
	"github.com/oharris/sydney-events-crawler/internal/logging"
	"github.com/oharris/sydney-events-crawler/internal/metrics"
	"github.com/oharris/sydney-events-crawler/internal/ratelimit"
	"github.com/oharris/sydney-events-crawler/internal/robots"
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

	limiter := ratelimit.New(cfg.Delay())
	extractors := []*extract.Engine{
		extract.NewEventbrite(cfg.Scraper.City, clock, logger),
		extract.NewMeetup(cfg.Scraper.City, clock, logger),
		extract.NewTimeOut(cfg.Scraper.City, clock, logger),
	}

	// One source at a time; a failing source must not block the rest.
	total := 0
	for _, ex := range extractors {
		policy := robots.New(ctx, ex.BaseURL(), cfg.Scraper.UserAgent, logger)
		s := scraper.New(st, browser, ex, policy, limiter, snapshots, cfg.Snapshot.Prefix, clock, logger)
		saved := s.Run(ctx)
		logger.Info("source finished",
			zap.String("source", string(s.Source())),
			zap.Int("saved", saved),
		)
		total += saved
	}
	logger.Info("scrape cycle complete", zap.Int("total_saved", total))
}
