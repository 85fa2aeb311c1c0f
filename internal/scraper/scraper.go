// Package scraper coordinates one source's crawl: sweep expirations, fetch
// listing pages, extract candidates, persist.
package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oharris/sydney-events-crawler/internal/events"
	"github.com/oharris/sydney-events-crawler/internal/metrics"
)

// Scraper runs the fixed ingestion pipeline for a single source. The
// per-source extraction strategy is injected; everything else is shared.
type Scraper struct {
	source     events.Source
	store      events.Store
	browser    events.Browser
	extractor  events.Extractor
	robots     events.RobotsPolicy
	limiter    events.Limiter
	snapshots  events.Snapshotter
	snapPrefix string
	clock      events.Clock
	logger     *zap.Logger
}

// New constructs a Scraper for the extractor's source.
func New(
	store events.Store,
	browser events.Browser,
	extractor events.Extractor,
	robots events.RobotsPolicy,
	limiter events.Limiter,
	snapshots events.Snapshotter,
	snapPrefix string,
	clock events.Clock,
	logger *zap.Logger,
) *Scraper {
	if snapshots == nil {
		snapshots = noSnapshots{}
	}
	return &Scraper{
		source:     extractor.Source(),
		store:      store,
		browser:    browser,
		extractor:  extractor,
		robots:     robots,
		limiter:    limiter,
		snapshots:  snapshots,
		snapPrefix: snapPrefix,
		clock:      clock,
		logger:     logger.Named("scraper").With(zap.String("source", string(extractor.Source()))),
	}
}

// Source identifies the origin site this scraper ingests.
func (s *Scraper) Source() events.Source {
	return s.source
}

// Run executes one full crawl for the source and returns the number of
// candidates saved. A whole-run failure is logged and yields 0; it never
// propagates, so the caller can treat every source independently.
func (s *Scraper) Run(ctx context.Context) int {
	start := time.Now()
	s.logger.Info("starting scraper run")

	saved, err := s.run(ctx)
	if err != nil {
		s.logger.Error("scraper run failed", zap.Int("saved", saved), zap.Error(err))
		metrics.ObserveRun(string(s.source), "failed", time.Since(start))
		return 0
	}

	s.logger.Info("scraper run completed", zap.Int("saved", saved))
	metrics.ObserveRun(string(s.source), "succeeded", time.Since(start))
	return saved
}

func (s *Scraper) run(ctx context.Context) (int, error) {
	// Sweep before extraction so records ingested in this run, which may
	// carry best-guess future dates, are never swept in the same pass.
	asOf := s.clock.Now()
	swept, err := s.store.SweepExpired(ctx, s.source, asOf)
	if err != nil {
		return 0, fmt.Errorf("sweep expired: %w", err)
	}
	if swept > 0 {
		s.logger.Info("marked expired events", zap.Int64("count", swept))
	}
	metrics.ObserveSwept(string(s.source), swept)

	candidates, err := s.collect(ctx, asOf)
	if err != nil {
		return 0, err
	}

	saved := 0
	for _, c := range candidates {
		if err := s.limiter.Wait(ctx); err != nil {
			return saved, err
		}
		// The orchestrator stamps the source authoritatively; nothing the
		// extractor produced is trusted for this field.
		c.Source = s.source
		if _, err := s.store.Upsert(ctx, c); err != nil {
			s.logger.Error("saving event failed",
				zap.String("title", c.Title),
				zap.String("ticket_url", c.TicketURL),
				zap.Error(err))
			continue
		}
		saved++
	}
	metrics.ObserveEventsSaved(string(s.source), saved)
	return saved, nil
}

// collect walks the bounded listing page sequence in order, stopping early
// when a page yields zero candidates. That rule treats a failed render the
// same as the end of the listings; a known precision/availability tradeoff.
func (s *Scraper) collect(ctx context.Context, runStamp time.Time) ([]events.Candidate, error) {
	session, err := s.browser.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("launch browser session: %w", err)
	}
	defer session.Close()

	var all []events.Candidate
	for i, pageURL := range s.extractor.ListingPages() {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		batch := s.scrapePage(ctx, session, pageURL, runStamp, i+1)
		all = append(all, batch...)
		if len(batch) == 0 {
			break
		}
	}
	return all, nil
}

// scrapePage fetches and extracts one listing page. Every failure here is
// local: a denied or broken page contributes zero candidates and the run
// carries on.
func (s *Scraper) scrapePage(
	ctx context.Context,
	session events.Session,
	pageURL string,
	runStamp time.Time,
	pageNum int,
) []events.Candidate {
	if !s.robots.Allows(pageURL) {
		s.logger.Warn("robots.txt disallows page", zap.String("url", pageURL))
		metrics.ObservePageFetch(string(s.source), "robots_denied")
		return nil
	}

	html, err := session.Fetch(ctx, pageURL)
	if err != nil {
		s.logger.Error("page fetch failed", zap.String("url", pageURL), zap.Error(err))
		metrics.ObservePageFetch(string(s.source), "error")
		return nil
	}
	metrics.ObservePageFetch(string(s.source), "ok")

	s.archive(ctx, html, runStamp, pageNum)

	candidates, err := s.extractor.Extract(html)
	if err != nil {
		s.logger.Error("extraction failed", zap.String("url", pageURL), zap.Error(err))
		return nil
	}
	s.logger.Debug("extracted candidates",
		zap.String("url", pageURL), zap.Int("count", len(candidates)))
	return candidates
}

func (s *Scraper) archive(ctx context.Context, html string, runStamp time.Time, pageNum int) {
	path := fmt.Sprintf("%s/%s/%s/page-%d.html",
		s.snapPrefix, s.source, runStamp.Format("20060102T150405Z"), pageNum)
	uri, err := s.snapshots.Put(ctx, path, "text/html; charset=utf-8", []byte(html))
	if err != nil {
		s.logger.Warn("page snapshot failed", zap.String("path", path), zap.Error(err))
		return
	}
	if uri != "" {
		s.logger.Debug("page archived", zap.String("uri", uri))
	}
}

type noSnapshots struct{}

func (noSnapshots) Put(context.Context, string, string, []byte) (string, error) {
	return "", nil
}
