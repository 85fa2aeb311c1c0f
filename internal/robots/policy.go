// Package robots implements per-source robots.txt policies.
//
// A policy is constructed once per scraper instance, not per page: the
// robots.txt file is fetched and parsed a single time, and failures at any
// point degrade to a permissive allow-all policy. Missed politeness is
// preferred over blocking a whole source.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

const (
	fetchTimeout = 10 * time.Second
	maxBodyBytes = 1 << 20
)

// Policy answers allow/deny for URLs under one source's robots.txt.
type Policy struct {
	group     *robotstxt.Group
	userAgent string
	logger    *zap.Logger
}

// New fetches and parses {baseURL}/robots.txt. On any fetch or parse failure
// it returns a permissive policy rather than an error, so scraper startup
// never fails on robots problems.
func New(ctx context.Context, baseURL, userAgent string, logger *zap.Logger) *Policy {
	p := &Policy{userAgent: userAgent, logger: logger}

	data, err := fetch(ctx, baseURL, userAgent)
	if err != nil {
		logger.Warn("robots fetch failed; using permissive policy",
			zap.String("base_url", baseURL), zap.Error(err))
		return p
	}
	p.group = data.FindGroup(userAgent)
	return p
}

// Allows reports whether the policy permits fetching rawURL. The default on
// any failure is allow.
func (p *Policy) Allows(rawURL string) bool {
	if p == nil || p.group == nil {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		p.logger.Warn("robots check on unparsable url; allowing",
			zap.String("url", rawURL), zap.Error(err))
		return true
	}
	path := parsed.EscapedPath()
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}
	return p.group.Test(path)
}

func fetch(ctx context.Context, baseURL, userAgent string) (*robotstxt.RobotsData, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	robotsURL := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/robots.txt"}

	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data, nil
}
