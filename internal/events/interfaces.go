package events

import (
	"context"
	"time"
)

// Store persists canonical event records and the email captures that
// reference them.
type Store interface {
	// FindByTicketURL is the dedupe lookup, exact match on the unique key.
	FindByTicketURL(ctx context.Context, ticketURL string) (Event, bool, error)

	// Upsert inserts a new record for an unseen ticket URL, or overwrites
	// every field except the ticket URL itself and bumps UpdatedAt. It is
	// the sole write path for scraped data and is idempotent.
	Upsert(ctx context.Context, c Candidate) (Event, error)

	// SweepExpired stamps ExpiresAt = asOf on every record for source whose
	// DateTime is more than one day before asOf and whose ExpiresAt is still
	// unset. Returns the number of records affected.
	SweepExpired(ctx context.Context, source Source, asOf time.Time) (int64, error)

	// GetEvent fetches a record by its store-assigned ID.
	GetEvent(ctx context.Context, id string) (Event, error)

	// ListEvents returns a page of records matching the filter, ordered by
	// DateTime ascending, plus the total match count.
	ListEvents(ctx context.Context, f Filter) ([]Event, int, error)

	// IncrementClick bumps the click counter and returns the updated record.
	IncrementClick(ctx context.Context, id string) (Event, error)

	// CreateEmailSignup records an opt-in. Duplicate addresses return
	// ErrDuplicateEmail.
	CreateEmailSignup(ctx context.Context, s EmailSignup) (EmailSignup, error)

	// Close releases the underlying resources.
	Close()
}

// Session is one open headless browser tab, valid for the duration of a
// single source's crawl.
type Session interface {
	// Fetch navigates to url, waits for the page to settle, and returns the
	// fully rendered document markup.
	Fetch(ctx context.Context, url string) (string, error)

	// Close tears down the tab. Must be called exactly once per session,
	// including on error paths.
	Close()
}

// Browser launches headless sessions.
type Browser interface {
	Open(ctx context.Context) (Session, error)
}

// Extractor turns rendered markup into candidate records for one source.
type Extractor interface {
	Source() Source

	// ListingPages returns the bounded, ordered sequence of listing page
	// URLs to crawl for this source.
	ListingPages() []string

	// Extract parses rendered markup into zero or more candidates. Card
	// level failures are skipped, never fatal to the page.
	Extract(html string) ([]Candidate, error)
}

// RobotsPolicy answers allow/deny for a URL under this source's robots.txt.
// Implementations fail open.
type RobotsPolicy interface {
	Allows(rawURL string) bool
}

// Limiter enforces the fixed inter-request delay of the sequential crawl
// flow.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Snapshotter archives rendered listing pages for extraction debugging.
type Snapshotter interface {
	Put(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock with the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
