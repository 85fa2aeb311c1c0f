package headless

import (
	"context"
	"errors"

	"github.com/oharris/sydney-events-crawler/internal/events"
)

// Noop implements events.Browser but always fails to open, indicating that
// headless browsing is disabled in the current configuration. Scraper runs
// against it behave as whole-source failures: logged, zero saved.
type Noop struct{}

// NewNoop creates a new Noop browser.
func NewNoop() *Noop {
	return &Noop{}
}

// Open returns an error since this is a stub implementation.
func (Noop) Open(_ context.Context) (events.Session, error) {
	return nil, errors.New("headless browser not configured")
}
