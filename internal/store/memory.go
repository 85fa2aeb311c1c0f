package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oharris/sydney-events-crawler/internal/events"
)

var (
	errNoTicketURL   = errors.New("candidate has no ticket url")
	errInvalidSource = errors.New("candidate has invalid source")
)

// Memory is an in-memory events.Store for development and testing. It
// mirrors the Postgres semantics, including upsert-by-ticket-URL and the
// idempotent expiration sweep.
type Memory struct {
	mu     sync.RWMutex
	byURL  map[string]*events.Event
	byID   map[string]*events.Event
	emails map[string]events.EmailSignup
	clock  events.Clock
}

// NewMemory constructs a Memory store.
func NewMemory(clock events.Clock) *Memory {
	return &Memory{
		byURL:  make(map[string]*events.Event),
		byID:   make(map[string]*events.Event),
		emails: make(map[string]events.EmailSignup),
		clock:  clock,
	}
}

// Close implements events.Store; there is nothing to release.
func (s *Memory) Close() {}

// FindByTicketURL looks up a record by its unique ticket URL.
func (s *Memory) FindByTicketURL(_ context.Context, ticketURL string) (events.Event, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.byURL[ticketURL]; ok {
		return *e, true, nil
	}
	return events.Event{}, false, nil
}

// Upsert inserts or overwrites a record keyed by ticket URL.
func (s *Memory) Upsert(_ context.Context, c events.Candidate) (events.Event, error) {
	if c.TicketURL == "" {
		return events.Event{}, errNoTicketURL
	}
	if !c.Source.Valid() {
		return events.Event{}, errInvalidSource
	}
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byURL[c.TicketURL]; ok {
		existing.Title = c.Title
		existing.DateTime = c.DateTime
		existing.Location = c.Location
		existing.Description = c.Description
		existing.ImageURL = c.ImageURL
		existing.Source = c.Source
		existing.UpdatedAt = now
		return *existing, nil
	}

	e := &events.Event{
		ID:          uuid.NewString(),
		Title:       c.Title,
		DateTime:    c.DateTime,
		Location:    c.Location,
		Description: c.Description,
		TicketURL:   c.TicketURL,
		ImageURL:    c.ImageURL,
		Source:      c.Source,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.byURL[c.TicketURL] = e
	s.byID[e.ID] = e
	return *e, nil
}

// SweepExpired marks stale unexpired records for one source.
func (s *Memory) SweepExpired(_ context.Context, source events.Source, asOf time.Time) (int64, error) {
	cutoff := asOf.Add(-24 * time.Hour)

	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, e := range s.byID {
		if e.Source != source || e.ExpiresAt != nil || !e.DateTime.Before(cutoff) {
			continue
		}
		stamp := asOf
		e.ExpiresAt = &stamp
		count++
	}
	return count, nil
}

// GetEvent fetches a record by ID.
func (s *Memory) GetEvent(_ context.Context, id string) (events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.byID[id]; ok {
		return *e, nil
	}
	return events.Event{}, events.ErrNotFound
}

// ListEvents filters, sorts by DateTime ascending, and paginates.
func (s *Memory) ListEvents(_ context.Context, f events.Filter) ([]events.Event, int, error) {
	f = f.Normalized()

	s.mu.RLock()
	matched := make([]events.Event, 0, len(s.byID))
	for _, e := range s.byID {
		if matches(*e, f) {
			matched = append(matched, *e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].DateTime.Before(matched[j].DateTime)
	})

	total := len(matched)
	start := (f.Page - 1) * f.PageSize
	if start >= total {
		return []events.Event{}, total, nil
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// IncrementClick bumps the click counter.
func (s *Memory) IncrementClick(_ context.Context, id string) (events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return events.Event{}, events.ErrNotFound
	}
	e.ClickCount++
	return *e, nil
}

// CreateEmailSignup records an opt-in referencing an existing event.
func (s *Memory) CreateEmailSignup(_ context.Context, sig events.EmailSignup) (events.EmailSignup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[sig.EventID]; !ok {
		return events.EmailSignup{}, events.ErrNotFound
	}
	key := strings.ToLower(sig.Email)
	if _, ok := s.emails[key]; ok {
		return events.EmailSignup{}, events.ErrDuplicateEmail
	}
	sig.ID = uuid.NewString()
	sig.CreatedAt = s.clock.Now()
	s.emails[key] = sig
	return sig, nil
}

func matches(e events.Event, f events.Filter) bool {
	if !f.IncludeExpired && e.Expired() {
		return false
	}
	if f.Source != "" && e.Source != f.Source {
		return false
	}
	if f.From != nil && e.DateTime.Before(*f.From) {
		return false
	}
	if f.To != nil && e.DateTime.After(*f.To) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.Title), needle) &&
			!strings.Contains(strings.ToLower(e.Description), needle) &&
			!strings.Contains(strings.ToLower(e.Location), needle) {
			return false
		}
	}
	return true
}
