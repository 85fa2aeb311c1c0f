// Package events defines the core types shared across the scraping and
// serving subsystems.
package events

import (
	"errors"
	"time"
)

// Source identifies one of the configured origin sites.
type Source string

// Configured origin sites.
const (
	SourceEventbrite Source = "eventbrite"
	SourceMeetup     Source = "meetup"
	SourceTimeout    Source = "timeout"
)

// AllSources lists the configured sources in the order they are scraped.
func AllSources() []Source {
	return []Source{SourceEventbrite, SourceMeetup, SourceTimeout}
}

// Valid reports whether s is one of the configured sources.
func (s Source) Valid() bool {
	switch s {
	case SourceEventbrite, SourceMeetup, SourceTimeout:
		return true
	default:
		return false
	}
}

// Event is the canonical stored record. TicketURL is the globally unique
// dedupe key; ID is assigned by the store and immutable.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	DateTime    time.Time  `json:"date_time"`
	Location    string     `json:"location"`
	Description string     `json:"description,omitempty"`
	TicketURL   string     `json:"ticket_url"`
	ImageURL    string     `json:"image_url,omitempty"`
	Source      Source     `json:"source"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ClickCount  int        `json:"click_count"`
}

// Expired reports whether the record has been marked stale by a sweep.
func (e Event) Expired() bool {
	return e.ExpiresAt != nil
}

// Candidate is an unsaved, possibly incomplete event extracted from one
// rendered page. Source is stamped by the orchestrator, never trusted from
// extraction.
type Candidate struct {
	Title       string
	DateTime    time.Time
	Location    string
	Description string
	TicketURL   string
	ImageURL    string
	Source      Source
}

// EmailSignup captures a user's opt-in for an event. Owned by the API; the
// scraping core never reads or writes these.
type EmailSignup struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	EventID   string    `json:"event_id"`
	OptIn     bool      `json:"opt_in"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows event listing queries. Zero values mean "no constraint";
// expired records are excluded unless IncludeExpired is set.
type Filter struct {
	Search         string
	From           *time.Time
	To             *time.Time
	Source         Source
	IncludeExpired bool
	Page           int
	PageSize       int
}

// Pagination bounds shared by store implementations.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalized clamps pagination to sane bounds.
func (f Filter) Normalized() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

// Sentinel errors shared by store implementations.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)
