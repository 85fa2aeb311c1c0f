// Package store provides persistence for canonical event records.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oharris/sydney-events-crawler/internal/events"
)

// PostgresConfig controls the Postgres connection pool.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// querier is the slice of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres implements events.Store on top of pgx.
//
// Expected schema:
//
//	CREATE TABLE events (
//	    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	    title TEXT NOT NULL,
//	    date_time TIMESTAMPTZ NOT NULL,
//	    location TEXT NOT NULL,
//	    description TEXT,
//	    ticket_url TEXT NOT NULL UNIQUE,
//	    image_url TEXT,
//	    source TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL,
//	    expires_at TIMESTAMPTZ,
//	    click_count INTEGER NOT NULL DEFAULT 0
//	);
//
//	CREATE TABLE email_signups (
//	    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	    email TEXT NOT NULL UNIQUE,
//	    event_id UUID NOT NULL REFERENCES events(id),
//	    opt_in BOOLEAN NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
type Postgres struct {
	pool  querier
	clock events.Clock
}

// NewPostgres creates a Postgres-backed store using the provided config.
func NewPostgres(ctx context.Context, cfg PostgresConfig, clock events.Clock) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{pool: pool, clock: clock}, nil
}

// NewPostgresWithPool constructs a store from an existing pool (primarily
// for testing).
func NewPostgresWithPool(pool querier, clock events.Clock) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Postgres{pool: pool, clock: clock}, nil
}

// Close releases the underlying pool resources.
func (s *Postgres) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const eventColumns = `id, title, date_time, location, COALESCE(description, ''), ticket_url,
	COALESCE(image_url, ''), source, created_at, updated_at, expires_at, click_count`

// FindByTicketURL looks up a record by its unique ticket URL.
func (s *Postgres) FindByTicketURL(ctx context.Context, ticketURL string) (events.Event, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE ticket_url = $1`, ticketURL)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return events.Event{}, false, nil
	}
	if err != nil {
		return events.Event{}, false, fmt.Errorf("find by ticket url: %w", err)
	}
	return e, true, nil
}

// Upsert inserts or updates a record keyed by ticket URL. The key itself and
// created_at survive updates; expires_at is never touched here.
func (s *Postgres) Upsert(ctx context.Context, c events.Candidate) (events.Event, error) {
	if c.TicketURL == "" {
		return events.Event{}, fmt.Errorf("candidate has no ticket url")
	}
	if !c.Source.Valid() {
		return events.Event{}, fmt.Errorf("candidate has invalid source %q", c.Source)
	}
	now := s.clock.Now()
	row := s.pool.QueryRow(ctx, `
INSERT INTO events (title, date_time, location, description, ticket_url, image_url, source, created_at, updated_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7, $8, $8)
ON CONFLICT (ticket_url) DO UPDATE SET
	title = EXCLUDED.title,
	date_time = EXCLUDED.date_time,
	location = EXCLUDED.location,
	description = EXCLUDED.description,
	image_url = EXCLUDED.image_url,
	source = EXCLUDED.source,
	updated_at = EXCLUDED.updated_at
RETURNING `+eventColumns,
		c.Title, c.DateTime, c.Location, c.Description, c.TicketURL, c.ImageURL, string(c.Source), now)
	e, err := scanEvent(row)
	if err != nil {
		return events.Event{}, fmt.Errorf("upsert event: %w", err)
	}
	return e, nil
}

// SweepExpired marks stale records for one source. Records already swept are
// untouched, which makes the sweep idempotent.
func (s *Postgres) SweepExpired(ctx context.Context, source events.Source, asOf time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
UPDATE events
SET expires_at = $2
WHERE source = $1
  AND date_time < $2 - INTERVAL '1 day'
  AND expires_at IS NULL`,
		string(source), asOf)
	if err != nil {
		return 0, fmt.Errorf("sweep expired: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetEvent fetches a record by ID.
func (s *Postgres) GetEvent(ctx context.Context, id string) (events.Event, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return events.Event{}, events.ErrNotFound
	}
	if err != nil {
		return events.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// ListEvents returns a page of matching records ordered by date_time
// ascending, plus the total match count.
func (s *Postgres) ListEvents(ctx context.Context, f events.Filter) ([]events.Event, int, error) {
	f = f.Normalized()

	where := make([]string, 0, 5)
	args := make([]any, 0, 6)
	if !f.IncludeExpired {
		where = append(where, "expires_at IS NULL")
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(title ILIKE $%d OR description ILIKE $%d OR location ILIKE $%d)", n, n, n))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("date_time >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("date_time <= $%d", len(args)))
	}
	if f.Source != "" {
		args = append(args, string(f.Source))
		where = append(where, fmt.Sprintf("source = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM events"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	query := fmt.Sprintf("SELECT %s FROM events%s ORDER BY date_time ASC LIMIT $%d OFFSET $%d",
		eventColumns, clause, len(args)-1, len(args))
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]events.Event, 0, f.PageSize)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan event row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate event rows: %w", err)
	}
	return out, total, nil
}

// IncrementClick bumps the click counter, which is owned by the query API.
func (s *Postgres) IncrementClick(ctx context.Context, id string) (events.Event, error) {
	row := s.pool.QueryRow(ctx, `
UPDATE events SET click_count = click_count + 1 WHERE id = $1
RETURNING `+eventColumns, id)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return events.Event{}, events.ErrNotFound
	}
	if err != nil {
		return events.Event{}, fmt.Errorf("increment click: %w", err)
	}
	return e, nil
}

// CreateEmailSignup records an opt-in referencing an existing event.
func (s *Postgres) CreateEmailSignup(ctx context.Context, sig events.EmailSignup) (events.EmailSignup, error) {
	now := s.clock.Now()
	row := s.pool.QueryRow(ctx, `
INSERT INTO email_signups (email, event_id, opt_in, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id`,
		sig.Email, sig.EventID, sig.OptIn, now)
	if err := row.Scan(&sig.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // unique_violation
				return events.EmailSignup{}, events.ErrDuplicateEmail
			case "23503": // foreign_key_violation
				return events.EmailSignup{}, events.ErrNotFound
			}
		}
		return events.EmailSignup{}, fmt.Errorf("create email signup: %w", err)
	}
	sig.CreatedAt = now
	return sig, nil
}

func scanEvent(row pgx.Row) (events.Event, error) {
	var (
		e      events.Event
		source string
	)
	if err := row.Scan(
		&e.ID,
		&e.Title,
		&e.DateTime,
		&e.Location,
		&e.Description,
		&e.TicketURL,
		&e.ImageURL,
		&source,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.ExpiresAt,
		&e.ClickCount,
	); err != nil {
		return events.Event{}, err
	}
	e.Source = events.Source(source)
	return e, nil
}
