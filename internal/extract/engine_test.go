package extract

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oharris/sydney-events-crawler/internal/events"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func testProfile() Profile {
	return Profile{
		Source:    events.SourceEventbrite,
		BaseURL:   "https://example.org",
		SearchURL: "https://example.org/events",
		MaxPages:  3,
		CardStrategies: []string{
			`div[class*="event-card"]`,
			"article",
		},
		TitleSelectors:       []string{"h2", "h3"},
		DateSelectors:        []string{"time"},
		DateLayouts:          []string{"2006-01-02", "2 Jan 2006"},
		LocationSelectors:    []string{`span[class*="location"]`},
		DescriptionSelectors: []string{"p"},
		ImageAttrs:           []string{"src", "data-src"},
	}
}

func newTestEngine(t *testing.T) (*Engine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: testNow}
	return NewEngine(testProfile(), "sydney", clock, zap.NewNop()), clock
}

func TestListingPages_AppendsPageParam(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	pages := e.ListingPages()
	require.Equal(t, []string{
		"https://example.org/events",
		"https://example.org/events?page=2",
		"https://example.org/events?page=3",
	}, pages)
}

func TestListingPages_ExistingQueryUsesAmpersand(t *testing.T) {
	t.Parallel()

	e := NewMeetup("sydney", &fakeClock{now: testNow}, zap.NewNop())
	pages := e.ListingPages()
	require.Len(t, pages, 2)
	require.Contains(t, pages[1], "&page=2")
}

func TestListingPages_SourceBounds(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: testNow}
	require.Len(t, NewEventbrite("sydney", clock, zap.NewNop()).ListingPages(), 3)
	require.Len(t, NewMeetup("sydney", clock, zap.NewNop()).ListingPages(), 2)
	require.Len(t, NewTimeOut("sydney", clock, zap.NewNop()).ListingPages(), 2)
}

func TestExtract_FullCard(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	html := `<html><body>
	<div class="event-card">
		<h2>Vivid Sydney</h2>
		<time>2026-08-15</time>
		<span class="location-info">Circular Quay</span>
		<p>Lights festival on the harbour.</p>
		<a href="/e/vivid-123">Tickets</a>
		<img src="/img/vivid.jpg">
	</div>
	</body></html>`

	got, err := e.Extract(html)
	require.NoError(t, err)
	require.Len(t, got, 1)

	c := got[0]
	require.Equal(t, "Vivid Sydney", c.Title)
	require.Equal(t, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), c.DateTime)
	require.Equal(t, "Circular Quay", c.Location)
	require.Equal(t, "Lights festival on the harbour.", c.Description)
	require.Equal(t, "https://example.org/e/vivid-123", c.TicketURL)
	require.Equal(t, "https://example.org/img/vivid.jpg", c.ImageURL)
	// Source stamping is the orchestrator's job, never the extractor's.
	require.Empty(t, c.Source)
}

func TestExtract_StrategyFallbackOrder(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	// No event-card divs; the article fallback must pick these up.
	html := `<html><body>
	<article><h2>A</h2><a href="/a">x</a></article>
	<article><h2>B</h2><a href="/b">x</a></article>
	</body></html>`

	got, err := e.Extract(html)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "A", got[0].Title)
	require.Equal(t, "B", got[1].Title)
}

func TestExtract_FirstStrategyWinsEvenIfSmaller(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	// One event-card match beats three article matches.
	html := `<html><body>
	<div class="event-card"><h2>Primary</h2><a href="/p">x</a></div>
	<article><h2>F1</h2><a href="/1">x</a></article>
	<article><h2>F2</h2><a href="/2">x</a></article>
	<article><h2>F3</h2><a href="/3">x</a></article>
	</body></html>`

	got, err := e.Extract(html)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Primary", got[0].Title)
}

func TestExtract_NoCardsYieldsEmptyNotError(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	got, err := e.Extract(`<html><body><div class="nav">nothing here</div></body></html>`)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestExtract_MissingHrefDiscardsCard(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	html := `<html><body>
	<article><h2>No link</h2></article>
	<article><h2>Has link</h2><a href="/ok">x</a></article>
	</body></html>`

	got, err := e.Extract(html)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Has link", got[0].Title)
}

func TestExtract_Defaults(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	html := `<html><body><article><a href="/bare">x</a></article></body></html>`

	got, err := e.Extract(html)
	require.NoError(t, err)
	require.Len(t, got, 1)

	c := got[0]
	require.Equal(t, "Untitled Event", c.Title)
	require.Equal(t, "Sydney, Australia", c.Location)
	require.Equal(t, testNow, c.DateTime)
	require.Empty(t, c.Description)
	require.Empty(t, c.ImageURL)
}

func TestExtract_UnparsableDateBiasedForward(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	html := `<html><body><article><time>next Friday-ish</time><a href="/d">x</a></article></body></html>`

	got, err := e.Extract(html)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, testNow.Add(7*24*time.Hour), got[0].DateTime)
}

func TestExtract_SecondDateLayoutParses(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	html := `<html><body><article><time>15 Aug 2026</time><a href="/d">x</a></article></body></html>`

	got, err := e.Extract(html)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), got[0].DateTime)
}

func TestExtract_TicketURLResolution(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	tests := []struct {
		name string
		href string
		want string
	}{
		{"root relative", "/e/1", "https://example.org/e/1"},
		{"absolute", "https://other.example/e/2", "https://other.example/e/2"},
		{"bare relative", "e/3", "https://example.org/e/3"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			html := fmt.Sprintf(`<html><body><article><a href=%q>x</a></article></body></html>`, tc.href)
			got, err := e.Extract(html)
			require.NoError(t, err)
			require.Len(t, got, 1)
			require.Equal(t, tc.want, got[0].TicketURL)
		})
	}
}

func TestExtract_ImageLazyLoadFallback(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	html := `<html><body><article><a href="/x">x</a><img data-src="https://cdn.example/i.jpg"></article></body></html>`

	got, err := e.Extract(html)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "https://cdn.example/i.jpg", got[0].ImageURL)
}

func TestExtract_NonRootedRelativeImageDropped(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	html := `<html><body><article><a href="/x">x</a><img src="thumb.jpg"></article></body></html>`

	got, err := e.Extract(html)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Empty(t, got[0].ImageURL)
}

func TestExtract_DescriptionTruncatedToRuneLimit(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	long := strings.Repeat("é", 600)
	html := `<html><body><article><a href="/x">x</a><p>` + long + `</p></article></body></html>`

	got, err := e.Extract(html)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 500, len([]rune(got[0].Description)))
	require.Equal(t, strings.Repeat("é", 500), got[0].Description)
}

func TestExtract_CardCap(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < 70; i++ {
		fmt.Fprintf(&sb, `<article><h2>E%d</h2><a href="/e/%d">x</a></article>`, i, i)
	}
	sb.WriteString("</body></html>")

	got, err := e.Extract(sb.String())
	require.NoError(t, err)
	require.Len(t, got, 50)
}

func TestExtract_MalformedHTMLStillParses(t *testing.T) {
	t.Parallel()

	// net/html is forgiving; unclosed tags produce a best-effort tree.
	e, _ := newTestEngine(t)
	got, err := e.Extract(`<article><h2>Open ended<a href="/x">x`)
	require.NoError(t, err)
	require.Len(t, got, 1)
}
