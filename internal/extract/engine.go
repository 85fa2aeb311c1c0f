// Package extract turns rendered listing markup into candidate event
// records.
//
// Extraction is heuristic and layered: every lookup walks an ordered list of
// fallbacks and the first hit wins. The markup of the upstream sites changes
// often and without notice, so the engine trades precision for resilience —
// a card that cannot be fully understood is skipped, never fatal.
package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/oharris/sydney-events-crawler/internal/events"
)

const (
	// Cards processed per page are capped to bound per-page work no matter
	// how greedy a fallback selector turns out to be.
	maxCardsPerPage = 50

	maxDescriptionRunes = 500

	defaultTitle = "Untitled Event"

	// An unparsable date is biased a week into the future so the event
	// stays visible until the expiration sweep can judge it.
	unparsableDateOffset = 7 * 24 * time.Hour
)

// Profile is the per-source selector vocabulary driving the shared engine.
// Every list is ordered; earlier entries are more specific and tried first.
type Profile struct {
	Source    events.Source
	BaseURL   string
	SearchURL string
	MaxPages  int

	// CardStrategies locate card elements: typically a source-specific
	// class-substring match, then a generic semantic element, then an
	// attribute-substring catch-all.
	CardStrategies []string

	TitleSelectors       []string
	DateSelectors        []string
	DateLayouts          []string
	LocationSelectors    []string
	DescriptionSelectors []string

	// ImageAttrs are the <img> attributes checked for a usable source, in
	// order (primary, then lazy-load variants).
	ImageAttrs []string
}

// Engine applies a Profile to rendered markup. It implements
// events.Extractor.
type Engine struct {
	profile Profile
	city    string
	clock   events.Clock
	logger  *zap.Logger
}

// NewEngine builds an Engine for the given profile.
func NewEngine(profile Profile, city string, clock events.Clock, logger *zap.Logger) *Engine {
	return &Engine{
		profile: profile,
		city:    city,
		clock:   clock,
		logger:  logger.Named(string(profile.Source)),
	}
}

// Source identifies the origin site this engine extracts for.
func (e *Engine) Source() events.Source {
	return e.profile.Source
}

// BaseURL is the site root, e.g. for locating robots.txt.
func (e *Engine) BaseURL() string {
	return e.profile.BaseURL
}

// ListingPages returns the bounded, ordered sequence of listing page URLs.
// Page one is the bare search URL; later pages add a page query parameter.
func (e *Engine) ListingPages() []string {
	pages := make([]string, 0, e.profile.MaxPages)
	for n := 1; n <= e.profile.MaxPages; n++ {
		if n == 1 {
			pages = append(pages, e.profile.SearchURL)
			continue
		}
		sep := "?"
		if strings.Contains(e.profile.SearchURL, "?") {
			sep = "&"
		}
		pages = append(pages, fmt.Sprintf("%s%spage=%d", e.profile.SearchURL, sep, n))
	}
	return pages
}

// Extract parses rendered markup into zero or more candidates. A page where
// no card strategy matches yields an empty slice, not an error.
func (e *Engine) Extract(html string) ([]events.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse rendered html: %w", err)
	}

	cards := e.selectCards(doc)
	candidates := make([]events.Candidate, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		c, ok := e.extractCard(card)
		if !ok {
			return
		}
		candidates = append(candidates, c)
	})
	return candidates, nil
}

// selectCards tries each card strategy in order and returns the first
// non-empty match set, capped at maxCardsPerPage.
func (e *Engine) selectCards(doc *goquery.Document) *goquery.Selection {
	for _, strategy := range e.profile.CardStrategies {
		cards := doc.Find(strategy)
		if cards.Length() == 0 {
			continue
		}
		if cards.Length() > maxCardsPerPage {
			cards = cards.Slice(0, maxCardsPerPage)
		}
		return cards
	}
	return doc.Selection.Slice(0, 0) // empty selection
}

// extractCard pulls the candidate fields out of one card, tolerantly. Only a
// missing ticket URL discards the card: it is the dedupe key and a record
// without it can never be persisted.
func (e *Engine) extractCard(card *goquery.Selection) (events.Candidate, bool) {
	ticketURL := e.ticketURL(card)
	if ticketURL == "" {
		e.logger.Debug("card has no resolvable ticket url; skipping")
		return events.Candidate{}, false
	}

	return events.Candidate{
		Title:       e.title(card),
		DateTime:    e.dateTime(card),
		Location:    e.location(card),
		Description: e.description(card),
		TicketURL:   ticketURL,
		ImageURL:    e.imageURL(card),
	}, true
}

func (e *Engine) title(card *goquery.Selection) string {
	if text := firstText(card, e.profile.TitleSelectors); text != "" {
		return text
	}
	return defaultTitle
}

func (e *Engine) ticketURL(card *goquery.Selection) string {
	href, ok := card.Find("a[href]").First().Attr("href")
	if !ok {
		return ""
	}
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "/"):
		return e.profile.BaseURL + href
	case strings.HasPrefix(href, "http"):
		return href
	default:
		return e.profile.BaseURL + "/" + href
	}
}

// dateTime resolves the card's date with the unified fallback policy: a card
// with no date element at all gets "now"; a date element whose text parses
// under none of the profile's layouts gets "now + 7 days".
func (e *Engine) dateTime(card *goquery.Selection) time.Time {
	text := firstText(card, e.profile.DateSelectors)
	if text == "" {
		return e.clock.Now()
	}
	for _, layout := range e.profile.DateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t
		}
	}
	e.logger.Debug("date text matched no layout; using visibility bias",
		zap.String("text", text))
	return e.clock.Now().Add(unparsableDateOffset)
}

func (e *Engine) location(card *goquery.Selection) string {
	if text := firstText(card, e.profile.LocationSelectors); text != "" {
		return text
	}
	return capitalize(e.city) + ", Australia"
}

func (e *Engine) description(card *goquery.Selection) string {
	return truncateRunes(firstText(card, e.profile.DescriptionSelectors), maxDescriptionRunes)
}

func (e *Engine) imageURL(card *goquery.Selection) string {
	img := card.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range e.profile.ImageAttrs {
		src, ok := img.Attr(attr)
		if !ok {
			continue
		}
		src = strings.TrimSpace(src)
		switch {
		case src == "":
			continue
		case strings.HasPrefix(src, "/"):
			return e.profile.BaseURL + src
		case strings.HasPrefix(src, "http"):
			return src
		}
		// A relative image path that is not root-anchored is not worth
		// guessing at.
		return ""
	}
	return ""
}

// firstText returns the trimmed text of the first selector that matches an
// element with non-empty text.
func firstText(card *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		found := card.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(found.Text()); text != "" {
			return text
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
