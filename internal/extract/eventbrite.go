package extract

import (
	"go.uber.org/zap"

	"github.com/oharris/sydney-events-crawler/internal/events"
)

const eventbriteBaseURL = "https://www.eventbrite.com.au"

// NewEventbrite builds the extractor for Eventbrite's city listing pages.
func NewEventbrite(city string, clock events.Clock, logger *zap.Logger) *Engine {
	return NewEngine(Profile{
		Source:    events.SourceEventbrite,
		BaseURL:   eventbriteBaseURL,
		SearchURL: eventbriteBaseURL + "/d/australia--" + city + "/events/",
		MaxPages:  3,
		CardStrategies: []string{
			`div[class*="event-card"]`,
			`article`,
			`div[data-testid*="event"]`,
			`[class*="event"]`,
		},
		TitleSelectors: []string{
			"h2",
			"h3",
			`a[class*="title"]`,
			`a[href]`,
		},
		DateSelectors: []string{
			"time",
			`div[class*="date"]`,
			`p[class*="date"]`,
		},
		DateLayouts: []string{
			"2006-01-02",
			"2 Jan 2006",
			"02/01/2006",
			"January 2, 2006",
		},
		LocationSelectors: []string{
			`div[class*="location"]`,
			`span[class*="location"]`,
		},
		DescriptionSelectors: []string{
			"p",
			`div[class*="description"]`,
		},
		ImageAttrs: []string{"src", "data-src"},
	}, city, clock, logger)
}
