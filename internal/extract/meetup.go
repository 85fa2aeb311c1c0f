package extract

import (
	"go.uber.org/zap"

	"github.com/oharris/sydney-events-crawler/internal/events"
)

const meetupBaseURL = "https://www.meetup.com"

// NewMeetup builds the extractor for Meetup's event search pages.
func NewMeetup(city string, clock events.Clock, logger *zap.Logger) *Engine {
	return NewEngine(Profile{
		Source:    events.SourceMeetup,
		BaseURL:   meetupBaseURL,
		SearchURL: meetupBaseURL + "/find/?location=au--" + city + "&source=EVENTS",
		MaxPages:  2,
		CardStrategies: []string{
			`div[class*="event-card"]`,
			`[data-testid*="event-card"]`,
			`article`,
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
			`span[class*="date"]`,
			`div[class*="date"]`,
		},
		DateLayouts: []string{
			"2006-01-02",
			"2 Jan 2006",
			"02/01/2006",
			"January 2, 2006",
			"Mon, Jan 2",
		},
		LocationSelectors: []string{
			`span[class*="location"]`,
			`div[class*="location"]`,
			"address",
		},
		DescriptionSelectors: []string{
			"p",
			`div[class*="description"]`,
		},
		ImageAttrs: []string{"src", "data-src"},
	}, city, clock, logger)
}
