package extract

import (
	"go.uber.org/zap"

	"github.com/oharris/sydney-events-crawler/internal/events"
)

const timeoutBaseURL = "https://www.timeout.com"

// NewTimeOut builds the extractor for TimeOut's city events pages.
func NewTimeOut(city string, clock events.Clock, logger *zap.Logger) *Engine {
	return NewEngine(Profile{
		Source:    events.SourceTimeout,
		BaseURL:   timeoutBaseURL,
		SearchURL: timeoutBaseURL + "/" + city + "/events",
		MaxPages:  2,
		CardStrategies: []string{
			`article`,
			`div[class*="card"]`,
			`[class*="event"], [class*="listing"]`,
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
		},
		DateLayouts: []string{
			"2006-01-02",
			"2 Jan 2006",
			"02/01/2006",
			"January 2, 2006",
			"Mon 2 Jan 2006",
		},
		LocationSelectors: []string{
			`div[class*="location"]`,
			`span[class*="venue"]`,
			"address",
		},
		DescriptionSelectors: []string{
			"p",
			`div[class*="description"]`,
			`div[class*="summary"]`,
		},
		ImageAttrs: []string{"src", "data-src", "data-lazy-src"},
	}, city, clock, logger)
}
