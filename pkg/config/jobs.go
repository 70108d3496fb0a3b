package config

import (
	"fmt"

	"scrapejob/pkg/extract"
)

// FlightSearch is a kayak.com.au round-trip query.
type FlightSearch struct {
	DepartureName string
	ArrivalName   string
	DepartureCode string
	ArrivalCode   string
	DepartureDate string
	ArrivalDate   string
	Currency      string
}

// DefaultFlightSearch is the Sydney to Auckland search the flights job runs
// when nothing else is configured.
var DefaultFlightSearch = FlightSearch{
	DepartureName: "Sydney",
	ArrivalName:   "Auckland",
	DepartureCode: "SYD",
	ArrivalCode:   "AKL",
	DepartureDate: "2021-08-02",
	ArrivalDate:   "2021-08-08",
	Currency:      "AUD",
}

// URL returns the results page sorted by ascending price.
func (f FlightSearch) URL() string {
	return fmt.Sprintf("https://www.kayak.com.au/flights/%s-%s/%s/%s?sort=price_a",
		f.DepartureCode, f.ArrivalCode, f.DepartureDate, f.ArrivalDate)
}

// Static returns the search parameters copied into every fare record.
func (f FlightSearch) Static() map[string]string {
	return map[string]string{
		"departure":      f.DepartureName,
		"destination":    f.ArrivalName,
		"departure_date": f.DepartureDate,
		"arrival_date":   f.ArrivalDate,
		"currency":       f.Currency,
	}
}

const newsSource = "bloomberg.com/markets"

// DefaultJobs returns the news and flights jobs. Each writes rows to its own
// table; set table: airfares.scraping on both to keep using the legacy
// shared DynamoDB table.
func DefaultJobs() []JobConfig {
	return []JobConfig{
		{
			Name:        "news",
			Label:       "Bloomberg",
			URL:         "https://www." + newsSource,
			Schedule:    "0 * * * *",
			DocumentKey: "data/bloomberg.json",
			Table:       "news_scraping",
			Rule:        extract.HeadlineRule(newsSource),
		},
		{
			Name:        "flights",
			URL:         DefaultFlightSearch.URL(),
			Schedule:    "0 */6 * * *",
			DocumentKey: "data/airfares.json",
			Table:       "airfares_scraping",
			Rule:        extract.FareRule(DefaultFlightSearch.Static()),
		},
	}
}
