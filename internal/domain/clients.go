package domain

import (
	"context"
	"time"
)

// PlaceClient resolves free-text queries to place candidates and place ids
// to full place records.
type PlaceClient interface {
	// Suggest returns place candidates for a free-text query. The session
	// token groups autocomplete requests for provider billing.
	Suggest(ctx context.Context, query, sessionToken string) ([]Suggestion, error)

	// Retrieve returns the full place record, including its coordinate.
	Retrieve(ctx context.Context, id, sessionToken string) (Place, error)
}

// WeatherClient fetches current weather conditions for a coordinate.
type WeatherClient interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (WeatherReading, error)
}

// PollutionClient fetches current air pollution data for a coordinate.
type PollutionClient interface {
	CurrentPollution(ctx context.Context, lat, lon float64) (PollutionReading, error)
}

// Sink persists readings. Every insert is upsert-or-ignore keyed by
// (latitude, longitude, measured_at): duplicate writes are safe no-ops.
type Sink interface {
	InsertWeather(ctx context.Context, c Coordinate, r WeatherReading) error
	InsertAirQuality(ctx context.Context, c Coordinate, r PollutionReading) error
	InsertRisk(ctx context.Context, c Coordinate, measuredAt time.Time, r RiskReading) error
}
