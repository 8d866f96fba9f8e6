package openweather

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/respiratory-risk-service/internal/domain"
)

// Stub is the deterministic weather and pollution client used when no
// OpenWeather API key is configured. It performs no network I/O. The fixed
// values sit comfortably in the Low-to-Moderate band so downstream
// computation stays exercised without live data.
type Stub struct {
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewStub creates a stub weather/pollution client.
func NewStub(clock clockwork.Clock, logger *slog.Logger) *Stub {
	return &Stub{clock: clock, logger: logger}
}

// CurrentWeather returns a fixed mild-conditions reading.
func (s *Stub) CurrentWeather(_ context.Context, lat, lon float64) (domain.WeatherReading, error) {
	s.logger.Warn("openweather key missing; serving stub weather", "lat", lat, "lon", lon)
	return domain.WeatherReading{
		Timestamp:   s.clock.Now().UTC(),
		TempCelsius: 20.0,
		Humidity:    50,
		WindSpeed:   5.0,
	}, nil
}

// CurrentPollution returns a fixed light-pollution reading.
func (s *Stub) CurrentPollution(_ context.Context, lat, lon float64) (domain.PollutionReading, error) {
	s.logger.Warn("openweather key missing; serving stub pollution", "lat", lat, "lon", lon)
	return domain.PollutionReading{
		Timestamp: s.clock.Now().UTC(),
		Components: map[string]float64{
			"pm2_5": 10.0,
			"pm10":  20.0,
			"o3":    30.0,
			"no2":   5.0,
			"so2":   2.0,
			"co":    0.5,
		},
	}, nil
}
