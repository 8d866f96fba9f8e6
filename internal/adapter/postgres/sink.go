// Package postgres persists readings into the relational store. All inserts
// use ON CONFLICT DO NOTHING on the (latitude, longitude, measured_at) key,
// so concurrent or retried writes for the same location and instant are
// no-ops. Durability beyond that is the database's concern.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/respiratory-risk-service/internal/domain"
)

// Sink implements domain.Sink on top of a pgx connection pool.
type Sink struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewSink opens a connection pool against databaseURL and verifies it with
// a ping.
func NewSink(ctx context.Context, databaseURL string, logger *slog.Logger) (*Sink, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Sink{pool: pool, logger: logger}, nil
}

// InsertWeather writes one weather row keyed by (lat, lon, measured_at).
func (s *Sink) InsertWeather(ctx context.Context, c domain.Coordinate, r domain.WeatherReading) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO weather_data (latitude, longitude, measured_at, temperature, humidity, wind_speed)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (latitude, longitude, measured_at) DO NOTHING`,
		c.Latitude, c.Longitude, r.Timestamp, r.TempCelsius, r.Humidity, r.WindSpeed,
	)
	if err != nil {
		return fmt.Errorf("insert weather row: %w", err)
	}
	return nil
}

// InsertAirQuality writes one air-quality row keyed by (lat, lon, measured_at).
// Missing pollutant components are stored as NULL rather than zero so absent
// and zero measurements stay distinguishable.
func (s *Sink) InsertAirQuality(ctx context.Context, c domain.Coordinate, r domain.PollutionReading) error {
	comp := r.Components
	_, err := s.pool.Exec(ctx, `
		INSERT INTO air_quality (latitude, longitude, measured_at, aqi, co, no, no2, o3, so2, pm2_5, pm10, nh3)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (latitude, longitude, measured_at) DO NOTHING`,
		c.Latitude, c.Longitude, r.Timestamp, nullableAQI(r.AQI),
		nullable(comp, "co"), nullable(comp, "no"), nullable(comp, "no2"), nullable(comp, "o3"),
		nullable(comp, "so2"), nullable(comp, "pm2_5"), nullable(comp, "pm10"), nullable(comp, "nh3"),
	)
	if err != nil {
		return fmt.Errorf("insert air quality row: %w", err)
	}
	return nil
}

// InsertRisk writes one computed risk row. measuredAt is the later of the
// weather and pollution timestamps, chosen by the caller.
func (s *Sink) InsertRisk(ctx context.Context, c domain.Coordinate, measuredAt time.Time, r domain.RiskReading) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO risk_index (latitude, longitude, measured_at, risk_index, risk_label)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (latitude, longitude, measured_at) DO NOTHING`,
		c.Latitude, c.Longitude, measuredAt, r.Index, string(r.Label),
	)
	if err != nil {
		return fmt.Errorf("insert risk row: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Sink) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Sink) Close() {
	s.pool.Close()
}

func nullable(m map[string]float64, key string) *float64 {
	if v, ok := m[key]; ok {
		return &v
	}
	return nil
}

func nullableAQI(aqi int) *int {
	if aqi == 0 {
		return nil
	}
	return &aqi
}
