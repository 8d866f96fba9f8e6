//go:build integration

package integration_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	postgresadapter "github.com/couchcryptid/respiratory-risk-service/internal/adapter/postgres"
	"github.com/couchcryptid/respiratory-risk-service/internal/domain"
)

// startPostgres launches a postgres container, applies the service schema,
// and returns a connection URL.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("risk"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	applySchema(ctx, t, url)
	return url
}

func applySchema(ctx context.Context, t *testing.T, url string) {
	t.Helper()

	schema, err := os.ReadFile("../adapter/postgres/schema.sql")
	require.NoError(t, err, "read schema.sql")

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	// Statements are executed one at a time; pgx prepares single statements.
	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := pool.Exec(ctx, stmt)
		require.NoError(t, err, "apply schema statement")
	}
}

func countRows(ctx context.Context, t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count))
	return count
}

// TestSinkInsertsAreIdempotent verifies the insert contract against a real
// database: writing the same (latitude, longitude, measured_at) key twice
// leaves exactly one row in each table, with the first write winning.
func TestSinkInsertsAreIdempotent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	url := startPostgres(ctx, t)

	sink, err := postgresadapter.NewSink(ctx, url, discardLogger())
	require.NoError(t, err)
	t.Cleanup(sink.Close)

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	coord := domain.Coordinate{Latitude: 30.2672, Longitude: -97.7431}
	weatherAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pollutionAt := weatherAt.Add(20 * time.Minute)

	weather := domain.WeatherReading{Timestamp: weatherAt, TempCelsius: 21.4, Humidity: 63, WindSpeed: 3.6}
	require.NoError(t, sink.InsertWeather(ctx, coord, weather))

	// Same key, different values: the duplicate is ignored without error.
	hotter := weather
	hotter.TempCelsius = 30.0
	require.NoError(t, sink.InsertWeather(ctx, coord, hotter))

	assert.Equal(t, 1, countRows(ctx, t, pool, "weather_data"))
	var temp float64
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT temperature FROM weather_data WHERE latitude = $1 AND longitude = $2 AND measured_at = $3`,
		coord.Latitude, coord.Longitude, weatherAt).Scan(&temp))
	assert.Equal(t, 21.4, temp, "the first write wins")

	pollution := domain.PollutionReading{
		Timestamp:  pollutionAt,
		AQI:        2,
		Components: map[string]float64{"pm2_5": 8.2, "pm10": 12.6, "o3": 68.7, "no2": 5.4, "so2": 1.8, "co": 230.3},
	}
	require.NoError(t, sink.InsertAirQuality(ctx, coord, pollution))
	require.NoError(t, sink.InsertAirQuality(ctx, coord, pollution))

	assert.Equal(t, 1, countRows(ctx, t, pool, "air_quality"))
	var nh3IsNull bool
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT nh3 IS NULL FROM air_quality WHERE latitude = $1 AND longitude = $2 AND measured_at = $3`,
		coord.Latitude, coord.Longitude, pollutionAt).Scan(&nh3IsNull))
	assert.True(t, nh3IsNull, "absent components are stored as NULL")

	risk := domain.NewRiskReading(weather, pollution)
	require.NoError(t, sink.InsertRisk(ctx, coord, pollutionAt, risk))
	require.NoError(t, sink.InsertRisk(ctx, coord, pollutionAt, risk))

	assert.Equal(t, 1, countRows(ctx, t, pool, "risk_index"))
	var label string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT risk_label FROM risk_index WHERE latitude = $1 AND longitude = $2 AND measured_at = $3`,
		coord.Latitude, coord.Longitude, pollutionAt).Scan(&label))
	assert.Equal(t, string(risk.Label), label)

	require.NoError(t, sink.Ping(ctx))
}
