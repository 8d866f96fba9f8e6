package openweather

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/respiratory-risk-service/internal/domain"
	"github.com/couchcryptid/respiratory-risk-service/internal/observability"
)

const testAPIKey = "ow-test-key"

func testClient(baseURL string) *Client {
	c := NewClient(testAPIKey, resty.New(), observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.baseURL = baseURL
	return c
}

func TestClient_CurrentWeather_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, testAPIKey, r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "30.267200", r.URL.Query().Get("lat"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"dt":1767225600,"main":{"temp":21.4,"humidity":63},"wind":{"speed":3.6}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	reading, err := c.CurrentWeather(context.Background(), 30.2672, -97.7431)
	require.NoError(t, err)

	assert.Equal(t, time.Unix(1767225600, 0).UTC(), reading.Timestamp)
	assert.Equal(t, 21.4, reading.TempCelsius)
	assert.Equal(t, 63, reading.Humidity)
	assert.Equal(t, 3.6, reading.WindSpeed)
	assert.NotEmpty(t, reading.Raw, "raw provider payload is preserved")
}

func TestClient_CurrentWeather_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.CurrentWeather(context.Background(), 1, 2)
	require.Error(t, err)

	var upErr *domain.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "openweather", upErr.Provider)
	assert.Equal(t, http.StatusUnauthorized, upErr.Status)
}

func TestClient_CurrentPollution_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/air_pollution", r.URL.Path)
		assert.Equal(t, testAPIKey, r.URL.Query().Get("appid"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"list":[{"dt":1767225600,"main":{"aqi":2},
			"components":{"co":230.3,"no":0.1,"no2":5.4,"o3":68.7,"so2":1.8,"pm2_5":8.2,"pm10":12.6,"nh3":0.9}}]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	reading, err := c.CurrentPollution(context.Background(), 30.2672, -97.7431)
	require.NoError(t, err)

	assert.Equal(t, time.Unix(1767225600, 0).UTC(), reading.Timestamp)
	assert.Equal(t, 2, reading.AQI)
	assert.Equal(t, 8.2, reading.Components["pm2_5"])
	assert.Equal(t, 230.3, reading.Components["co"])
	assert.NotEmpty(t, reading.Raw)
}

func TestClient_CurrentPollution_EmptyListIsNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"list":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.CurrentPollution(context.Background(), 1, 2)
	assert.ErrorIs(t, err, domain.ErrNoResults)
}

func TestStub_DeterministicReadings(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	stub := NewStub(clk, slog.New(slog.NewTextHandler(io.Discard, nil)))

	weather, err := stub.CurrentWeather(context.Background(), 48.85, 2.35)
	require.NoError(t, err)
	assert.Equal(t, 20.0, weather.TempCelsius)
	assert.Equal(t, 50, weather.Humidity)
	assert.Equal(t, 5.0, weather.WindSpeed)
	assert.Equal(t, clk.Now().UTC(), weather.Timestamp)

	pollution, err := stub.CurrentPollution(context.Background(), 48.85, 2.35)
	require.NoError(t, err)
	assert.Equal(t, 10.0, pollution.Components["pm2_5"])
	assert.Equal(t, 0.5, pollution.Components["co"])

	// Stub readings are mild: the computed index lands just inside Moderate.
	idx, _ := domain.ComputeRisk(weather, pollution)
	assert.InDelta(t, 0.2300025, idx, 1e-6)
	assert.Equal(t, domain.LabelModerate, domain.LabelFor(idx))
}
