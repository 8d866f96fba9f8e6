// Package openweather implements the weather and air-pollution clients
// against the OpenWeather current-conditions APIs.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/couchcryptid/respiratory-risk-service/internal/domain"
	"github.com/couchcryptid/respiratory-risk-service/internal/observability"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5"

// Client implements domain.WeatherClient and domain.PollutionClient using
// the OpenWeather API.
type Client struct {
	apiKey  string
	http    *resty.Client
	baseURL string
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates an OpenWeather client sharing the given HTTP client.
func NewClient(apiKey string, http *resty.Client, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		http:    http,
		baseURL: defaultBaseURL,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openweather",
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
		metrics: metrics,
		logger:  logger,
	}
}

// CurrentWeather fetches current conditions for a coordinate, in metric units.
func (c *Client) CurrentWeather(ctx context.Context, lat, lon float64) (domain.WeatherReading, error) {
	body, err := c.doGet(ctx, "weather", c.baseURL+"/weather", map[string]string{
		"lat":   formatCoord(lat),
		"lon":   formatCoord(lon),
		"appid": c.apiKey,
		"units": "metric",
	})
	if err != nil {
		return domain.WeatherReading{}, err
	}

	var resp weatherResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.WeatherReading{}, fmt.Errorf("decode weather response: %w", err)
	}

	return domain.WeatherReading{
		Timestamp:   time.Unix(resp.Dt, 0).UTC(),
		TempCelsius: resp.Main.Temp,
		Humidity:    resp.Main.Humidity,
		WindSpeed:   resp.Wind.Speed,
		Raw:         json.RawMessage(body),
	}, nil
}

// CurrentPollution fetches current air pollution metrics for a coordinate.
func (c *Client) CurrentPollution(ctx context.Context, lat, lon float64) (domain.PollutionReading, error) {
	body, err := c.doGet(ctx, "air_pollution", c.baseURL+"/air_pollution", map[string]string{
		"lat":   formatCoord(lat),
		"lon":   formatCoord(lon),
		"appid": c.apiKey,
	})
	if err != nil {
		return domain.PollutionReading{}, err
	}

	var resp pollutionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.PollutionReading{}, fmt.Errorf("decode air pollution response: %w", err)
	}
	if len(resp.List) == 0 {
		return domain.PollutionReading{}, fmt.Errorf("air pollution at (%s, %s): %w",
			formatCoord(lat), formatCoord(lon), domain.ErrNoResults)
	}

	entry := resp.List[0]
	raw, err := json.Marshal(entry)
	if err != nil {
		return domain.PollutionReading{}, fmt.Errorf("re-encode air pollution entry: %w", err)
	}

	return domain.PollutionReading{
		Timestamp:  time.Unix(entry.Dt, 0).UTC(),
		AQI:        entry.Main.AQI,
		Components: entry.Components,
		Raw:        raw,
	}, nil
}

func (c *Client) doGet(ctx context.Context, op, fullURL string, params map[string]string) ([]byte, error) {
	start := time.Now()
	result, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.http.R().SetContext(ctx).SetQueryParams(params).Get(fullURL)
		if err != nil {
			return nil, fmt.Errorf("openweather %s request: %w", op, err)
		}
		if !resp.IsSuccess() {
			return nil, &domain.UpstreamError{Provider: "openweather", Status: resp.StatusCode(), Body: truncate(resp.String())}
		}
		return resp.Body(), nil
	})
	c.metrics.UpstreamDuration.WithLabelValues("openweather").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues("openweather", "error").Inc()
		return nil, err
	}
	c.metrics.UpstreamRequests.WithLabelValues("openweather", "success").Inc()
	return result.([]byte), nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func truncate(s string) string {
	const maxLen = 256
	if len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}

// OpenWeather API response types.

type weatherResponse struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

type pollutionResponse struct {
	List []pollutionEntry `json:"list"`
}

type pollutionEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		AQI int `json:"aqi"`
	} `json:"main"`
	Components map[string]float64 `json:"components"`
}
