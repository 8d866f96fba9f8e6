// Package mapbox implements place lookup against the Mapbox Search Box API.
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/couchcryptid/respiratory-risk-service/internal/domain"
	"github.com/couchcryptid/respiratory-risk-service/internal/observability"
)

const defaultBaseURL = "https://api.mapbox.com/search/searchbox/v1"

// Client implements domain.PlaceClient using the Mapbox Search Box API.
type Client struct {
	token   string
	http    *resty.Client
	baseURL string
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a Mapbox Search Box client sharing the given HTTP client.
func NewClient(token string, http *resty.Client, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token:   token,
		http:    http,
		baseURL: defaultBaseURL,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "mapbox",
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
		metrics: metrics,
		logger:  logger,
	}
}

// Suggest returns place candidates for a free-text query.
func (c *Client) Suggest(ctx context.Context, query, sessionToken string) ([]domain.Suggestion, error) {
	body, err := c.doGet(ctx, "suggest", c.baseURL+"/suggest", map[string]string{
		"q":             query,
		"session_token": sessionToken,
		"access_token":  c.token,
	})
	if err != nil {
		return nil, err
	}

	var resp suggestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode suggest response: %w", err)
	}
	if len(resp.Suggestions) == 0 {
		return nil, fmt.Errorf("suggest %q: %w", query, domain.ErrNoResults)
	}

	out := make([]domain.Suggestion, len(resp.Suggestions))
	for i, s := range resp.Suggestions {
		out[i] = domain.Suggestion{
			ID:             s.MapboxID,
			Name:           s.Name,
			FullAddress:    s.FullAddress,
			PlaceFormatted: s.PlaceFormatted,
		}
	}
	return out, nil
}

// Retrieve returns the full place record for a suggestion id.
func (c *Client) Retrieve(ctx context.Context, id, sessionToken string) (domain.Place, error) {
	body, err := c.doGet(ctx, "retrieve", c.baseURL+"/retrieve/"+url.PathEscape(id), map[string]string{
		"session_token": sessionToken,
		"access_token":  c.token,
	})
	if err != nil {
		return domain.Place{}, err
	}

	var resp retrieveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Place{}, fmt.Errorf("decode retrieve response: %w", err)
	}
	if len(resp.Features) == 0 {
		return domain.Place{}, fmt.Errorf("retrieve %q: %w", id, domain.ErrNoResults)
	}

	f := resp.Features[0]
	place := domain.Place{
		ID:             f.Properties.MapboxID,
		Name:           f.Properties.Name,
		FullAddress:    f.Properties.FullAddress,
		PlaceFormatted: f.Properties.PlaceFormatted,
	}
	// Mapbox uses lon,lat order.
	if len(f.Geometry.Coordinates) == 2 {
		place.Coordinate.Longitude = f.Geometry.Coordinates[0]
		place.Coordinate.Latitude = f.Geometry.Coordinates[1]
	}
	return place, nil
}

func (c *Client) doGet(ctx context.Context, op, fullURL string, params map[string]string) ([]byte, error) {
	start := time.Now()
	result, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.http.R().SetContext(ctx).SetQueryParams(params).Get(fullURL)
		if err != nil {
			return nil, fmt.Errorf("mapbox %s request: %w", op, err)
		}
		if !resp.IsSuccess() {
			return nil, &domain.UpstreamError{Provider: "mapbox", Status: resp.StatusCode(), Body: truncate(resp.String())}
		}
		return resp.Body(), nil
	})
	c.metrics.UpstreamDuration.WithLabelValues("mapbox").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues("mapbox", "error").Inc()
		return nil, err
	}
	c.metrics.UpstreamRequests.WithLabelValues("mapbox", "success").Inc()
	return result.([]byte), nil
}

func truncate(s string) string {
	const maxLen = 256
	if len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}

// Mapbox API response types.

type suggestResponse struct {
	Suggestions []suggestion `json:"suggestions"`
}

type suggestion struct {
	MapboxID       string `json:"mapbox_id"`
	Name           string `json:"name"`
	FullAddress    string `json:"full_address"`
	PlaceFormatted string `json:"place_formatted"`
}

type retrieveResponse struct {
	Features []feature `json:"features"`
}

type feature struct {
	Properties struct {
		MapboxID       string `json:"mapbox_id"`
		Name           string `json:"name"`
		FullAddress    string `json:"full_address"`
		PlaceFormatted string `json:"place_formatted"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"geometry"`
}
