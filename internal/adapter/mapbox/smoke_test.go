//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/respiratory-risk-service/internal/observability"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return NewClient(token, resty.New(), observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_SuggestRetrieve(t *testing.T) {
	c := smokeClient(t)

	suggestions, err := c.Suggest(context.Background(), "Austin Texas", "smoke-session")
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)

	place, err := c.Retrieve(context.Background(), suggestions[0].ID, "smoke-session")
	require.NoError(t, err)
	assert.NotZero(t, place.Coordinate.Latitude)
	assert.NotZero(t, place.Coordinate.Longitude)
}
