package mapbox

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/respiratory-risk-service/internal/domain"
)

// Stub is the deterministic place client used when no Mapbox token is
// configured. It performs no network I/O so the rest of the system can run
// and be tested without live credentials. Selected once at startup, never
// per call.
type Stub struct {
	logger *slog.Logger
}

// NewStub creates a stub place client.
func NewStub(logger *slog.Logger) *Stub {
	return &Stub{logger: logger}
}

// Suggest returns a single synthetic candidate echoing the query.
func (s *Stub) Suggest(_ context.Context, query, _ string) ([]domain.Suggestion, error) {
	s.logger.Warn("mapbox token missing; serving stub suggestion", "query", query)
	return []domain.Suggestion{
		{ID: "stub-place", Name: query, PlaceFormatted: query},
	}, nil
}

// Retrieve returns a fixed placeholder place at the null island coordinate.
func (s *Stub) Retrieve(_ context.Context, id, _ string) (domain.Place, error) {
	s.logger.Warn("mapbox token missing; serving stub place", "id", id)
	return domain.Place{
		ID:   id,
		Name: "Stubbed Location",
	}, nil
}
