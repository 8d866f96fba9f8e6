// Package service orchestrates place resolution, upstream reads, risk
// computation, and deferred persistence behind a single API surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/respiratory-risk-service/internal/domain"
	"github.com/couchcryptid/respiratory-risk-service/internal/fetch"
	"github.com/couchcryptid/respiratory-risk-service/internal/observability"
)

// ErrMissingLocator is returned when an assessment request carries neither a
// place id nor a free-text query.
var ErrMissingLocator = errors.New("either place_id or query is required")

// Publisher emits completed assessments to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, a domain.Assessment) error
}

// Pinger reports backing-store health for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps collects everything RiskService needs. Sink, Publisher, and Pinger
// are optional; when nil the corresponding step is skipped.
type Deps struct {
	Places    domain.PlaceClient
	Weather   domain.WeatherClient
	Pollution domain.PollutionClient
	Sink      domain.Sink
	Publisher Publisher
	Pinger    Pinger

	Cache     *fetch.Cache
	Retrier   *fetch.Retrier
	Persister *Persister
	Clock     clockwork.Clock
	Logger    *slog.Logger
	Metrics   *observability.Metrics

	// ReadingTTL bounds how long weather and pollution readings are served
	// from cache. Place lookups are near-static and cached without expiry.
	ReadingTTL time.Duration
}

// RiskService is the application core: it resolves locations, gathers
// current readings, computes the respiratory risk index, and schedules
// persistence without blocking the caller.
type RiskService struct {
	deps Deps
}

// NewRiskService wires the service from its dependencies.
func NewRiskService(deps Deps) *RiskService {
	return &RiskService{deps: deps}
}

// AssessRequest identifies the location to assess. Exactly one of PlaceID or
// Query must be set; PlaceID wins when both are. SessionToken groups
// autocomplete traffic for provider billing and is generated when empty.
type AssessRequest struct {
	PlaceID      string
	Query        string
	SessionToken string
}

// Suggest returns place candidates for a free-text query. Results are cached
// without expiry; place names do not churn within a process lifetime. The
// cache key carries only the query: candidates do not vary by session token,
// and per-request generated tokens would make every entry unreachable.
func (s *RiskService) Suggest(ctx context.Context, query, sessionToken string) ([]domain.Suggestion, error) {
	if sessionToken == "" {
		sessionToken = uuid.NewString()
	}
	key := fmt.Sprintf("suggest:%s", query)
	return fetch.Through(ctx, s.deps.Cache, "suggest", key, 0, func(ctx context.Context) ([]domain.Suggestion, error) {
		return fetch.Do(ctx, s.deps.Retrier, "suggest", func(ctx context.Context) ([]domain.Suggestion, error) {
			return s.deps.Places.Suggest(ctx, query, sessionToken)
		})
	})
}

// Retrieve resolves a place id to its full record, coordinate included.
// Cached by id alone, for the same reason Suggest caches by query alone.
func (s *RiskService) Retrieve(ctx context.Context, id, sessionToken string) (domain.Place, error) {
	if sessionToken == "" {
		sessionToken = uuid.NewString()
	}
	key := fmt.Sprintf("retrieve:%s", id)
	return fetch.Through(ctx, s.deps.Cache, "retrieve", key, 0, func(ctx context.Context) (domain.Place, error) {
		return fetch.Do(ctx, s.deps.Retrier, "retrieve", func(ctx context.Context) (domain.Place, error) {
			return s.deps.Places.Retrieve(ctx, id, sessionToken)
		})
	})
}

// Assess resolves the requested location, fetches current weather and
// pollution concurrently, computes the risk reading, and returns the
// assessment immediately. Persistence and publishing happen afterwards on
// the persister queue. Both readings are required: if either fetch fails the
// whole assessment fails, since a partial index would be misleading.
func (s *RiskService) Assess(ctx context.Context, req AssessRequest) (domain.Assessment, error) {
	start := s.deps.Clock.Now()

	a, err := s.assess(ctx, req)

	s.deps.Metrics.AssessmentDuration.Observe(s.deps.Clock.Since(start).Seconds())
	if err != nil {
		s.deps.Metrics.Assessments.WithLabelValues("error").Inc()
		return domain.Assessment{}, err
	}
	s.deps.Metrics.Assessments.WithLabelValues("success").Inc()
	s.deps.Metrics.RiskIndex.Observe(a.RiskIndex)
	s.deps.Logger.Info("assessment complete",
		"place", a.Place.Name,
		"lat", a.Location.Latitude,
		"lon", a.Location.Longitude,
		"risk_index", a.RiskIndex,
		"risk_label", a.RiskLabel,
	)
	return a, nil
}

func (s *RiskService) assess(ctx context.Context, req AssessRequest) (domain.Assessment, error) {
	place, err := s.resolvePlace(ctx, req)
	if err != nil {
		return domain.Assessment{}, err
	}
	coord := place.Coordinate

	weather, pollution, err := s.fetchReadings(ctx, coord)
	if err != nil {
		return domain.Assessment{}, err
	}

	risk := domain.NewRiskReading(weather, pollution)
	a := domain.Assessment{
		Place:     place,
		Location:  coord,
		RiskIndex: risk.Index,
		RiskLabel: risk.Label,
		Weather:   weather,
		Pollution: pollution,
		Norm:      risk.Factors,
	}

	s.schedulePersistence(a, risk)
	return a, nil
}

func (s *RiskService) resolvePlace(ctx context.Context, req AssessRequest) (domain.Place, error) {
	token := req.SessionToken
	if token == "" {
		token = uuid.NewString()
	}

	switch {
	case req.PlaceID != "":
		return s.Retrieve(ctx, req.PlaceID, token)
	case req.Query != "":
		suggestions, err := s.Suggest(ctx, req.Query, token)
		if err != nil {
			return domain.Place{}, err
		}
		if len(suggestions) == 0 {
			return domain.Place{}, domain.ErrNoResults
		}
		return s.Retrieve(ctx, suggestions[0].ID, token)
	default:
		return domain.Place{}, ErrMissingLocator
	}
}

func (s *RiskService) fetchReadings(ctx context.Context, coord domain.Coordinate) (domain.WeatherReading, domain.PollutionReading, error) {
	var (
		weather   domain.WeatherReading
		pollution domain.PollutionReading
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		key := fmt.Sprintf("weather:%.4f,%.4f", coord.Latitude, coord.Longitude)
		var err error
		weather, err = fetch.Through(gctx, s.deps.Cache, "weather", key, s.deps.ReadingTTL, func(ctx context.Context) (domain.WeatherReading, error) {
			return fetch.Do(ctx, s.deps.Retrier, "weather", func(ctx context.Context) (domain.WeatherReading, error) {
				return s.deps.Weather.CurrentWeather(ctx, coord.Latitude, coord.Longitude)
			})
		})
		return err
	})
	g.Go(func() error {
		key := fmt.Sprintf("pollution:%.4f,%.4f", coord.Latitude, coord.Longitude)
		var err error
		pollution, err = fetch.Through(gctx, s.deps.Cache, "pollution", key, s.deps.ReadingTTL, func(ctx context.Context) (domain.PollutionReading, error) {
			return fetch.Do(ctx, s.deps.Retrier, "pollution", func(ctx context.Context) (domain.PollutionReading, error) {
				return s.deps.Pollution.CurrentPollution(ctx, coord.Latitude, coord.Longitude)
			})
		})
		return err
	})

	if err := g.Wait(); err != nil {
		return domain.WeatherReading{}, domain.PollutionReading{}, err
	}
	return weather, pollution, nil
}

// schedulePersistence enqueues the three row writes and the optional event
// publish. Each task is independent; one failing does not stop the others.
func (s *RiskService) schedulePersistence(a domain.Assessment, risk domain.RiskReading) {
	if s.deps.Sink != nil {
		coord := a.Location
		weather := a.Weather
		pollution := a.Pollution
		measuredAt := a.MeasuredAt()

		s.deps.Persister.Enqueue(Task{Name: "weather", Do: func(ctx context.Context) error {
			return s.deps.Sink.InsertWeather(ctx, coord, weather)
		}})
		s.deps.Persister.Enqueue(Task{Name: "air_quality", Do: func(ctx context.Context) error {
			return s.deps.Sink.InsertAirQuality(ctx, coord, pollution)
		}})
		s.deps.Persister.Enqueue(Task{Name: "risk", Do: func(ctx context.Context) error {
			return s.deps.Sink.InsertRisk(ctx, coord, measuredAt, risk)
		}})
	}

	if s.deps.Publisher != nil {
		s.deps.Persister.Enqueue(Task{Name: "publish", Do: func(ctx context.Context) error {
			return s.deps.Publisher.Publish(ctx, a)
		}})
	}
}

// CheckReadiness verifies the backing store when one is configured. A
// service running without persistence is always ready.
func (s *RiskService) CheckReadiness(ctx context.Context) error {
	if s.deps.Pinger == nil {
		return nil
	}
	return s.deps.Pinger.Ping(ctx)
}
