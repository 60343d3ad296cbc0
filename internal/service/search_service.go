package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"flight_search/internal/cache"
	"flight_search/internal/metrics"
	"flight_search/internal/models"
	"flight_search/internal/search"
)

// search outcome labels
const (
	outcomeFound     = "found"
	outcomeEmpty     = "empty"
	outcomeInvalid   = "invalid"
	outcomeDataError = "data_error"
	outcomeError     = "error"
)

const (
	sourceCache = "cache"
	sourceStore = "store"
)

// TimetableStore returns the complete timetable.
type TimetableStore interface {
	ListAll(ctx context.Context) ([]models.Flight, error)
}

// StaticTimetable serves a timetable loaded up front, e.g. from a CSV file.
type StaticTimetable []models.Flight

func (t StaticTimetable) ListAll(context.Context) ([]models.Flight, error) {
	return t, nil
}

// SearchService answers itinerary searches over a snapshot of the timetable.
// Each call loads one snapshot and never observes later writes.
type SearchService struct {
	store   TimetableStore
	cache   cache.Cache
	ttl     time.Duration
	timeout time.Duration

	loads  singleflight.Group
	tracer trace.Tracer
	logger *slog.Logger
}

type SearchOption func(*SearchService)

// WithTimeout bounds each search; the walk stops with context.DeadlineExceeded.
func WithTimeout(d time.Duration) SearchOption {
	return func(s *SearchService) { s.timeout = d }
}

// NewSearchService builds a service. c may be nil to always read the store.
func NewSearchService(store TimetableStore, c cache.Cache, ttl time.Duration, logger *slog.Logger, opts ...SearchOption) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	s := &SearchService{
		store:  store,
		cache:  c,
		ttl:    ttl,
		tracer: otel.Tracer("flight_search/internal/service"),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search validates req against the current timetable and returns every
// matching itinerary ordered by total price. No match is a normal result
// with Count 0.
func (s *SearchService) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	ctx, span := s.tracer.Start(ctx, "SearchService.Search")
	defer span.End()

	searchID := uuid.NewString()
	span.SetAttributes(attribute.String("search.id", searchID))

	trip := tripLabel(req)
	resp, err := s.search(ctx, searchID, req)
	if err != nil {
		outcome := classify(err)
		metrics.IncSearch(trip, outcome)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		if outcome == outcomeError || outcome == outcomeDataError {
			s.logger.ErrorContext(ctx, "search failed", "search_id", searchID, "error", err)
		} else {
			s.logger.InfoContext(ctx, "search rejected", "search_id", searchID, "error", err)
		}
		return nil, err
	}

	if resp.Count == 0 {
		metrics.IncSearch(trip, outcomeEmpty)
	} else {
		metrics.IncSearch(trip, outcomeFound)
	}
	span.SetAttributes(attribute.Int("search.results", resp.Count))

	return resp, nil
}

func (s *SearchService) search(ctx context.Context, searchID string, req *models.SearchRequest) (*models.SearchResponse, error) {
	idx, err := s.index(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := BuildConfig(req, idx)
	if err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := search.Search(ctx, idx, cfg)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	its := search.Project(res.Itineraries, cfg)

	metrics.ObserveSearch(cfg.Trip.String(), time.Since(start), len(its), res.Stats.Enqueued)
	for check, n := range res.Stats.Pruned {
		metrics.AddPruned(check, n)
	}

	s.logger.InfoContext(ctx, "search done",
		"search_id", searchID,
		"trip", cfg.Trip.String(),
		"origin", cfg.Source,
		"destination", cfg.Destination,
		"results", len(its),
		"dequeued", res.Stats.Dequeued,
		"max_queue", res.Stats.MaxQueue,
		"duration", time.Since(start),
	)

	return &models.SearchResponse{
		SearchID:    searchID,
		Count:       len(its),
		Itineraries: its,
	}, nil
}

// Airports lists the airports with outgoing flights.
func (s *SearchService) Airports(ctx context.Context) (*models.AirportsResponse, error) {
	idx, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	return &models.AirportsResponse{
		Airports: idx.Airports(),
		Flights:  idx.Len(),
	}, nil
}

// Invalidate drops the cached snapshot.
func (s *SearchService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, cache.TimetableKeys()...)
}

// index builds an index over the current snapshot. Concurrent callers share
// one load, which outlives any single caller: a caller giving up only stops
// its own wait.
func (s *SearchService) index(ctx context.Context) (*search.Index, error) {
	loadCtx := context.WithoutCancel(ctx)
	ch := s.loads.DoChan(cache.TimetableKey(), func() (any, error) {
		flights, err := s.snapshot(loadCtx)
		if err != nil {
			return nil, err
		}
		idx, err := search.NewIndex(flights)
		if err != nil {
			return nil, fmt.Errorf("build index: %w", err)
		}
		metrics.SetTimetableFlights(idx.Len())
		return idx, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*search.Index), nil
	}
}

// snapshot reads the timetable cache-aside. Cache failures fall back to the
// store.
func (s *SearchService) snapshot(ctx context.Context) ([]models.Flight, error) {
	key := cache.TimetableKey()

	if s.cache != nil {
		b, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "timetable cache get failed", "error", err)
		case ok:
			var flights []models.Flight
			err := json.Unmarshal(b, &flights)
			if err == nil {
				metrics.IncSnapshotLookup(metrics.SnapshotHit)
				metrics.IncTimetableLoad(sourceCache)
				return flights, nil
			}
			metrics.IncSnapshotLookup(metrics.SnapshotUnreadable)
			s.logger.WarnContext(ctx, "timetable cache entry unreadable", "error", err)
		default:
			metrics.IncSnapshotLookup(metrics.SnapshotMiss)
		}
	}

	flights, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load timetable: %w", err)
	}
	metrics.IncTimetableLoad(sourceStore)

	if s.cache != nil {
		b, err := json.Marshal(flights)
		if err != nil {
			return nil, fmt.Errorf("marshal timetable: %w", err)
		}
		if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "timetable cache set failed", "error", err)
		}
	}

	return flights, nil
}

func tripLabel(req *models.SearchRequest) string {
	switch {
	case req == nil:
		return search.OneWay.String()
	case req.Return:
		return search.Return.String()
	case req.Multicity:
		return search.Multicity.String()
	default:
		return search.OneWay.String()
	}
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return outcomeInvalid
	case errors.Is(err, models.ErrMalformedFlight):
		return outcomeDataError
	default:
		return outcomeError
	}
}
