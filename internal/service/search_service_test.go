package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight_search/internal/cache"
	"flight_search/internal/models"
)

func TestSearchService_OneWay(t *testing.T) {
	svc := NewSearchService(StaticTimetable(timetable()), nil, 0, discardLogger())

	resp, err := svc.Search(context.Background(), &models.SearchRequest{Origin: "AAA", Destination: "CCC"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SearchID)
	require.Equal(t, 2, resp.Count)
	require.Len(t, resp.Itineraries, 2)

	cheapest := resp.Itineraries[0]
	assert.Equal(t, 150.0, cheapest.TotalPrice)
	assert.Equal(t, 1, cheapest.BagsAllowed)
	require.Len(t, cheapest.Flights, 2)
	assert.Equal(t, "F1", cheapest.Flights[0].FlightNo)
	assert.Equal(t, "F2", cheapest.Flights[1].FlightNo)
	assert.Equal(t, "6:00:00", cheapest.TravelTimes[0].Elapsed)

	assert.Equal(t, 200.0, resp.Itineraries[1].TotalPrice)
}

func TestSearchService_Return(t *testing.T) {
	svc := NewSearchService(StaticTimetable(timetable()), nil, 0, discardLogger())

	resp, err := svc.Search(context.Background(), &models.SearchRequest{
		Origin:      "AAA",
		Destination: "CCC",
		Return:      true,
		DaysOfStay:  3,
	})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Count)

	best := resp.Itineraries[0]
	assert.Equal(t, 230.0, best.TotalPrice)
	require.Len(t, best.TravelTimes, 2)
	assert.Equal(t, "travel_time_to_CCC", best.TravelTimes[0].Key())
	assert.Equal(t, "travel_time_to_AAA", best.TravelTimes[1].Key())
}

func TestSearchService_EmptyResultIsNotAnError(t *testing.T) {
	svc := NewSearchService(StaticTimetable(timetable()), nil, 0, discardLogger())

	resp, err := svc.Search(context.Background(), &models.SearchRequest{Origin: "AAA", Destination: "CCC", Bags: 3})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Itineraries)
	assert.Empty(t, resp.Itineraries)

	b, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"itineraries":[]`)
}

func TestSearchService_InvalidRequest(t *testing.T) {
	svc := NewSearchService(StaticTimetable(timetable()), nil, 0, discardLogger())

	_, err := svc.Search(context.Background(), &models.SearchRequest{Origin: "ZZZ", Destination: "CCC"})
	require.Error(t, err)

	var aerr *AirportError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, RoleSource, aerr.Role)
	assert.Equal(t, outcomeInvalid, classify(err))
}

func TestSearchService_MalformedTimetable(t *testing.T) {
	flights := timetable()
	flights[2].Arrival = flights[2].Departure

	svc := NewSearchService(StaticTimetable(flights), nil, 0, discardLogger())
	_, err := svc.Search(context.Background(), &models.SearchRequest{Origin: "AAA", Destination: "CCC"})
	require.Error(t, err)

	var derr *models.DataError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, 2, derr.Row)
	assert.Equal(t, "arrival", derr.Field)
	assert.Equal(t, outcomeDataError, classify(err))
}

func TestSearchService_StoreError(t *testing.T) {
	store := &countingStore{err: errBoom}
	svc := NewSearchService(store, nil, 0, discardLogger())

	_, err := svc.Search(context.Background(), &models.SearchRequest{Origin: "AAA", Destination: "CCC"})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, outcomeError, classify(err))
}

func TestSearchService_CacheAside(t *testing.T) {
	store := &countingStore{flights: timetable()}
	c := newMemCache()
	svc := NewSearchService(store, c, 0, discardLogger())
	ctx := context.Background()

	first, err := svc.Search(ctx, &models.SearchRequest{Origin: "AAA", Destination: "CCC"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls)

	cached, ok, err := c.Get(ctx, cache.TimetableKey())
	require.NoError(t, err)
	require.True(t, ok)
	var flights []models.Flight
	require.NoError(t, json.Unmarshal(cached, &flights))
	assert.Equal(t, timetable(), flights)

	second, err := svc.Search(ctx, &models.SearchRequest{Origin: "AAA", Destination: "CCC"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls, "second search must be served from cache")
	assert.Equal(t, first.Itineraries, second.Itineraries)
	assert.NotEqual(t, first.SearchID, second.SearchID)

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Search(ctx, &models.SearchRequest{Origin: "AAA", Destination: "CCC"})
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
}

func TestSearchService_CacheFailureFallsBackToStore(t *testing.T) {
	store := &countingStore{flights: timetable()}
	c := newMemCache()
	c.getErr = errBoom
	svc := NewSearchService(store, c, 0, discardLogger())

	resp, err := svc.Search(context.Background(), &models.SearchRequest{Origin: "AAA", Destination: "CCC"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 1, store.calls)
}

func TestSearchService_UnreadableCacheEntry(t *testing.T) {
	store := &countingStore{flights: timetable()}
	c := newMemCache()
	require.NoError(t, c.Set(context.Background(), cache.TimetableKey(), []byte("not json"), 0))
	svc := NewSearchService(store, c, 0, discardLogger())

	resp, err := svc.Search(context.Background(), &models.SearchRequest{Origin: "AAA", Destination: "CCC"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 1, store.calls)
}

func TestSearchService_Concurrent(t *testing.T) {
	store := &countingStore{flights: timetable()}
	svc := NewSearchService(store, newMemCache(), 0, discardLogger())

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.Search(context.Background(), &models.SearchRequest{Origin: "AAA", Destination: "CCC"})
			if err == nil && resp.Count != 2 {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestSearchService_Airports(t *testing.T) {
	svc := NewSearchService(StaticTimetable(timetable()), nil, 0, discardLogger())

	resp, err := svc.Airports(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, resp.Airports)
	assert.Equal(t, 4, resp.Flights)
}

func TestSearchService_Canceled(t *testing.T) {
	svc := NewSearchService(StaticTimetable(timetable()), nil, 0, discardLogger(), WithTimeout(time.Second))
	assert.Equal(t, time.Second, svc.timeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Search(ctx, &models.SearchRequest{Origin: "AAA", Destination: "CCC"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, outcomeError, classify(err))
}

type gatedStore struct {
	countingStore
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) ListAll(ctx context.Context) ([]models.Flight, error) {
	s.entered <- struct{}{}
	<-s.release
	return s.countingStore.ListAll(ctx)
}

func TestSearchService_CanceledCallerDoesNotFailSharedLoad(t *testing.T) {
	store := &gatedStore{
		countingStore: countingStore{flights: timetable()},
		entered:       make(chan struct{}, 1),
		release:       make(chan struct{}),
	}
	svc := NewSearchService(store, nil, 0, discardLogger())
	req := &models.SearchRequest{Origin: "AAA", Destination: "CCC"}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := svc.Search(ctx, req)
		first <- err
	}()
	<-store.entered

	type result struct {
		resp *models.SearchResponse
		err  error
	}
	second := make(chan result, 1)
	go func() {
		resp, err := svc.Search(context.Background(), req)
		second <- result{resp, err}
	}()

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	// let the second caller join the load still in flight
	time.Sleep(50 * time.Millisecond)
	close(store.release)

	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, 2, res.resp.Count)
	assert.Equal(t, 1, store.calls)
}

func TestSearchService_ZeroLayoverKeepsDirectFlights(t *testing.T) {
	svc := NewSearchService(StaticTimetable(timetable()), nil, 0, discardLogger())

	resp, err := svc.Search(context.Background(), &models.SearchRequest{
		Origin:          "AAA",
		Destination:     "CCC",
		MaxLayoverHours: intPtr(0),
	})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	require.Len(t, resp.Itineraries[0].Flights, 1)
	assert.Equal(t, "F3", resp.Itineraries[0].Flights[0].FlightNo)
}
