package search

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight_search/internal/models"
)

func TestSearch_DirectFlightOnly(t *testing.T) {
	flights := []models.Flight{
		flight("F1", "AAA", "BBB", "2021-09-01T10:00:00", "2021-09-01T12:00:00", 100, 1, 1),
	}
	cfg := oneWay("AAA", "BBB")
	cfg.MaxNrChanges = 0

	got := run(t, flights, cfg)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"F1"}, flightNos(got[0]))
	assert.Equal(t, 100.0, got[0].TotalPrice)
	assert.Equal(t, 1, got[0].BagsAllowed)
	assert.Equal(t, 0, got[0].BagsCount)
	assert.Equal(t, []models.TravelTime{{Elapsed: "2:00:00"}}, got[0].TravelTimes)
}

func TestSearch_TooManyBags(t *testing.T) {
	flights := []models.Flight{
		flight("F1", "AAA", "BBB", "2021-09-01T10:00:00", "2021-09-01T12:00:00", 100, 1, 1),
	}
	cfg := oneWay("AAA", "BBB")
	cfg.Bags = 2
	cfg.MaxNrChanges = 0

	assert.Empty(t, run(t, flights, cfg))
}

func connections() []models.Flight {
	return []models.Flight{
		flight("AB", "AAA", "BBB", "2021-09-01T06:00:00", "2021-09-01T07:00:00", 30, 5, 2),
		flight("BC1", "BBB", "CCC", "2021-09-01T08:00:00", "2021-09-01T09:00:00", 40, 5, 1), // 1h layover
		flight("BC2", "BBB", "CCC", "2021-09-01T07:30:00", "2021-09-01T08:30:00", 1, 1, 1),  // too short
		flight("BC3", "BBB", "CCC", "2021-09-01T13:00:00", "2021-09-01T14:00:00", 35, 5, 1), // 6h layover
		flight("BC4", "BBB", "CCC", "2021-09-01T13:01:00", "2021-09-01T14:00:00", 1, 1, 1),  // too long
		flight("AC", "AAA", "CCC", "2021-09-01T10:00:00", "2021-09-01T12:00:00", 100, 10, 2),
	}
}

func TestSearch_OneWayWithConnections(t *testing.T) {
	cfg := oneWay("AAA", "CCC")
	cfg.Bags = 1

	got := run(t, connections(), cfg)
	require.Len(t, got, 3)

	assert.Equal(t, []string{"AB", "BC3"}, flightNos(got[0]))
	assert.Equal(t, 75.0, got[0].TotalPrice)
	assert.Equal(t, 1, got[0].BagsAllowed)
	assert.Equal(t, "8:00:00", got[0].TravelTimes[0].Elapsed)

	assert.Equal(t, []string{"AB", "BC1"}, flightNos(got[1]))
	assert.Equal(t, 80.0, got[1].TotalPrice)

	assert.Equal(t, []string{"AC"}, flightNos(got[2]))
	assert.Equal(t, 110.0, got[2].TotalPrice)
}

func TestSearch_BagsFilterConnections(t *testing.T) {
	cfg := oneWay("AAA", "CCC")
	cfg.Bags = 2

	got := run(t, connections(), cfg)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"AC"}, flightNos(got[0]))
	assert.Equal(t, 120.0, got[0].TotalPrice)
}

func TestSearch_MaxNrChanges(t *testing.T) {
	cfg := oneWay("AAA", "CCC")

	cfg.MaxNrChanges = 0
	got := run(t, connections(), cfg)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"AC"}, flightNos(got[0]))

	cfg.MaxNrChanges = 1
	assert.Len(t, run(t, connections(), cfg), 3)
}

func TestSearch_MaxTravelHours(t *testing.T) {
	cfg := oneWay("AAA", "CCC")
	cfg.MaxTravelHours = 3

	got := run(t, connections(), cfg)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"AB", "BC1"}, flightNos(got[0]))
	assert.Equal(t, []string{"AC"}, flightNos(got[1]))
}

func TestSearch_DepartureDateOnlyPinsFirstFlight(t *testing.T) {
	flights := []models.Flight{
		flight("AB1", "AAA", "BBB", "2021-09-01T23:00:00", "2021-09-02T00:30:00", 10, 1, 1),
		flight("AB2", "AAA", "BBB", "2021-09-02T23:00:00", "2021-09-03T00:30:00", 10, 1, 1),
		flight("BC", "BBB", "CCC", "2021-09-02T02:00:00", "2021-09-02T03:00:00", 10, 1, 1),
	}
	cfg := oneWay("AAA", "CCC")
	cfg.DepartureDate = ts("2021-09-01T00:00:00")

	got := run(t, flights, cfg)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"AB1", "BC"}, flightNos(got[0]))

	cfg.DepartureDate = ts("2021-09-03T00:00:00")
	assert.Empty(t, run(t, flights, cfg))
}

func TestSearch_StablePriceTies(t *testing.T) {
	flights := []models.Flight{
		flight("F1", "AAA", "BBB", "2021-09-01T06:00:00", "2021-09-01T07:00:00", 100, 0, 1),
		flight("F2", "AAA", "BBB", "2021-09-01T08:00:00", "2021-09-01T09:00:00", 50, 0, 1),
		flight("F3", "AAA", "BBB", "2021-09-01T10:00:00", "2021-09-01T11:00:00", 100, 0, 1),
	}

	got := run(t, flights, oneWay("AAA", "BBB"))
	require.Len(t, got, 3)
	assert.Equal(t, "F2", got[0].Flights[0].FlightNo)
	assert.Equal(t, "F1", got[1].Flights[0].FlightNo)
	assert.Equal(t, "F3", got[2].Flights[0].FlightNo)
}

func returnTrip(src, dst string, days int) *Config {
	cfg := oneWay(src, dst)
	cfg.Trip = Return
	cfg.DaysOfStay = days
	return cfg
}

func TestSearch_ReturnTrip(t *testing.T) {
	flights := []models.Flight{
		flight("AB", "AAA", "BBB", "2021-09-01T10:00:00", "2021-09-01T12:00:00", 100, 10, 2),
		flight("BA1", "BBB", "AAA", "2021-09-02T00:00:00", "2021-09-02T02:30:00", 80, 10, 2),
		flight("BA2", "BBB", "AAA", "2021-09-03T10:00:00", "2021-09-03T12:00:00", 60, 10, 1),
	}

	got := run(t, flights, returnTrip("AAA", "BBB", 0))
	require.Len(t, got, 2)
	assert.Equal(t, []string{"AB", "BA2"}, flightNos(got[0]))
	assert.Equal(t, 160.0, got[0].TotalPrice)
	assert.Equal(t, []string{"AB", "BA1"}, flightNos(got[1]))
	assert.Equal(t, []models.TravelTime{
		{To: "BBB", Elapsed: "2:00:00"},
		{To: "AAA", Elapsed: "2:30:00"},
	}, got[1].TravelTimes)
	assert.Empty(t, got[1].MiddleDestination)

	// BA1 leaves 12h after arrival, less than a day of stay
	got = run(t, flights, returnTrip("AAA", "BBB", 1))
	require.Len(t, got, 1)
	assert.Equal(t, []string{"AB", "BA2"}, flightNos(got[0]))
}

func TestSearch_ReturnTripWithoutValidConnection(t *testing.T) {
	flights := []models.Flight{
		flight("AB", "AAA", "BBB", "2021-09-01T10:00:00", "2021-09-01T12:00:00", 100, 10, 2),
		flight("BC", "BBB", "CCC", "2021-09-02T08:00:00", "2021-09-02T10:00:00", 50, 10, 2),
		// 12h after BC arrives, beyond the 6h layover window
		flight("CA", "CCC", "AAA", "2021-09-02T22:00:00", "2021-09-02T23:00:00", 50, 10, 2),
	}

	got := run(t, flights, returnTrip("AAA", "BBB", 0))
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestSearch_Multicity(t *testing.T) {
	flights := []models.Flight{
		flight("AB", "AAA", "BBB", "2021-09-01T08:00:00", "2021-09-01T10:00:00", 50, 1, 1),
		flight("AC", "AAA", "CCC", "2021-09-01T08:00:00", "2021-09-01T09:00:00", 10, 1, 1),
		flight("BC", "BBB", "CCC", "2021-09-03T08:00:00", "2021-09-03T10:00:00", 60, 1, 1),
		flight("BA", "BBB", "AAA", "2021-09-03T08:00:00", "2021-09-03T09:00:00", 5, 1, 1),
	}
	cfg := oneWay("AAA", "CCC")
	cfg.Trip = Multicity
	cfg.MiddleDestination = "BBB"

	idx, err := NewIndex(flights)
	require.NoError(t, err)
	res, err := Search(context.Background(), idx, cfg)
	require.NoError(t, err)
	// AAA->CCC in the first leg and BBB->AAA in the second
	assert.Equal(t, 2, res.Stats.Pruned[CheckMulticityOrder])
	assert.Equal(t, 1, res.Stats.Completed)

	got := Project(res.Itineraries, cfg)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"AB", "BC"}, flightNos(got[0]))
	assert.Equal(t, 110.0, got[0].TotalPrice)
	assert.Equal(t, "BBB", got[0].MiddleDestination)
	assert.Equal(t, []models.TravelTime{
		{To: "BBB", Elapsed: "2:00:00"},
		{To: "CCC", Elapsed: "2:00:00"},
	}, got[0].TravelTimes)
}

func TestSearch_Idempotent(t *testing.T) {
	flights := generateTimetable(7, 8)
	cfg := returnTrip("AAA", "DDD", 0)

	first := run(t, flights, cfg)
	second := run(t, flights, cfg)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestSearch_ArgumentErrors(t *testing.T) {
	idx, err := NewIndex(nil)
	require.NoError(t, err)

	_, err = Search(context.Background(), nil, oneWay("AAA", "BBB"))
	assert.ErrorIs(t, err, ErrIndexNil)
	_, err = Search(context.Background(), idx, nil)
	assert.ErrorIs(t, err, ErrConfigNil)
}

func TestSearch_ContextCanceled(t *testing.T) {
	idx, err := NewIndex(connections())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Search(ctx, idx, oneWay("AAA", "CCC"))
	assert.ErrorIs(t, err, context.Canceled)
}

// generateTimetable builds a dense timetable between four airports with a
// flight roughly every three hours on each directed pair.
func generateTimetable(seed int64, slots int) []models.Flight {
	rnd := rand.New(rand.NewSource(seed))
	airports := []string{"AAA", "BBB", "CCC", "DDD"}
	start := ts("2021-09-01T00:00:00")

	var out []models.Flight
	for slot := 0; slot < slots; slot++ {
		for _, from := range airports {
			for _, to := range airports {
				if from == to {
					continue
				}
				dep := start.Add(time.Duration(slot*3)*time.Hour + time.Duration(rnd.Intn(120))*time.Minute)
				arr := dep.Add(time.Duration(60+rnd.Intn(180)) * time.Minute)
				out = append(out, models.Flight{
					FlightNo:    fmt.Sprintf("%s%s%d", from[:1], to[:1], slot),
					Origin:      from,
					Destination: to,
					Departure:   dep,
					Arrival:     arr,
					BasePrice:   float64(20 + rnd.Intn(200)),
					BagPrice:    float64(rnd.Intn(15)),
					BagsAllowed: rnd.Intn(3),
				})
			}
		}
	}
	return out
}
