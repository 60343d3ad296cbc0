package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flight_search/internal/models"
)

func ts(s string) time.Time {
	t, err := time.Parse(models.TimestampLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func flight(no, from, to, dep, arr string, price, bag float64, bags int) models.Flight {
	return models.Flight{
		FlightNo:    no,
		Origin:      from,
		Destination: to,
		Departure:   ts(dep),
		Arrival:     ts(arr),
		BasePrice:   price,
		BagPrice:    bag,
		BagsAllowed: bags,
	}
}

func oneWay(src, dst string) *Config {
	return &Config{
		Source:          src,
		Destination:     dst,
		Trip:            OneWay,
		MaxLayoverHours: models.DefaultMaxLayoverHours,
		MaxNrChanges:    models.DefaultMaxNrChanges,
	}
}

func run(t *testing.T, flights []models.Flight, cfg *Config) []models.Itinerary {
	t.Helper()
	idx, err := NewIndex(flights)
	require.NoError(t, err)
	res, err := Search(context.Background(), idx, cfg)
	require.NoError(t, err)
	return Project(res.Itineraries, cfg)
}

func flightNos(it models.Itinerary) []string {
	out := make([]string, len(it.Flights))
	for i, f := range it.Flights {
		out[i] = f.FlightNo
	}
	return out
}
