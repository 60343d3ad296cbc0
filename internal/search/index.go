package search

import (
	"errors"
	"math"
	"slices"

	"flight_search/internal/models"
)

// Index maps an airport code to the flights departing it, in timetable order.
// It is read-only after NewIndex returns.
type Index struct {
	flights  []models.Flight
	byOrigin map[string][]*models.Flight
}

// NewIndex validates the records and groups them by origin. Airports that
// only appear as a destination get no entry.
func NewIndex(flights []models.Flight) (*Index, error) {
	idx := &Index{
		flights:  slices.Clone(flights),
		byOrigin: make(map[string][]*models.Flight),
	}

	for i := range idx.flights {
		f := &idx.flights[i]
		if err := ValidateFlight(i, f); err != nil {
			return nil, err
		}
		idx.byOrigin[f.Origin] = append(idx.byOrigin[f.Origin], f)
	}

	return idx, nil
}

// ValidateFlight checks one timetable record. row is reported in the DataError.
func ValidateFlight(row int, f *models.Flight) error {
	switch {
	case f.FlightNo == "":
		return &models.DataError{Row: row, Field: "flight_no", Err: errors.New("empty")}
	case f.Origin == "":
		return &models.DataError{Row: row, Field: "origin", Err: errors.New("empty")}
	case f.Destination == "":
		return &models.DataError{Row: row, Field: "destination", Err: errors.New("empty")}
	case f.Origin == f.Destination:
		return &models.DataError{Row: row, Field: "destination", Err: errors.New("equals origin")}
	case !f.Departure.Before(f.Arrival):
		return &models.DataError{Row: row, Field: "arrival", Err: errors.New("not after departure")}
	case !finite(f.BasePrice):
		return &models.DataError{Row: row, Field: "base_price", Err: errors.New("not a finite number")}
	case !finite(f.BagPrice):
		return &models.DataError{Row: row, Field: "bag_price", Err: errors.New("not a finite number")}
	case f.BasePrice < 0:
		return &models.DataError{Row: row, Field: "base_price", Err: errors.New("negative")}
	case f.BagPrice < 0:
		return &models.DataError{Row: row, Field: "bag_price", Err: errors.New("negative")}
	case f.BagsAllowed < 0:
		return &models.DataError{Row: row, Field: "bags_allowed", Err: errors.New("negative")}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Departures returns the flights leaving code. The slice must not be modified.
func (x *Index) Departures(code string) []*models.Flight {
	return x.byOrigin[code]
}

// Has reports whether at least one flight departs code.
func (x *Index) Has(code string) bool {
	_, ok := x.byOrigin[code]
	return ok
}

// Airports lists the origins in lexical order.
func (x *Index) Airports() []string {
	out := make([]string, 0, len(x.byOrigin))
	for code := range x.byOrigin {
		out = append(out, code)
	}
	slices.Sort(out)
	return out
}

// Len is the number of indexed flights.
func (x *Index) Len() int { return len(x.flights) }
