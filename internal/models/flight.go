package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// TimestampLayout is the timetable format for departure and arrival.
	TimestampLayout = "2006-01-02T15:04:05"
	// DateLayout is the format of a fixed departure day.
	DateLayout = "2006-01-02"
)

// ErrMalformedFlight marks every DataError.
var ErrMalformedFlight = errors.New("malformed flight record")

// Flight is one direct connection from the timetable. Records are loaded once
// and never mutated; timestamps are compared as given, without zone conversion.
type Flight struct {
	FlightNo    string
	Origin      string
	Destination string
	Departure   time.Time
	Arrival     time.Time
	BasePrice   float64
	BagPrice    float64
	BagsAllowed int
}

type flightJSON struct {
	FlightNo    string  `json:"flight_no"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Departure   string  `json:"departure"`
	Arrival     string  `json:"arrival"`
	BasePrice   float64 `json:"base_price"`
	BagPrice    float64 `json:"bag_price"`
	BagsAllowed int     `json:"bags_allowed"`
}

func (f Flight) MarshalJSON() ([]byte, error) {
	return json.Marshal(flightJSON{
		FlightNo:    f.FlightNo,
		Origin:      f.Origin,
		Destination: f.Destination,
		Departure:   f.Departure.Format(TimestampLayout),
		Arrival:     f.Arrival.Format(TimestampLayout),
		BasePrice:   f.BasePrice,
		BagPrice:    f.BagPrice,
		BagsAllowed: f.BagsAllowed,
	})
}

func (f *Flight) UnmarshalJSON(b []byte) error {
	var w flightJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	dep, err := time.Parse(TimestampLayout, w.Departure)
	if err != nil {
		return fmt.Errorf("departure: %w", err)
	}
	arr, err := time.Parse(TimestampLayout, w.Arrival)
	if err != nil {
		return fmt.Errorf("arrival: %w", err)
	}

	*f = Flight{
		FlightNo:    w.FlightNo,
		Origin:      w.Origin,
		Destination: w.Destination,
		Departure:   dep,
		Arrival:     arr,
		BasePrice:   w.BasePrice,
		BagPrice:    w.BagPrice,
		BagsAllowed: w.BagsAllowed,
	}
	return nil
}

// Duration is the scheduled block time of the flight.
func (f *Flight) Duration() time.Duration {
	return f.Arrival.Sub(f.Departure)
}

// DataError reports a timetable record that cannot be used by the search.
// Row is zero based over data rows.
type DataError struct {
	Row   int
	Field string
	Err   error
}

func (e *DataError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s at row %d: %v", ErrMalformedFlight, e.Row, e.Err)
	}
	return fmt.Sprintf("%s at row %d: %s: %v", ErrMalformedFlight, e.Row, e.Field, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

func (e *DataError) Is(target error) bool { return target == ErrMalformedFlight }
