package models

import (
	"bytes"
	"encoding/json"
)

// TravelTime is the elapsed time of one part of a trip. An empty To labels
// the whole one-way trip.
type TravelTime struct {
	To      string
	Elapsed string
}

func (t TravelTime) Key() string {
	if t.To == "" {
		return "travel_time"
	}
	return "travel_time_to_" + t.To
}

// Itinerary is one ranked search result.
type Itinerary struct {
	Flights           []Flight
	BagsAllowed       int
	BagsCount         int
	Origin            string
	Destination       string
	MiddleDestination string
	TotalPrice        float64
	TravelTimes       []TravelTime
}

// MarshalJSON keeps the field order of the published result format; the
// travel time keys depend on the airports of the trip.
func (it Itinerary) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	field := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(b)
		return nil
	}

	flights := it.Flights
	if flights == nil {
		flights = []Flight{}
	}
	if err := field("flights", flights); err != nil {
		return nil, err
	}
	if err := field("bags_allowed", it.BagsAllowed); err != nil {
		return nil, err
	}
	if err := field("bags_count", it.BagsCount); err != nil {
		return nil, err
	}
	if err := field("destination", it.Destination); err != nil {
		return nil, err
	}
	if it.MiddleDestination != "" {
		if err := field("middle_destination", it.MiddleDestination); err != nil {
			return nil, err
		}
	}
	if err := field("origin", it.Origin); err != nil {
		return nil, err
	}
	if err := field("total_price", it.TotalPrice); err != nil {
		return nil, err
	}
	for _, tt := range it.TravelTimes {
		if err := field(tt.Key(), tt.Elapsed); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
