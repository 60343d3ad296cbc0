package search

import "time"

// TripType selects how itineraries are segmented into legs.
type TripType int

const (
	OneWay TripType = iota
	Return
	Multicity
)

func (t TripType) String() string {
	switch t {
	case Return:
		return "return"
	case Multicity:
		return "multicity"
	default:
		return "one_way"
	}
}

// Config holds validated search parameters. Source, Destination and
// MiddleDestination are pairwise distinct and all present in the index.
type Config struct {
	Source            string
	Destination       string
	MiddleDestination string
	Bags              int
	Trip              TripType

	DaysOfStay      int
	MaxLayoverHours int
	// MaxTravelHours bounds a single leg; 0 means unbounded.
	MaxTravelHours int
	// MaxNrChanges is -1 for unbounded and 0 for direct flights only.
	MaxNrChanges int
	// DepartureDate is the zero time when any day is acceptable.
	DepartureDate time.Time
}

// Terminal is the airport that completes an itinerary.
func (c *Config) Terminal() string {
	if c.Trip == Return {
		return c.Source
	}
	return c.Destination
}

func (c *Config) HasDepartureDate() bool {
	return !c.DepartureDate.IsZero()
}
