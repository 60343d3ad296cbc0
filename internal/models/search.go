package models

// Defaults applied when a request leaves the field unset.
const (
	DefaultMaxLayoverHours = 6
	DefaultMaxNrChanges    = -1
)

// SearchRequest is the wire form of the search parameters, shared by the
// HTTP API and the CLI.
type SearchRequest struct {
	Origin            string `json:"origin" validate:"required,alphanum"`
	Destination       string `json:"destination" validate:"required,alphanum"`
	MiddleDestination string `json:"middle_destination,omitempty" validate:"omitempty,alphanum"`
	Bags              int    `json:"bags" validate:"gte=0"`
	Return            bool   `json:"return"`
	Multicity         bool   `json:"multicity"`
	DaysOfStay        int    `json:"days_of_stay" validate:"gte=0"`
	MaxLayoverHours   *int   `json:"max_layover_hours,omitempty" validate:"omitempty,gte=0"`
	MaxTravelHours    int    `json:"max_travel_hours" validate:"gte=0"`
	MaxNrChanges      *int   `json:"max_nr_changes,omitempty" validate:"omitempty,gte=-1"`
	DayOfDeparture    string `json:"day_of_departure,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type SearchResponse struct {
	SearchID    string      `json:"search_id"`
	Count       int         `json:"count"`
	Itineraries []Itinerary `json:"itineraries"`
}

type AirportsResponse struct {
	Airports []string `json:"airports"`
	Flights  int      `json:"flights"`
}
