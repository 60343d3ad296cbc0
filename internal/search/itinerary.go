package search

import (
	"slices"
	"time"

	"flight_search/internal/models"
)

// Leg is one directional sub-journey. Start is the airport the leg leaves
// from; it stands in for the first flight's predecessor.
type Leg struct {
	Start   string
	Flights []*models.Flight
}

// Empty reports whether no flight has been taken in the leg yet.
func (l *Leg) Empty() bool { return len(l.Flights) == 0 }

func (l *Leg) First() *models.Flight {
	if l.Empty() {
		return nil
	}
	return l.Flights[0]
}

func (l *Leg) Last() *models.Flight {
	if l.Empty() {
		return nil
	}
	return l.Flights[len(l.Flights)-1]
}

// End is the airport the leg currently ends at.
func (l *Leg) End() string {
	if last := l.Last(); last != nil {
		return last.Destination
	}
	return l.Start
}

// Elapsed is the time from the first departure to the last arrival.
func (l *Leg) Elapsed() time.Duration {
	if l.Empty() {
		return 0
	}
	return l.Last().Arrival.Sub(l.First().Departure)
}

// Itinerary is an in-progress or completed trip. Every itinerary holds at
// least one leg, and each new leg starts where the previous one ended.
type Itinerary struct {
	Legs []Leg
}

func NewItinerary(source string) *Itinerary {
	return &Itinerary{Legs: []Leg{{Start: source}}}
}

// Current is the leg being built.
func (it *Itinerary) Current() *Leg {
	return &it.Legs[len(it.Legs)-1]
}

// StartLeg opens a new leg at airport.
func (it *Itinerary) StartLeg(airport string) {
	it.Legs = append(it.Legs, Leg{Start: airport})
}

// Append adds f to the current leg.
func (it *Itinerary) Append(f *models.Flight) {
	leg := it.Current()
	leg.Flights = append(leg.Flights, f)
}

// Clone copies the leg structure so the copy can grow independently.
// Flight records are shared; they are never mutated.
func (it *Itinerary) Clone() *Itinerary {
	legs := make([]Leg, len(it.Legs))
	for i, l := range it.Legs {
		legs[i] = Leg{Start: l.Start, Flights: slices.Clone(l.Flights)}
	}
	return &Itinerary{Legs: legs}
}

// Flights flattens the legs in travel order.
func (it *Itinerary) Flights() []*models.Flight {
	var n int
	for _, l := range it.Legs {
		n += len(l.Flights)
	}
	out := make([]*models.Flight, 0, n)
	for _, l := range it.Legs {
		out = append(out, l.Flights...)
	}
	return out
}
